package provision

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSudoRunner_Success(t *testing.T) {
	r := NewSudoRunner(zerolog.Nop(), Options{})

	out := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo total:1"}, Timeout: 5 * time.Second})

	assert.True(t, out.OK)
	assert.Equal(t, 0, out.ExitCode)
	assert.Equal(t, "total:1\n", out.Stdout)
	assert.Empty(t, out.Diagnostic())
}

func TestSudoRunner_NonZeroExitCapturesStderr(t *testing.T) {
	r := NewSudoRunner(zerolog.Nop(), Options{})

	out := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo 'domain exists' >&2; exit 3"}, Timeout: 5 * time.Second})

	assert.False(t, out.OK)
	assert.Equal(t, 3, out.ExitCode)
	assert.Equal(t, "domain exists\n", out.Stderr)
	assert.Equal(t, "domain exists", out.Diagnostic())
}

func TestSudoRunner_Timeout(t *testing.T) {
	r := NewSudoRunner(zerolog.Nop(), Options{})

	out := r.Run(context.Background(), Command{Name: "sleep", Args: []string{"5"}, Timeout: 50 * time.Millisecond})

	assert.False(t, out.OK)
	assert.Equal(t, -1, out.ExitCode)
	assert.Contains(t, out.Diagnostic(), "timed out")
}

func TestSudoRunner_TimeoutKillsForkedChildren(t *testing.T) {
	r := NewSudoRunner(zerolog.Nop(), Options{})

	start := time.Now()
	out := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "sleep 3; echo done"}, Timeout: 100 * time.Millisecond})
	elapsed := time.Since(start)

	assert.False(t, out.OK)
	assert.Equal(t, -1, out.ExitCode)
	assert.Contains(t, out.Diagnostic(), "timed out")
	assert.NotContains(t, out.Stdout, "done")
	assert.Less(t, elapsed, 2*time.Second)
}

func TestSudoRunner_TimeoutWithDetachedGrandchild(t *testing.T) {
	r := NewSudoRunner(zerolog.Nop(), Options{})

	// The grandchild moves to its own session, so only the pipe wait bound
	// gets Run back.
	start := time.Now()
	out := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "setsid sleep 5 & wait"}, Timeout: 100 * time.Millisecond})
	elapsed := time.Since(start)

	assert.False(t, out.OK)
	assert.Less(t, elapsed, waitDelay+2*time.Second)
}

func TestSudoRunner_MissingBinary(t *testing.T) {
	r := NewSudoRunner(zerolog.Nop(), Options{})

	out := r.Run(context.Background(), Command{Name: "definitely-not-a-real-binary-xyz"})

	assert.False(t, out.OK)
	assert.NotEmpty(t, out.Diagnostic())
}

func TestSudoRunner_Argv(t *testing.T) {
	r := NewSudoRunner(zerolog.Nop(), Options{UseSudo: true, BinDir: "/usr/local/sbin"})

	name, args := r.argv(AddVhost("example.com"))

	assert.Equal(t, "sudo", name)
	assert.Equal(t, []string{"-n", "/usr/local/sbin/addvhost", "example.com"}, args)
}

func TestSudoRunner_ArgvWithoutSudo(t *testing.T) {
	r := NewSudoRunner(zerolog.Nop(), Options{})

	name, args := r.argv(RemoveAlias("info@example.com"))

	assert.Equal(t, "rmalias", name)
	assert.Equal(t, []string{"info@example.com"}, args)
}

func TestDryRunner_StatsOutputParses(t *testing.T) {
	r := NewDryRunner(zerolog.Nop())

	out := r.Run(context.Background(), MailboxStats("bob@example.com"))

	assert.True(t, out.OK)
	_, ok := ParseStats(out.Stdout)
	assert.True(t, ok)
}
