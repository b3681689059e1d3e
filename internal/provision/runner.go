package provision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Command is a single privileged tool invocation.
type Command struct {
	Name    string
	Args    []string
	Timeout time.Duration

	// secret holds indexes into Args that must never be logged or echoed.
	secret []int
}

// Redacted renders the command line with secret arguments masked.
func (c Command) Redacted() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for i, a := range c.Args {
		if c.isSecret(i) {
			parts = append(parts, "********")
			continue
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

func (c Command) isSecret(i int) bool {
	for _, s := range c.secret {
		if s == i {
			return true
		}
	}
	return false
}

// Outcome is what a Runner observed for one Command.
type Outcome struct {
	Command  string        `json:"command"`
	OK       bool          `json:"ok"`
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"-"`
	Stderr   string        `json:"stderr,omitempty"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// Diagnostic is the operator-facing failure text for a failed outcome.
func (o Outcome) Diagnostic() string {
	if o.OK {
		return ""
	}
	if s := strings.TrimSpace(o.Stderr); s != "" {
		return s
	}
	if o.Err != nil {
		return o.Err.Error()
	}
	return fmt.Sprintf("%s exited with status %d", o.Command, o.ExitCode)
}

// Runner executes provisioning commands. A failure is reported through the
// Outcome and never as a panic or process exit.
type Runner interface {
	Run(ctx context.Context, cmd Command) Outcome
}

// Options configures a SudoRunner.
type Options struct {
	// UseSudo prefixes every command with "sudo -n".
	UseSudo bool
	// SudoPath is the sudo binary, defaults to "sudo".
	SudoPath string
	// BinDir, when set, is joined with each command name.
	BinDir string
}

// waitDelay bounds how long Run waits for output pipes after the command was
// killed. Grandchildren that survive the kill keep the pipes open.
const waitDelay = 2 * time.Second

// SudoRunner runs commands on the local host, optionally through sudo.
type SudoRunner struct {
	logger zerolog.Logger
	opts   Options
}

// NewSudoRunner creates a Runner that shells out on the local host.
func NewSudoRunner(logger zerolog.Logger, opts Options) *SudoRunner {
	if opts.SudoPath == "" {
		opts.SudoPath = "sudo"
	}
	return &SudoRunner{
		logger: logger.With().Str("runner", "sudo").Logger(),
		opts:   opts,
	}
}

func (r *SudoRunner) Run(ctx context.Context, c Command) Outcome {
	runID := uuid.New().String()
	log := r.logger.With().Str("run_id", runID).Str("command", c.Redacted()).Logger()

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	name, args := r.argv(c)
	cmd := exec.CommandContext(ctx, name, args...)
	setProcessGroup(cmd)
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	out := Outcome{
		Command:  c.Redacted(),
		OK:       err == nil,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
		Err:      err,
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		out.ExitCode = -1
		out.Err = fmt.Errorf("%s: timed out after %s", c.Name, timeout)
		if out.Stderr == "" {
			out.Stderr = out.Err.Error()
		}
	case errors.As(err, &exitErr):
		out.ExitCode = exitErr.ExitCode()
	default:
		out.ExitCode = -1
	}

	observe(c.Name, out)
	if out.OK {
		log.Debug().Dur("duration", out.Duration).Msg("provisioning command succeeded")
	} else {
		log.Warn().Err(out.Err).Int("exit_code", out.ExitCode).Str("stderr", strings.TrimSpace(out.Stderr)).
			Dur("duration", out.Duration).Msg("provisioning command failed")
	}
	return out
}

func (r *SudoRunner) argv(c Command) (string, []string) {
	name := c.Name
	if r.opts.BinDir != "" && !strings.Contains(name, "/") {
		name = filepath.Join(r.opts.BinDir, name)
	}
	if !r.opts.UseSudo {
		return name, c.Args
	}
	args := make([]string, 0, len(c.Args)+2)
	args = append(args, "-n", name)
	args = append(args, c.Args...)
	return r.opts.SudoPath, args
}

// DryRunner logs commands instead of executing them. Used on development
// machines that have none of the provisioning tools installed.
type DryRunner struct {
	logger zerolog.Logger
}

// NewDryRunner creates a Runner that reports every command as successful.
func NewDryRunner(logger zerolog.Logger) *DryRunner {
	return &DryRunner{logger: logger.With().Str("runner", "dry").Logger()}
}

func (d *DryRunner) Run(_ context.Context, c Command) Outcome {
	d.logger.Info().Str("command", c.Redacted()).Msg("dry run: command not executed")
	out := Outcome{Command: c.Redacted(), OK: true}
	if c.Name == cmdMailboxStats {
		out.Stdout = "total:0,inbox:0,spam:0,sent:0"
	}
	observe(c.Name, out)
	return out
}
