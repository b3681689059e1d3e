package core

import (
	"context"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

	"github.com/edvin/vpanel/internal/api/request"
	"github.com/edvin/vpanel/internal/provision"
)

// sqlContains matches a query argument by fragment.
func sqlContains(fragment string) any {
	return mock.MatchedBy(func(sql string) bool { return strings.Contains(sql, fragment) })
}

func boolRow(v bool) *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*bool)) = v
		return nil
	}}
}

func intRow(v int) *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*int)) = v
		return nil
	}}
}

func stringRow(v string) *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = v
		return nil
	}}
}

func errRow(err error) *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error { return err }}
}

func uniqueViolationRow(constraint string) *mockRow {
	return errRow(&pgconn.PgError{Code: "23505", ConstraintName: constraint})
}

func updateTag() pgconn.CommandTag { return pgconn.NewCommandTag("UPDATE 1") }

// ---------- Fake runner ----------

// fakeRunner records every command and fails those named in fail.
type fakeRunner struct {
	mu     sync.Mutex
	ran    []provision.Command
	fail   map[string]string
	stdout map[string]string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{fail: map[string]string{}, stdout: map[string]string{}}
}

func (f *fakeRunner) Run(_ context.Context, c provision.Command) provision.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ran = append(f.ran, c)
	if stderr, ok := f.fail[c.Name]; ok {
		return provision.Outcome{Command: c.Redacted(), ExitCode: 1, Stderr: stderr}
	}
	return provision.Outcome{Command: c.Redacted(), OK: true, Stdout: f.stdout[c.Name]}
}

func (f *fakeRunner) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.ran))
	for i, c := range f.ran {
		out[i] = c.Name
	}
	return out
}

// ---------- Stub caller ----------

type stubCaller struct {
	id    int64
	admin bool
}

func (c stubCaller) ActorID() int64                             { return c.id }
func (c stubCaller) HasAdminCapability(_ context.Context) bool { return c.admin }

func listParams(limit int, hid int64, search string) request.ListParams {
	return request.ListParams{Limit: limit, VhostID: hid, Search: search}
}
