package core

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// scanFunc fills the Scan destinations of one result row.
type scanFunc func(dest ...any) error

// mockDB records every statement through testify; tests match on SQL
// fragments with sqlContains.
type mockDB struct{ mock.Mock }

func (m *mockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	rows, _ := args.Get(0).(pgx.Rows)
	return rows, args.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	return m.Called(ctx, sql, arguments).Get(0).(pgx.Row)
}

type mockRow struct{ scanFunc scanFunc }

func (m *mockRow) Scan(dest ...any) error { return m.scanFunc(dest...) }

// mockRows serves its rows in order with pgx cursor semantics: Scan reads
// the row the last Next moved to.
type mockRows struct {
	rows []scanFunc
	pos  int
	err  error
}

func newMockRows(rows ...scanFunc) *mockRows { return &mockRows{rows: rows} }

func newEmptyMockRows() *mockRows { return &mockRows{} }

func (m *mockRows) Next() bool {
	if m.pos >= len(m.rows) {
		return false
	}
	m.pos++
	return true
}

func (m *mockRows) Scan(dest ...any) error {
	if m.pos == 0 {
		return errors.New("mockRows: Scan before Next")
	}
	return m.rows[m.pos-1](dest...)
}

func (m *mockRows) Err() error                                   { return m.err }
func (m *mockRows) Close()                                       {}
func (m *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (m *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (m *mockRows) RawValues() [][]byte                          { return nil }
func (m *mockRows) Values() ([]any, error)                       { return nil, nil }
func (m *mockRows) Conn() *pgx.Conn                              { return nil }
