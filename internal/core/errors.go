package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// ErrNotFound is wrapped by every NotFoundError.
var ErrNotFound = errors.New("not found")

// SelfDeleteMessage is the rejection shown when an account tries to delete itself.
const SelfDeleteMessage = "You cannot delete your own account."

// ValidationError carries field-scoped messages. It is always returned before
// anything is persisted.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// fieldError builds a ValidationError for a single field.
func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// takenError is the rejection for a value another row already holds.
func takenError(field string) *ValidationError {
	return fieldError(field, fmt.Sprintf("The %s has already been taken.", field))
}

// uniqueTaken reports a unique constraint failure as a field error. A
// concurrent writer can slip between the uniqueness check and the write.
func uniqueTaken(err error, field string) (*ValidationError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return takenError(field), true
	}
	return nil, false
}

// AuthorizationError means the caller lacks privilege for the operation.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	if e.Reason == "" {
		return "access denied"
	}
	return "access denied: " + e.Reason
}

// NotFoundError names the missing entity.
type NotFoundError struct {
	Kind string
	ID   any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ProvisioningError describes a command that failed after a successful write.
// It is folded into a degraded Result and never rolls anything back.
type ProvisioningError struct {
	Subject    string
	Command    string
	Diagnostic string
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("%s: %s failed: %s", e.Subject, e.Command, e.Diagnostic)
}

// notFound converts pgx.ErrNoRows into a NotFoundError and wraps everything
// else with context.
func notFound(err error, kind string, id any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &NotFoundError{Kind: kind, ID: id}
	}
	return fmt.Errorf("get %s %v: %w", kind, id, err)
}
