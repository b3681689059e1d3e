package core

import (
	"fmt"
	"strings"

	"github.com/edvin/vpanel/internal/provision"
)

// State is the terminal state of a mutating operation.
type State string

const (
	// StateRejected: nothing persisted, no command dispatched.
	StateRejected State = "rejected"
	// StateDegraded: persisted, but a required command failed.
	StateDegraded State = "degraded"
	// StateSuccess: persisted and every required command succeeded.
	StateSuccess State = "success"
)

// Result reports a single mutation that got past validation.
type Result struct {
	State       State               `json:"state"`
	Message     string              `json:"message"`
	Subject     string              `json:"subject,omitempty"`
	Diagnostics []string            `json:"diagnostics,omitempty"`
	Commands    []provision.Outcome `json:"commands,omitempty"`
	Data        any                 `json:"data,omitempty"`
}

// Failures returns a ProvisioningError per failed command.
func (r *Result) Failures() []*ProvisioningError {
	var out []*ProvisioningError
	for _, o := range r.Commands {
		if !o.OK {
			out = append(out, &ProvisioningError{Subject: r.Subject, Command: o.Command, Diagnostic: o.Diagnostic()})
		}
	}
	return out
}

// Reconcile folds command outcomes for subject into a Result. okMsg is used
// when every command succeeded (or none ran); failMsg prefixes the warning
// otherwise.
func Reconcile(subject, okMsg, failMsg string, outcomes ...provision.Outcome) *Result {
	r := &Result{State: StateSuccess, Message: okMsg, Subject: subject, Commands: outcomes}
	for _, o := range outcomes {
		if !o.OK {
			r.State = StateDegraded
			r.Diagnostics = append(r.Diagnostics, o.Diagnostic())
		}
	}
	if r.State == StateDegraded {
		r.Message = fmt.Sprintf("%s: %s", failMsg, strings.Join(r.Diagnostics, "; "))
	}
	return r
}

// RowResult is one row of a bulk operation.
type RowResult struct {
	ID         int64  `json:"id"`
	Subject    string `json:"subject,omitempty"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// BulkResult is the fold of per-row outcomes of a bulk operation.
type BulkResult struct {
	Requested int         `json:"requested"`
	Succeeded []RowResult `json:"succeeded"`
	Failed    []RowResult `json:"failed"`
	Skipped   []int64     `json:"skipped,omitempty"`
}

func newBulkResult(requested int) *BulkResult {
	return &BulkResult{Requested: requested, Succeeded: []RowResult{}, Failed: []RowResult{}}
}

// Add records the outcome of one row. A row fails if any of its commands failed.
func (b *BulkResult) Add(id int64, subject string, outcomes ...provision.Outcome) {
	for _, o := range outcomes {
		if !o.OK {
			b.Failed = append(b.Failed, RowResult{ID: id, Subject: subject, Diagnostic: o.Diagnostic()})
			return
		}
	}
	b.Succeeded = append(b.Succeeded, RowResult{ID: id, Subject: subject})
}

// AddError records a row that failed before any command ran.
func (b *BulkResult) AddError(id int64, subject string, err error) {
	b.Failed = append(b.Failed, RowResult{ID: id, Subject: subject, Diagnostic: err.Error()})
}

// State is degraded when any row failed.
func (b *BulkResult) State() State {
	if len(b.Failed) > 0 {
		return StateDegraded
	}
	return StateSuccess
}

// Summary is the operator-facing one-line report.
func (b *BulkResult) Summary() string {
	s := fmt.Sprintf("%d succeeded, %d had cleanup issues", len(b.Succeeded), len(b.Failed))
	if len(b.Skipped) > 0 {
		s += fmt.Sprintf(", %d skipped", len(b.Skipped))
	}
	return s
}
