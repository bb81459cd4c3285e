// Package checkoutlog defines the durable audit trail of checkout state
// transitions.
//
// Every transition the orchestrator makes for a session is appended as an
// Entry. The log serves two purposes:
//
//  1. Observability: each row carries the trace_id of the span that wrote
//     it, so a checkout can be followed from the database into the trace.
//
//  2. Recovery: the latest entry for a session holds a snapshot of the
//     checkout, so its status survives an API restart.
package checkoutlog

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("checkout log entry not found")

// Entry is a single row of the checkout_log table.
type Entry struct {
	SessionID   string
	OrderID     string
	OrderNumber string

	// State is the orchestrator state entered by this transition.
	State string

	// Step is the step that ran, empty for transitions that ran none.
	Step string

	// Payload is a JSON snapshot of the checkout after the transition.
	Payload string

	// ErrorMessages is a JSON array of failure details.
	ErrorMessages string

	TraceID string
	SpanID  string

	UpdatedAt time.Time
}

// Repository persists entries. The log is append-only.
type Repository interface {
	Save(ctx context.Context, entry *Entry) error
	// GetLatest returns ErrNotFound when the session has no entries.
	GetLatest(ctx context.Context, sessionID string) (*Entry, error)
}
