// Package sqlite is the SQLite-backed checkoutlog.Repository.
//
// WAL mode lets the status endpoint read while an orchestration is writing.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jcmexdev/storefront-checkout/internal/coordinator/checkoutlog"

	// Pure-Go driver, no CGO needed in the container image.
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS checkout_log (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id      TEXT    NOT NULL,
    order_id        TEXT    NOT NULL DEFAULT '',
    order_number    TEXT    NOT NULL DEFAULT '',
    state           TEXT    NOT NULL,
    step            TEXT    NOT NULL DEFAULT '',
    -- JSON snapshot of the checkout after the transition.
    payload         TEXT,
    error_messages  TEXT    NOT NULL DEFAULT '[]',
    trace_id        TEXT    NOT NULL DEFAULT '',
    span_id         TEXT    NOT NULL DEFAULT '',
    updated_at      TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_checkout_log_session ON checkout_log(session_id, updated_at);
CREATE INDEX IF NOT EXISTS idx_checkout_log_order ON checkout_log(order_number);
CREATE INDEX IF NOT EXISTS idx_checkout_log_trace ON checkout_log(trace_id);
`

type Repository struct {
	db *sql.DB
}

var _ checkoutlog.Repository = (*Repository)(nil)

// Open opens or creates the database at path, creating its directory.
//
//	repo, err := sqlite.Open("./data/checkout.db")
func Open(path string) (*Repository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create dir %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	// single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Save(ctx context.Context, entry *checkoutlog.Entry) error {
	const q = `
		INSERT INTO checkout_log
			(session_id, order_id, order_number, state, step, payload, error_messages, trace_id, span_id, updated_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		entry.SessionID,
		entry.OrderID,
		entry.OrderNumber,
		entry.State,
		entry.Step,
		nullableString(entry.Payload),
		entry.ErrorMessages,
		entry.TraceID,
		entry.SpanID,
		formatTime(entry.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save checkout log for %q: %w", entry.SessionID, err)
	}
	return nil
}

func (r *Repository) GetLatest(ctx context.Context, sessionID string) (*checkoutlog.Entry, error) {
	const q = `
		SELECT session_id, order_id, order_number, state, step, COALESCE(payload,''),
		       error_messages, trace_id, span_id, updated_at
		FROM   checkout_log
		WHERE  session_id = ?
		ORDER  BY updated_at DESC, id DESC
		LIMIT  1`

	var (
		entry     checkoutlog.Entry
		updatedAt string
	)
	err := r.db.QueryRowContext(ctx, q, sessionID).Scan(
		&entry.SessionID,
		&entry.OrderID,
		&entry.OrderNumber,
		&entry.State,
		&entry.Step,
		&entry.Payload,
		&entry.ErrorMessages,
		&entry.TraceID,
		&entry.SpanID,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: session %q: %w", sessionID, checkoutlog.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get latest for %q: %w", sessionID, err)
	}

	if entry.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &entry, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
