// Package history defines the persistent audit log of questions asked
// through the tool-use loop. The SQLite-backed implementation lives in
// the history.sqlite module.
package history

import (
	"context"
	"time"
)

// Record is one completed question/answer exchange, including the
// JSON-encoded trace of model turns and tool calls.
type Record struct {
	ID        int64     `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Trace     string    `json:"trace,omitempty"`
	Model     string    `json:"model,omitempty"`
	Turns     int       `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists exchange records. Implementations must be safe for
// concurrent use.
type Store interface {
	// Append stores one record and returns its assigned id.
	Append(ctx context.Context, rec Record) (int64, error)

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)
}
