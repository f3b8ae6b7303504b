package audit

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LineSink renders entries as one line each on an io.Writer, in the format
// the persisted log file uses.
type LineSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLineSink constructs a LineSink.
func NewLineSink(w io.Writer) *LineSink {
	return &LineSink{w: w}
}

// Write appends one line per entry.
func (s *LineSink) Write(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if _, err := fmt.Fprintf(s.w, "%s %s\n", e.At.Format("2006-01-02 15:04:05"), e.Message); err != nil {
			return err
		}
	}
	return nil
}

// PGSink persists entries into the audit_logs table.
type PGSink struct {
	pool *pgxpool.Pool
}

// NewPGSink constructs a PGSink.
func NewPGSink(pool *pgxpool.Pool) *PGSink {
	return &PGSink{pool: pool}
}

// Write inserts the entries.
func (s *PGSink) Write(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO audit_logs (actor, message, occurred_at) VALUES ($1, $2, $3)`,
			e.Actor, e.Message, e.At)
		if err != nil {
			return err
		}
	}
	return nil
}
