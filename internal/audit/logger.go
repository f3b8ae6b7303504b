package audit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Entry is a single rendered audit record.
type Entry struct {
	At      time.Time
	Actor   string
	Message string
}

// Sink persists flushed entries.
type Sink interface {
	Write(ctx context.Context, entries []Entry) error
}

// Logger buffers templated audit entries and flushes them on job boundaries.
// One completed job produces exactly one entry, so a sequence of N successful
// jobs yields N persisted lines.
type Logger struct {
	mu    sync.Mutex
	buf   []Entry
	sinks []Sink
	now   func() time.Time
}

// NewLogger constructs a Logger writing to the given sinks.
func NewLogger(sinks ...Sink) *Logger {
	return &Logger{sinks: sinks, now: time.Now}
}

// Append buffers one entry. The template uses named {placeholder} fields
// substituted from the fields map; unknown placeholders are left intact so a
// template bug is visible in the log rather than silently dropped.
func (l *Logger) Append(actor, template string, fields map[string]string) {
	message := Render(template, fields)
	l.mu.Lock()
	l.buf = append(l.buf, Entry{At: l.now().UTC(), Actor: actor, Message: message})
	l.mu.Unlock()
}

// Flush writes all buffered entries to every sink and clears the buffer.
// The buffer is cleared even on sink failure so one broken sink cannot
// multiply entries on the next boundary.
func (l *Logger) Flush(ctx context.Context) error {
	l.mu.Lock()
	entries := l.buf
	l.buf = nil
	l.mu.Unlock()
	if len(entries) == 0 {
		return nil
	}
	var firstErr error
	for _, sink := range l.sinks {
		if err := sink.Write(ctx, entries); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("audit: flush: %w", err)
		}
	}
	return firstErr
}

// Discard drops buffered entries without persisting them, used when the job
// that produced them rolled back.
func (l *Logger) Discard() {
	l.mu.Lock()
	l.buf = nil
	l.mu.Unlock()
}

// Render substitutes {name} placeholders from fields.
func Render(template string, fields map[string]string) string {
	if len(fields) == 0 {
		return template
	}
	pairs := make([]string, 0, len(fields)*2)
	for name, value := range fields {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
