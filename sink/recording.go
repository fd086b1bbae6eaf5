package sink

import (
	"context"
	"io"
	"log/slog"
	"time"

	"gitlab.com/tinyland/lab/rootbar/cache"
)

// RecordKey is the cache key holding the last published line.
const RecordKey = "status"

// Record is the last line a sink accepted.
type Record struct {
	Line    string    `json:"line"`
	Updated time.Time `json:"updated"`
}

// Recording wraps a Sink and stores every line it accepts in a cache store.
type Recording struct {
	next   Sink
	store  *cache.Store
	logger *slog.Logger

	// now is overridable for testing.
	now func() time.Time
}

// NewRecording wraps next.
func NewRecording(next Sink, store *cache.Store, logger *slog.Logger) *Recording {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Recording{next: next, store: store, logger: logger, now: time.Now}
}

// Publish forwards to the wrapped sink. Only its failure is returned; a
// cache write failure is logged so it never causes the line to be retried.
func (r *Recording) Publish(ctx context.Context, line string) error {
	if err := r.next.Publish(ctx, line); err != nil {
		return err
	}
	if err := r.store.Set(RecordKey, Record{Line: line, Updated: r.now()}); err != nil {
		r.logger.Warn("failed to record status line", "error", err)
	}
	return nil
}

// LastRecord returns the most recently recorded line, or nil if none has
// been recorded.
func LastRecord(store *cache.Store) (*Record, error) {
	return cache.GetTyped[Record](store, RecordKey)
}

var _ Sink = (*Recording)(nil)
