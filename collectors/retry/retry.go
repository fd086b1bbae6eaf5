// Package retry provides the capped exponential backoff loop that rootbar
// uses wherever a failure is recovered by trying the same thing again:
// publishing a sample onto a full channel, handing a line to the sink, and
// resolving host identity while the system is still booting.
package retry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Config configures the backoff behavior.
type Config struct {
	// Initial is the delay after the first failure.
	Initial time.Duration
	// Max caps the delay between attempts.
	Max time.Duration
	// Multiplier is the factor applied to the delay after each failure.
	// Values <= 1 give a fixed delay of Initial.
	Multiplier float64
	// Logger for retry events. Nil is safe (a discard logger is used).
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults for production use.
func DefaultConfig() Config {
	return Config{
		Initial:    50 * time.Millisecond,
		Max:        2 * time.Second,
		Multiplier: 2.0,
	}
}

// Backoff produces the delay sequence for one retry loop.
type Backoff struct {
	initial    time.Duration
	max        time.Duration
	multiplier float64
	current    time.Duration
}

// NewBackoff creates a Backoff from cfg. A non-positive Initial falls back
// to DefaultConfig().Initial, and a Max below Initial is raised to Initial.
func NewBackoff(cfg Config) *Backoff {
	initial := cfg.Initial
	if initial <= 0 {
		initial = DefaultConfig().Initial
	}
	maxDelay := cfg.Max
	if maxDelay < initial {
		maxDelay = initial
	}
	return &Backoff{
		initial:    initial,
		max:        maxDelay,
		multiplier: cfg.Multiplier,
	}
}

// Next returns the delay to wait before the next attempt and advances the
// sequence.
func (b *Backoff) Next() time.Duration {
	if b.current == 0 {
		b.current = b.initial
		return b.current
	}
	if b.multiplier > 1 {
		b.current = time.Duration(float64(b.current) * b.multiplier)
	}
	if b.current > b.max {
		b.current = b.max
	}
	return b.current
}

// Do calls fn until it returns nil or ctx is done. It returns the number of
// attempts made and, only when ctx ended the loop, the context error wrapped
// with the last failure.
//
// The first failure is logged at Warn. Identical repeated failures are
// suppressed and summarised every 100 attempts so a sink that stays down for
// hours does not flood the log.
func Do(ctx context.Context, name string, cfg Config, fn func(ctx context.Context) error) (int, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	backoff := NewBackoff(cfg)
	var lastMsg string
	var suppressed int

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("retry succeeded", "op", name, "attempts", attempt)
			}
			return attempt, nil
		}

		msg := err.Error()
		if msg == lastMsg {
			suppressed++
			if suppressed%100 == 0 {
				logger.Warn("retry still failing", "op", name, "attempts", attempt, "error", err)
			}
		} else {
			logger.Warn("retrying after failure", "op", name, "attempt", attempt, "error", err)
			lastMsg = msg
			suppressed = 0
		}

		timer := time.NewTimer(backoff.Next())
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, fmt.Errorf("retry: %s: %w (last error: %v)", name, ctx.Err(), err)
		case <-timer.C:
		}
	}
}
