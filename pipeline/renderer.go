package pipeline

import (
	"context"
	"log/slog"
	"time"

	"gitlab.com/tinyland/lab/rootbar/capability"
	"gitlab.com/tinyland/lab/rootbar/collectors/identity"
	"gitlab.com/tinyland/lab/rootbar/collectors/retry"
	"gitlab.com/tinyland/lab/rootbar/sink"
	"gitlab.com/tinyland/lab/rootbar/status"
)

// RendererConfig configures the Renderer loop.
type RendererConfig struct {
	// Interval between ticks. Zero uses DefaultInterval.
	Interval time.Duration
	// PublishRetry is the backoff used while the sink is failing.
	PublishRetry retry.Config
}

// Renderer owns the snapshot and publishes one status line per tick.
type Renderer struct {
	identity identity.Identity
	flags    capability.Flags
	channels *Channels
	sink     sink.Sink
	interval time.Duration
	retry    retry.Config
	logger   *slog.Logger

	snapshot status.Snapshot

	// now is overridable for testing.
	now func() time.Time
}

// NewRenderer creates a Renderer reading from channels and writing to s.
func NewRenderer(id identity.Identity, flags capability.Flags, channels *Channels, s sink.Sink, cfg RendererConfig, logger *slog.Logger) *Renderer {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger = discardLogger(logger)
	cfg.PublishRetry.Logger = logger
	return &Renderer{
		identity: id,
		flags:    flags,
		channels: channels,
		sink:     s,
		interval: interval,
		retry:    cfg.PublishRetry,
		logger:   logger,
		now:      time.Now,
	}
}

// Run ticks immediately and then every interval until ctx is cancelled.
func (r *Renderer) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.Tick(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick drains pending samples, formats the line and publishes it, retrying
// the same line until the sink accepts it. It returns the published line.
// The only error returned is ctx ending during the retry.
func (r *Renderer) Tick(ctx context.Context) (string, error) {
	r.drain()

	line := status.Format(r.identity, r.flags, r.snapshot, r.now())

	_, err := retry.Do(ctx, "publish status line", r.retry, func(ctx context.Context) error {
		return r.sink.Publish(ctx, line)
	})
	if err != nil {
		return "", err
	}
	return line, nil
}

// Snapshot returns a copy of the current snapshot.
func (r *Renderer) Snapshot() status.Snapshot {
	s := r.snapshot
	s.Network = append(s.Network[:0:0], r.snapshot.Network...)
	return s
}

// drain polls every enabled metric's channel without blocking. A disabled
// metric's field is never touched and keeps its default.
func (r *Renderer) drain() {
	ch := r.channels
	for i := range 2 {
		if r.flags.Battery[i] {
			drain(ch.Battery[i], &r.snapshot.Battery[i])
		}
	}
	if r.flags.AnyPower() {
		drain(ch.Power, &r.snapshot.Power)
	}
	if r.flags.AC {
		drain(ch.AC, &r.snapshot.AC)
	}
	drain(ch.Memory, &r.snapshot.Memory)
	drain(ch.CPU, &r.snapshot.CPU)
	drain(ch.Network, &r.snapshot.Network)
}
