package pipeline

import (
	"context"
	"log/slog"
	"time"

	"gitlab.com/tinyland/lab/rootbar/capability"
	"gitlab.com/tinyland/lab/rootbar/collectors"
	"gitlab.com/tinyland/lab/rootbar/collectors/network"
	"gitlab.com/tinyland/lab/rootbar/collectors/retry"
)

// DefaultInterval is the default tick for both loops.
const DefaultInterval = time.Second

// Sources is the full set of metric sources. Nil entries are skipped.
type Sources struct {
	Battery [2]collectors.Source[int]
	Power   collectors.Source[float64]
	AC      collectors.Source[bool]
	Memory  collectors.Source[int]
	CPU     collectors.Source[int]
	Network collectors.Source[[]network.Address]
}

// CollectorConfig configures the Collector loop.
type CollectorConfig struct {
	// Interval between ticks. Zero uses DefaultInterval.
	Interval time.Duration
	// SendRetry is the backoff used while a channel is full.
	SendRetry retry.Config
}

// Collector samples every enabled source once per tick.
//
// The Collector is the sole owner of its sources. Stateful ones such as the
// CPU sampler must not be shared with anything else.
type Collector struct {
	flags    capability.Flags
	sources  Sources
	channels *Channels
	interval time.Duration
	retry    retry.Config
	logger   *slog.Logger
}

// NewCollector creates a Collector publishing onto channels.
func NewCollector(flags capability.Flags, sources Sources, channels *Channels, cfg CollectorConfig, logger *slog.Logger) *Collector {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger = discardLogger(logger)
	cfg.SendRetry.Logger = logger
	return &Collector{
		flags:    flags,
		sources:  sources,
		channels: channels,
		interval: interval,
		retry:    cfg.SendRetry,
		logger:   logger,
	}
}

// Run ticks immediately and then every interval until ctx is cancelled.
func (c *Collector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if err := c.Tick(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick samples every enabled source once and publishes each success. A
// failed sample is skipped for this tick. The only error returned is ctx
// ending while a publish was waiting for room.
func (c *Collector) Tick(ctx context.Context) error {
	for i := range 2 {
		if c.flags.Battery[i] {
			if err := collect(ctx, c, c.sources.Battery[i], c.channels.Battery[i]); err != nil {
				return err
			}
		}
	}
	if c.flags.AnyPower() {
		if err := collect(ctx, c, c.sources.Power, c.channels.Power); err != nil {
			return err
		}
	}
	if c.flags.AC {
		if err := collect(ctx, c, c.sources.AC, c.channels.AC); err != nil {
			return err
		}
	}
	if err := collect(ctx, c, c.sources.Memory, c.channels.Memory); err != nil {
		return err
	}
	if err := collect(ctx, c, c.sources.CPU, c.channels.CPU); err != nil {
		return err
	}
	return collect(ctx, c, c.sources.Network, c.channels.Network)
}

// collect samples src and publishes the value on ch.
func collect[T any](ctx context.Context, c *Collector, src collectors.Source[T], ch chan<- T) error {
	if src == nil {
		return nil
	}
	v, err := src.Sample(ctx)
	if err != nil {
		c.logger.Debug("sample unavailable, keeping previous value",
			"metric", src.Name(),
			"error", err,
		)
		return nil
	}
	return send(ctx, src.Name(), ch, v, c.retry)
}
