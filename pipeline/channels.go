// Package pipeline connects metric sources to the sink. A Collector samples
// every enabled source on its own tick and publishes each value onto that
// metric's channel; a Renderer, on an independent tick, drains whatever has
// arrived into its snapshot, formats the status line and publishes it.
// Neither loop ever waits for the other.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"gitlab.com/tinyland/lab/rootbar/collectors/network"
	"gitlab.com/tinyland/lab/rootbar/collectors/retry"
)

// DefaultChannelCapacity is the default buffer per metric channel.
const DefaultChannelCapacity = 8

// errChannelFull is reported to the retry loop when the renderer has not
// drained a channel yet.
var errChannelFull = errors.New("channel full")

// Channels holds one single-producer single-consumer FIFO per metric.
type Channels struct {
	Battery [2]chan int
	Power   chan float64
	AC      chan bool
	Memory  chan int
	CPU     chan int
	Network chan []network.Address
}

// NewChannels allocates every channel with the given capacity. Capacities
// below 1 use DefaultChannelCapacity.
func NewChannels(capacity int) *Channels {
	if capacity < 1 {
		capacity = DefaultChannelCapacity
	}
	return &Channels{
		Battery: [2]chan int{make(chan int, capacity), make(chan int, capacity)},
		Power:   make(chan float64, capacity),
		AC:      make(chan bool, capacity),
		Memory:  make(chan int, capacity),
		CPU:     make(chan int, capacity),
		Network: make(chan []network.Address, capacity),
	}
}

// send delivers v on ch. While the channel is full it backs off and tries
// again until it succeeds or ctx ends; a produced sample is never dropped.
func send[T any](ctx context.Context, name string, ch chan<- T, v T, cfg retry.Config) error {
	select {
	case ch <- v:
		return nil
	default:
	}
	_, err := retry.Do(ctx, "publish "+name, cfg, func(context.Context) error {
		select {
		case ch <- v:
			return nil
		default:
			return errChannelFull
		}
	})
	return err
}

// drain moves every message already queued on ch into dst, in order, so dst
// ends up holding the most recent one. It never blocks. It reports whether
// dst changed.
func drain[T any](ch <-chan T, dst *T) bool {
	n := len(ch)
	for range n {
		*dst = <-ch
	}
	return n > 0
}

// discardLogger is used when a component is given a nil logger.
func discardLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
