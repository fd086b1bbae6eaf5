// Package sink provides the destinations a finished status line can be
// published to. A failed Publish is always recoverable: the renderer waits
// and publishes the same line again.
package sink

import (
	"context"
	"errors"
)

// ErrNoDisplay is returned when no X display can be reached.
var ErrNoDisplay = errors.New("sink: no X display")

// Sink accepts a finished status line.
type Sink interface {
	Publish(ctx context.Context, line string) error
}

// Func adapts a plain function to the Sink interface.
type Func func(ctx context.Context, line string) error

// Publish calls f.
func (f Func) Publish(ctx context.Context, line string) error {
	return f(ctx, line)
}
