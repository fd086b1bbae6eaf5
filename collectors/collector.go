// Package collectors defines the metric source contract for rootbar. Each
// source reads one kind of value (battery charge, memory pressure, CPU load,
// network addresses, ...) and either returns it or reports that it is
// unavailable for this tick.
package collectors

import (
	"context"
)

// Metric names. They identify sources in logs and in the pipeline.
const (
	MetricBattery0 = "battery0"
	MetricBattery1 = "battery1"
	MetricPower    = "power"
	MetricAC       = "ac"
	MetricMemory   = "memory"
	MetricCPU      = "cpu"
	MetricNetwork  = "network"
)

// Source is the interface every metric source implements.
type Source[T any] interface {
	// Name returns the metric name (one of the Metric* constants).
	Name() string

	// Sample reads the current value. A non-nil error means the value is
	// unavailable this tick; the caller keeps showing the previous one.
	// Sample must not retain ctx beyond the call.
	Sample(ctx context.Context) (T, error)
}

// SourceFunc adapts a plain function to the Source interface.
type SourceFunc[T any] struct {
	MetricName string
	Fn         func(ctx context.Context) (T, error)
}

// Name returns the metric name.
func (f SourceFunc[T]) Name() string {
	return f.MetricName
}

// Sample calls the wrapped function.
func (f SourceFunc[T]) Sample(ctx context.Context) (T, error) {
	return f.Fn(ctx)
}
