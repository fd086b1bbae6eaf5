package sysmetrics

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shirou/gopsutil/v4/cpu"

	"gitlab.com/tinyland/lab/rootbar/collectors"
)

// ErrWarmingUp is returned by CPUSampler.Sample until it has a baseline
// reading to compute a delta against.
var ErrWarmingUp = errors.New("sysmetrics: cpu sampler has no baseline yet")

// CPUSampler reports average utilisation across all logical cores since its
// previous call, rounded up to a whole percent.
//
// It is stateful: consecutive readings are only meaningful when taken by the
// same sampler, so exactly one goroutine may own it.
type CPUSampler struct {
	prev     []cpu.TimesStat
	cpuTimes func(ctx context.Context, percpu bool) ([]cpu.TimesStat, error)
}

// NewCPUSampler creates a CPUSampler reading the live system.
func NewCPUSampler() *CPUSampler {
	return &CPUSampler{cpuTimes: cpu.TimesWithContext}
}

// Name returns the metric name.
func (s *CPUSampler) Name() string {
	return collectors.MetricCPU
}

// Sample reads per-core counters and compares them with the previous call.
// The first call, and any call where the core count changed, only records a
// new baseline and returns ErrWarmingUp.
func (s *CPUSampler) Sample(ctx context.Context) (int, error) {
	cur, err := s.cpuTimes(ctx, true)
	if err != nil {
		return 0, fmt.Errorf("sysmetrics: cpu times: %w", err)
	}
	if len(cur) == 0 {
		return 0, errors.New("sysmetrics: no cpu counters reported")
	}

	prev := s.prev
	s.prev = cur
	if len(prev) != len(cur) {
		return 0, ErrWarmingUp
	}

	var sum float64
	for i := range cur {
		sum += coreUsage(prev[i], cur[i])
	}
	avg := sum / float64(len(cur))

	// Strip float noise before rounding up so 50.0000000001 stays 50.
	pct := int(math.Ceil(avg - 1e-9))
	return max(0, min(pct, 100)), nil
}

// coreUsage returns the busy percentage of one core between two readings.
func coreUsage(prev, cur cpu.TimesStat) float64 {
	total := totalTime(cur) - totalTime(prev)
	idle := idleTime(cur) - idleTime(prev)
	if total <= 0 {
		return 0
	}
	busy := total - idle
	if busy < 0 {
		return 0
	}
	return busy / total * 100
}

// totalTime sums the counters that make up wall time on Linux. Guest time
// is already included in User and Nice.
func totalTime(t cpu.TimesStat) float64 {
	return t.User + t.Nice + t.System + t.Idle + t.Iowait + t.Irq + t.Softirq + t.Steal
}

func idleTime(t cpu.TimesStat) float64 {
	return t.Idle + t.Iowait
}

var _ collectors.Source[int] = (*CPUSampler)(nil)
