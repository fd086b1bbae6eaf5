// Package sysmetrics provides the CPU load and memory pressure sources for
// rootbar. Both read through gopsutil; the OS access points are function
// fields so tests can substitute canned readings.
package sysmetrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/shirou/gopsutil/v4/mem"

	"gitlab.com/tinyland/lab/rootbar/collectors"
)

// errZeroTotal is returned when the kernel reports no memory at all.
var errZeroTotal = errors.New("sysmetrics: total memory is zero")

// MemorySource reports the percentage of memory in use, counting
// reclaimable cache as available.
type MemorySource struct {
	virtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
}

// NewMemorySource creates a MemorySource reading the live system.
func NewMemorySource() *MemorySource {
	return &MemorySource{virtualMemory: mem.VirtualMemoryWithContext}
}

// Name returns the metric name.
func (s *MemorySource) Name() string {
	return collectors.MetricMemory
}

// Sample computes (total - available) * 100 / total.
func (s *MemorySource) Sample(ctx context.Context) (int, error) {
	vm, err := s.virtualMemory(ctx)
	if err != nil {
		return 0, fmt.Errorf("sysmetrics: virtual memory: %w", err)
	}
	return usedPercent(vm.Total, vm.Available)
}

// usedPercent is the integer percentage of total not covered by available.
func usedPercent(total, available uint64) (int, error) {
	if total == 0 {
		return 0, errZeroTotal
	}
	if available > total {
		return 0, nil
	}
	return int((total - available) * 100 / total), nil
}

var _ collectors.Source[int] = (*MemorySource)(nil)
