// Package power provides battery charge, power draw and AC adapter sources
// backed by the kernel's power_supply sysfs class.
package power

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gitlab.com/tinyland/lab/rootbar/capability"
	"gitlab.com/tinyland/lab/rootbar/collectors"
)

// microwattsPerWatt converts power_now readings to watts.
const microwattsPerWatt = 1_000_000

// acOnline is the value the AC adapter's online attribute reports when
// plugged in.
const acOnline = "1"

// readAttr reads a sysfs attribute and strips surrounding whitespace.
// Overridable for testing.
var readAttr = func(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// BatterySource reports one battery's charge percentage.
type BatterySource struct {
	name string
	path string
}

// NewBatterySource creates a source for battery index (0 or 1) reading
// its capacity attribute from paths.
func NewBatterySource(index int, paths capability.Paths) *BatterySource {
	name := collectors.MetricBattery0
	if index == 1 {
		name = collectors.MetricBattery1
	}
	return &BatterySource{name: name, path: paths.Capacity[index]}
}

// Name returns the metric name.
func (s *BatterySource) Name() string {
	return s.name
}

// Sample reads the capacity attribute.
func (s *BatterySource) Sample(ctx context.Context) (int, error) {
	raw, err := readAttr(s.path)
	if err != nil {
		return 0, fmt.Errorf("power: read %s: %w", s.path, err)
	}
	pct, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("power: parse %s: %w", s.path, err)
	}
	return max(0, min(pct, 100)), nil
}

// DrawSource reports total instantaneous power draw in watts across the
// enabled power sensors.
type DrawSource struct {
	paths []string
}

// NewDrawSource creates a source summing every power_now attribute whose
// flag is set.
func NewDrawSource(paths capability.Paths, flags capability.Flags) *DrawSource {
	s := &DrawSource{}
	for i := range 2 {
		if flags.Power[i] {
			s.paths = append(s.paths, paths.PowerNow[i])
		}
	}
	return s
}

// Name returns the metric name.
func (s *DrawSource) Name() string {
	return collectors.MetricPower
}

// Sample sums the enabled sensors. With no sensors enabled it returns zero.
// A failure on any enabled sensor fails the whole sample so that a partial
// sum is never shown.
func (s *DrawSource) Sample(ctx context.Context) (float64, error) {
	var total int64
	for _, path := range s.paths {
		raw, err := readAttr(path)
		if err != nil {
			return 0, fmt.Errorf("power: read %s: %w", path, err)
		}
		uw, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("power: parse %s: %w", path, err)
		}
		total += uw
	}
	return float64(total) / microwattsPerWatt, nil
}

// ACSource reports whether the AC adapter is online.
type ACSource struct {
	path    string
	enabled bool
}

// NewACSource creates the AC adapter source.
func NewACSource(paths capability.Paths, flags capability.Flags) *ACSource {
	return &ACSource{path: paths.ACOnline, enabled: flags.AC}
}

// Name returns the metric name.
func (s *ACSource) Name() string {
	return collectors.MetricAC
}

// Sample never fails: a disabled sensor or an unreadable attribute both
// report false.
func (s *ACSource) Sample(ctx context.Context) (bool, error) {
	if !s.enabled {
		return false, nil
	}
	raw, err := readAttr(s.path)
	if err != nil {
		return false, nil
	}
	return raw == acOnline, nil
}

var (
	_ collectors.Source[int]     = (*BatterySource)(nil)
	_ collectors.Source[float64] = (*DrawSource)(nil)
	_ collectors.Source[bool]    = (*ACSource)(nil)
)
