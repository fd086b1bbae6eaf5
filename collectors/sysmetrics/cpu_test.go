package sysmetrics

import (
	"context"
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v4/cpu"
)

// scriptedTimes returns one canned reading per call.
func scriptedTimes(readings ...[]cpu.TimesStat) func(context.Context, bool) ([]cpu.TimesStat, error) {
	i := 0
	return func(context.Context, bool) ([]cpu.TimesStat, error) {
		if i >= len(readings) {
			return nil, errors.New("no more readings")
		}
		r := readings[i]
		i++
		return r, nil
	}
}

func core(user, system, idle float64) cpu.TimesStat {
	return cpu.TimesStat{User: user, System: system, Idle: idle}
}

func TestCPUSampler_FirstCallSeeds(t *testing.T) {
	s := NewCPUSampler()
	s.cpuTimes = scriptedTimes([]cpu.TimesStat{core(10, 10, 80)})

	if _, err := s.Sample(context.Background()); !errors.Is(err, ErrWarmingUp) {
		t.Errorf("first Sample() error = %v, want ErrWarmingUp", err)
	}
}

func TestCPUSampler_Delta(t *testing.T) {
	tests := []struct {
		name   string
		first  []cpu.TimesStat
		second []cpu.TimesStat
		want   int
	}{
		{
			name:   "single core half busy",
			first:  []cpu.TimesStat{core(100, 0, 100)},
			second: []cpu.TimesStat{core(150, 0, 150)},
			want:   50,
		},
		{
			name:   "average across cores",
			first:  []cpu.TimesStat{core(0, 0, 0), core(0, 0, 0)},
			second: []cpu.TimesStat{core(100, 0, 0), core(0, 0, 100)},
			want:   50,
		},
		{
			name:   "rounds up",
			first:  []cpu.TimesStat{core(0, 0, 0), core(0, 0, 0), core(0, 0, 0)},
			second: []cpu.TimesStat{core(1, 0, 99), core(0, 0, 100), core(0, 0, 100)},
			want:   1,
		},
		{
			name:   "idle system",
			first:  []cpu.TimesStat{core(5, 5, 100)},
			second: []cpu.TimesStat{core(5, 5, 200)},
			want:   0,
		},
		{
			name:   "no elapsed time",
			first:  []cpu.TimesStat{core(5, 5, 100)},
			second: []cpu.TimesStat{core(5, 5, 100)},
			want:   0,
		},
		{
			name:   "fully busy",
			first:  []cpu.TimesStat{core(0, 0, 10)},
			second: []cpu.TimesStat{core(60, 40, 10)},
			want:   100,
		},
		{
			name:   "counter reset clamps to zero",
			first:  []cpu.TimesStat{core(500, 500, 500)},
			second: []cpu.TimesStat{core(1, 1, 1)},
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewCPUSampler()
			s.cpuTimes = scriptedTimes(tt.first, tt.second)

			if _, err := s.Sample(context.Background()); !errors.Is(err, ErrWarmingUp) {
				t.Fatalf("seed error = %v, want ErrWarmingUp", err)
			}
			got, err := s.Sample(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Sample() = %d, want %d", got, tt.want)
			}
			if got < 0 || got > 100 {
				t.Errorf("Sample() = %d, outside [0, 100]", got)
			}
		})
	}
}

func TestCPUSampler_CoreCountChangeReseeds(t *testing.T) {
	s := NewCPUSampler()
	s.cpuTimes = scriptedTimes(
		[]cpu.TimesStat{core(0, 0, 0)},
		[]cpu.TimesStat{core(10, 0, 10), core(10, 0, 10)},
		[]cpu.TimesStat{core(20, 0, 20), core(20, 0, 20)},
	)

	s.Sample(context.Background())
	if _, err := s.Sample(context.Background()); !errors.Is(err, ErrWarmingUp) {
		t.Errorf("Sample() after hotplug error = %v, want ErrWarmingUp", err)
	}
	got, err := s.Sample(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 50 {
		t.Errorf("Sample() = %d, want 50", got)
	}
}

func TestCPUSampler_ReadError(t *testing.T) {
	s := NewCPUSampler()
	s.cpuTimes = func(context.Context, bool) ([]cpu.TimesStat, error) {
		return nil, errors.New("stat unreadable")
	}
	if _, err := s.Sample(context.Background()); err == nil || errors.Is(err, ErrWarmingUp) {
		t.Errorf("Sample() error = %v, want read error", err)
	}
}
