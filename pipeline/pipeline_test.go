package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/rootbar/capability"
	"gitlab.com/tinyland/lab/rootbar/collectors"
	"gitlab.com/tinyland/lab/rootbar/collectors/identity"
	"gitlab.com/tinyland/lab/rootbar/collectors/network"
	"gitlab.com/tinyland/lab/rootbar/collectors/retry"
	"gitlab.com/tinyland/lab/rootbar/sink"
)

var (
	fastRetry = retry.Config{Initial: time.Millisecond, Max: 2 * time.Millisecond, Multiplier: 2}
	testID    = identity.Identity{Hostname: "box", Username: "alice"}
)

// scripted is a source that returns one scripted result per call and
// counts calls. After the script is exhausted it repeats the last entry.
type scripted[T any] struct {
	name   string
	mu     sync.Mutex
	values []T
	errs   []error
	calls  int
}

func (s *scripted[T]) Name() string { return s.name }

func (s *scripted[T]) Sample(context.Context) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := min(s.calls, len(s.values)-1)
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return s.values[i], err
}

func (s *scripted[T]) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func constant[T any](name string, v T) *scripted[T] {
	return &scripted[T]{name: name, values: []T{v}}
}

// recordingSink remembers every line and can be told to fail.
type recordingSink struct {
	mu       sync.Mutex
	lines    []string
	failures int
}

func (r *recordingSink) Publish(_ context.Context, line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
	if r.failures > 0 {
		r.failures--
		return errors.New("sink unavailable")
	}
	return nil
}

func (r *recordingSink) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func baseSources() Sources {
	return Sources{
		Memory:  constant(collectors.MetricMemory, 42),
		CPU:     constant(collectors.MetricCPU, 7),
		Network: constant(collectors.MetricNetwork, []network.Address{{IP: "10.0.0.3"}}),
	}
}

func TestCollector_SkipsDisabledMetrics(t *testing.T) {
	bat0 := constant(collectors.MetricBattery0, 80)
	bat1 := constant(collectors.MetricBattery1, 90)
	pwr := constant(collectors.MetricPower, 5.5)
	ac := constant(collectors.MetricAC, true)

	src := baseSources()
	src.Battery = [2]collectors.Source[int]{bat0, bat1}
	src.Power = pwr
	src.AC = ac

	ch := NewChannels(4)
	flags := capability.Flags{Battery: [2]bool{true, false}}
	c := NewCollector(flags, src, ch, CollectorConfig{SendRetry: fastRetry}, nil)

	for range 3 {
		if err := c.Tick(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	if bat0.callCount() != 3 {
		t.Errorf("battery0 calls = %d, want 3", bat0.callCount())
	}
	for _, s := range []interface{ callCount() int }{bat1, pwr, ac} {
		if s.callCount() != 0 {
			t.Errorf("disabled source sampled %d times", s.callCount())
		}
	}
	if len(ch.Battery[1]) != 0 || len(ch.Power) != 0 || len(ch.AC) != 0 {
		t.Error("disabled metric channels received traffic")
	}
	if len(ch.Battery[0]) != 3 || len(ch.Memory) != 3 || len(ch.CPU) != 3 || len(ch.Network) != 3 {
		t.Error("enabled metric channels should hold one value per tick")
	}
}

func TestCollector_FailedSampleNotPublished(t *testing.T) {
	src := baseSources()
	src.Memory = &scripted[int]{
		name:   collectors.MetricMemory,
		values: []int{42, 0, 43},
		errs:   []error{nil, errors.New("meminfo unreadable"), nil},
	}
	ch := NewChannels(8)
	c := NewCollector(capability.Flags{}, src, ch, CollectorConfig{SendRetry: fastRetry}, nil)

	for range 3 {
		if err := c.Tick(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	var got []int
	for len(ch.Memory) > 0 {
		got = append(got, <-ch.Memory)
	}
	if len(got) != 2 || got[0] != 42 || got[1] != 43 {
		t.Errorf("published = %v, want [42 43]", got)
	}
}

func TestCollector_FullChannelRetriesWithoutDropping(t *testing.T) {
	src := Sources{Memory: constant(collectors.MetricMemory, 99)}
	ch := NewChannels(1)
	ch.Memory <- 1 // occupy the only slot

	c := NewCollector(capability.Flags{}, src, ch, CollectorConfig{SendRetry: fastRetry}, nil)

	done := make(chan error, 1)
	go func() { done <- c.Tick(context.Background()) }()

	select {
	case <-done:
		t.Fatal("Tick returned while channel was still full")
	case <-time.After(20 * time.Millisecond):
	}

	if v := <-ch.Memory; v != 1 {
		t.Errorf("first value = %d, want 1", v)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second):
		t.Fatal("Tick did not finish after room was made")
	}
	if v := <-ch.Memory; v != 99 {
		t.Errorf("second value = %d, want 99", v)
	}
}

func TestCollector_CancelWhileBlocked(t *testing.T) {
	src := Sources{CPU: constant(collectors.MetricCPU, 5)}
	ch := NewChannels(1)
	ch.CPU <- 0

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	c := NewCollector(capability.Flags{}, src, ch, CollectorConfig{SendRetry: fastRetry}, nil)
	if err := c.Tick(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Tick() error = %v, want deadline exceeded", err)
	}
}

func TestRenderer_DefaultsBeforeAnySample(t *testing.T) {
	ch := NewChannels(4)
	out := &recordingSink{}
	r := NewRenderer(testID, capability.Flags{}, ch, out, RendererConfig{PublishRetry: fastRetry}, nil)
	r.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local) }

	line, err := r.Tick(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := "[box][alice] => cpu 0%, mem 0%, net [], pwr 0.0W, 2024-05-06 07:08:09"
	if line != want {
		t.Errorf("line = %q, want %q", line, want)
	}
}

func TestRenderer_DrainKeepsMostRecent(t *testing.T) {
	ch := NewChannels(8)
	for _, v := range []int{10, 20, 30, 40, 50} {
		ch.Memory <- v
	}
	r := NewRenderer(testID, capability.Flags{}, ch, &recordingSink{}, RendererConfig{PublishRetry: fastRetry}, nil)

	if _, err := r.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := r.Snapshot().Memory; got != 50 {
		t.Errorf("Memory = %d, want 50", got)
	}
	if len(ch.Memory) != 0 {
		t.Errorf("%d messages left undrained", len(ch.Memory))
	}
}

func TestRenderer_RetainsStaleValue(t *testing.T) {
	ch := NewChannels(4)
	r := NewRenderer(testID, capability.Flags{}, ch, &recordingSink{}, RendererConfig{PublishRetry: fastRetry}, nil)

	ch.Memory <- 42
	r.Tick(context.Background())

	// The next collector tick failed to read memory: nothing was queued.
	line, err := r.Tick(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(line, "mem 42%") {
		t.Errorf("line = %q, want stale mem 42%%", line)
	}
}

func TestRenderer_DisabledMetricKeepsDefault(t *testing.T) {
	ch := NewChannels(4)
	// Traffic on disabled channels must be ignored.
	ch.Battery[0] <- 77
	ch.Power <- 9.9
	ch.AC <- true

	r := NewRenderer(testID, capability.Flags{}, ch, &recordingSink{}, RendererConfig{PublishRetry: fastRetry}, nil)
	line, err := r.Tick(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	snap := r.Snapshot()
	if snap.Battery[0] != 0 || snap.Power != 0 || snap.AC {
		t.Errorf("disabled fields changed: %+v", snap)
	}
	if strings.Contains(line, " bat [") || strings.Contains(line, "[AC]") {
		t.Errorf("line shows disabled metrics: %q", line)
	}
}

func TestRenderer_RetriesSameLineOnSinkFailure(t *testing.T) {
	ch := NewChannels(4)
	out := &recordingSink{failures: 2}
	r := NewRenderer(testID, capability.Flags{}, ch, out, RendererConfig{PublishRetry: fastRetry}, nil)

	line, err := r.Tick(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	got := out.all()
	if len(got) != 3 {
		t.Fatalf("publish attempts = %d, want 3", len(got))
	}
	for i, l := range got {
		if l != line {
			t.Errorf("attempt %d published %q, want %q", i, l, line)
		}
	}
}

func TestRenderer_SinkNeverRecoversUntilCancel(t *testing.T) {
	ch := NewChannels(4)
	failing := sink.Func(func(context.Context, string) error { return errors.New("down") })
	r := NewRenderer(testID, capability.Flags{}, ch, failing, RendererConfig{PublishRetry: fastRetry}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Millisecond)
	defer cancel()
	if _, err := r.Tick(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Tick() error = %v, want deadline exceeded", err)
	}
}

func TestPipeline_EndToEnd(t *testing.T) {
	flags := capability.Flags{
		Battery: [2]bool{true, true},
		Power:   [2]bool{true, false},
		AC:      true,
	}
	src := baseSources()
	src.Battery = [2]collectors.Source[int]{
		constant(collectors.MetricBattery0, 81),
		constant(collectors.MetricBattery1, 64),
	}
	src.Power = constant(collectors.MetricPower, 11.3)
	src.AC = constant(collectors.MetricAC, true)
	src.Network = constant(collectors.MetricNetwork, []network.Address{
		{IP: "192.168.0.10", SSID: "cafe"},
	})

	ch := NewChannels(DefaultChannelCapacity)
	out := &recordingSink{}
	c := NewCollector(flags, src, ch, CollectorConfig{Interval: 2 * time.Millisecond, SendRetry: fastRetry}, nil)
	r := NewRenderer(testID, flags, ch, out, RendererConfig{Interval: 3 * time.Millisecond, PublishRetry: fastRetry}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); c.Run(ctx) }()
	go func() { defer wg.Done(); r.Run(ctx) }()
	wg.Wait()

	lines := out.all()
	if len(lines) < 2 {
		t.Fatalf("only %d lines published", len(lines))
	}
	last := lines[len(lines)-1]
	for _, want := range []string{
		"[box][alice] => cpu 7%, mem 42%",
		"net [192.168.0.10[cafe]],",
		" bat [81%, 64%],",
		" pwr 11.3W [AC], ",
	} {
		if !strings.Contains(last, want) {
			t.Errorf("last line %q missing %q", last, want)
		}
	}
}
