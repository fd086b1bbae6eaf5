package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"gitlab.com/tinyland/lab/rootbar/cache"
	"gitlab.com/tinyland/lab/rootbar/capability"
	"gitlab.com/tinyland/lab/rootbar/collectors/identity"
	"gitlab.com/tinyland/lab/rootbar/collectors/network"
	"gitlab.com/tinyland/lab/rootbar/collectors/power"
	"gitlab.com/tinyland/lab/rootbar/collectors/sysmetrics"
	"gitlab.com/tinyland/lab/rootbar/config"
	"gitlab.com/tinyland/lab/rootbar/internal/format"
	"gitlab.com/tinyland/lab/rootbar/pipeline"
	"gitlab.com/tinyland/lab/rootbar/sink"
)

// daemon owns the process-level wiring: identity, capability probing, the
// collector and renderer loops, the cache store and the PID file.
type daemon struct {
	config  *config.Config
	logger  *slog.Logger
	store   *cache.Store
	pidFile string

	// probe and resolveIdentity are overridable for testing.
	probe           func(capability.Paths, *slog.Logger) capability.Flags
	resolveIdentity func(ctx context.Context) (identity.Identity, error)
	sources         func(capability.Flags) (pipeline.Sources, func())
}

// newDaemon creates a daemon from the configuration. It initialises the
// cache store but does not touch the display or sysfs yet.
func newDaemon(cfg *config.Config, logger *slog.Logger) (*daemon, error) {
	store, err := cache.NewStore(cfg.Daemon.CacheDir, logger)
	if err != nil {
		return nil, fmt.Errorf("daemon: create cache store: %w", err)
	}

	d := &daemon{
		config:  cfg,
		logger:  logger,
		store:   store,
		pidFile: filepath.Join(cfg.Daemon.CacheDir, "rootbar.pid"),
		probe:   capability.Probe,
	}
	d.resolveIdentity = func(ctx context.Context) (identity.Identity, error) {
		retryCfg := cfg.IdentityRetry()
		retryCfg.Logger = logger
		return identity.NewResolver(retryCfg).Resolve(ctx, cfg.Identity.Username)
	}
	d.sources = d.systemSources
	return d, nil
}

// systemSources builds the real metric sources. Sources for metrics whose
// capability flag is off are left nil. The returned function releases the
// wireless netlink handle.
func (d *daemon) systemSources(flags capability.Flags) (pipeline.Sources, func()) {
	paths := d.config.PowerPaths()

	var sources pipeline.Sources
	for i := range sources.Battery {
		if flags.Battery[i] {
			sources.Battery[i] = power.NewBatterySource(i, paths)
		}
	}
	sources.Power = power.NewDrawSource(paths, flags)
	if flags.AC {
		sources.AC = power.NewACSource(paths, flags)
	}
	sources.Memory = sysmetrics.NewMemorySource()
	sources.CPU = sysmetrics.NewCPUSampler()

	wifi := network.NewWiFiResolver(d.logger)
	sources.Network = network.NewSource(d.config.Collector.Interfaces, wifi, d.logger)

	return sources, func() {
		if err := wifi.Close(); err != nil {
			d.logger.Debug("failed to close wifi client", "error", err)
		}
	}
}

// outputSink builds the configured sink wrapped so that every accepted line
// is recorded in the cache. The returned close function is never nil.
func (d *daemon) outputSink() (sink.Sink, func(), error) {
	var (
		out     sink.Sink
		closeFn = func() {}
	)

	switch d.config.Renderer.Sink {
	case config.SinkXRoot:
		x := sink.NewXRoot(d.config.Renderer.Window)
		out = x
		closeFn = func() { x.Close() }
	case config.SinkXSetRoot:
		cmd, err := sink.NewCommand(d.config.Renderer.Command)
		if err != nil {
			return nil, nil, fmt.Errorf("daemon: %w", err)
		}
		out = cmd
	case config.SinkStdout:
		out = sink.NewTerminal(os.Stdout)
	default:
		return nil, nil, fmt.Errorf("daemon: unknown sink %q", d.config.Renderer.Sink)
	}

	return sink.NewRecording(out, d.store, d.logger), closeFn, nil
}

// writePIDFile writes the current process PID to the PID file.
func (d *daemon) writePIDFile() error {
	dir := filepath.Dir(d.pidFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create PID file directory: %w", err)
	}
	pid := os.Getpid()
	if err := os.WriteFile(d.pidFile, []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}
	d.logger.Debug("wrote PID file", "path", d.pidFile, "pid", pid)
	return nil
}

// removePIDFile removes the PID file on shutdown.
func (d *daemon) removePIDFile() {
	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		d.logger.Error("failed to remove PID file", "path", d.pidFile, "error", err)
		return
	}
	d.logger.Debug("removed PID file", "path", d.pidFile)
}

// isRunning reports whether the PID file names a live process. Stale or
// corrupt PID files are removed.
func (d *daemon) isRunning() (bool, int) {
	data, err := os.ReadFile(d.pidFile)
	if err != nil {
		return false, 0
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		d.logger.Warn("corrupt PID file, removing", "path", d.pidFile, "content", string(data))
		os.Remove(d.pidFile)
		return false, 0
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		os.Remove(d.pidFile)
		return false, 0
	}

	if err := process.Signal(syscall.Signal(0)); err != nil {
		d.logger.Warn("stale PID file, removing", "path", d.pidFile, "pid", pid)
		os.Remove(d.pidFile)
		return false, 0
	}

	return true, pid
}

// run resolves identity, probes capabilities, and runs the collector and
// renderer until ctx is cancelled. An empty pidFile skips the single
// instance check.
func (d *daemon) run(ctx context.Context, out sink.Sink) error {
	if d.pidFile != "" {
		if running, pid := d.isRunning(); running {
			return fmt.Errorf("daemon already running (PID %d)", pid)
		}
		if err := d.writePIDFile(); err != nil {
			return err
		}
		defer d.removePIDFile()
	}

	id, err := d.resolveIdentity(ctx)
	if err != nil {
		return fmt.Errorf("daemon: resolve identity: %w", err)
	}
	d.logger.Info("resolved identity", "hostname", id.Hostname, "username", id.Username)

	flags := d.probe(d.config.PowerPaths(), d.logger)

	sources, release := d.sources(flags)
	defer release()

	channels := pipeline.NewChannels(d.config.Collector.ChannelCapacity)

	collector := pipeline.NewCollector(flags, sources, channels, pipeline.CollectorConfig{
		Interval:  d.config.CollectorInterval(),
		SendRetry: d.config.SendRetry(),
	}, d.logger)

	renderer := pipeline.NewRenderer(id, flags, channels, out, pipeline.RendererConfig{
		Interval:     d.config.RendererInterval(),
		PublishRetry: d.config.PublishRetry(),
	}, d.logger)

	d.logger.Info("starting pipeline",
		"sink", d.config.Renderer.Sink,
		"interfaces", d.config.Collector.Interfaces,
		"collector_interval", d.config.CollectorInterval().String(),
		"renderer_interval", d.config.RendererInterval().String(),
	)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs[0] = collector.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		errs[1] = renderer.Run(ctx)
	}()
	wg.Wait()

	d.logger.Info("pipeline stopped", "last_line_age", d.lastLineAge())

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// lastLineAge describes how old the recorded line is, for the shutdown log.
func (d *daemon) lastLineAge() string {
	rec, err := sink.LastRecord(d.store)
	if err != nil || rec == nil {
		return "none"
	}
	return format.FormatDuration(time.Since(rec.Updated))
}
