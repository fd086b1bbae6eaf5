// Package config provides configuration parsing for rootbar.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"gitlab.com/tinyland/lab/rootbar/capability"
	"gitlab.com/tinyland/lab/rootbar/collectors/retry"
)

// Sink kinds.
const (
	SinkXRoot    = "xroot"
	SinkXSetRoot = "xsetroot"
	SinkStdout   = "stdout"
)

// Config represents the rootbar configuration.
type Config struct {
	// Collector holds metric sampling settings.
	Collector CollectorConfig `yaml:"collector"`

	// Renderer holds status line output settings.
	Renderer RendererConfig `yaml:"renderer"`

	// Power holds the sysfs layout of batteries and the AC adapter.
	Power PowerConfig `yaml:"power"`

	// Identity holds hostname/username settings.
	Identity IdentityConfig `yaml:"identity"`

	// Daemon holds process-level settings.
	Daemon DaemonConfig `yaml:"daemon"`
}

// CollectorConfig holds metric sampling settings.
type CollectorConfig struct {
	// Interval is a duration string between sampling ticks.
	Interval string `yaml:"interval"`
	// Interfaces lists the network interfaces whose addresses are shown.
	Interfaces []string `yaml:"interfaces"`
	// ChannelCapacity is the buffer size of each per-metric channel.
	ChannelCapacity int `yaml:"channel_capacity"`
	// SendRetry is the backoff while a metric channel is full.
	SendRetry BackoffConfig `yaml:"send_retry"`
}

// RendererConfig holds status line output settings.
type RendererConfig struct {
	// Interval is a duration string between rendered lines.
	Interval string `yaml:"interval"`
	// Sink selects the output: "xroot", "xsetroot" or "stdout".
	Sink string `yaml:"sink"`
	// Window is the X window whose name is set by the xroot sink (0 = root).
	Window uint32 `yaml:"window"`
	// Command is the program and leading arguments for the xsetroot sink.
	Command []string `yaml:"command"`
	// PublishRetry is the backoff while the sink is failing.
	PublishRetry BackoffConfig `yaml:"publish_retry"`
}

// PowerConfig holds the sysfs layout of batteries and the AC adapter.
type PowerConfig struct {
	// SysfsRoot is the power_supply class directory.
	SysfsRoot string `yaml:"sysfs_root"`
	// Batteries names up to two battery devices.
	Batteries []string `yaml:"batteries"`
	// ACDevice names the AC adapter device.
	ACDevice string `yaml:"ac_device"`
}

// IdentityConfig holds hostname/username settings.
type IdentityConfig struct {
	// Username overrides effective username detection when non-empty.
	Username string `yaml:"username"`
	// Retry is the backoff while hostname or username are unavailable.
	Retry BackoffConfig `yaml:"retry"`
}

// DaemonConfig holds process-level settings.
type DaemonConfig struct {
	// CacheDir holds the PID file and the last published line.
	CacheDir string `yaml:"cache_dir"`
	// LogFile is the path for log output. Empty logs to stderr.
	LogFile string `yaml:"log_file"`
}

// BackoffConfig is a capped exponential backoff.
type BackoffConfig struct {
	// Initial is a duration string for the first delay.
	Initial string `yaml:"initial"`
	// Max is a duration string capping the delay.
	Max string `yaml:"max"`
	// Multiplier grows the delay after each failure; <= 1 keeps it fixed.
	Multiplier float64 `yaml:"multiplier"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		Collector: CollectorConfig{
			Interval:        "1s",
			Interfaces:      []string{},
			ChannelCapacity: 8,
			SendRetry: BackoffConfig{
				Initial:    "10ms",
				Max:        "250ms",
				Multiplier: 2,
			},
		},
		Renderer: RendererConfig{
			Interval: "1s",
			Sink:     SinkXRoot,
			Window:   0,
			Command:  []string{"xsetroot", "-name"},
			PublishRetry: BackoffConfig{
				Initial:    "100ms",
				Max:        "2s",
				Multiplier: 2,
			},
		},
		Power: PowerConfig{
			SysfsRoot: capability.DefaultSysfsRoot,
			Batteries: []string{"BAT0", "BAT1"},
			ACDevice:  "AC",
		},
		Identity: IdentityConfig{
			Username: "",
			Retry: BackoffConfig{
				Initial:    "500ms",
				Max:        "10s",
				Multiplier: 2,
			},
		},
		Daemon: DaemonConfig{
			CacheDir: filepath.Join(home, ".cache", "rootbar"),
			LogFile:  "",
		},
	}
}

// DefaultPath returns ~/.config/rootbar/config.yaml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "rootbar", "config.yaml")
}

// LoadConfig loads configuration from a YAML file, merging with defaults.
// A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return config, nil
}

// Validate checks the configuration for required fields and logical consistency.
func (c *Config) Validate() error {
	if _, err := parsePositive("collector.interval", c.Collector.Interval); err != nil {
		return err
	}
	if _, err := parsePositive("renderer.interval", c.Renderer.Interval); err != nil {
		return err
	}
	if c.Collector.ChannelCapacity < 1 {
		return fmt.Errorf("collector.channel_capacity must be at least 1, got %d", c.Collector.ChannelCapacity)
	}

	switch c.Renderer.Sink {
	case SinkXRoot, SinkStdout:
	case SinkXSetRoot:
		if len(c.Renderer.Command) == 0 || c.Renderer.Command[0] == "" {
			return fmt.Errorf("renderer.command is required for the %s sink", SinkXSetRoot)
		}
	default:
		return fmt.Errorf("renderer.sink must be %q, %q or %q, got %q",
			SinkXRoot, SinkXSetRoot, SinkStdout, c.Renderer.Sink)
	}

	if len(c.Power.Batteries) > 2 {
		return fmt.Errorf("power.batteries supports at most 2 devices, got %d", len(c.Power.Batteries))
	}
	if c.Power.SysfsRoot == "" {
		return fmt.Errorf("power.sysfs_root is required")
	}

	backoffs := map[string]BackoffConfig{
		"collector.send_retry":   c.Collector.SendRetry,
		"renderer.publish_retry": c.Renderer.PublishRetry,
		"identity.retry":         c.Identity.Retry,
	}
	for name, b := range backoffs {
		if _, err := b.retryConfig(name); err != nil {
			return err
		}
	}

	if c.Daemon.CacheDir == "" {
		return fmt.Errorf("daemon.cache_dir is required")
	}
	return nil
}

// CollectorInterval returns the parsed collector tick.
func (c *Config) CollectorInterval() time.Duration {
	d, _ := parsePositive("collector.interval", c.Collector.Interval)
	return d
}

// RendererInterval returns the parsed renderer tick.
func (c *Config) RendererInterval() time.Duration {
	d, _ := parsePositive("renderer.interval", c.Renderer.Interval)
	return d
}

// SendRetry returns the collector's channel backoff.
func (c *Config) SendRetry() retry.Config {
	r, _ := c.Collector.SendRetry.retryConfig("collector.send_retry")
	return r
}

// PublishRetry returns the renderer's sink backoff.
func (c *Config) PublishRetry() retry.Config {
	r, _ := c.Renderer.PublishRetry.retryConfig("renderer.publish_retry")
	return r
}

// IdentityRetry returns the identity lookup backoff.
func (c *Config) IdentityRetry() retry.Config {
	r, _ := c.Identity.Retry.retryConfig("identity.retry")
	return r
}

// PowerPaths returns the sysfs attribute locations for capability probing.
func (c *Config) PowerPaths() capability.Paths {
	return capability.SysfsPaths(c.Power.SysfsRoot, c.Power.Batteries, c.Power.ACDevice)
}

func (b BackoffConfig) retryConfig(name string) (retry.Config, error) {
	initial, err := parsePositive(name+".initial", b.Initial)
	if err != nil {
		return retry.Config{}, err
	}
	maxDelay, err := parsePositive(name+".max", b.Max)
	if err != nil {
		return retry.Config{}, err
	}
	if maxDelay < initial {
		return retry.Config{}, fmt.Errorf("%s.max (%s) must not be below %s.initial (%s)", name, b.Max, name, b.Initial)
	}
	return retry.Config{Initial: initial, Max: maxDelay, Multiplier: b.Multiplier}, nil
}

// parsePositive parses a duration string that must be greater than zero.
func parsePositive(field, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", field, s)
	}
	return d, nil
}
