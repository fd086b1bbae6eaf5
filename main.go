// rootbar renders a one-line live system status into the X root window name.
//
// It samples battery charge, power draw, AC state, memory pressure, CPU
// load and network addresses on independent schedules, merges the most
// recent value of each into a snapshot, and publishes a formatted line to a
// sink once per second.
//
// Usage:
//
//	rootbar [flags]
//
// Flags:
//
//	-i, --interface name  Network interface to display (repeatable)
//	    --username name   Override effective username detection
//	    --config path     Path to configuration file (default: ~/.config/rootbar/config.yaml)
//	    --sink kind       Output sink override (xroot|xsetroot|stdout)
//	    --preview         Show the live line in an interactive terminal preview
//	    --print           Print the last published line and exit
//	    --health          Check freshness of the last published line
//	    --json            Output health check as JSON (with --health)
//	-v, --verbose         Enable verbose logging
//	    --man             Print man page to stdout in roff format
//	    --version         Print version and exit
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"gitlab.com/tinyland/lab/rootbar/config"
	"gitlab.com/tinyland/lab/rootbar/docs/manpage"
	"gitlab.com/tinyland/lab/rootbar/sink"
)

// options holds parsed command line flags.
type options struct {
	configPath  string
	interfaces  []string
	username    string
	sinkKind    string
	preview     bool
	printLast   bool
	health      bool
	healthJSON  bool
	verbose     bool
	showVersion bool
	showMan     bool
	showHelp    bool
}

// parseFlags parses args (without the program name).
func parseFlags(args []string) (*options, *pflag.FlagSet, error) {
	opts := &options{}

	flagSet := pflag.NewFlagSet("rootbar", pflag.ContinueOnError)
	// Errors are reported by the caller together with printUsage.
	flagSet.SetOutput(io.Discard)
	flagSet.Usage = func() {}
	flagSet.StringVar(&opts.configPath, "config", "", "path to configuration file (default: ~/.config/rootbar/config.yaml)")
	flagSet.StringArrayVarP(&opts.interfaces, "interface", "i", nil, "network interface to display (repeatable)")
	flagSet.StringVar(&opts.username, "username", "", "override effective username detection")
	flagSet.StringVar(&opts.sinkKind, "sink", "", "output sink override (xroot|xsetroot|stdout)")
	flagSet.BoolVar(&opts.preview, "preview", false, "show the live line in an interactive terminal preview")
	flagSet.BoolVar(&opts.printLast, "print", false, "print the last published line and exit")
	flagSet.BoolVar(&opts.health, "health", false, "check freshness of the last published line")
	flagSet.BoolVar(&opts.healthJSON, "json", false, "output health check as JSON (with --health)")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	flagSet.BoolVar(&opts.showMan, "man", false, "print man page to stdout in roff format")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version and exit")
	flagSet.BoolVarP(&opts.showHelp, "help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		return nil, flagSet, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return nil, flagSet, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return opts, flagSet, nil
}

// loadConfig reads the configuration file and applies flag overrides.
func loadConfig(opts *options) (*config.Config, error) {
	path := opts.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if len(opts.interfaces) > 0 {
		cfg.Collector.Interfaces = opts.interfaces
	}
	if opts.username != "" {
		cfg.Identity.Username = opts.username
	}
	if opts.sinkKind != "" {
		cfg.Renderer.Sink = opts.sinkKind
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// setupLogger returns a text logger on stderr, or appending to logFile when
// set. The returned close function is never nil.
func setupLogger(verbose bool, logFile string, stderr io.Writer) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if logFile == "" {
		return slog.New(slog.NewTextHandler(stderr, opts)), func() {}, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewTextHandler(f, opts)), func() { f.Close() }, nil
}

// logWriter returns where console logs go. The preview owns the terminal,
// so its logs are dropped unless daemon.log_file is set.
func logWriter(preview bool, stderr io.Writer) io.Writer {
	if preview {
		return io.Discard
	}
	return stderr
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run is main without the process exit, returning the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	opts, flagSet, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "rootbar: %v\n", err)
		printUsage(stderr, flagSet)
		return 2
	}

	if opts.showHelp {
		printUsage(stdout, flagSet)
		return 0
	}

	if opts.showMan {
		fmt.Fprint(stdout, manpage.Generate(flagSet, version, commit, date))
		return 0
	}

	if opts.showVersion {
		fmt.Fprintf(stdout, "rootbar %s (commit %s, built %s)\n", version, commit, date)
		return 0
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "rootbar: %v\n", err)
		return 1
	}

	logger, closeLog, err := setupLogger(opts.verbose, cfg.Daemon.LogFile, logWriter(opts.preview, stderr))
	if err != nil {
		fmt.Fprintf(stderr, "rootbar: %v\n", err)
		return 1
	}
	defer closeLog()

	d, err := newDaemon(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "rootbar: %v\n", err)
		return 1
	}

	// ---------------------------------------------------------------
	// Read-only modes
	// ---------------------------------------------------------------

	if opts.printLast {
		return printLastLine(d.store, stdout, stderr)
	}

	if opts.health {
		return checkHealth(d.store, cfg.RendererInterval(), opts.healthJSON, stdout, stderr)
	}

	// ---------------------------------------------------------------
	// Context with signal handling
	// ---------------------------------------------------------------

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	// ---------------------------------------------------------------
	// Preview mode
	// ---------------------------------------------------------------

	if opts.preview {
		return runPreview(ctx, cancel, d, stderr)
	}

	// ---------------------------------------------------------------
	// Daemon mode
	// ---------------------------------------------------------------

	out, closeSink, err := d.outputSink()
	if err != nil {
		fmt.Fprintf(stderr, "rootbar: %v\n", err)
		return 1
	}
	defer closeSink()

	if err := d.run(ctx, out); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "rootbar: %v\n", err)
		return 1
	}
	return 0
}

// runPreview drives the pipeline into an interactive program. Quitting the
// program stops both loops.
func runPreview(ctx context.Context, cancel context.CancelFunc, d *daemon, stderr io.Writer) int {
	preview := sink.NewPreview(tea.WithContext(ctx))

	// The preview may run next to a daemon that owns the PID file.
	d.pidFile = ""

	done := make(chan error, 1)
	go func() {
		done <- d.run(ctx, preview)
	}()

	previewErr := preview.Run()
	cancel()
	runErr := <-done

	if previewErr != nil && !errors.Is(previewErr, tea.ErrProgramKilled) {
		fmt.Fprintf(stderr, "rootbar: preview: %v\n", previewErr)
		return 1
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		fmt.Fprintf(stderr, "rootbar: %v\n", runErr)
		return 1
	}
	return 0
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `rootbar renders a live system status line into the X root window name.

Usage:
  rootbar [flags]

Examples:
  # Show the addresses of the wireless and wired interfaces
  rootbar -i wlan0 -i enp0s31f6

  # Pipe lines to another status program
  rootbar --sink stdout

Flags:
`)
	if flagSet != nil {
		flagSet.SetOutput(w)
		flagSet.PrintDefaults()
	}
}
