// pulse-bar prints a one-line system status for a status bar host.
//
// Each cycle it samples battery charge, mixer volume, keyboard layout and
// the wall clock, writes one line to stdout, and sleeps until the next
// minute boundary. SIGUSR1 forces a prompt refresh; SIGUSR2 does the same
// with a debounce window when schedule.debounce is set.
//
// Usage:
//
//	pulse-bar [flags]
//
// Flags:
//
//	-config string  Path to configuration file (TOML, or YAML by extension)
//	-once           Print a single line and exit
//	-refresh        Ask the running daemon to refresh
//	-status         Print the running daemon's last line as JSON
//	-health         Print the running daemon's health report as JSON
//	-verbose        Enable debug logging
//	-version        Print version and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"golang.org/x/sys/unix"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/config"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

// Process exit codes.
const (
	exitOK      = 0
	exitDisplay = 1 // display connection could not be opened
	exitSignal  = 2 // refresh signal handler could not be installed
	exitConfig  = 3
	exitClient  = 4
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		runOnce     = flag.Bool("once", false, "Print a single status line and exit")
		sendRefresh = flag.Bool("refresh", false, "Ask the running daemon to refresh now")
		showStatus  = flag.Bool("status", false, "Print the running daemon's last line")
		showHealth  = flag.Bool("health", false, "Print the running daemon's health report")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("pulse-bar %s (%s) built %s\n", version, commit, date)
		return exitOK
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return exitConfig
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		return exitConfig
	}

	logger, closeLog, err := setupLogger(cfg, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		return exitConfig
	}
	defer closeLog()
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	switch {
	case *sendRefresh:
		return clientRefresh(ctx, cfg)
	case *showStatus:
		return clientQuery(ctx, cfg, "STATUS")
	case *showHealth:
		return clientHealth(ctx, cfg)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, unix.SIGINT, unix.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	return runDaemon(ctx, cfg, logger, *runOnce)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFromFile(path)
}

// setupLogger writes to stderr and, when configured, to the log file too.
// stdout is reserved for the status line.
func setupLogger(cfg *config.Config, verbose bool) (*slog.Logger, func(), error) {
	level, err := config.ParseLevel(cfg.General.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	if cfg.General.LogFile != "" {
		if err := ensureLogDir(cfg.General.LogFile); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(cfg.General.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, f)
		closeFn = func() { f.Close() }
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return logger, closeFn, nil
}

func ensureLogDir(logFile string) error {
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	return nil
}
