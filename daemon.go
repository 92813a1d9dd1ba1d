package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/collectors"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/collectors/battery"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/collectors/clock"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/collectors/keyboard"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/collectors/volume"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/config"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/daemon"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/refresh"
)

// runDaemon installs the refresh bridge, opens the display and runs the
// status loop until ctx is cancelled. With once set it prints one line and
// returns without touching signals or state files.
func runDaemon(ctx context.Context, cfg *config.Config, logger *slog.Logger, once bool) int {
	reqs := refresh.NewFlag()

	if !once {
		if cfg.General.StateDir != "" {
			if err := os.MkdirAll(cfg.General.StateDir, 0o755); err != nil {
				logger.Warn("state directory unavailable", "path", cfg.General.StateDir, "error", err)
			}
		}

		opts := []refresh.BridgeOption{
			refresh.WithDebounce(cfg.Schedule.Debounce.Duration),
			refresh.WithLogger(logger),
		}
		if p := cfg.PIDPath(); p != "" {
			opts = append(opts, refresh.WithPublisher(daemon.PIDFile{Path: p}))
		}
		bridge := refresh.NewBridge(reqs, opts...)
		if err := bridge.Start(ctx); err != nil {
			logger.Error("cannot install refresh signal handler", "error", err)
			return exitSignal
		}
		defer func() {
			if err := bridge.Stop(); err != nil {
				logger.Warn("refresh bridge shutdown", "error", err)
			}
		}()
	}

	disp, err := keyboard.Open(cfg.Keyboard.Display)
	if err != nil {
		logger.Error("cannot open display", "display", cfg.Keyboard.Display, "error", err)
		return exitDisplay
	}
	defer disp.Close()

	loop, err := newLoop(cfg, disp, reqs, logger, once)
	if err != nil {
		logger.Error("cannot build status loop", "error", err)
		return exitConfig
	}

	if once {
		if _, err := loop.RunOnce(ctx); err != nil {
			logger.Error("emit failed", "error", err)
			return exitClient
		}
		return exitOK
	}

	if sock := cfg.SocketPath(); sock != "" {
		srv := daemon.NewIPCServer(sock, loop)
		if err := srv.Start(); err != nil {
			logger.Warn("IPC disabled", "socket", sock, "error", err)
		} else {
			defer srv.Stop()
			logger.Debug("IPC listening", "socket", sock)
		}
	}

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("status loop failed", "error", err)
		return exitConfig
	}
	return exitOK
}

// newLoop builds the probes from cfg and wires them into a loop.
func newLoop(cfg *config.Config, disp *keyboard.Display, reqs *refresh.Flag, logger *slog.Logger, once bool) (*daemon.Loop, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("clock timezone: %w", err)
	}

	batteries := make([]collectors.Probe, 0, len(cfg.Battery.Indices))
	for _, idx := range cfg.Battery.Indices {
		batteries = append(batteries, battery.New(cfg.Battery.SysfsRoot, idx))
	}

	control := volume.Control{
		Card:  cfg.Audio.Card,
		Name:  cfg.Audio.Control,
		Index: cfg.Audio.Index,
	}

	lc := daemon.LoopConfig{
		Batteries:     batteries,
		Keyboard:      keyboard.New(disp, cfg.Keyboard.Layouts),
		Volume:        volume.New(volume.Amixer{Path: cfg.Audio.Command}, control),
		Clock:         clock.New(loc),
		Out:           os.Stdout,
		Flag:          reqs,
		ForcedDelay:   cfg.Schedule.ForcedDelay.Duration,
		FallbackDelay: cfg.Schedule.FallbackInterval.Duration,
		ProbeTimeout:  cfg.Schedule.ProbeTimeout.Duration,
		Version:       version,
		Logger:        logger,
	}
	if !once {
		lc.HealthPath = cfg.HealthPath()
	}
	return daemon.NewLoop(lc)
}

// clientRefresh asks a running daemon to refresh, over IPC when the socket
// answers and by SIGUSR1 to the PID file otherwise.
func clientRefresh(ctx context.Context, cfg *config.Config) int {
	if sock := cfg.SocketPath(); sock != "" {
		if _, err := daemon.NewIPCClient(sock).SendCommand(ctx, daemon.CmdRefresh); err == nil {
			return exitOK
		}
	}
	if p := cfg.PIDPath(); p != "" {
		if _, err := daemon.SignalPID(p, refresh.RefreshSignal); err != nil {
			fmt.Fprintf(os.Stderr, "refresh: %v\n", err)
			return exitClient
		}
		return exitOK
	}
	fmt.Fprintln(os.Stderr, "refresh: no state_dir configured, cannot locate daemon")
	return exitClient
}

// clientHealth prints the daemon's health report, falling back to the
// health file when the daemon does not answer.
func clientHealth(ctx context.Context, cfg *config.Config) int {
	st, err := daemon.QueryHealth(ctx, cfg.SocketPath(), cfg.HealthPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "HEALTH: %v\n", err)
		return exitClient
	}
	data, err := json.Marshal(st)
	if err != nil {
		fmt.Fprintf(os.Stderr, "HEALTH: %v\n", err)
		return exitClient
	}
	fmt.Println(string(data))
	return exitOK
}

// clientQuery sends cmd to the running daemon and prints the JSON reply.
func clientQuery(ctx context.Context, cfg *config.Config, cmd string) int {
	sock := cfg.SocketPath()
	if sock == "" {
		fmt.Fprintln(os.Stderr, "no state_dir configured, cannot locate daemon")
		return exitClient
	}
	resp, err := daemon.NewIPCClient(sock).SendCommand(ctx, cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
		return exitClient
	}
	fmt.Println(resp)
	return exitOK
}
