package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/collectors"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/collectors/volume"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/refresh"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/statusline"
)

// Default cadence parameters.
const (
	DefaultForcedDelay   = time.Second
	DefaultFallbackDelay = 60 * time.Second
	DefaultProbeTimeout  = 2 * time.Second
)

// ClockSource is the time probe. Besides the rendered field it reports the
// seconds within the current minute, which drive cadence alignment.
type ClockSource interface {
	collectors.Probe
	Sample(ctx context.Context) (string, int, error)
}

// SleepFunc blocks for d, returning early without error when wake fires and
// with ctx.Err() on cancellation.
type SleepFunc func(ctx context.Context, d time.Duration, wake <-chan struct{}) error

// LoopConfig wires the loop to its probes and output.
type LoopConfig struct {
	Batteries []collectors.Probe // rendered in order
	Keyboard  collectors.Probe
	Volume    collectors.Probe
	Clock     ClockSource

	Out  io.Writer
	Flag *refresh.Flag

	ForcedDelay   time.Duration
	FallbackDelay time.Duration
	ProbeTimeout  time.Duration

	// HealthPath, when set, is rewritten after every cycle.
	HealthPath string
	Version    string

	Logger *slog.Logger
	Sleep  SleepFunc
}

// Loop is the sampling scheduler: it runs every probe, emits one line, and
// sleeps until the next minute boundary or a forced refresh.
type Loop struct {
	cfg    LoopConfig
	reg    *collectors.Registry
	out    *statusline.Writer
	flag   *refresh.Flag
	logger *slog.Logger
	sleep  SleepFunc

	startedAt time.Time
	cycles    atomic.Int64
	forced    atomic.Int64

	mu        sync.RWMutex
	lastCycle time.Time
}

// NewLoop validates cfg, registers the probes and returns a ready loop.
func NewLoop(cfg LoopConfig) (*Loop, error) {
	if cfg.Clock == nil {
		return nil, errors.New("loop: clock source is required")
	}
	if cfg.Keyboard == nil || cfg.Volume == nil {
		return nil, errors.New("loop: keyboard and volume probes are required")
	}
	if cfg.Out == nil {
		return nil, errors.New("loop: output writer is required")
	}
	if cfg.Flag == nil {
		cfg.Flag = refresh.NewFlag()
	}
	if cfg.ForcedDelay <= 0 {
		cfg.ForcedDelay = DefaultForcedDelay
	}
	if cfg.FallbackDelay <= 0 {
		cfg.FallbackDelay = DefaultFallbackDelay
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Sleep == nil {
		cfg.Sleep = Sleep
	}

	reg := collectors.NewRegistry()
	probes := append(append([]collectors.Probe{}, cfg.Batteries...), cfg.Keyboard, cfg.Volume, cfg.Clock)
	for _, p := range probes {
		if p == nil {
			return nil, errors.New("loop: nil probe")
		}
		if err := reg.Register(p); err != nil {
			return nil, fmt.Errorf("loop: %w", err)
		}
	}

	return &Loop{
		cfg:       cfg,
		reg:       reg,
		out:       statusline.NewWriter(cfg.Out),
		flag:      cfg.Flag,
		logger:    cfg.Logger,
		sleep:     cfg.Sleep,
		startedAt: time.Now(),
	}, nil
}

// NextSleep returns the time until the next minute boundary given the
// current seconds-within-minute. The result is always in [1s, 60s].
func NextSleep(second int) time.Duration {
	if second < 0 || second > 59 {
		second = ((second % 60) + 60) % 60
	}
	return time.Duration(60-second) * time.Second
}

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration, wake <-chan struct{}) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	case <-wake:
	}
	return nil
}

// Cycle samples every probe, emits one line and returns it together with how
// long to sleep before the next cycle. The error covers output failures
// only; probe failures degrade their field.
func (l *Loop) Cycle(ctx context.Context) (string, time.Duration, error) {
	snap := statusline.Snapshot{
		Batteries: make([]string, 0, len(l.cfg.Batteries)),
	}
	for _, p := range l.cfg.Batteries {
		snap.Batteries = append(snap.Batteries, l.run(ctx, p))
	}
	snap.Layout = l.run(ctx, l.cfg.Keyboard)
	snap.Volume = parseVolume(l.run(ctx, l.cfg.Volume))

	timeField, delay := l.sampleClock(ctx)
	snap.Time = timeField

	line, err := l.out.Emit(snap)
	l.cycles.Add(1)
	l.mu.Lock()
	l.lastCycle = time.Now()
	l.mu.Unlock()

	if l.flag.Take() {
		l.forced.Add(1)
		delay = l.cfg.ForcedDelay
		l.logger.Debug("forced refresh", "delay", delay)
	}

	l.writeHealth(ctx)
	return line, delay, err
}

// Run cycles until ctx is cancelled and returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("status loop started", "probes", len(l.reg.List()))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, delay, err := l.Cycle(ctx)
		if err != nil {
			l.logger.Warn("emit failed", "error", err)
		}
		l.logger.Debug("sleeping", "delay", delay)
		if err := l.sleep(ctx, delay, l.flag.Wake()); err != nil {
			l.logger.Info("status loop stopped", "reason", err)
			return err
		}
	}
}

// RunOnce emits exactly one line.
func (l *Loop) RunOnce(ctx context.Context) (string, error) {
	line, _, err := l.Cycle(ctx)
	return line, err
}

// Registry exposes per-probe runtime status.
func (l *Loop) Registry() *collectors.Registry { return l.reg }

// Flag returns the refresh flag the loop observes.
func (l *Loop) Flag() *refresh.Flag { return l.flag }

// LastLine returns the most recently emitted line.
func (l *Loop) LastLine() string { return l.out.Last() }

// Cycles returns the number of completed cycles and how many of them were
// followed by a forced short sleep.
func (l *Loop) Cycles() (total, forced int64) {
	return l.cycles.Load(), l.forced.Load()
}

func (l *Loop) run(ctx context.Context, p collectors.Probe) string {
	res := collectors.Run(ctx, p, l.cfg.ProbeTimeout)
	l.reg.Record(res)
	if res.Err != nil {
		l.logger.Debug("probe degraded", "probe", res.Source, "value", res.Value, "error", res.Err)
	}
	return res.Value
}

// sampleClock renders the time field and derives the cadence. A failed read
// falls back to the fixed delay.
func (l *Loop) sampleClock(ctx context.Context) (string, time.Duration) {
	start := time.Now()
	res := collectors.Result{Source: l.cfg.Clock.Name(), Timestamp: start}

	cctx, cancel := context.WithTimeout(ctx, l.cfg.ProbeTimeout)
	defer cancel()

	var (
		field  string
		second int
		err    error
	)
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("probe %s panicked: %v", res.Source, rec)
			}
		}()
		field, second, err = l.cfg.Clock.Sample(cctx)
	}()

	delay := NextSleep(second)
	if err != nil || field == "" {
		if err == nil {
			err = errors.New("empty time field")
		}
		field = collectors.DefaultPlaceholder
		delay = l.cfg.FallbackDelay
		l.logger.Debug("clock unavailable, using fallback cadence", "delay", delay, "error", err)
	}

	res.Value, res.Err, res.Latency = field, err, time.Since(start)
	l.reg.Record(res)
	return field, delay
}

func (l *Loop) writeHealth(ctx context.Context) {
	if l.cfg.HealthPath == "" {
		return
	}
	if err := WriteHealthFile(l.cfg.HealthPath, l.Health(ctx)); err != nil {
		l.logger.Warn("health file write failed", "path", l.cfg.HealthPath, "error", err)
	}
}

// Health assembles the current self-report.
func (l *Loop) Health(ctx context.Context) *HealthStatus {
	l.mu.RLock()
	last := l.lastCycle
	l.mu.RUnlock()

	total, forced := l.Cycles()
	st := &HealthStatus{
		PID:       os.Getpid(),
		Version:   l.cfg.Version,
		StartedAt: l.startedAt,
		Uptime:    time.Since(l.startedAt).Round(time.Second).String(),
		Healthy:   l.reg.Healthy(),
		Cycles:    total,
		Forced:    forced,
		LastCycle: last,
		LastLine:  l.LastLine(),
		Probes:    l.reg.AllStatus(),
	}
	if ps, err := SelfStats(ctx); err == nil {
		st.Process = ps
	}
	return st
}

func parseVolume(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return volume.Unavailable
	}
	return v
}
