package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Validate reports every invalid setting, joined into one error.
func (c *Config) Validate() error {
	var errs []error

	if _, err := ParseLevel(c.General.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if d := c.Schedule.ForcedDelay.Duration; d <= 0 || d > time.Minute {
		errs = append(errs, fmt.Errorf("schedule.forced_delay %v must be in (0, 1m]", d))
	}
	if d := c.Schedule.FallbackInterval.Duration; d < time.Second {
		errs = append(errs, fmt.Errorf("schedule.fallback_interval %v must be at least 1s", d))
	}
	if d := c.Schedule.ProbeTimeout.Duration; d <= 0 || d >= time.Minute {
		errs = append(errs, fmt.Errorf("schedule.probe_timeout %v must be in (0, 1m)", d))
	}

	if c.Battery.SysfsRoot == "" {
		errs = append(errs, errors.New("battery.sysfs_root must not be empty"))
	}
	seen := make(map[int]bool, len(c.Battery.Indices))
	for _, i := range c.Battery.Indices {
		if i < 0 {
			errs = append(errs, fmt.Errorf("battery.indices: negative index %d", i))
		}
		if seen[i] {
			errs = append(errs, fmt.Errorf("battery.indices: duplicate index %d", i))
		}
		seen[i] = true
	}

	if c.Audio.Control == "" {
		errs = append(errs, errors.New("audio.control must not be empty"))
	}
	if c.Audio.Index < 0 {
		errs = append(errs, fmt.Errorf("audio.index %d must not be negative", c.Audio.Index))
	}
	if c.Audio.Command == "" {
		errs = append(errs, errors.New("audio.command must not be empty"))
	}

	for i, l := range c.Keyboard.Layouts {
		if l.Match == "" || l.Label == "" {
			errs = append(errs, fmt.Errorf("keyboard.layouts[%d]: match and label are required", i))
		}
	}

	if c.Clock.Timezone != "" {
		if _, err := time.LoadLocation(c.Clock.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("clock.timezone: %w", err))
		}
	}

	return errors.Join(errs...)
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("general.log_level: unknown level %q", s)
	}
}

// Location resolves the clock timezone. An empty name is time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Clock.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Clock.Timezone)
}
