// Package config provides TOML (or YAML) configuration for pulse-bar.
package config

import (
	"path/filepath"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/collectors/keyboard"
)

// Config is the root configuration structure.
type Config struct {
	General  GeneralConfig  `toml:"general" yaml:"general"`
	Schedule ScheduleConfig `toml:"schedule" yaml:"schedule"`
	Battery  BatteryConfig  `toml:"battery" yaml:"battery"`
	Audio    AudioConfig    `toml:"audio" yaml:"audio"`
	Keyboard KeyboardConfig `toml:"keyboard" yaml:"keyboard"`
	Clock    ClockConfig    `toml:"clock" yaml:"clock"`
}

// GeneralConfig holds process-wide settings.
type GeneralConfig struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level" yaml:"log_level"`
	// LogFile, if set, receives logs in addition to stderr.
	LogFile string `toml:"log_file" yaml:"log_file"`
	// StateDir holds the PID file, IPC socket and health file. Empty
	// disables all three.
	StateDir string `toml:"state_dir" yaml:"state_dir"`
}

// ScheduleConfig controls loop cadence.
type ScheduleConfig struct {
	ForcedDelay      Duration `toml:"forced_delay" yaml:"forced_delay"`
	FallbackInterval Duration `toml:"fallback_interval" yaml:"fallback_interval"`
	ProbeTimeout     Duration `toml:"probe_timeout" yaml:"probe_timeout"`
	// Debounce is the SIGUSR2 window. Zero leaves SIGUSR2 unhandled.
	Debounce Duration `toml:"debounce" yaml:"debounce"`
}

// BatteryConfig selects the power supplies to render.
type BatteryConfig struct {
	SysfsRoot string `toml:"sysfs_root" yaml:"sysfs_root"`
	Indices   []int  `toml:"indices" yaml:"indices"`
}

// AudioConfig selects the mixer control.
type AudioConfig struct {
	Card    string `toml:"card" yaml:"card"`
	Control string `toml:"control" yaml:"control"`
	Index   int    `toml:"index" yaml:"index"`
	// Command is the amixer binary, looked up in PATH when not absolute.
	Command string `toml:"command" yaml:"command"`
}

// KeyboardConfig configures the X11 layout probe.
type KeyboardConfig struct {
	// Display overrides $DISPLAY.
	Display string            `toml:"display" yaml:"display"`
	Layouts []keyboard.Layout `toml:"layouts" yaml:"layouts"`
}

// ClockConfig configures the time field.
type ClockConfig struct {
	// Timezone is an IANA name; empty means the local zone.
	Timezone string `toml:"timezone" yaml:"timezone"`
}

// PIDPath returns the PID file location, or "" without a state dir.
func (c *Config) PIDPath() string { return c.statePath("pulse-bar.pid") }

// SocketPath returns the IPC socket location, or "" without a state dir.
func (c *Config) SocketPath() string { return c.statePath("pulse-bar.sock") }

// HealthPath returns the health file location, or "" without a state dir.
func (c *Config) HealthPath() string { return c.statePath("health.json") }

func (c *Config) statePath(name string) string {
	if c.General.StateDir == "" {
		return ""
	}
	return filepath.Join(c.General.StateDir, name)
}
