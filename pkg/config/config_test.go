package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets the override variables for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PULSEBAR_DISPLAY", "PULSEBAR_LOG_LEVEL", "PULSEBAR_SYSFS_ROOT"} {
		t.Setenv(k, "")
	}
	t.Setenv("PULSEBAR_STATE_DIR", "")
	os.Unsetenv("PULSEBAR_STATE_DIR")
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
	if cfg.Schedule.ForcedDelay.Duration != time.Second {
		t.Errorf("forced delay = %v", cfg.Schedule.ForcedDelay)
	}
	if cfg.Schedule.FallbackInterval.Duration != 60*time.Second {
		t.Errorf("fallback = %v", cfg.Schedule.FallbackInterval)
	}
	if len(cfg.Battery.Indices) != 2 || cfg.Battery.Indices[0] != 0 || cfg.Battery.Indices[1] != 1 {
		t.Errorf("indices = %v, want [0 1]", cfg.Battery.Indices)
	}
	if cfg.Audio.Control != "Master" || cfg.Audio.Card != "default" {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if len(cfg.Keyboard.Layouts) != 2 {
		t.Errorf("layouts = %v", cfg.Keyboard.Layouts)
	}
	if cfg.Schedule.Debounce.Duration != 0 {
		t.Error("debounce should be off by default")
	}
}

func TestLoadTOML(t *testing.T) {
	clearEnv(t)
	const src = `
[general]
log_level = "debug"
state_dir = "/run/user/1000/pulse-bar"

[schedule]
forced_delay = "2s"
debounce = "500ms"

[battery]
indices = [0]

[audio]
control = "PCM"

[[keyboard.layouts]]
match = "dvorak"
label = "DV"

[clock]
timezone = "UTC"
`
	cfg, err := LoadFromReader(strings.NewReader(src), FormatTOML)
	if err != nil {
		t.Fatalf("LoadFromReader() error: %v", err)
	}
	if cfg.General.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.General.LogLevel)
	}
	if cfg.Schedule.ForcedDelay.Duration != 2*time.Second {
		t.Errorf("forced delay = %v", cfg.Schedule.ForcedDelay)
	}
	if cfg.Schedule.Debounce.Duration != 500*time.Millisecond {
		t.Errorf("debounce = %v", cfg.Schedule.Debounce)
	}
	// Unset keys keep their defaults.
	if cfg.Schedule.ProbeTimeout.Duration != 2*time.Second {
		t.Errorf("probe timeout = %v, want default", cfg.Schedule.ProbeTimeout)
	}
	if len(cfg.Battery.Indices) != 1 {
		t.Errorf("indices = %v", cfg.Battery.Indices)
	}
	if cfg.Audio.Control != "PCM" || cfg.Audio.Card != "default" {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if len(cfg.Keyboard.Layouts) != 1 || cfg.Keyboard.Layouts[0].Label != "DV" {
		t.Errorf("layouts = %v", cfg.Keyboard.Layouts)
	}
	if cfg.SocketPath() != "/run/user/1000/pulse-bar/pulse-bar.sock" {
		t.Errorf("socket = %q", cfg.SocketPath())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	const src = `
general:
  log_level: warn
schedule:
  fallback_interval: 30s
keyboard:
  layouts:
    - match: de
      label: DE
`
	cfg, err := LoadFromReader(strings.NewReader(src), FormatYAML)
	if err != nil {
		t.Fatalf("LoadFromReader() error: %v", err)
	}
	if cfg.General.LogLevel != "warn" {
		t.Errorf("log level = %q", cfg.General.LogLevel)
	}
	if cfg.Schedule.FallbackInterval.Duration != 30*time.Second {
		t.Errorf("fallback = %v", cfg.Schedule.FallbackInterval)
	}
	if len(cfg.Keyboard.Layouts) != 1 || cfg.Keyboard.Layouts[0].Match != "de" {
		t.Errorf("layouts = %v", cfg.Keyboard.Layouts)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	clearEnv(t)
	if _, err := LoadFromReader(strings.NewReader("[general]\nlog_levle = \"debug\"\n"), FormatTOML); err == nil {
		t.Error("TOML typo should be rejected")
	}
	if _, err := LoadFromReader(strings.NewReader("general:\n  log_levle: debug\n"), FormatYAML); err == nil {
		t.Error("YAML typo should be rejected")
	}
}

func TestLoadBadDuration(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name   string
		src    string
		format Format
	}{
		{"toml garbage", "[schedule]\nforced_delay = \"soon\"\n", FormatTOML},
		{"toml negative", "[schedule]\nforced_delay = \"-1s\"\n", FormatTOML},
		{"yaml garbage", "schedule:\n  forced_delay: soon\n", FormatYAML},
		{"yaml mapping", "schedule:\n  forced_delay:\n    s: 1\n", FormatYAML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFromReader(strings.NewReader(tt.src), tt.format); err == nil {
				t.Error("expected a decode error")
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte("audio:\n  card: hw:1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.Card != "hw:1" {
		t.Errorf("card = %q", cfg.Audio.Card)
	}

	cfg, err = LoadFromFile(filepath.Join(dir, "absent.toml"))
	if err != nil {
		t.Fatalf("missing file should yield defaults, got %v", err)
	}
	if cfg.Audio.Card != "default" {
		t.Errorf("card = %q, want default", cfg.Audio.Card)
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("[general\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(bad); err == nil || !strings.Contains(err.Error(), bad) {
		t.Errorf("LoadFromFile(bad) = %v, want error naming the file", err)
	}
}

func TestLoadSearchPath(t *testing.T) {
	clearEnv(t)
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	if err := os.MkdirAll(filepath.Join(xdg, "pulse-bar"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(xdg, "pulse-bar", "config.toml"), []byte("[audio]\nindex = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.Index != 2 {
		t.Errorf("index = %d, want 2 from XDG config", cfg.Audio.Index)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PULSEBAR_DISPLAY", ":1")
	t.Setenv("PULSEBAR_LOG_LEVEL", "error")
	t.Setenv("PULSEBAR_SYSFS_ROOT", "/tmp/fake-sysfs")
	t.Setenv("PULSEBAR_STATE_DIR", "")

	cfg, err := LoadFromReader(strings.NewReader(""), FormatTOML)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Keyboard.Display != ":1" {
		t.Errorf("display = %q", cfg.Keyboard.Display)
	}
	if cfg.General.LogLevel != "error" {
		t.Errorf("log level = %q", cfg.General.LogLevel)
	}
	if cfg.Battery.SysfsRoot != "/tmp/fake-sysfs" {
		t.Errorf("sysfs root = %q", cfg.Battery.SysfsRoot)
	}
	// An explicitly empty state dir disables the state files.
	if cfg.General.StateDir != "" || cfg.PIDPath() != "" || cfg.HealthPath() != "" {
		t.Errorf("state dir = %q, want disabled", cfg.General.StateDir)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad level", func(c *Config) { c.General.LogLevel = "loud" }, "log_level"},
		{"zero forced delay", func(c *Config) { c.Schedule.ForcedDelay = Duration{} }, "forced_delay"},
		{"tiny fallback", func(c *Config) { c.Schedule.FallbackInterval = Duration{time.Millisecond} }, "fallback_interval"},
		{"long probe timeout", func(c *Config) { c.Schedule.ProbeTimeout = Duration{time.Hour} }, "probe_timeout"},
		{"negative battery", func(c *Config) { c.Battery.Indices = []int{-1} }, "negative index"},
		{"duplicate battery", func(c *Config) { c.Battery.Indices = []int{0, 0} }, "duplicate index"},
		{"empty sysfs", func(c *Config) { c.Battery.SysfsRoot = "" }, "sysfs_root"},
		{"empty control", func(c *Config) { c.Audio.Control = "" }, "audio.control"},
		{"empty command", func(c *Config) { c.Audio.Command = "" }, "audio.command"},
		{"incomplete layout", func(c *Config) { c.Keyboard.Layouts[0].Label = "" }, "keyboard.layouts[0]"},
		{"bad timezone", func(c *Config) { c.Clock.Timezone = "Mars/Olympus" }, "clock.timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1m30s")); err != nil {
		t.Fatal(err)
	}
	if d.Duration != 90*time.Second {
		t.Errorf("got %v", d.Duration)
	}
	if err := d.UnmarshalText(nil); err != nil || d.Duration != 0 {
		t.Errorf("empty text = %v, %v", d.Duration, err)
	}
	out, _ := Duration{2 * time.Second}.MarshalText()
	if string(out) != "2s" {
		t.Errorf("MarshalText() = %q", out)
	}
}

func TestLocation(t *testing.T) {
	cfg := DefaultConfig()
	loc, err := cfg.Location()
	if err != nil || loc != time.Local {
		t.Errorf("Location() = %v, %v; want Local", loc, err)
	}
	cfg.Clock.Timezone = "UTC"
	loc, err = cfg.Location()
	if err != nil || loc.String() != "UTC" {
		t.Errorf("Location() = %v, %v", loc, err)
	}
}

func TestLoadPartialLayoutEntry(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name   string
		src    string
		format Format
	}{
		{"toml", "[[keyboard.layouts]]\nmatch = \"de\"\n", FormatTOML},
		{"yaml", "keyboard:\n  layouts:\n    - match: de\n", FormatYAML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFromReader(strings.NewReader(tt.src), tt.format)
			if err != nil {
				t.Fatalf("LoadFromReader() error: %v", err)
			}
			if len(cfg.Keyboard.Layouts) != 1 {
				t.Fatalf("layouts = %v, want the single configured entry", cfg.Keyboard.Layouts)
			}
			if l := cfg.Keyboard.Layouts[0]; l.Match != "de" || l.Label != "" {
				t.Errorf("layout = %+v, want {de, \"\"} with no inherited label", l)
			}
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "keyboard.layouts[0]") {
				t.Errorf("Validate() = %v, want missing label reported", err)
			}
		})
	}
}

func TestLoadListDefaultsWhenUnset(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFromReader(strings.NewReader("[audio]\nindex = 1\n"), FormatTOML)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Keyboard.Layouts) != 2 || cfg.Keyboard.Layouts[0].Label != "US" {
		t.Errorf("layouts = %v, want defaults", cfg.Keyboard.Layouts)
	}
	if len(cfg.Battery.Indices) != 2 {
		t.Errorf("indices = %v, want defaults", cfg.Battery.Indices)
	}

	cfg, err = LoadFromReader(strings.NewReader("[battery]\nindices = [3]\n"), FormatTOML)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Battery.Indices) != 1 || cfg.Battery.Indices[0] != 3 {
		t.Errorf("indices = %v, want [3]", cfg.Battery.Indices)
	}
}
