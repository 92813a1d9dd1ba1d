package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/collectors/battery"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/collectors/keyboard"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/collectors/volume"
)

// appName names the XDG subdirectories.
const appName = "pulse-bar"

// Format is a configuration file syntax.
type Format int

const (
	FormatTOML Format = iota
	FormatYAML
)

// FormatForPath picks the syntax from the file extension. Anything other
// than .yaml/.yml is TOML.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Load reads configuration from the standard config path.
// Search order:
//  1. $XDG_CONFIG_HOME/pulse-bar/config.toml (then config.yaml)
//  2. ~/.config/pulse-bar/config.toml (then config.yaml)
//
// If no file exists, returns DefaultConfig() with env overrides applied.
func Load() (*Config, error) {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return LoadFromFile(p)
		}
	}
	cfg := DefaultConfig()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromFile reads configuration from a specific file path. A missing
// file yields the defaults.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	defer f.Close()

	cfg, err := LoadFromReader(f, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes configuration in the given format on top of the
// defaults, then applies environment overrides.
func LoadFromReader(r io.Reader, format Format) (*Config, error) {
	cfg := DefaultConfig()
	// The TOML decoder fills an existing slice in place, so a partial table
	// entry would inherit fields from the default at the same position.
	cfg.Keyboard.Layouts = nil
	cfg.Battery.Indices = nil
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && err != io.EOF {
			return nil, err
		}
	default:
		md, err := toml.NewDecoder(r).Decode(cfg)
		if err != nil {
			return nil, err
		}
		if undec := md.Undecoded(); len(undec) > 0 {
			return nil, fmt.Errorf("unknown key %q", undec[0].String())
		}
	}
	applyListDefaults(cfg)
	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyListDefaults restores the default lists the file did not set. An
// explicitly empty list is kept.
func applyListDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Keyboard.Layouts == nil {
		cfg.Keyboard.Layouts = def.Keyboard.Layouts
	}
	if cfg.Battery.Indices == nil {
		cfg.Battery.Indices = def.Battery.Indices
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	ctl := volume.DefaultControl()

	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
			StateDir: filepath.Join(xdgStateHome(home), appName),
		},
		Schedule: ScheduleConfig{
			ForcedDelay:      Duration{1 * time.Second},
			FallbackInterval: Duration{60 * time.Second},
			ProbeTimeout:     Duration{2 * time.Second},
		},
		Battery: BatteryConfig{
			SysfsRoot: battery.DefaultRoot,
			Indices:   []int{0, 1},
		},
		Audio: AudioConfig{
			Card:    ctl.Card,
			Control: ctl.Name,
			Index:   ctl.Index,
			Command: "amixer",
		},
		Keyboard: KeyboardConfig{
			Layouts: keyboard.DefaultLayouts(),
		},
	}
}

// applyEnvOverrides checks environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PULSEBAR_DISPLAY"); v != "" {
		cfg.Keyboard.Display = v
	}
	if v := os.Getenv("PULSEBAR_LOG_LEVEL"); v != "" {
		cfg.General.LogLevel = v
	}
	if v, ok := os.LookupEnv("PULSEBAR_STATE_DIR"); ok {
		cfg.General.StateDir = v
	}
	if v := os.Getenv("PULSEBAR_SYSFS_ROOT"); v != "" {
		cfg.Battery.SysfsRoot = v
	}
}

// configSearchPaths returns the ordered list of config file paths to try.
func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	var dirs []string

	xdg := xdgConfigHome(home)
	dirs = append(dirs, filepath.Join(xdg, appName))

	// If XDG_CONFIG_HOME was explicitly set, also try the fallback default.
	defaultXDG := filepath.Join(home, ".config")
	if xdg != defaultXDG {
		dirs = append(dirs, filepath.Join(defaultXDG, appName))
	}

	var paths []string
	for _, d := range dirs {
		paths = append(paths,
			filepath.Join(d, "config.toml"),
			filepath.Join(d, "config.yaml"),
		)
	}
	return paths
}

// xdgConfigHome returns XDG_CONFIG_HOME or ~/.config as fallback.
func xdgConfigHome(home string) string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".config")
}

// xdgStateHome returns XDG_STATE_HOME or ~/.local/state as fallback.
func xdgStateHome(home string) string {
	if v := os.Getenv("XDG_STATE_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".local", "state")
}
