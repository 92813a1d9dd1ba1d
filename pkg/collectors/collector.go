// Package collectors defines the probe contract, registry, and runner used by
// the pulse-bar loop. Each probe (battery, volume, keyboard, clock) lives in
// a sub-package and produces exactly one field of the status line.
package collectors

import (
	"context"
	"time"
)

// Probe is the interface all status-line sources implement. Implementations
// live in sub-packages (e.g., pkg/collectors/battery) and are registered with
// the Registry at startup.
type Probe interface {
	// Name returns a unique identifier for this probe (e.g., "battery0").
	Name() string

	// Collect performs one query and returns the rendered field. The string
	// is always usable: on failure it is the probe's degraded placeholder and
	// the error only describes what went wrong.
	Collect(ctx context.Context) (string, error)
}

// ProbeStatus tracks the runtime state of a single probe. The runner updates
// this after every call.
type ProbeStatus struct {
	Name        string        `json:"name"`
	Healthy     bool          `json:"healthy"`
	LastRun     time.Time     `json:"last_run"`
	LastError   string        `json:"last_error,omitempty"`
	LastValue   string        `json:"last_value"`
	RunCount    int64         `json:"run_count"`
	ErrorCount  int64         `json:"error_count"`
	LastLatency time.Duration `json:"last_latency"`
}

// Result carries the outcome of a single probe call.
type Result struct {
	Source    string
	Value     string
	Timestamp time.Time
	Latency   time.Duration
	Err       error
}
