package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/collectors"
)

// HealthStatus is the daemon's self-report, written to the health file after
// every cycle and returned by the HEALTH command.
type HealthStatus struct {
	PID       int                      `json:"pid"`
	Version   string                   `json:"version,omitempty"`
	StartedAt time.Time                `json:"started_at"`
	Uptime    string                   `json:"uptime"`
	Healthy   bool                     `json:"healthy"`
	Cycles    int64                    `json:"cycles"`
	Forced    int64                    `json:"forced_cycles"`
	LastCycle time.Time                `json:"last_cycle"`
	LastLine  string                   `json:"last_line"`
	Probes    []collectors.ProbeStatus `json:"probes"`
	Process   *ProcessStats            `json:"process,omitempty"`
}

// ProcessStats describes the daemon's own resource use.
type ProcessStats struct {
	RSSBytes   uint64  `json:"rss_bytes"`
	NumThreads int32   `json:"num_threads"`
	CPUPercent float64 `json:"cpu_percent"`
	OpenFDs    int32   `json:"open_fds"`
}

// SelfStats samples resource use of the current process. Fields that cannot
// be read are left zero; an error is returned only if nothing could be read.
func SelfStats(ctx context.Context) (*ProcessStats, error) {
	p, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("inspect self: %w", err)
	}

	var stats ProcessStats
	var got bool
	if mi, err := p.MemoryInfoWithContext(ctx); err == nil && mi != nil {
		stats.RSSBytes = mi.RSS
		got = true
	}
	if n, err := p.NumThreadsWithContext(ctx); err == nil {
		stats.NumThreads = n
		got = true
	}
	if c, err := p.CPUPercentWithContext(ctx); err == nil {
		stats.CPUPercent = c
		got = true
	}
	if n, err := p.NumFDsWithContext(ctx); err == nil {
		stats.OpenFDs = n
		got = true
	}
	if !got {
		return nil, fmt.Errorf("inspect self: no stats available")
	}
	return &stats, nil
}

// WriteHealthFile writes the health status as indented JSON to path.
// The write is atomic: content goes to a temporary file first, then is
// renamed into place to prevent partial reads.
func WriteHealthFile(path string, status *HealthStatus) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create health directory: %w", err)
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal health status: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp health file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename health file: %w", err)
	}

	return nil
}

// ReadHealthFile reads and parses the health status JSON from path.
func ReadHealthFile(path string) (*HealthStatus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read health file: %w", err)
	}

	var status HealthStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("unmarshal health file: %w", err)
	}

	return &status, nil
}

// healthStatusToJSON serializes a HealthStatus to a JSON string.
func healthStatusToJSON(status *HealthStatus) (string, error) {
	data, err := json.Marshal(status)
	if err != nil {
		return "", fmt.Errorf("marshal health status: %w", err)
	}
	return string(data), nil
}

// QueryHealth asks the daemon listening on socketPath for its health report.
// When the socket does not answer, the last report written to healthPath is
// returned instead; its LastCycle tells how stale it is.
func QueryHealth(ctx context.Context, socketPath, healthPath string) (*HealthStatus, error) {
	var ipcErr error
	if socketPath != "" {
		resp, err := NewIPCClient(socketPath).SendCommand(ctx, CmdHealth)
		if err == nil {
			var st HealthStatus
			if err := json.Unmarshal([]byte(resp), &st); err != nil {
				return nil, fmt.Errorf("decode health reply: %w", err)
			}
			return &st, nil
		}
		ipcErr = err
	}
	if healthPath == "" {
		if ipcErr == nil {
			ipcErr = fmt.Errorf("no state directory configured")
		}
		return nil, ipcErr
	}
	st, err := ReadHealthFile(healthPath)
	if err != nil {
		if ipcErr != nil {
			return nil, fmt.Errorf("%w; %w", ipcErr, err)
		}
		return nil, err
	}
	return st, nil
}
