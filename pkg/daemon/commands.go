package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// StatusResponse is returned by the STATUS command.
type StatusResponse struct {
	Line      string    `json:"line"`
	LastCycle time.Time `json:"last_cycle"`
	Healthy   bool      `json:"healthy"`
}

// HandleCommand implements IPCHandler on top of the loop. REFRESH only
// raises the same flag the refresh signal raises.
func (l *Loop) HandleCommand(cmd string, args []string) (string, error) {
	switch cmd {
	case CmdStatus:
		l.mu.RLock()
		last := l.lastCycle
		l.mu.RUnlock()
		data, err := json.Marshal(StatusResponse{
			Line:      l.LastLine(),
			LastCycle: last,
			Healthy:   l.reg.Healthy(),
		})
		if err != nil {
			return "", fmt.Errorf("marshal status: %w", err)
		}
		return string(data), nil

	case CmdHealth:
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return healthStatusToJSON(l.Health(ctx))

	case CmdRefresh:
		l.flag.Request()
		return `{"status":"ok"}`, nil

	default:
		return "", fmt.Errorf("unknown command: %q", cmd)
	}
}
