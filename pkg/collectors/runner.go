package collectors

import (
	"context"
	"fmt"
	"time"
)

// DefaultPlaceholder is rendered for probes that do not declare their own
// placeholder and fail without producing a value.
const DefaultPlaceholder = "??"

// Placeholderer is implemented by probes that know their degraded value. The
// runner uses it when a probe panics or returns an empty field.
type Placeholderer interface {
	Placeholder() string
}

// Run calls p.Collect once with a bounded context. A panicking probe is
// recovered and reported as an error, so one broken probe never takes the
// cycle down with it. The returned Result always carries a non-empty Value.
func Run(ctx context.Context, p Probe, timeout time.Duration) (res Result) {
	start := time.Now()
	res = Result{Source: p.Name(), Timestamp: start}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if rec := recover(); rec != nil {
			res.Err = fmt.Errorf("probe %s panicked: %v", res.Source, rec)
			res.Value = ""
		}
		if res.Value == "" {
			res.Value = placeholderFor(p)
		}
		res.Latency = time.Since(start)
	}()

	res.Value, res.Err = p.Collect(ctx)
	return res
}

func placeholderFor(p Probe) string {
	if ph, ok := p.(Placeholderer); ok {
		if v := ph.Placeholder(); v != "" {
			return v
		}
	}
	return DefaultPlaceholder
}
