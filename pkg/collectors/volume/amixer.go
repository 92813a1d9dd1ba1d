package volume

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"go4.org/mem"
)

// waitDelay bounds how long a cancelled amixer may hold its pipes open.
const waitDelay = 500 * time.Millisecond

// Amixer queries ALSA through the amixer(1) utility from alsa-utils. Each call
// runs one short-lived process; exec.CommandContext reaps it on every path,
// including cancellation.
type Amixer struct {
	// Path is the amixer binary. Empty means "amixer" from $PATH.
	Path string
}

// PlaybackVolume runs `amixer -D <card> sget <name>,<index>` and parses the
// playback range and the first channel's current value.
func (a Amixer) PlaybackVolume(ctx context.Context, c Control) (Level, error) {
	bin := a.Path
	if bin == "" {
		bin = "amixer"
	}

	cmd := exec.CommandContext(ctx, bin, "-D", c.Card, "sget", c.String())
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	cmd.WaitDelay = waitDelay
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if bytes.Contains(stderr.Bytes(), []byte("Unable to find simple control")) {
			return Level{}, ErrNoControl
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Level{}, ctxErr
		}
		return Level{}, fmt.Errorf("run %s: %w", bin, err)
	}

	return ParseSget(out)
}

// ParseSget extracts the playback limits and the first channel's playback
// value from `amixer sget` output.
//
//	Simple mixer control 'Master',0
//	  Capabilities: pvolume pswitch pswitch-joined
//	  Playback channels: Front Left - Front Right
//	  Limits: Playback 0 - 65536
//	  Mono:
//	  Front Left: Playback 39321 [60%] [on]
func ParseSget(out []byte) (Level, error) {
	var (
		level               Level
		haveLimits, haveCur bool
	)

	rest := mem.B(out)
	for rest.Len() > 0 {
		var line mem.RO
		if i := mem.IndexByte(rest, '\n'); i >= 0 {
			line, rest = rest.SliceTo(i), rest.SliceFrom(i+1)
		} else {
			line, rest = rest, mem.S("")
		}
		line = mem.TrimSpace(line)

		if limits, ok := mem.CutPrefix(line, mem.S("Limits:")); ok {
			lo, hi, err := parseLimits(limits)
			if err != nil {
				return Level{}, err
			}
			level.Min, level.Max = lo, hi
			haveLimits = true
			continue
		}

		if haveCur {
			continue
		}
		if _, value, ok := mem.Cut(line, mem.S(": Playback ")); ok {
			cur, err := mem.ParseInt(leadingInt(value), 10, 64)
			if err != nil {
				continue
			}
			level.Current = cur
			haveCur = true
		}
	}

	if !haveLimits {
		return Level{}, errors.New("amixer: no playback limits (control has no volume)")
	}
	if !haveCur {
		return Level{}, errors.New("amixer: no playback value")
	}
	return level, nil
}

// parseLimits parses "Playback 0 - 65536" or "0 - 31".
func parseLimits(m mem.RO) (int64, int64, error) {
	m = mem.TrimSpace(m)
	m, _ = mem.CutPrefix(m, mem.S("Playback"))
	lo, hi, ok := mem.Cut(mem.TrimSpace(m), mem.S(" - "))
	if !ok {
		return 0, 0, fmt.Errorf("amixer: malformed limits %q", m.StringCopy())
	}
	floor, err := mem.ParseInt(mem.TrimSpace(lo), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("amixer: limits min: %w", err)
	}
	ceil, err := mem.ParseInt(leadingInt(hi), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("amixer: limits max: %w", err)
	}
	return floor, ceil, nil
}

// leadingInt returns the optional sign and digits at the start of m.
func leadingInt(m mem.RO) mem.RO {
	m = mem.TrimSpace(m)
	i := 0
	if i < m.Len() && (m.At(i) == '-' || m.At(i) == '+') {
		i++
	}
	for i < m.Len() && m.At(i) >= '0' && m.At(i) <= '9' {
		i++
	}
	return m.SliceTo(i)
}
