// Package volume reads the playback volume of an ALSA simple mixer control
// and normalizes it to a percentage rounded to the nearest multiple of five.
package volume

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// Unavailable is the sentinel percentage rendered when the mixer cannot be
// queried.
const Unavailable = -1

// ErrNoControl reports that the requested simple control does not exist.
var ErrNoControl = errors.New("mixer control not found")

// Control identifies a simple mixer element on an ALSA device.
type Control struct {
	Card  string // e.g. "default"
	Name  string // e.g. "Master"
	Index int
}

// DefaultControl is Master,0 on the default device.
func DefaultControl() Control {
	return Control{Card: "default", Name: "Master", Index: 0}
}

// String returns the amixer-style "Name,Index" identifier.
func (c Control) String() string {
	return fmt.Sprintf("%s,%d", c.Name, c.Index)
}

// Level is the raw playback volume of one channel and the control's range.
type Level struct {
	Current int64
	Min     int64
	Max     int64
}

// Mixer queries playback volume. Implementations must release whatever they
// acquire before returning, on success and failure alike.
type Mixer interface {
	PlaybackVolume(ctx context.Context, c Control) (Level, error)
}

// Percent maps a raw level onto 0-100 and rounds to the nearest multiple of
// five. A degenerate range is treated as 1 to avoid dividing by zero.
func Percent(l Level) int {
	cur := l.Current - l.Min
	span := l.Max - l.Min
	if span <= 0 {
		span = 1
	}
	pct := cur * 100 / span
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return Round5(int(pct))
}

// Round5 rounds a non-negative percentage to the nearest multiple of five,
// halves rounding up.
func Round5(pct int) int {
	if pct < 0 {
		return Unavailable
	}
	return ((pct + 2) / 5) * 5
}

// Probe reports the volume of one control. It satisfies collectors.Probe.
type Probe struct {
	mixer   Mixer
	control Control
}

// New returns a probe that queries control through mixer.
func New(mixer Mixer, control Control) *Probe {
	return &Probe{mixer: mixer, control: control}
}

// Name returns the probe identifier.
func (p *Probe) Name() string { return "volume" }

// Placeholder is the rendered sentinel.
func (p *Probe) Placeholder() string { return strconv.Itoa(Unavailable) }

// Percent queries the mixer and returns the rounded percentage, or
// Unavailable with the cause.
func (p *Probe) Percent(ctx context.Context) (int, error) {
	level, err := p.mixer.PlaybackVolume(ctx, p.control)
	if err != nil {
		return Unavailable, fmt.Errorf("volume %s: %w", p.control, err)
	}
	return Percent(level), nil
}

// Collect renders the percentage without the trailing '%'; the composer owns
// the decoration.
func (p *Probe) Collect(ctx context.Context) (string, error) {
	pct, err := p.Percent(ctx)
	return strconv.Itoa(pct), err
}
