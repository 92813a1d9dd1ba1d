// Package clock formats local wall-clock time for the status line and
// reports the seconds within the current minute for cadence alignment.
package clock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// MaxWidth is the widest string this probe renders, in terminal cells.
const MaxWidth = 32

// ErrClockUnavailable reports that no usable time could be read.
var ErrClockUnavailable = errors.New("clock unavailable")

// weekdayGlyphs is indexed by time.Weekday (Sunday first).
var weekdayGlyphs = [7]string{"日", "月", "火", "水", "木", "金", "土"}

// WeekdayGlyph returns the glyph for a weekday index 0-6 (Sunday first). Out
// of range indices return "?".
func WeekdayGlyph(wd time.Weekday) string {
	if wd < time.Sunday || wd > time.Saturday {
		return "?"
	}
	return weekdayGlyphs[wd]
}

// Format renders t as "W<ISO week> <glyph> <DD> <Mon> <HH:MM>", e.g.
// "W02 水 10 Jan 14:05".
func Format(t time.Time) string {
	_, week := t.ISOWeek()
	return fmt.Sprintf("W%02d %s %s", week, WeekdayGlyph(t.Weekday()), t.Format("02 Jan 15:04"))
}

// Probe reads the clock. It satisfies collectors.Probe and additionally
// exposes Sample for the scheduler.
type Probe struct {
	now func() time.Time
	loc *time.Location
}

// New returns a probe using the real clock in loc. A nil loc means
// time.Local.
func New(loc *time.Location) *Probe {
	return NewWithClock(time.Now, loc)
}

// NewWithClock returns a probe that reads time from now. Tests use it to pin
// the clock.
func NewWithClock(now func() time.Time, loc *time.Location) *Probe {
	if loc == nil {
		loc = time.Local
	}
	return &Probe{now: now, loc: loc}
}

// Name returns the probe identifier.
func (p *Probe) Name() string { return "clock" }

// Sample returns the formatted time and the seconds within the minute. A
// zero reading (clock not set) is reported as ErrClockUnavailable.
func (p *Probe) Sample(ctx context.Context) (string, int, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	t := p.now()
	if t.IsZero() {
		return "", 0, ErrClockUnavailable
	}
	t = t.In(p.loc)
	return Format(t), t.Second(), nil
}

// Collect returns the formatted time only.
func (p *Probe) Collect(ctx context.Context) (string, error) {
	s, _, err := p.Sample(ctx)
	return s, err
}
