// Package statusline composes one cycle's probe outputs into the single line
// consumed by the status bar host.
package statusline

import (
	"strconv"
	"strings"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/collectors/battery"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/collectors/clock"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/collectors/keyboard"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/collectors/volume"
)

// Decorative glyphs and separators of the fixed template.
const (
	BatteryIcon  = "🔋"
	KeyboardIcon = "⌨️"
	VolumeIcon   = "🔊"

	batterySep = ", "
	fieldSep   = " | "
)

// Snapshot is the per-cycle aggregate of probe outputs. It has no identity
// beyond the cycle that produced it.
type Snapshot struct {
	Batteries []string // one entry per configured battery index, in order
	Layout    string
	Volume    int // percent, or volume.Unavailable
	Time      string
}

// Render formats the snapshot with the fixed template:
//
//	🔋<b0>, 🔋<b1> | ⌨️<layout> | 🔊<volume>% | <time>
//
// Fields are clipped to their maximum widths. The result has no trailing
// newline.
func Render(s Snapshot) string {
	var b strings.Builder
	b.Grow(96)

	for i, bat := range s.Batteries {
		if i > 0 {
			b.WriteString(batterySep)
		}
		b.WriteString(BatteryIcon)
		b.WriteString(Bound(orPlaceholder(bat, battery.Unreadable), battery.MaxWidth))
	}

	b.WriteString(fieldSep)
	b.WriteString(KeyboardIcon)
	b.WriteString(Bound(orPlaceholder(s.Layout, keyboard.Unknown), keyboard.MaxWidth))

	b.WriteString(fieldSep)
	b.WriteString(VolumeIcon)
	b.WriteString(strconv.Itoa(clampVolume(s.Volume)))
	b.WriteByte('%')

	b.WriteString(fieldSep)
	b.WriteString(Bound(s.Time, clock.MaxWidth))

	return b.String()
}

func orPlaceholder(v, placeholder string) string {
	if v == "" {
		return placeholder
	}
	return v
}

func clampVolume(v int) int {
	if v < 0 || v > 100 {
		return volume.Unavailable
	}
	return v
}
