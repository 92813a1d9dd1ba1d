// Package battery reads power-supply capacity and charge direction from the
// Linux sysfs power_supply class.
package battery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go4.org/mem"
)

// DefaultRoot is where the kernel exposes power supplies.
const DefaultRoot = "/sys/class/power_supply"

// Rendered markers. Absent and error must never collapse into the same
// string: "no battery" and "battery present, unreadable" are different facts.
const (
	Absent           = "missing"
	Unreadable       = "err"
	ChargingGlyph    = "⌁⏶"
	DischargingGlyph = "⌁⏷"
)

// MaxWidth is the widest field this probe renders, in terminal cells.
const MaxWidth = 16

// ErrAbsent reports that no battery exists at the probed index.
var ErrAbsent = errors.New("battery absent")

// Direction is the charge direction reported by the status attribute.
type Direction int

const (
	// Unknown covers Full, Not charging, Unknown and unreadable status.
	Unknown Direction = iota
	Charging
	Discharging
)

// Reading is one sample of a single power supply.
type Reading struct {
	Present   bool
	Capacity  int
	Direction Direction
	Err       error
}

// String renders the reading as one of the four field shapes.
func (r Reading) String() string {
	switch {
	case !r.Present:
		return Absent
	case r.Err != nil:
		return Unreadable
	}
	switch r.Direction {
	case Charging:
		return fmt.Sprintf("%s%d%%", ChargingGlyph, r.Capacity)
	case Discharging:
		return fmt.Sprintf("%s%d%%", DischargingGlyph, r.Capacity)
	default:
		return fmt.Sprintf("%d%%", r.Capacity)
	}
}

// Probe samples BAT<Index> below Root. It satisfies collectors.Probe.
type Probe struct {
	Root  string
	Index int
}

// New returns a probe for the given battery index. An empty root selects
// DefaultRoot.
func New(root string, index int) *Probe {
	if root == "" {
		root = DefaultRoot
	}
	return &Probe{Root: root, Index: index}
}

// Name returns the probe identifier, e.g. "battery0".
func (p *Probe) Name() string {
	return fmt.Sprintf("battery%d", p.Index)
}

// Placeholder is the value used when the probe cannot run at all.
func (p *Probe) Placeholder() string { return Unreadable }

// Collect reads the battery and renders its field. An absent battery is a
// resource-unavailable condition, not a probe failure, so it returns no error.
func (p *Probe) Collect(ctx context.Context) (string, error) {
	r := p.Read(ctx)
	if !r.Present {
		return r.String(), nil
	}
	return r.String(), r.Err
}

// Read samples capacity and status.
func (p *Probe) Read(ctx context.Context) Reading {
	if err := ctx.Err(); err != nil {
		return Reading{Present: true, Err: err}
	}

	dir := filepath.Join(p.Root, fmt.Sprintf("BAT%d", p.Index))

	data, err := os.ReadFile(filepath.Join(dir, "capacity"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Reading{Err: ErrAbsent}
		}
		return Reading{Present: true, Err: fmt.Errorf("read capacity: %w", err)}
	}

	capacity, err := parseCapacity(data)
	if err != nil {
		return Reading{Present: true, Err: err}
	}

	r := Reading{Present: true, Capacity: capacity}

	// Status is optional; without it the capacity is shown bare.
	status, err := os.ReadFile(filepath.Join(dir, "status"))
	if err == nil {
		r.Direction = parseDirection(status)
	}
	return r
}

// parseCapacity parses the leading integer of a capacity attribute.
func parseCapacity(data []byte) (int, error) {
	field := firstField(mem.B(data))
	if field.Len() == 0 {
		return 0, errors.New("parse capacity: empty attribute")
	}
	v, err := mem.ParseInt(field, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse capacity: %w", err)
	}
	if v < 0 {
		return 0, fmt.Errorf("parse capacity: negative value %d", v)
	}
	return int(v), nil
}

// parseDirection classifies the status attribute by its first letter, the
// same way the kernel's "Charging"/"Discharging" values differ.
func parseDirection(data []byte) Direction {
	field := firstField(mem.B(data))
	if field.Len() == 0 {
		return Unknown
	}
	switch field.At(0) {
	case 'C':
		return Charging
	case 'D':
		return Discharging
	default:
		return Unknown
	}
}

// firstField returns the first whitespace-delimited token of m.
func firstField(m mem.RO) mem.RO {
	m = mem.TrimSpace(m)
	for i := 0; i < m.Len(); i++ {
		switch m.At(i) {
		case ' ', '\t', '\n', '\r':
			return m.SliceTo(i)
		}
	}
	return m
}
