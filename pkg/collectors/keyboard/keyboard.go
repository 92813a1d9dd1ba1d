// Package keyboard reports the active keyboard layout as a short label,
// reading the XKB configuration through a long-lived X11 connection.
package keyboard

import (
	"context"
	"fmt"

	"go4.org/mem"
)

// Unknown is rendered when no layout matches or the query fails.
const Unknown = "??"

// MaxWidth is the widest label this probe renders, in terminal cells.
const MaxWidth = 4

// Layout maps a substring of the XKB symbols to a short label.
type Layout struct {
	Match string `toml:"match" yaml:"match"`
	Label string `toml:"label" yaml:"label"`
}

// DefaultLayouts is the built-in table. Order matters: the first match wins.
func DefaultLayouts() []Layout {
	return []Layout{
		{Match: "us", Label: "US"},
		{Match: "se", Label: "SE"},
	}
}

// SymbolSource yields the current layout symbols. *Display implements it.
type SymbolSource interface {
	LayoutSymbols(ctx context.Context) (string, error)
}

// Probe renders the layout label. It satisfies collectors.Probe.
type Probe struct {
	source  SymbolSource
	layouts []Layout
}

// New returns a probe reading from source. A nil or empty table selects
// DefaultLayouts.
func New(source SymbolSource, layouts []Layout) *Probe {
	if len(layouts) == 0 {
		layouts = DefaultLayouts()
	}
	return &Probe{source: source, layouts: layouts}
}

// Name returns the probe identifier.
func (p *Probe) Name() string { return "keyboard" }

// Placeholder is the unknown label.
func (p *Probe) Placeholder() string { return Unknown }

// Collect queries the symbols and returns the matching label.
func (p *Probe) Collect(ctx context.Context) (string, error) {
	if p.source == nil {
		return Unknown, fmt.Errorf("keyboard: no display")
	}
	symbols, err := p.source.LayoutSymbols(ctx)
	if err != nil {
		return Unknown, fmt.Errorf("keyboard: %w", err)
	}
	return Match(symbols, p.layouts), nil
}

// Match returns the label of the first layout whose Match is a substring of
// symbols, or Unknown.
func Match(symbols string, layouts []Layout) string {
	s := mem.S(symbols)
	for _, l := range layouts {
		if l.Match == "" {
			continue
		}
		if mem.Contains(s, mem.S(l.Match)) {
			return l.Label
		}
	}
	return Unknown
}

// RulesNames is the decoded _XKB_RULES_NAMES property.
type RulesNames struct {
	Rules   string
	Model   string
	Layout  string
	Variant string
	Options string
}

// ParseRulesNames splits the NUL-separated property value. Missing trailing
// fields are left empty.
func ParseRulesNames(value []byte) RulesNames {
	var fields [5]string
	rest := mem.B(value)
	for i := 0; i < len(fields) && rest.Len() > 0; i++ {
		j := mem.IndexByte(rest, 0)
		if j < 0 {
			fields[i] = rest.StringCopy()
			break
		}
		fields[i] = rest.SliceTo(j).StringCopy()
		rest = rest.SliceFrom(j + 1)
	}
	return RulesNames{
		Rules:   fields[0],
		Model:   fields[1],
		Layout:  fields[2],
		Variant: fields[3],
		Options: fields[4],
	}
}
