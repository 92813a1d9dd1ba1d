package statusline

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Bound clips s to at most maxWidth terminal cells. Wide glyphs (CJK, emoji)
// count as two cells; escape sequences and control characters are dropped
// since the bar host would print them literally.
func Bound(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	s = sanitize(ansi.Strip(s))
	if ansi.StringWidth(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, "")
}

// VisibleWidth returns the visible width of s in terminal cells.
func VisibleWidth(s string) int {
	return ansi.StringWidth(s)
}

// sanitize removes newlines and other C0 controls that would split or
// corrupt the line.
func sanitize(s string) string {
	if strings.IndexFunc(s, isControl) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if isControl(r) {
			return -1
		}
		return r
	}, s)
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}
