package statusline

import (
	"fmt"
	"io"
	"sync"
)

// Writer emits one line per snapshot. Each line goes out in a single Write
// on the underlying writer, so nothing is held back for a line-buffered
// consumer and a failed write affects only its own line.
type Writer struct {
	mu   sync.Mutex
	out  io.Writer
	last string
}

// NewWriter wraps out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Emit renders s and writes it with a trailing newline. It returns the
// rendered line.
func (w *Writer) Emit(s Snapshot) (string, error) {
	line := Render(s)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.last = line
	if _, err := io.WriteString(w.out, line+"\n"); err != nil {
		return line, fmt.Errorf("write status line: %w", err)
	}
	return line, nil
}

// Last returns the most recently rendered line, or "" before the first.
func (w *Writer) Last() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}
