package notify

import (
	"fmt"
	"io"
	"sync"
)

// Terminal prints notifications to a writer. Repeating the current message
// prints nothing, so the output behaves like a single banner.
type Terminal struct {
	mu   sync.Mutex
	out  io.Writer
	last string
}

// NewTerminal creates a terminal notifier writing to out
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out}
}

// Show prints message unless it is already displayed
func (t *Terminal) Show(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if message == t.last {
		return
	}
	t.last = message
	fmt.Fprintf(t.out, "⚠ %s\n", message)
}

// Last returns the most recently shown message
func (t *Terminal) Last() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}
