package commands

import (
	"fmt"
	"io"
	"sync"
)

// terminalNavigator stands in for browser navigation: it prints the target
// URL and signals the first navigation on Done.
type terminalNavigator struct {
	baseURL string
	out     io.Writer

	once sync.Once
	done chan string
}

func newTerminalNavigator(baseURL string, out io.Writer) *terminalNavigator {
	return &terminalNavigator{baseURL: baseURL, out: out, done: make(chan string, 1)}
}

// Navigate is idempotent; only the first target is reported
func (n *terminalNavigator) Navigate(path string) {
	n.once.Do(func() {
		target := n.baseURL + path
		fmt.Fprintf(n.out, "→ Open %s to sign in again\n", target)
		n.done <- target
	})
}

// Done receives the target of the first navigation
func (n *terminalNavigator) Done() <-chan string {
	return n.done
}
