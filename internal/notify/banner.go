// Package notify provides user-facing notifiers for the session watchdog.
package notify

import "sync"

// Element is the single notification element held by a Banner
type Element struct {
	ID   string
	Text string
}

// Banner is the headless document notifier: an in-memory page that holds at
// most one fixed-position notification element, for embedding the watchdog
// where no real DOM exists. Show creates the element on first use and
// replaces its text afterwards.
type Banner struct {
	mu      sync.Mutex
	id      string
	element *Element
}

// NewBanner creates an empty banner document. id names the element.
func NewBanner(id string) *Banner {
	if id == "" {
		id = "auth-error-notification"
	}
	return &Banner{id: id}
}

// Show upserts the notification element
func (b *Banner) Show(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.element == nil {
		b.element = &Element{ID: b.id}
	}
	b.element.Text = message
}

// Visible reports whether the notification element exists
func (b *Banner) Visible() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.element != nil
}

// Text returns the current notification text, or "" when none is shown
func (b *Banner) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.element == nil {
		return ""
	}
	return b.element.Text
}

// Elements returns a copy of the notification elements in the document
func (b *Banner) Elements() []Element {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.element == nil {
		return nil
	}
	return []Element{*b.element}
}
