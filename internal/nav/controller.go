// Package nav implements browser-style history over the app's selection
// state. The controller never owns what is on screen; it reads and writes
// the selection through the Selection interface and keeps the back and
// forward stacks consistent around each transition.
package nav

import (
	"sync"

	"github.com/hndesk/hndesk/internal/domain"
)

// Selection is the mutable "where am I" state the controller drives. The
// feed engine implements it.
type Selection interface {
	Current() domain.NavEntry
	Apply(domain.NavEntry)
}

// Controller maintains back/forward history over a Selection.
type Controller struct {
	sel Selection

	mu      sync.Mutex
	back    []domain.NavEntry
	forward []domain.NavEntry
}

// NewController creates a history controller over the given selection.
func NewController(sel Selection) *Controller {
	return &Controller{sel: sel}
}

// Navigate moves to entry. Navigating to the current location is a no-op
// and records nothing. Otherwise the pre-transition location is pushed onto
// the back stack and the forward stack is cleared: moving somewhere new
// invalidates the "future" path.
func (c *Controller) Navigate(entry domain.NavEntry) {
	c.mu.Lock()
	current := c.sel.Current()
	if current.Equal(entry) {
		c.mu.Unlock()
		return
	}
	c.back = append(c.back, current)
	c.forward = nil
	c.mu.Unlock()

	c.sel.Apply(entry)
}

// Back pops the most recent back entry and restores it, pushing the
// pre-transition location onto the forward stack. Restoring does not
// re-push anything onto the back stack. No-op when the back stack is empty.
func (c *Controller) Back() {
	c.mu.Lock()
	if len(c.back) == 0 {
		c.mu.Unlock()
		return
	}
	entry := c.back[len(c.back)-1]
	c.back = c.back[:len(c.back)-1]
	c.forward = append(c.forward, c.sel.Current())
	c.mu.Unlock()

	c.sel.Apply(entry)
}

// Forward is the mirror of Back. No-op when the forward stack is empty.
func (c *Controller) Forward() {
	c.mu.Lock()
	if len(c.forward) == 0 {
		c.mu.Unlock()
		return
	}
	entry := c.forward[len(c.forward)-1]
	c.forward = c.forward[:len(c.forward)-1]
	c.back = append(c.back, c.sel.Current())
	c.mu.Unlock()

	c.sel.Apply(entry)
}

// ChangeViewMode switches how the current item is displayed. When an item
// is selected and the mode actually changes, this is a history-pushing
// navigation, so Back returns to the previous mode. With no item selected
// it is a no-op.
func (c *Controller) ChangeViewMode(mode domain.ViewMode) {
	current := c.sel.Current()
	if current.Kind != domain.EntryViewing || current.Item == nil || current.Mode == mode {
		return
	}
	c.Navigate(domain.ViewingEntry(*current.Item, mode))
}

// CanGoBack reports whether the back stack is non-empty.
func (c *Controller) CanGoBack() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.back) > 0
}

// CanGoForward reports whether the forward stack is non-empty.
func (c *Controller) CanGoForward() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.forward) > 0
}

// Current returns the selection's current entry.
func (c *Controller) Current() domain.NavEntry {
	return c.sel.Current()
}
