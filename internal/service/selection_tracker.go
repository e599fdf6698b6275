package service

import (
	"context"
	"sync"
	"sync/atomic"
)

// SelectionTracker hands out a generation per dashboard view. Starting a new
// selection cancels the view's previous in-flight load, and only the most
// recent generation may commit its result.
type SelectionTracker struct {
	mu      sync.Mutex
	views   map[string]*selection
	counter atomic.Uint64
}

type selection struct {
	generation uint64
	cancel     context.CancelFunc
}

// Ticket identifies one selection attempt.
type Ticket struct {
	ViewID     string
	Generation uint64
	tracker    *SelectionTracker
}

// NewSelectionTracker constructs an empty tracker.
func NewSelectionTracker() *SelectionTracker {
	return &SelectionTracker{views: make(map[string]*selection)}
}

// Begin supersedes any selection in flight for viewID and returns a context
// that is cancelled when a newer selection starts.
func (t *SelectionTracker) Begin(parent context.Context, viewID string) (context.Context, *Ticket) {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	gen := t.counter.Add(1)
	if prev, ok := t.views[viewID]; ok {
		prev.cancel()
	}
	t.views[viewID] = &selection{generation: gen, cancel: cancel}
	t.mu.Unlock()

	return ctx, &Ticket{ViewID: viewID, Generation: gen, tracker: t}
}

// Current reports whether the ticket is still the view's latest selection.
func (tk *Ticket) Current() bool {
	if tk == nil || tk.tracker == nil {
		return false
	}
	t := tk.tracker
	t.mu.Lock()
	defer t.mu.Unlock()
	sel, ok := t.views[tk.ViewID]
	return ok && sel.generation == tk.Generation
}

// Finish releases the ticket. It reports whether the ticket was current at
// that moment; a stale ticket must not commit its result.
func (tk *Ticket) Finish() bool {
	if tk == nil || tk.tracker == nil {
		return false
	}
	t := tk.tracker
	t.mu.Lock()
	defer t.mu.Unlock()
	sel, ok := t.views[tk.ViewID]
	if !ok || sel.generation != tk.Generation {
		return false
	}
	sel.cancel()
	delete(t.views, tk.ViewID)
	return true
}

// InFlight returns the number of views with a running selection.
func (t *SelectionTracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.views)
}
