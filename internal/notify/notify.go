// package notify carries "session changed" signals from queues to persistence and UI consumers.
package notify

import (
	"sync"
)

// Notifier receives the ID of a session whose queue changed.
type Notifier interface {
	MarkDirty(sessionID string)
}

// DirtySet is the set of sessions changed since the last [DirtySet.Drain].
type DirtySet struct {
	mu    sync.Mutex
	order []string
	set   map[string]struct{}
}

// NewDirtySet creates an empty DirtySet.
func NewDirtySet() *DirtySet {
	return &DirtySet{set: make(map[string]struct{})}
}

// MarkDirty adds sessionID to the set. Marking an already dirty session is a no-op.
func (d *DirtySet) MarkDirty(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.set[sessionID]; ok {
		return
	}
	d.set[sessionID] = struct{}{}
	d.order = append(d.order, sessionID)
}

// IsDirty reports whether sessionID is in the set.
func (d *DirtySet) IsDirty(sessionID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.set[sessionID]
	return ok
}

// Len returns the number of dirty sessions.
func (d *DirtySet) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}

// Drain empties the set and returns its members in the order they were first marked.
func (d *DirtySet) Drain() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := d.order
	d.order = nil
	clear(d.set)
	return out
}

// Fanout forwards each mark to every notifier in order.
type Fanout []Notifier

func (f Fanout) MarkDirty(sessionID string) {
	for _, n := range f {
		if n != nil {
			n.MarkDirty(sessionID)
		}
	}
}
