package queue

import (
	"context"
	"sync"
)

// Gate is a single-slot mutual exclusion primitive whose waiters are resumed in arrival order.
//
// Unlike [sync.Mutex], ownership passes directly from Release to the oldest waiter, so a late
// arrival can never barge ahead of callers already queued.
type Gate struct {
	mu      sync.Mutex
	busy    bool
	waiters []chan struct{}
}

// Acquire takes the gate, suspending until it is handed over or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	g.mu.Lock()
	if !g.busy {
		g.busy = true
		g.mu.Unlock()
		return nil
	}

	wake := make(chan struct{})
	g.waiters = append(g.waiters, wake)
	g.mu.Unlock()

	select {
	case <-wake:
		return nil
	case <-ctx.Done():
		g.mu.Lock()
		for i, w := range g.waiters {
			if w == wake {
				g.waiters = append(g.waiters[:i], g.waiters[i+1:]...)
				g.mu.Unlock()
				return ctx.Err()
			}
		}
		g.mu.Unlock()

		// Release handed us the gate while ctx was being cancelled.
		g.Release()
		return ctx.Err()
	}
}

// Release frees the gate, or transfers it to the oldest waiter. Releasing a free gate panics.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.busy {
		panic("queue: release of unlocked gate")
	}

	if len(g.waiters) == 0 {
		g.busy = false
		return
	}

	next := g.waiters[0]
	g.waiters[0] = nil
	g.waiters = g.waiters[1:]
	close(next)
}

// Do runs fn while holding the gate. The gate is released on every exit path, including panics.
func (g *Gate) Do(ctx context.Context, fn func() error) error {
	if err := g.Acquire(ctx); err != nil {
		return err
	}
	defer g.Release()
	return fn()
}

// Waiting returns the number of suspended callers.
func (g *Gate) Waiting() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.waiters)
}

// Busy reports whether the gate is currently held.
func (g *Gate) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy
}
