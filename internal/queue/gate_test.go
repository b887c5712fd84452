package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// waitFor polls cond until it is true or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestGate(t *testing.T) {
	t.Run("acquire on free gate does not block", func(t *testing.T) {
		var g Gate
		if err := g.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
		if !g.Busy() {
			t.Error("expected gate to be busy")
		}
		g.Release()
		if g.Busy() {
			t.Error("expected gate to be free after release")
		}
	})

	t.Run("waiters resume in arrival order", func(t *testing.T) {
		var g Gate
		ctx := context.Background()
		if err := g.Acquire(ctx); err != nil {
			t.Fatal(err)
		}

		var (
			mu    sync.Mutex
			order []int
			wg    sync.WaitGroup
		)
		for i := range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = g.Do(ctx, func() error {
					mu.Lock()
					order = append(order, i)
					mu.Unlock()
					return nil
				})
			}()
			waitFor(t, func() bool { return g.Waiting() == i+1 })
		}

		g.Release()
		wg.Wait()

		for i, got := range order {
			if got != i {
				t.Fatalf("resume order = %v, want ascending", order)
			}
		}
		if g.Busy() {
			t.Error("expected gate to be free")
		}
	})

	t.Run("cancelled waiter leaves the queue", func(t *testing.T) {
		var g Gate
		if err := g.Acquire(context.Background()); err != nil {
			t.Fatal(err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- g.Acquire(ctx) }()
		waitFor(t, func() bool { return g.Waiting() == 1 })

		cancel()
		if err := <-done; !errors.Is(err, context.Canceled) {
			t.Errorf("Acquire() error = %v, want context.Canceled", err)
		}
		if g.Waiting() != 0 {
			t.Errorf("Waiting() = %d, want 0", g.Waiting())
		}

		g.Release()
		if g.Busy() {
			t.Error("expected gate to be free")
		}
	})

	t.Run("released when fn fails", func(t *testing.T) {
		var g Gate
		want := errors.New("boom")
		if err := g.Do(context.Background(), func() error { return want }); !errors.Is(err, want) {
			t.Errorf("Do() error = %v, want %v", err, want)
		}
		if g.Busy() {
			t.Error("gate still held after failing fn")
		}
	})

	t.Run("released when fn panics", func(t *testing.T) {
		var g Gate
		func() {
			defer func() { _ = recover() }()
			_ = g.Do(context.Background(), func() error { panic("boom") })
		}()
		if g.Busy() {
			t.Error("gate still held after panicking fn")
		}
	})

	t.Run("release of free gate panics", func(t *testing.T) {
		var g Gate
		defer func() {
			if recover() == nil {
				t.Error("expected panic")
			}
		}()
		g.Release()
	})
}
