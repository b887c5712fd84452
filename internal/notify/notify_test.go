package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
)

func TestDirtySet(t *testing.T) {
	d := NewDirtySet()
	d.MarkDirty("b")
	d.MarkDirty("a")
	d.MarkDirty("b")

	if d.Len() != 2 {
		t.Errorf("Len() = %d, want 2", d.Len())
	}
	if !d.IsDirty("a") || d.IsDirty("c") {
		t.Error("IsDirty() reported wrong membership")
	}

	if diff := cmp.Diff([]string{"b", "a"}, d.Drain()); diff != "" {
		t.Errorf("Drain() mismatch (-want +got):\n%s", diff)
	}
	if d.Len() != 0 || d.IsDirty("a") {
		t.Error("expected empty set after Drain()")
	}
	if got := d.Drain(); len(got) != 0 {
		t.Errorf("second Drain() = %v, want empty", got)
	}
}

type recorder struct{ ids []string }

func (r *recorder) MarkDirty(id string) { r.ids = append(r.ids, id) }

func TestFanout(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	f := Fanout{a, nil, b}
	f.MarkDirty("s1")

	if len(a.ids) != 1 || len(b.ids) != 1 {
		t.Errorf("expected both notifiers to receive the mark, got %v and %v", a.ids, b.ids)
	}
}

func TestRedisNotifier(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := NewRedisNotifier(rdb, "", nil)
	if n.Channel() != DefaultChannel {
		t.Errorf("Channel() = %q, want %q", n.Channel(), DefaultChannel)
	}

	msgs, err := n.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	n.MarkDirty("guild-1")
	n.MarkDirty("guild-2")

	var got []string
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case id := <-msgs:
			got = append(got, id)
		case <-timeout:
			t.Fatalf("timed out waiting for notifications, got %v", got)
		}
	}

	if diff := cmp.Diff([]string{"guild-1", "guild-2"}, got); diff != "" {
		t.Errorf("published mismatch (-want +got):\n%s", diff)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestRedisNotifier_DropsWhenFull(t *testing.T) {
	n := NewRedisNotifier(nil, "ch", nil)
	for range publishBuffer + 10 {
		n.MarkDirty("s")
	}
	if len(n.pending) != publishBuffer {
		t.Errorf("pending = %d, want %d", len(n.pending), publishBuffer)
	}
}
