package player

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/shared"
	tu "github.com/desertthunder/ytq/internal/testing"
	"github.com/google/go-cmp/cmp"
)

type mapLoader struct {
	snaps map[string]*models.Snapshot
	err   error
}

func (l *mapLoader) Load(ctx context.Context, id string) (*models.Snapshot, error) {
	if l.err != nil {
		return nil, l.err
	}
	s, ok := l.snaps[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	return s, nil
}

func TestRegistryGet(t *testing.T) {
	ctx := context.Background()

	t.Run("creates once and reuses", func(t *testing.T) {
		r := NewRegistry(RegistryOpts{Provider: tu.NewMockResolver()})
		defer r.CloseAll()

		first, err := r.Get(ctx, "guild")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		second, _ := r.Get(ctx, "guild")
		if first != second {
			t.Error("Get() returned a different session for the same id")
		}
		if first.Queue.SessionID() != "guild" {
			t.Errorf("SessionID() = %q", first.Queue.SessionID())
		}
	})

	t.Run("applies queue defaults to new sessions", func(t *testing.T) {
		r := NewRegistry(RegistryOpts{Queue: shared.QueueConfig{MaxLength: 5, Fairness: true, AutoContinue: true}})
		s, err := r.Get(ctx, "guild")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if s.Queue.MaxLength() != 5 || !s.Queue.Fairness() || !s.Player.Flags().AutoContinue {
			t.Errorf("session not configured: max=%d fairness=%v flags=%+v",
				s.Queue.MaxLength(), s.Queue.Fairness(), s.Player.Flags())
		}
	})

	t.Run("restores persisted snapshot", func(t *testing.T) {
		loader := &mapLoader{snaps: map[string]*models.Snapshot{
			"guild": {
				SessionID: "guild",
				Entries:   []models.Entry{tu.Entry("a", "1"), tu.Entry("b", "2")},
				QueueLoop: true,
			},
		}}
		r := NewRegistry(RegistryOpts{Loader: loader})

		s, err := r.Get(ctx, "guild")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if diff := cmp.Diff([]string{"a", "b"}, titles(s.Queue.List())); diff != "" {
			t.Errorf("restored queue mismatch (-want +got):\n%s", diff)
		}
		if !s.Player.Flags().QueueLoop {
			t.Error("expected queue loop to be restored")
		}

		fresh, err := r.Get(ctx, "other")
		if err != nil {
			t.Fatalf("Get() for unknown session error = %v", err)
		}
		if !fresh.Queue.Empty() {
			t.Error("expected a fresh session to be empty")
		}
	})

	t.Run("loader failure", func(t *testing.T) {
		r := NewRegistry(RegistryOpts{Loader: &mapLoader{err: errors.New("disk on fire")}})
		if _, err := r.Get(ctx, "guild"); err == nil {
			t.Fatal("Get() expected error")
		}
		if len(r.Sessions()) != 0 {
			t.Error("failed restore should not register the session")
		}
	})

	t.Run("empty id", func(t *testing.T) {
		r := NewRegistry(RegistryOpts{})
		if _, err := r.Get(ctx, ""); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("Get() error = %v, want ErrInvalidInput", err)
		}
	})
}

func TestRegistrySessionsAndClose(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(RegistryOpts{})

	for _, id := range []string{"c", "a", "b"} {
		if _, err := r.Get(ctx, id); err != nil {
			t.Fatalf("Get(%q) error = %v", id, err)
		}
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, r.Sessions()); diff != "" {
		t.Errorf("Sessions() mismatch (-want +got):\n%s", diff)
	}

	if err := r.Close("b"); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, ok := r.Lookup("b"); ok {
		t.Error("Lookup() found a closed session")
	}
	if err := r.Close("b"); !errors.Is(err, shared.ErrSessionNotFound) {
		t.Errorf("second Close() error = %v, want ErrSessionNotFound", err)
	}
}

func TestRegistrySnapshot(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(RegistryOpts{})

	if _, ok := r.Snapshot("missing"); ok {
		t.Error("Snapshot() of unknown session reported ok")
	}

	s, _ := r.Get(ctx, "guild")
	if _, err := s.Queue.Enqueue(ctx, models.Ref{URL: "x", Known: &models.BasicInfo{Title: "x", URL: "x"}}, models.Unknown, models.Append); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	snap, ok := r.Snapshot("guild")
	if !ok {
		t.Fatal("Snapshot() not ok")
	}
	if diff := cmp.Diff([]string{"x"}, titles(snap.Entries)); diff != "" {
		t.Errorf("snapshot entries mismatch (-want +got):\n%s", diff)
	}
}
