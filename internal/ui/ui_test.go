package ui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/player"
	"github.com/desertthunder/ytq/internal/queue"
	"github.com/desertthunder/ytq/internal/services"
	tu "github.com/desertthunder/ytq/internal/testing"
	"github.com/google/go-cmp/cmp"
)

type stubPlaylists struct{ playlist *services.Playlist }

func (s *stubPlaylists) Playlist(ctx context.Context, url string) (*services.Playlist, error) {
	return s.playlist, nil
}

func newTestModel(t *testing.T, opts Options, entries ...models.Entry) *Model {
	t.Helper()
	resolver := tu.NewMockResolver(tu.Track("added", 42))
	q := queue.New(queue.Options{SessionID: "guild", Resolver: resolver, Entries: entries})
	session := &player.Session{ID: "guild", Queue: q, Player: player.NewCoordinator(q, player.CoordinatorOpts{})}

	m := NewModel(context.Background(), session, opts)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func press(m *Model, k string) tea.Cmd {
	_, cmd := m.Update(keyMsg(k))
	return cmd
}

// settle runs commands and feeds their ui messages back until none remain.
func settle(m *Model, cmd tea.Cmd) {
	for cmd != nil {
		msg, ok := cmd().(Msg)
		if !ok {
			return
		}
		_, cmd = m.Update(msg)
	}
}

func queueTitles(m *Model) []string {
	var out []string
	for _, e := range m.session.Queue.List() {
		out = append(out, e.Info.Title)
	}
	return out
}

func TestModel_QueueView(t *testing.T) {
	m := newTestModel(t, Options{}, tu.Entry("a", "1"), tu.Entry("b", "2"))

	view := m.View()
	for _, want := range []string{"Queue guild", "0. a", "1. b", "added by user-1", "in 1:00"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	empty := newTestModel(t, Options{})
	if !strings.Contains(empty.View(), "The queue is empty") {
		t.Errorf("empty view missing hint:\n%s", empty.View())
	}
}

func TestModel_Edits(t *testing.T) {
	entries := func() []models.Entry {
		return []models.Entry{tu.Entry("a", "1"), tu.Entry("b", "2"), tu.Entry("c", "1")}
	}

	t.Run("remove selected", func(t *testing.T) {
		m := newTestModel(t, Options{}, entries()...)
		m.queue.Select(1)
		settle(m, press(m, "d"))

		if diff := cmp.Diff([]string{"a", "c"}, queueTitles(m)); diff != "" {
			t.Errorf("queue mismatch (-want +got):\n%s", diff)
		}
		if m.status != "Removed b" {
			t.Errorf("status = %q", m.status)
		}
	})

	t.Run("move down keeps the cursor on the entry", func(t *testing.T) {
		m := newTestModel(t, Options{}, entries()...)
		settle(m, press(m, "J"))

		if diff := cmp.Diff([]string{"b", "a", "c"}, queueTitles(m)); diff != "" {
			t.Errorf("queue mismatch (-want +got):\n%s", diff)
		}
		if m.queue.Index() != 1 {
			t.Errorf("cursor = %d, want 1", m.queue.Index())
		}
	})

	t.Run("move up at top is ignored", func(t *testing.T) {
		m := newTestModel(t, Options{}, entries()...)
		if cmd := press(m, "K"); cmd != nil {
			t.Error("expected no command")
		}
	})

	t.Run("fairness toggles and interleaves", func(t *testing.T) {
		m := newTestModel(t, Options{}, tu.Entry("a1", "1"), tu.Entry("a2", "1"), tu.Entry("b1", "2"))
		settle(m, press(m, "f"))

		if !m.session.Queue.Fairness() {
			t.Fatal("expected fairness on")
		}
		if diff := cmp.Diff([]string{"a1", "b1", "a2"}, queueTitles(m)); diff != "" {
			t.Errorf("queue mismatch (-want +got):\n%s", diff)
		}
		settle(m, press(m, "f"))
		if m.session.Queue.Fairness() {
			t.Error("expected fairness off")
		}
	})

	t.Run("next advances", func(t *testing.T) {
		m := newTestModel(t, Options{}, entries()...)
		settle(m, press(m, "n"))
		if diff := cmp.Diff([]string{"b", "c"}, queueTitles(m)); diff != "" {
			t.Errorf("queue mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("last entry moves to the front", func(t *testing.T) {
		m := newTestModel(t, Options{}, entries()...)
		settle(m, press(m, "t"))
		if diff := cmp.Diff([]string{"c", "a", "b"}, queueTitles(m)); diff != "" {
			t.Errorf("queue mismatch (-want +got):\n%s", diff)
		}
		if m.status != "Moved c to 0" {
			t.Errorf("status = %q", m.status)
		}
	})

	t.Run("shuffle keeps every entry", func(t *testing.T) {
		m := newTestModel(t, Options{}, entries()...)
		settle(m, press(m, "s"))
		if m.session.Queue.Len() != 3 || m.status != "Shuffled" {
			t.Errorf("len = %d, status = %q", m.session.Queue.Len(), m.status)
		}
	})

	t.Run("loop cycles", func(t *testing.T) {
		m := newTestModel(t, Options{}, entries()...)
		var got []string
		for range 3 {
			press(m, "l")
			got = append(got, m.status)
		}
		if diff := cmp.Diff([]string{"Loop: track", "Loop: queue", "Loop: off"}, got); diff != "" {
			t.Errorf("loop mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("clear after confirmation", func(t *testing.T) {
		m := newTestModel(t, Options{}, entries()...)
		press(m, "c")
		if m.view != ConfirmView {
			t.Fatalf("view = %v, want ConfirmView", m.view)
		}
		press(m, "n")
		if m.view != QueueView || m.session.Queue.Len() != 3 {
			t.Fatal("expected clear to be declined")
		}

		press(m, "c")
		settle(m, press(m, "y"))
		if !m.session.Queue.Empty() {
			t.Errorf("queue = %v, want empty", queueTitles(m))
		}
	})
}

func TestModel_Add(t *testing.T) {
	m := newTestModel(t, Options{User: models.AddedBy{UserID: "9", DisplayName: "tui"}}, tu.Entry("a", "1"))

	press(m, "a")
	if m.view != InputView {
		t.Fatalf("view = %v, want InputView", m.view)
	}
	press(m, tu.Track("added", 42).URL)
	settle(m, press(m, "enter"))

	if diff := cmp.Diff([]string{"a", "added"}, queueTitles(m)); diff != "" {
		t.Errorf("queue mismatch (-want +got):\n%s", diff)
	}
	if by := m.session.Queue.List()[1].AddedBy; by.DisplayName != "tui" {
		t.Errorf("added by = %+v", by)
	}

	press(m, "a")
	press(m, "https://unknown")
	settle(m, press(m, "enter"))
	if m.err == nil {
		t.Error("expected an error for an unresolvable url")
	}
	if !strings.Contains(m.View(), "Error:") {
		t.Error("expected the error in the status line")
	}
}

func TestModel_Import(t *testing.T) {
	t.Run("imports with progress", func(t *testing.T) {
		playlists := &stubPlaylists{playlist: &services.Playlist{
			Title:  "mix",
			Tracks: []*services.Track{{VideoID: "x", Title: "x"}, {VideoID: "y", Title: "y"}},
		}}
		m := newTestModel(t, Options{Playlists: playlists})

		press(m, "i")
		press(m, "https://www.youtube.com/playlist?list=mix")
		cmd := press(m, "enter")
		if m.view != ImportView {
			t.Fatalf("view = %v, want ImportView", m.view)
		}
		settle(m, cmd)

		if m.view != QueueView {
			t.Errorf("view = %v, want QueueView", m.view)
		}
		if diff := cmp.Diff([]string{"x", "y"}, queueTitles(m)); diff != "" {
			t.Errorf("queue mismatch (-want +got):\n%s", diff)
		}
		if !strings.HasPrefix(m.status, "Imported 2 tracks") {
			t.Errorf("status = %q", m.status)
		}
	})

	t.Run("not configured", func(t *testing.T) {
		m := newTestModel(t, Options{})
		press(m, "i")
		if m.view != QueueView || m.err == nil {
			t.Errorf("view = %v, err = %v", m.view, m.err)
		}
	})
}
