package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytq/internal/formatter"
	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/player"
	"github.com/desertthunder/ytq/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	QueueView ViewState = iota
	InputView
	ConfirmView
	ImportView
)

type inputPurpose int

const (
	inputAdd inputPurpose = iota
	inputImport
)

// Options configures a [Model].
type Options struct {
	Playlists         tasks.PlaylistSource // optional, enables playlist import
	RequestsPerSecond float64
	User              models.AddedBy // contributor recorded on entries added from the TUI
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	session      *player.Session
	opts         Options
	view         ViewState
	purpose      inputPurpose
	width        int
	height       int
	queue        list.Model
	input        textinput.Model
	help         help.Model
	keys         keyMap
	status       string
	err          error
	cursor       int
	progressChan chan tasks.ProgressUpdate
	importDone   chan importResult
	cancel       *tasks.Cancellation
	progress     tasks.ProgressUpdate
}

// NewModel creates a new TUI model over one session.
func NewModel(ctx context.Context, session *player.Session, opts Options) *Model {
	q := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	q.SetFilteringEnabled(false)
	q.SetShowHelp(false)
	q.DisableQuitKeybindings()

	input := textinput.New()
	input.CharLimit = 2048

	m := &Model{
		ctx:     ctx,
		session: session,
		opts:    opts,
		view:    QueueView,
		queue:   q,
		input:   input,
		help:    help.New(),
		keys:    newKeyMap(),
		cursor:  -1,
	}
	m.refresh()
	return m
}

// Init has nothing to fetch; the queue is already in memory.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.queue.SetSize(msg.Width-4, msg.Height-8)
		m.input.Width = msg.Width - 8
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case QueueView:
			return m.handleQueueKeys(msg)
		case InputView:
			return m.handleInputKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ImportView:
			return m.handleImportKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.queue, cmd = m.queue.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgActionDone:
		res := msg.data.(actionResult)
		m.status, m.err = res.status, res.err
		return m, m.refresh()

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		if cmd := m.refresh(); cmd != nil {
			return m, tea.Batch(cmd, m.waitForProgress())
		}
		return m, m.waitForProgress()

	case MsgImportComplete:
		res := msg.data.(importResult)
		m.view = QueueView
		m.progressChan, m.importDone, m.cancel = nil, nil, nil
		m.err = res.err
		m.status = fmt.Sprintf("Imported %d tracks (%d failed, %d skipped)", res.result.Added, res.result.Failed, res.result.Skipped)
		if res.result.Cancelled {
			m.status += ", cancelled"
		}
		return m, m.refresh()
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case QueueView:
		return m.renderQueue()
	case InputView:
		return m.renderInput()
	case ConfirmView:
		return m.renderConfirm()
	case ImportView:
		return m.renderImport()
	default:
		return ""
	}
}

func (m *Model) handleQueueKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	q := m.session.Queue
	idx := m.queue.Index()

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.remove):
		if q.Empty() {
			return m, nil
		}
		return m, m.action(func(ctx context.Context) (string, error) {
			if idx == 0 && m.session.Player.Playing() {
				m.session.Player.Stop()
			}
			e, err := q.RemoveAt(ctx, idx)
			return fmt.Sprintf("Removed %s", e.Info.Title), err
		})

	case key.Matches(msg, m.keys.moveUp), key.Matches(msg, m.keys.moveDown):
		to := idx - 1
		if key.Matches(msg, m.keys.moveDown) {
			to = idx + 1
		}
		if to < 0 || to >= q.Len() {
			return m, nil
		}
		m.cursor = to
		return m, m.action(func(ctx context.Context) (string, error) {
			return fmt.Sprintf("Moved %d to %d", idx, to), q.Move(ctx, idx, to)
		})

	case key.Matches(msg, m.keys.lastUp):
		return m, m.action(func(ctx context.Context) (string, error) {
			moved, err := q.MoveLast(ctx)
			return fmt.Sprintf("Moved %s to %d", moved.Entry.Info.Title, moved.Position), err
		})

	case key.Matches(msg, m.keys.shuffle):
		return m, m.action(func(ctx context.Context) (string, error) {
			return "Shuffled", q.Shuffle(ctx)
		})

	case key.Matches(msg, m.keys.fairness):
		enable := !q.Fairness()
		return m, m.action(func(ctx context.Context) (string, error) {
			q.SetFairness(enable)
			if !enable {
				return "Fairness off", nil
			}
			return "Fairness on", q.Interleave(ctx)
		})

	case key.Matches(msg, m.keys.next):
		return m, m.action(func(ctx context.Context) (string, error) {
			e, err := m.session.Player.Advance(ctx)
			return fmt.Sprintf("Finished %s", e.Info.Title), err
		})

	case key.Matches(msg, m.keys.loop):
		f := m.session.Player.UpdateFlags(cycleLoop)
		m.status, m.err = "Loop: "+loopName(f), nil
		return m, m.refresh()

	case key.Matches(msg, m.keys.add):
		return m, m.openInput(inputAdd, "https://www.youtube.com/watch?v=...")

	case key.Matches(msg, m.keys.imports):
		if m.opts.Playlists == nil {
			m.status, m.err = "", fmt.Errorf("playlist import is not configured")
			return m, nil
		}
		return m, m.openInput(inputImport, "https://www.youtube.com/playlist?list=...")

	case key.Matches(msg, m.keys.clear):
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.queue, cmd = m.queue.Update(msg)
	return m, cmd
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.input.Blur()
		m.view = QueueView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		url := strings.TrimSpace(m.input.Value())
		m.input.Blur()
		m.view = QueueView
		if url == "" {
			return m, nil
		}
		if m.purpose == inputImport {
			return m, m.startImport(url)
		}
		return m, m.action(func(ctx context.Context) (string, error) {
			added, err := m.session.Queue.Enqueue(ctx, models.Ref{URL: url}, m.opts.User, models.Append)
			return fmt.Sprintf("Added %s at position %d", added.Entry.Info.Title, added.Position), err
		})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = QueueView
		q := m.session.Queue
		return m, m.action(func(ctx context.Context) (string, error) {
			if q.Playing() {
				return "Cleared, kept the playing track", q.KeepOnlyHead(ctx)
			}
			return "Cleared", q.RemoveAll(ctx)
		})
	case key.Matches(msg, m.keys.no), msg.Type == tea.KeyCtrlC:
		m.view = QueueView
	}
	return m, nil
}

func (m *Model) handleImportKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.back) || msg.Type == tea.KeyCtrlC {
		m.cancel.Cancel()
		m.status = "Cancelling import..."
	}
	return m, nil
}

func (m *Model) openInput(purpose inputPurpose, placeholder string) tea.Cmd {
	m.purpose = purpose
	m.view = InputView
	m.input.SetValue("")
	m.input.Placeholder = placeholder
	return m.input.Focus()
}

// action runs fn as a command and reports its outcome.
func (m *Model) action(fn func(context.Context) (string, error)) tea.Cmd {
	return func() tea.Msg {
		status, err := fn(m.ctx)
		if err != nil {
			status = ""
		}
		return actionDoneMsg(status, err)
	}
}

func (m *Model) startImport(url string) tea.Cmd {
	m.view = ImportView
	m.progress = tasks.ProgressUpdate{Message: "Fetching playlist..."}
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.importDone = make(chan importResult, 1)
	m.cancel = &tasks.Cancellation{}

	progress, done, cancel := m.progressChan, m.importDone, m.cancel
	go func() {
		in := tasks.NewIngestor(m.session.Queue, m.opts.RequestsPerSecond, nil)
		result, err := tasks.ImportPlaylist(m.ctx, in, m.opts.Playlists, url, tasks.Batch{
			Mode:     models.Append,
			AddedBy:  m.opts.User,
			Cancel:   cancel,
			Progress: progress,
		})
		done <- importResult{result, err}
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.importDone
	return func() tea.Msg {
		if progress == nil {
			return nil
		}
		update, ok := <-progress
		if !ok {
			res := <-done
			return importCompleteMsg(res.result, res.err)
		}
		return progressUpdateMsg(update)
	}
}

// refresh rebuilds the list from the store.
func (m *Model) refresh() tea.Cmd {
	q := m.session.Queue
	m.queue.Title = fmt.Sprintf("Queue %s • %d tracks • %s", m.session.ID, q.Len(), formatter.FormatDuration(q.LengthSeconds()))
	cmd := m.queue.SetItems(newEntryItems(q.List(), q.Playing()))
	if m.cursor >= 0 {
		m.queue.Select(m.cursor)
		m.cursor = -1
	}
	return cmd
}

func cycleLoop(f *player.Flags) {
	switch {
	case !f.TrackLoop && !f.QueueLoop:
		f.TrackLoop = true
	case f.TrackLoop:
		f.TrackLoop, f.QueueLoop = false, true
	default:
		f.QueueLoop = false
	}
}

func loopName(f player.Flags) string {
	switch {
	case f.TrackLoop:
		return "track"
	case f.QueueLoop:
		return "queue"
	default:
		return "off"
	}
}

func (m *Model) badges() string {
	var b []string
	if m.session.Queue.Fairness() {
		b = append(b, styles.badge.Render("fair"))
	}
	if f := m.session.Player.Flags(); f.TrackLoop || f.QueueLoop {
		b = append(b, styles.badge.Render("loop "+loopName(f)))
	}
	if m.session.Player.Flags().AutoContinue {
		b = append(b, styles.badge.Render("auto"))
	}
	return strings.Join(b, " ")
}

func (m *Model) statusLine() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	}
	if m.status != "" {
		return styles.ok.Render(m.status)
	}
	return styles.help.Render("Ready")
}

func (m *Model) renderQueue() string {
	body := m.queue.View()
	if m.session.Queue.Empty() {
		body = styles.title.Render(m.queue.Title) + "\n" + styles.warn.Render("The queue is empty. Press a to add a track.")
	}
	return fmt.Sprintf("%s\n%s\n%s\n\n%s", m.badges(), body, m.statusLine(), m.help.View(m.keys))
}

func (m *Model) renderInput() string {
	title := "Add a track"
	if m.purpose == inputImport {
		title = "Import a playlist"
	}
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back})
	return fmt.Sprintf("%s\n%s\n\n%s", styles.title.Render(title), m.input.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Clear %d tracks from the queue?", m.session.Queue.Len()))
	note := ""
	if m.session.Queue.Playing() {
		note = styles.help.Render("The playing track is kept.") + "\n"
	}
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n%s", title, note, helpView)
}

func (m *Model) renderImport() string {
	title := styles.title.Render("Importing Playlist")
	var step string
	if m.progress.Total > 0 {
		step = fmt.Sprintf("(%d/%d)", m.progress.Step, m.progress.Total)
	}
	cancelKey := key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel"))
	return fmt.Sprintf("%s\n\n%s %s\n%s\n\n%s", title, m.progress.Message, step,
		styles.divider.Render(m.status), m.help.ShortHelpView([]key.Binding{cancelKey}))
}
