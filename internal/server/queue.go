package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/player"
	"github.com/desertthunder/ytq/internal/shared"
	"github.com/desertthunder/ytq/internal/stream"
	"github.com/desertthunder/ytq/internal/tasks"
)

// QueueHandler serves the per-session queue endpoints over a [player.Registry].
type QueueHandler struct {
	registry  *player.Registry
	playlists tasks.PlaylistSource
	rps       float64
	logger    *log.Logger
}

// NewQueueHandler creates a QueueHandler. playlists may be nil, which disables imports.
func NewQueueHandler(registry *player.Registry, playlists tasks.PlaylistSource, requestsPerSecond float64, logger *log.Logger) *QueueHandler {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &QueueHandler{
		registry:  registry,
		playlists: playlists,
		rps:       requestsPerSecond,
		logger:    shared.WithLogger(logger, "component", "api"),
	}
}

// Routes returns the queue endpoints.
func (h *QueueHandler) Routes() []Route {
	return []Route{
		{http.MethodGet, "/sessions", h.sessions},
		{http.MethodGet, "/sessions/{id}/queue", h.list},
		{http.MethodPost, "/sessions/{id}/queue", h.add},
		{http.MethodGet, "/sessions/{id}/queue/search", h.search},
		{http.MethodPost, "/sessions/{id}/queue/import", h.importPlaylist},
		{http.MethodPost, "/sessions/{id}/queue/move", h.move},
		{http.MethodPost, "/sessions/{id}/queue/move-last", h.moveLast},
		{http.MethodDelete, "/sessions/{id}/queue/{index}", h.remove},
		{http.MethodPost, "/sessions/{id}/queue/shuffle", h.shuffle},
		{http.MethodPost, "/sessions/{id}/queue/clear", h.clear},
		{http.MethodPost, "/sessions/{id}/queue/fairness", h.fairness},
		{http.MethodPut, "/sessions/{id}/flags", h.flags},
		{http.MethodPost, "/sessions/{id}/next", h.next},
		{http.MethodGet, "/sessions/{id}/stream", h.stream},
	}
}

// QueueItem is one listed entry with its position and the seconds until it starts.
type QueueItem struct {
	Position   int          `json:"position"`
	ETASeconds int          `json:"eta_seconds"`
	Entry      models.Entry `json:"entry"`
}

// QueueResponse is the body of GET /sessions/{id}/queue.
type QueueResponse struct {
	Session       string       `json:"session"`
	Playing       bool         `json:"playing"`
	Fairness      bool         `json:"fairness"`
	Flags         player.Flags `json:"flags"`
	LengthSeconds int          `json:"length_seconds"`
	Items         []QueueItem  `json:"items"`
}

// AddRequest is the body of POST /sessions/{id}/queue and its import variant.
type AddRequest struct {
	URL      string `json:"url"`
	Hint     string `json:"hint,omitempty"`
	Mode     string `json:"mode,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	UserName string `json:"user_name,omitempty"`
}

// AddResponse reports where an entry landed.
type AddResponse struct {
	QueueItem
}

// MoveRequest is the body of POST /sessions/{id}/queue/move.
type MoveRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// FlagsRequest updates any subset of the loop modes.
type FlagsRequest struct {
	TrackLoop    *bool `json:"track_loop,omitempty"`
	QueueLoop    *bool `json:"queue_loop,omitempty"`
	OnceLoop     *bool `json:"once_loop,omitempty"`
	AutoContinue *bool `json:"auto_continue,omitempty"`
}

func (h *QueueHandler) session(w http.ResponseWriter, r *http.Request) (*player.Session, bool) {
	s, err := h.registry.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return s, true
}

func (h *QueueHandler) sessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": h.registry.Sessions()})
}

func (h *QueueHandler) list(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, describe(s))
}

func describe(s *player.Session) QueueResponse {
	entries := s.Queue.List()
	items := make([]QueueItem, len(entries))
	eta := 0
	for i, e := range entries {
		items[i] = QueueItem{Position: i, ETASeconds: eta, Entry: e}
		eta += e.Info.LengthSeconds
	}
	return QueueResponse{
		Session:       s.ID,
		Playing:       s.Queue.Playing(),
		Fairness:      s.Queue.Fairness(),
		Flags:         s.Player.Flags(),
		LengthSeconds: eta,
		Items:         items,
	}
}

func (req AddRequest) parse() (models.Ref, models.AddedBy, models.Mode, error) {
	mode, ok := models.ParseMode(req.Mode)
	if !ok {
		return models.Ref{}, models.AddedBy{}, mode, fmt.Errorf("%w: mode %q", shared.ErrInvalidArgument, req.Mode)
	}
	by := models.AddedBy{UserID: req.UserID, DisplayName: req.UserName}
	return models.Ref{URL: req.URL, Hint: req.Hint}, by, mode, nil
}

func (h *QueueHandler) add(w http.ResponseWriter, r *http.Request) {
	var req AddRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.URL == "" {
		writeError(w, fmt.Errorf("%w: url", shared.ErrMissingArgument))
		return
	}
	ref, by, mode, err := req.parse()
	if err != nil {
		writeError(w, err)
		return
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}
	added, err := s.Queue.Enqueue(r.Context(), ref, by, mode)
	if err != nil {
		writeError(w, err)
		return
	}

	eta := 0
	if added.Position > 0 {
		eta, _ = s.Queue.LengthSecondsTo(added.Position - 1)
	}
	writeJSON(w, http.StatusCreated, AddResponse{QueueItem{Position: added.Position, ETASeconds: eta, Entry: added.Entry}})
}

func (h *QueueHandler) search(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, fmt.Errorf("%w: q", shared.ErrMissingArgument))
		return
	}

	results := s.Queue.Search(q)
	items := make([]QueueItem, len(results))
	for i, res := range results {
		items[i] = QueueItem{Position: res.Position, Entry: res.Entry}
		if res.Position > 0 {
			items[i].ETASeconds, _ = s.Queue.LengthSecondsTo(res.Position - 1)
		}
	}
	writeJSON(w, http.StatusOK, map[string][]QueueItem{"items": items})
}

func (h *QueueHandler) importPlaylist(w http.ResponseWriter, r *http.Request) {
	if h.playlists == nil {
		writeError(w, fmt.Errorf("%w: playlist import is not configured", shared.ErrServiceUnavailable))
		return
	}
	var req AddRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	_, by, mode, err := req.parse()
	if err != nil {
		writeError(w, err)
		return
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}

	in := tasks.NewIngestor(s.Queue, h.rps, h.logger)
	result, err := tasks.ImportPlaylist(r.Context(), in, h.playlists, req.URL, tasks.Batch{Mode: mode, AddedBy: by})
	switch {
	case errors.Is(err, shared.ErrQueueCapacityExceeded):
		writeJSON(w, http.StatusConflict, struct {
			tasks.IngestResult
			Error string `json:"error"`
		}{result, err.Error()})
	case err != nil:
		writeError(w, err)
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

func (h *QueueHandler) move(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.mutate(w, r, func(ctx context.Context, s *player.Session) error {
		return s.Queue.Move(ctx, req.From, req.To)
	})
}

// moveLast brings the most recently queued entry up to play next.
func (h *QueueHandler) moveLast(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, s *player.Session) error {
		_, err := s.Queue.MoveLast(ctx)
		return err
	})
}

func (h *QueueHandler) remove(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: index %q", shared.ErrInvalidArgument, r.PathValue("index")))
		return
	}
	h.mutate(w, r, func(ctx context.Context, s *player.Session) error {
		if i == 0 && s.Player.Playing() {
			s.Player.Stop()
		}
		_, err := s.Queue.RemoveAt(ctx, i)
		return err
	})
}

func (h *QueueHandler) shuffle(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, s *player.Session) error {
		return s.Queue.Shuffle(ctx)
	})
}

// clear keeps the playing entry, if any.
func (h *QueueHandler) clear(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, s *player.Session) error {
		if s.Queue.Playing() {
			return s.Queue.KeepOnlyHead(ctx)
		}
		return s.Queue.RemoveAll(ctx)
	})
}

func (h *QueueHandler) fairness(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.mutate(w, r, func(ctx context.Context, s *player.Session) error {
		s.Queue.SetFairness(req.Enabled)
		if req.Enabled {
			return s.Queue.Interleave(ctx)
		}
		return nil
	})
}

func (h *QueueHandler) flags(w http.ResponseWriter, r *http.Request) {
	var req FlagsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	f := s.Player.UpdateFlags(func(f *player.Flags) {
		set := func(dst *bool, src *bool) {
			if src != nil {
				*dst = *src
			}
		}
		set(&f.TrackLoop, req.TrackLoop)
		set(&f.QueueLoop, req.QueueLoop)
		set(&f.OnceLoop, req.OnceLoop)
		set(&f.AutoContinue, req.AutoContinue)
	})
	writeJSON(w, http.StatusOK, f)
}

func (h *QueueHandler) next(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	finished, err := s.Player.Advance(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"finished": finished, "queue": describe(s)})
}

// stream serves the audio of position 0. A fully delivered track advances the queue according to
// the session's loop modes.
func (h *QueueHandler) stream(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	st, head, err := s.Player.Open(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	defer st.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Track-Title", head.Info.Title)
	w.Header().Set("X-Track-ID", head.ID)
	w.WriteHeader(http.StatusOK)

	n, err := io.Copy(w, st)
	if err != nil || st.State() != stream.Done {
		h.logger.Warn("stream interrupted", "session", s.ID, "title", head.Info.Title, "bytes", n, "err", err)
		s.Player.Release(st)
		return
	}

	if err := s.Player.TrackFinished(context.WithoutCancel(r.Context()), st); err != nil {
		h.logger.Warn("failed to advance after track", "session", s.ID, "err", err)
	}
}

// mutate resolves the session, applies fn and answers with the resulting queue.
func (h *QueueHandler) mutate(w http.ResponseWriter, r *http.Request, fn func(context.Context, *player.Session) error) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := fn(r.Context(), s); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, describe(s))
}
