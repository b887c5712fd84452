package player

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytq/internal/metrics"
	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/queue"
	"github.com/desertthunder/ytq/internal/shared"
	"github.com/desertthunder/ytq/internal/stream"
)

// Provider is the metadata service a session needs.
type Provider interface {
	queue.Resolver
	Recommender
	PlayableResolver
}

// Loader restores persisted sessions.
type Loader interface {
	Load(ctx context.Context, sessionID string) (*models.Snapshot, error)
}

// Session bundles one session's queue and player.
type Session struct {
	ID     string
	Queue  *queue.Store
	Player *Coordinator
}

// RegistryOpts configures a [Registry].
type RegistryOpts struct {
	Provider  Provider
	Loader    Loader // optional
	Notifier  queue.Notifier
	Assembler *stream.Assembler
	Sources   SourceFunc
	Queue     shared.QueueConfig
	Logger    *log.Logger
}

// Registry owns every live session, keyed by session (guild) ID.
type Registry struct {
	opts     RegistryOpts
	logger   *log.Logger
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts RegistryOpts) *Registry {
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	if opts.Assembler == nil {
		opts.Assembler = stream.NewAssembler(stream.DefaultChunkSize, opts.Logger)
	}
	return &Registry{
		opts:     opts,
		logger:   shared.WithLogger(opts.Logger, "component", "registry"),
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for id, creating it on first use. A new session is restored from the
// loader when one is configured and a snapshot exists.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: session id is required", shared.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		return s, nil
	}

	snap, err := r.restore(ctx, id)
	if err != nil {
		return nil, err
	}

	s := r.newSession(id, snap)
	r.sessions[id] = s
	metrics.Sessions.Set(float64(len(r.sessions)))
	metrics.SetQueueLength(id, s.Queue.Len())
	r.logger.Info("session opened", "session", id, "restored", len(snap.Entries))
	return s, nil
}

// Lookup returns a live session without creating it.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Sessions returns the IDs of live sessions in sorted order.
func (r *Registry) Sessions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Close stops playback and forgets the session. Its persisted snapshot is left untouched.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}

	s.Player.Stop()
	metrics.Sessions.Set(float64(n))
	metrics.DeleteQueueLength(id)
	r.logger.Info("session closed", "session", id)
	return nil
}

// CloseAll stops every session.
func (r *Registry) CloseAll() {
	for _, id := range r.Sessions() {
		_ = r.Close(id)
	}
}

// Snapshot captures a live session for persistence.
func (r *Registry) Snapshot(id string) (*models.Snapshot, bool) {
	s, ok := r.Lookup(id)
	if !ok {
		return nil, false
	}
	return s.Player.Snapshot(), true
}

func (r *Registry) restore(ctx context.Context, id string) (*models.Snapshot, error) {
	fresh := &models.Snapshot{
		SessionID:    id,
		Fairness:     r.opts.Queue.Fairness,
		AutoContinue: r.opts.Queue.AutoContinue,
	}
	if r.opts.Loader == nil {
		return fresh, nil
	}

	snap, err := r.opts.Loader.Load(ctx, id)
	switch {
	case errors.Is(err, shared.ErrSessionNotFound):
		return fresh, nil
	case err != nil:
		return nil, fmt.Errorf("failed to restore session %s: %w", id, err)
	}
	return snap, nil
}

func (r *Registry) newSession(id string, snap *models.Snapshot) *Session {
	var resolver queue.Resolver
	var recommender Recommender
	var playables PlayableResolver
	if r.opts.Provider != nil {
		resolver, recommender, playables = r.opts.Provider, r.opts.Provider, r.opts.Provider
	}

	store := queue.New(queue.Options{
		SessionID:    id,
		Resolver:     resolver,
		Notifier:     r.opts.Notifier,
		Logger:       r.opts.Logger,
		MaxLength:    r.opts.Queue.MaxLength,
		CacheHorizon: time.Duration(r.opts.Queue.CacheHorizonHours) * time.Hour,
		Fairness:     snap.Fairness,
		Entries:      snap.Entries,
	})

	coordinator := NewCoordinator(store, CoordinatorOpts{
		Assembler:   r.opts.Assembler,
		Recommender: recommender,
		Playables:   playables,
		Sources:     r.opts.Sources,
		Notifier:    r.opts.Notifier,
		Logger:      r.opts.Logger,
		Flags: Flags{
			TrackLoop:    snap.TrackLoop,
			QueueLoop:    snap.QueueLoop,
			AutoContinue: snap.AutoContinue,
		},
	})

	return &Session{ID: id, Queue: store, Player: coordinator}
}
