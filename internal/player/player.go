package player

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/queue"
	"github.com/desertthunder/ytq/internal/shared"
	"github.com/desertthunder/ytq/internal/stream"
)

// AutoContinueUser is the contributor recorded on tracks added by auto-continue.
var AutoContinueUser = models.AddedBy{UserID: "0", DisplayName: "auto"}

// Recommender suggests a track related to the one that just played.
type Recommender interface {
	Related(ctx context.Context, url string) (*models.Ref, error)
}

// PlayableResolver locates the raw audio of a track.
type PlayableResolver interface {
	Playable(ctx context.Context, url string) (*models.Playable, error)
}

// SourceFunc builds a range-fetchable source for a playable track.
type SourceFunc func(ctx context.Context, p *models.Playable) (stream.Source, error)

// HTTPSources returns a SourceFunc that fetches over HTTP, probing the length when the provider did
// not report one.
func HTTPSources(client *http.Client, userAgent string) SourceFunc {
	return func(ctx context.Context, p *models.Playable) (stream.Source, error) {
		if p.ContentLength > 0 {
			return stream.NewHTTPSource(client, p.StreamURL, p.ContentLength, userAgent), nil
		}
		return stream.ProbeHTTPSource(ctx, client, p.StreamURL, userAgent)
	}
}

// Flags are the loop and continuation modes of a session.
type Flags struct {
	TrackLoop    bool `json:"track_loop"`
	QueueLoop    bool `json:"queue_loop"`
	OnceLoop     bool `json:"once_loop"`
	AutoContinue bool `json:"auto_continue"`
}

// Coordinator consumes the head of one session's queue.
//
// At most one stream is open at a time. Open resolves the audio without holding the lock, so the
// flags, snapshots and teardown stay available while a track is being located. Every Stop bumps the
// epoch, and an Open whose epoch went stale while resolving discards its result.
type Coordinator struct {
	queue       *queue.Store
	assembler   *stream.Assembler
	recommender Recommender
	playables   PlayableResolver
	sources     SourceFunc
	notifier    queue.Notifier
	logger      *log.Logger

	mu        sync.Mutex
	flags     Flags
	current   *stream.Stream
	preparing bool
	epoch     uint64
}

// CoordinatorOpts configures a [Coordinator].
type CoordinatorOpts struct {
	Assembler   *stream.Assembler
	Recommender Recommender
	Playables   PlayableResolver
	Sources     SourceFunc
	Notifier    queue.Notifier
	Logger      *log.Logger
	Flags       Flags
}

// NewCoordinator creates a Coordinator for q.
func NewCoordinator(q *queue.Store, opts CoordinatorOpts) *Coordinator {
	if opts.Assembler == nil {
		opts.Assembler = stream.NewAssembler(stream.DefaultChunkSize, opts.Logger)
	}
	if opts.Sources == nil {
		opts.Sources = HTTPSources(nil, "")
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	return &Coordinator{
		queue:       q,
		assembler:   opts.Assembler,
		recommender: opts.Recommender,
		playables:   opts.Playables,
		sources:     opts.Sources,
		notifier:    opts.Notifier,
		logger:      shared.WithLogger(opts.Logger, "component", "player", "session", q.SessionID()),
		flags:       opts.Flags,
	}
}

// Flags returns the current modes.
func (c *Coordinator) Flags() Flags {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags
}

// SetFlags replaces the current modes.
func (c *Coordinator) SetFlags(f Flags) {
	c.mu.Lock()
	c.flags = f
	c.mu.Unlock()
	c.markDirty()
}

// UpdateFlags applies fn to the current modes.
func (c *Coordinator) UpdateFlags(fn func(*Flags)) Flags {
	c.mu.Lock()
	fn(&c.flags)
	f := c.flags
	c.mu.Unlock()
	c.markDirty()
	return f
}

// Playing reports whether a stream is open or being opened.
func (c *Coordinator) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil || c.preparing
}

// Open starts streaming position 0 and marks the queue as playing. The returned stream must be
// handed back through [Coordinator.TrackFinished] or [Coordinator.Release].
func (c *Coordinator) Open(ctx context.Context) (*stream.Stream, models.Entry, error) {
	c.mu.Lock()
	if c.current != nil || c.preparing {
		c.mu.Unlock()
		return nil, models.Entry{}, shared.ErrPlaybackAlreadyRunning
	}
	if c.playables == nil {
		c.mu.Unlock()
		return nil, models.Entry{}, fmt.Errorf("%w: no playable resolver configured", shared.ErrServiceUnavailable)
	}
	head, err := c.queue.Get(0)
	if err != nil {
		c.mu.Unlock()
		return nil, models.Entry{}, shared.ErrNothingPlaying
	}
	c.preparing = true
	epoch := c.epoch
	c.queue.SetPlaying(true)
	c.mu.Unlock()

	c.logger.Debug("Open called", "title", head.Info.Title)
	src, err := c.resolve(ctx, head)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		c.logger.Info("playback stopped while opening", "title", head.Info.Title)
		return nil, head, fmt.Errorf("%w: playback stopped while opening %q", shared.ErrSessionClosed, head.Info.Title)
	}
	c.preparing = false
	if err != nil {
		c.queue.SetPlaying(false)
		return nil, head, err
	}

	c.current = c.assembler.Open(ctx, src)
	c.logger.Info("playback started", "title", head.Info.Title, "length", src.Length())
	return c.current, head, nil
}

func (c *Coordinator) resolve(ctx context.Context, head models.Entry) (stream.Source, error) {
	playable, err := c.playables.Playable(ctx, head.Info.URL)
	if err != nil {
		return nil, err
	}
	return c.sources(ctx, playable)
}

// Stop tears down whatever is playing, including an Open still resolving, and clears the playing
// flag.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	s := c.current
	c.current = nil
	c.preparing = false
	c.epoch++
	c.queue.SetPlaying(false)
	c.mu.Unlock()

	if s != nil {
		s.Close()
		c.logger.Info("playback stopped")
	}
}

// Release closes s. Playback only stops when s is still the open stream; a stream that was already
// replaced leaves the newer one alone.
func (c *Coordinator) Release(s *stream.Stream) {
	if s == nil {
		return
	}
	c.mu.Lock()
	owned := c.current == s
	if owned {
		c.current = nil
		c.epoch++
		c.queue.SetPlaying(false)
	}
	c.mu.Unlock()

	s.Close()
	if owned {
		c.logger.Info("playback stopped")
	}
}

// take clears s as the open stream if it still is one. It reports whether it did.
func (c *Coordinator) take(s *stream.Stream) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s == nil || c.current != s {
		return false
	}
	c.current = nil
	c.epoch++
	return true
}

// TrackFinished applies the loop modes after s delivered position 0 in full. Track loop replays it,
// once loop replays it a single time, otherwise the queue advances. A stream that is no longer the
// open one is closed and otherwise ignored.
func (c *Coordinator) TrackFinished(ctx context.Context, s *stream.Stream) error {
	if !c.take(s) {
		if s != nil {
			s.Close()
		}
		c.logger.Debug("ignoring finish of a replaced stream")
		return nil
	}
	s.Close()

	c.mu.Lock()
	flags := c.flags
	if flags.OnceLoop {
		c.flags.OnceLoop = false
	}
	c.mu.Unlock()

	switch {
	case flags.TrackLoop:
		c.logger.Debug("track loop, replaying head")
		return nil
	case flags.OnceLoop:
		c.logger.Debug("once loop, replaying head one more time")
		c.markDirty()
		return nil
	}

	_, err := c.Advance(ctx)
	if errors.Is(err, shared.ErrNothingPlaying) {
		return nil
	}
	return err
}

// Advance consumes position 0.
//
// With queue loop the entry rotates to the tail. Otherwise, when auto-continue is enabled and no loop
// mode is active, one related track is appended before the head is removed. Recommendation failures
// are logged and do not stop the advance.
func (c *Coordinator) Advance(ctx context.Context) (models.Entry, error) {
	c.logger.Debug("Next() called")
	c.Stop()

	c.mu.Lock()
	c.flags.OnceLoop = false
	flags := c.flags
	c.mu.Unlock()

	if !flags.QueueLoop && !flags.TrackLoop && flags.AutoContinue {
		c.continueFrom(ctx)
	}

	head, err := c.queue.Advance(ctx, flags.QueueLoop)
	if err != nil {
		return models.Entry{}, err
	}
	c.logger.Info("advanced queue", "finished", head.Info.Title, "remaining", c.queue.Len())
	return head, nil
}

func (c *Coordinator) continueFrom(ctx context.Context) {
	if c.recommender == nil {
		return
	}
	head, err := c.queue.Get(0)
	if err != nil || head.Info.ServiceID != models.ServiceYouTube {
		return
	}

	ref, err := c.recommender.Related(ctx, head.Info.URL)
	if err != nil {
		c.logger.Warn("auto-continue found no related track", "url", head.Info.URL, "err", err)
		return
	}
	if _, err := c.queue.Enqueue(ctx, *ref, AutoContinueUser, models.Append); err != nil {
		c.logger.Warn("auto-continue failed to enqueue", "url", ref.URL, "err", err)
	}
}

// Snapshot captures the queue and flags for persistence.
func (c *Coordinator) Snapshot() *models.Snapshot {
	flags := c.Flags()
	return &models.Snapshot{
		SessionID:    c.queue.SessionID(),
		Entries:      c.queue.List(),
		Fairness:     c.queue.Fairness(),
		QueueLoop:    flags.QueueLoop,
		TrackLoop:    flags.TrackLoop,
		AutoContinue: flags.AutoContinue,
	}
}

func (c *Coordinator) markDirty() {
	if c.notifier != nil {
		c.notifier.MarkDirty(c.queue.SessionID())
	}
}
