package queue

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytq/internal/metrics"
	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/shared"
)

const (
	// DefaultMaxLength caps the number of entries in one session's queue.
	DefaultMaxLength = 1000
	// DefaultCacheHorizon is the queued duration under which new entries are still worth caching.
	DefaultCacheHorizon = 4 * time.Hour
	// searchLimit caps the number of results returned by [Store.Search].
	searchLimit = 20
)

// Resolver turns a track reference into metadata.
//
// forceCache asks the resolver to cache the source because the entry is likely to play soon.
type Resolver interface {
	Resolve(ctx context.Context, ref models.Ref, forceCache bool) (*models.BasicInfo, error)
}

// Notifier receives the ID of a session whose queue changed structurally.
type Notifier interface {
	MarkDirty(sessionID string)
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(sessionID string)

func (f NotifierFunc) MarkDirty(sessionID string) { f(sessionID) }

// Options configures a [Store].
type Options struct {
	SessionID    string
	Resolver     Resolver
	Notifier     Notifier
	Logger       *log.Logger
	MaxLength    int           // defaults to [DefaultMaxLength]
	CacheHorizon time.Duration // defaults to [DefaultCacheHorizon]
	Fairness     bool
	Entries      []models.Entry // restored contents, position 0 first
}

// Store is one session's ordered queue.
//
// Every structural mutation runs inside the session's [Gate], so at most one mutating critical
// section executes at a time and waiting mutators resume in arrival order. Enqueue holds the gate
// across metadata resolution. Reads take a snapshot under a separate read lock and never wait on
// the gate.
type Store struct {
	id           string
	gate         Gate
	mu           sync.RWMutex
	entries      []models.Entry
	playing      bool
	fairness     bool
	resolver     Resolver
	notifier     Notifier
	logger       *log.Logger
	maxLength    int
	cacheHorizon time.Duration
}

// Added is the result of a successful [Store.Enqueue].
type Added struct {
	Entry    models.Entry
	Position int
}

// SearchResult pairs a matching entry with its current position.
type SearchResult struct {
	Position int
	Entry    models.Entry
}

// New creates a Store for one session.
func New(opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}
	if opts.CacheHorizon <= 0 {
		opts.CacheHorizon = DefaultCacheHorizon
	}

	return &Store{
		id:           opts.SessionID,
		entries:      slices.Clone(opts.Entries),
		fairness:     opts.Fairness,
		resolver:     opts.Resolver,
		notifier:     opts.Notifier,
		logger:       shared.WithLogger(opts.Logger, "component", "queue", "session", opts.SessionID),
		maxLength:    opts.MaxLength,
		cacheHorizon: opts.CacheHorizon,
	}
}

// SessionID returns the ID of the owning session.
func (s *Store) SessionID() string { return s.id }

// MaxLength returns the capacity of the queue.
func (s *Store) MaxLength() int { return s.maxLength }

// Enqueue resolves ref (unless it carries known metadata) and inserts the entry.
//
// The resolver's cache hint is forced when the queue is empty, when prepending, or when the total
// queued duration is under the cache horizon. Prepending while playback is active inserts
// directly after position 0 so the playing entry is not displaced.
//
// The returned position is looked up by entry identity after insertion, inside the same critical
// section, so it reflects fairness reordering. On any error the queue is unchanged.
func (s *Store) Enqueue(ctx context.Context, ref models.Ref, by models.AddedBy, mode models.Mode) (Added, error) {
	if err := s.gate.Acquire(ctx); err != nil {
		return Added{}, err
	}
	defer s.gate.Release()

	s.logger.Debug("Enqueue called", "url", ref.URL, "mode", mode)
	started := time.Now()

	if s.Len() >= s.maxLength {
		return s.rejectEnqueue("queue is full", ref,
			fmt.Errorf("%w: limit is %d entries", shared.ErrQueueCapacityExceeded, s.maxLength))
	}

	info := ref.Known
	if info == nil {
		if s.resolver == nil {
			return s.rejectEnqueue("no resolver", ref,
				fmt.Errorf("%w: no resolver configured", shared.ErrServiceUnavailable))
		}

		resolved, err := s.resolver.Resolve(ctx, ref, s.forceCache(mode))
		if err != nil {
			return s.rejectEnqueue("failed to resolve", ref,
				fmt.Errorf("%w: %s: %w", shared.ErrUnresolvableSource, ref.URL, err))
		}
		info = resolved
	}
	if info == nil || (info.Title == "" && info.URL == "") {
		return s.rejectEnqueue("resolved to empty metadata", ref,
			fmt.Errorf("%w: %s", shared.ErrUnresolvableSource, ref.URL))
	}

	if by.UserID == "" {
		by = models.Unknown
	}
	entry := models.Entry{ID: shared.GenerateID(), Info: *info, AddedBy: by}

	s.mu.Lock()
	switch {
	case mode == models.Prepend && s.playing && len(s.entries) > 0:
		s.entries = slices.Insert(s.entries, 1, entry)
	case mode == models.Prepend:
		s.entries = slices.Insert(s.entries, 0, entry)
	default:
		s.entries = append(s.entries, entry)
	}
	if s.fairness {
		s.interleaveLocked()
	}
	position := slices.IndexFunc(s.entries, func(e models.Entry) bool { return e.ID == entry.ID })
	length := len(s.entries)
	s.mu.Unlock()

	metrics.IncQueueMutation("Enqueue", true)
	metrics.SetQueueLength(s.id, length)
	s.markDirty()
	s.logger.Info("queue content added", "position", position, "title", entry.Info.Title, "took", time.Since(started))
	return Added{Entry: entry, Position: position}, nil
}

func (s *Store) rejectEnqueue(reason string, ref models.Ref, err error) (Added, error) {
	s.logger.Warn("Enqueue rejected, "+reason, "url", ref.URL, "err", err)
	metrics.IncQueueMutation("Enqueue", false)
	return Added{}, err
}

// forceCache reports whether a new entry is likely to play soon enough to be worth caching.
func (s *Store) forceCache(mode models.Mode) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 || mode == models.Prepend {
		return true
	}
	return s.lengthSecondsLocked() < int(s.cacheHorizon/time.Second)
}

// Get returns the entry at position i.
func (s *Store) Get(i int) (models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkIndexLocked(i); err != nil {
		return models.Entry{}, err
	}
	return s.entries[i], nil
}

// Move removes the entry at from and re-inserts it at to, both indices referring to the list as it
// is at each step.
func (s *Store) Move(ctx context.Context, from, to int) error {
	return s.mutate(ctx, "Move", func() (bool, error) {
		if err := s.checkIndexLocked(from); err != nil {
			return false, err
		}
		if err := s.checkIndexLocked(to); err != nil {
			return false, err
		}
		if from == to {
			return false, nil
		}

		e := s.entries[from]
		s.entries = slices.Delete(s.entries, from, from+1)
		s.entries = slices.Insert(s.entries, to, e)
		return true, nil
	})
}

// MoveLast moves the last entry to the front of what is still to play: position 1 while playback
// is active, otherwise position 0.
func (s *Store) MoveLast(ctx context.Context) (Added, error) {
	var moved Added
	err := s.mutate(ctx, "MoveLast", func() (bool, error) {
		to := 0
		if s.playing {
			to = 1
		}
		last := len(s.entries) - 1
		if last <= to {
			return false, fmt.Errorf("%w: need more than %d entries to move the last one", shared.ErrInvalidArgument, to+1)
		}

		e := s.entries[last]
		s.entries = slices.Insert(s.entries[:last], to, e)
		moved = Added{Entry: e, Position: to}
		return true, nil
	})
	return moved, err
}

// RemoveAt removes and returns the entry at position i.
func (s *Store) RemoveAt(ctx context.Context, i int) (models.Entry, error) {
	var removed models.Entry
	err := s.mutate(ctx, "RemoveAt", func() (bool, error) {
		if err := s.checkIndexLocked(i); err != nil {
			return false, err
		}
		removed = s.entries[i]
		s.entries = slices.Delete(s.entries, i, i+1)
		return true, nil
	})
	return removed, err
}

// RemoveIf removes every entry matching pred and returns the removed positions in descending order.
// Position 0 is never tested while playback is active.
func (s *Store) RemoveIf(ctx context.Context, pred func(models.Entry) bool) ([]int, error) {
	var removed []int
	err := s.mutate(ctx, "RemoveIf", func() (bool, error) {
		first := 0
		if s.playing {
			first = 1
		}
		for i := first; i < len(s.entries); i++ {
			if pred(s.entries[i]) {
				removed = append(removed, i)
			}
		}

		slices.SortFunc(removed, func(a, b int) int { return b - a })
		for _, i := range removed {
			s.entries = slices.Delete(s.entries, i, i+1)
		}
		return len(removed) > 0, nil
	})
	return removed, err
}

// RemoveAll clears the queue.
func (s *Store) RemoveAll(ctx context.Context) error {
	return s.mutate(ctx, "RemoveAll", func() (bool, error) {
		s.entries = nil
		return true, nil
	})
}

// KeepOnlyHead removes everything except position 0.
func (s *Store) KeepOnlyHead(ctx context.Context) error {
	return s.mutate(ctx, "KeepOnlyHead", func() (bool, error) {
		if len(s.entries) > 1 {
			s.entries = slices.Clip(s.entries[:1])
		}
		return true, nil
	})
}

// Shuffle permutes the queue uniformly at random, holding position 0 fixed while playback is active.
func (s *Store) Shuffle(ctx context.Context) error {
	return s.mutate(ctx, "Shuffle", func() (bool, error) {
		if len(s.entries) == 0 {
			return false, nil
		}
		tail := s.entries
		if s.playing {
			tail = s.entries[1:]
		}
		rand.Shuffle(len(tail), func(i, j int) { tail[i], tail[j] = tail[j], tail[i] })
		return true, nil
	})
}

// Interleave applies contributor fairness to the current contents immediately.
func (s *Store) Interleave(ctx context.Context) error {
	return s.mutate(ctx, "Interleave", func() (bool, error) {
		s.interleaveLocked()
		return true, nil
	})
}

// Advance consumes position 0. With rotate set the entry is re-enqueued at the tail instead of being
// dropped.
func (s *Store) Advance(ctx context.Context, rotate bool) (models.Entry, error) {
	var head models.Entry
	err := s.mutate(ctx, "Advance", func() (bool, error) {
		if len(s.entries) == 0 {
			return false, shared.ErrNothingPlaying
		}
		head = s.entries[0]
		s.entries = slices.Delete(s.entries, 0, 1)
		if rotate {
			s.entries = append(s.entries, head)
		}
		return true, nil
	})
	return head, err
}

// mutate runs fn as a gated critical section holding the write lock, and marks the session dirty
// when fn reports a change.
func (s *Store) mutate(ctx context.Context, op string, fn func() (bool, error)) error {
	return s.gate.Do(ctx, func() error {
		s.logger.Debug(op + "() called")

		s.mu.Lock()
		changed, err := fn()
		length := len(s.entries)
		s.mu.Unlock()

		metrics.IncQueueMutation(op, err == nil)
		if err != nil {
			s.logger.Debug(op+"() rejected", "err", err)
			return err
		}
		if changed {
			metrics.SetQueueLength(s.id, length)
			s.markDirty()
		}
		return nil
	})
}

// interleaveLocked applies [Interleave], keeping position 0 pinned while playback is active.
func (s *Store) interleaveLocked() {
	if s.playing && len(s.entries) > 0 {
		s.entries = append(s.entries[:1:1], Interleave(s.entries[1:])...)
		return
	}
	s.entries = Interleave(s.entries)
}

func (s *Store) checkIndexLocked(i int) error {
	if i < 0 || i >= len(s.entries) {
		return fmt.Errorf("%w: position %d (length %d)", shared.ErrIndexOutOfRange, i, len(s.entries))
	}
	return nil
}

func (s *Store) markDirty() {
	if s.notifier != nil {
		s.notifier.MarkDirty(s.id)
	}
}

// SetPlaying records whether position 0 is currently playing or being prepared.
func (s *Store) SetPlaying(playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = playing
}

// Playing reports whether playback is active.
func (s *Store) Playing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playing
}

// SetFairness toggles contributor interleaving after each insertion.
func (s *Store) SetFairness(enabled bool) {
	s.mu.Lock()
	s.fairness = enabled
	s.mu.Unlock()
	s.markDirty()
}

// Fairness reports whether contributor interleaving is enabled.
func (s *Store) Fairness() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fairness
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Empty reports whether the queue has no entries.
func (s *Store) Empty() bool {
	return s.Len() == 0
}

// LengthSeconds returns the total duration of all entries.
func (s *Store) LengthSeconds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lengthSecondsLocked()
}

func (s *Store) lengthSecondsLocked() int {
	total := 0
	for _, e := range s.entries {
		total += e.Info.LengthSeconds
	}
	return total
}

// LengthSecondsTo returns the cumulative duration of positions 0 through i inclusive. Indices past
// the end are clamped to the last position.
func (s *Store) LengthSecondsTo(i int) (int, error) {
	if i < 0 {
		return 0, fmt.Errorf("%w: position %d", shared.ErrIndexOutOfRange, i)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for j := 0; j <= i && j < len(s.entries); j++ {
		total += s.entries[j].Info.LengthSeconds
	}
	return total, nil
}

// List returns a copy of the entries, position 0 first.
func (s *Store) List() []models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries)
}

// Filter returns the entries for which pred is true.
func (s *Store) Filter(pred func(models.Entry) bool) []models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Entry
	for _, e := range s.entries {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out
}

// FindIndex returns the position of the first entry for which pred is true, or -1.
func (s *Store) FindIndex(pred func(models.Entry) bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.IndexFunc(s.entries, pred)
}

// Search returns up to 20 entries whose title or URL contains keyword, case-insensitively.
func (s *Store) Search(keyword string) []SearchResult {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []SearchResult
	for i, e := range s.entries {
		if strings.Contains(strings.ToLower(e.Info.Title), keyword) ||
			strings.Contains(strings.ToLower(e.Info.URL), keyword) {
			results = append(results, SearchResult{Position: i, Entry: e})
			if len(results) == searchLimit {
				break
			}
		}
	}
	return results
}
