package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytq/internal/metrics"
	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/shared"
)

const (
	defaultFlushInterval = 5 * time.Second
	defaultFlushWorkers  = 4
	maxFlushWorkers      = 10
)

// DirtySource yields the sessions changed since the last drain.
type DirtySource interface {
	Drain() []string
	MarkDirty(sessionID string)
}

// SnapshotProvider captures the current state of a live session.
type SnapshotProvider interface {
	Snapshot(sessionID string) (*models.Snapshot, bool)
}

// SnapshotSaver persists a session snapshot.
type SnapshotSaver interface {
	SaveSnapshot(ctx context.Context, snap *models.Snapshot) error
}

// FlusherOpts configures a [Flusher].
type FlusherOpts struct {
	Interval   time.Duration // Tick interval (default: 5s)
	NumWorkers int           // Concurrent saves (default: 4, max: 10)
	Logger     *log.Logger
}

// FlushResult summarizes one persistence pass.
type FlushResult struct {
	Saved  []string
	Failed map[string]error
}

// Flusher is the persistence pass over dirty sessions.
//
// Saving is best effort: a failed save marks the session dirty again so the next tick retries it.
type Flusher struct {
	dirty    DirtySource
	sessions SnapshotProvider
	saver    SnapshotSaver
	opts     FlusherOpts
	logger   *log.Logger
}

// NewFlusher creates a Flusher.
func NewFlusher(dirty DirtySource, sessions SnapshotProvider, saver SnapshotSaver, opts FlusherOpts) *Flusher {
	if opts.Interval <= 0 {
		opts.Interval = defaultFlushInterval
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = defaultFlushWorkers
	}
	if opts.NumWorkers > maxFlushWorkers {
		opts.NumWorkers = maxFlushWorkers
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	return &Flusher{
		dirty:    dirty,
		sessions: sessions,
		saver:    saver,
		opts:     opts,
		logger:   shared.WithLogger(opts.Logger, "component", "flusher"),
	}
}

// Run flushes on every tick until ctx is done, then performs a final pass.
func (f *Flusher) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.opts.Interval)
			f.Flush(final, nil)
			cancel()
			return nil
		case <-ticker.C:
			f.Flush(ctx, nil)
		}
	}
}

// Flush drains the dirty set and saves each session using a bounded worker pool.
func (f *Flusher) Flush(ctx context.Context, prog chan<- ProgressUpdate) FlushResult {
	ids := f.dirty.Drain()
	result := FlushResult{Failed: make(map[string]error)}
	if len(ids) == 0 {
		return result
	}

	started := time.Now()
	defer func() { metrics.ObserveFlush(time.Since(started)) }()

	type saveResult struct {
		id  string
		err error
	}

	jobs := make(chan string, len(ids))
	results := make(chan saveResult, len(ids))

	var wg sync.WaitGroup
	for range min(f.opts.NumWorkers, len(ids)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				results <- saveResult{id: id, err: f.saveOne(ctx, id)}
			}
		}()
	}

	for _, id := range ids {
		jobs <- id
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		metrics.IncSnapshotSave(res.err == nil)
		if res.err != nil {
			f.logger.Error("failed to save session", "session", res.id, "err", res.err)
			result.Failed[res.id] = res.err
			if !errors.Is(res.err, shared.ErrSessionClosed) {
				f.dirty.MarkDirty(res.id)
			}
			continue
		}
		result.Saved = append(result.Saved, res.id)
		sendProgress(prog, flushUpdate(completed, len(ids), res.id))
	}

	f.logger.Debug("flush complete", "saved", len(result.Saved), "failed", len(result.Failed))
	return result
}

func (f *Flusher) saveOne(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	snap, ok := f.sessions.Snapshot(id)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrSessionClosed, id)
	}
	return f.saver.SaveSnapshot(ctx, snap)
}
