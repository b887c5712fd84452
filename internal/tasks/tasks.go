package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytq/internal/metrics"
	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/queue"
	"github.com/desertthunder/ytq/internal/shared"
	"golang.org/x/time/rate"
)

// Enqueuer is the part of [queue.Store] used for ingestion.
type Enqueuer interface {
	Enqueue(ctx context.Context, ref models.Ref, by models.AddedBy, mode models.Mode) (queue.Added, error)
}

// Transform converts one opaque playlist item into a resolvable reference.
type Transform[T any] func(ctx context.Context, item *T) (models.Ref, error)

// Cancellation is a flag set by the caller and polled by ingestion between items.
//
// The zero value is ready to use. A nil *Cancellation is never cancelled.
type Cancellation struct {
	cancelled atomic.Bool
}

// Cancel requests that ingestion stop after the item in flight.
func (c *Cancellation) Cancel() {
	if c != nil {
		c.cancelled.Store(true)
	}
}

// Cancelled reports whether [Cancellation.Cancel] was called.
func (c *Cancellation) Cancelled() bool {
	return c != nil && c.cancelled.Load()
}

// Batch describes one playlist import.
type Batch struct {
	Title    string
	Mode     models.Mode
	AddedBy  models.AddedBy
	Cancel   *Cancellation
	Progress chan<- ProgressUpdate
}

// IngestResult summarizes a finished import.
type IngestResult struct {
	Added     int  `json:"added"`
	Failed    int  `json:"failed"`
	Skipped   int  `json:"skipped"`
	Cancelled bool `json:"cancelled"`
}

// Ingestor imports playlists into a queue one gated item at a time.
//
// Batches are not atomic: concurrent ingestions against the same queue interleave at single-item
// granularity, and already-added items are kept when a batch stops early.
type Ingestor struct {
	queue   Enqueuer
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewIngestor creates an Ingestor. A positive requestsPerSecond throttles per-item resolution.
func NewIngestor(q Enqueuer, requestsPerSecond float64, logger *log.Logger) *Ingestor {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	in := &Ingestor{queue: q, logger: shared.WithLogger(logger, "component", "ingestor")}
	if requestsPerSecond > 0 {
		in.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return in
}

// Run imports references that need no transformation.
func (in *Ingestor) Run(ctx context.Context, refs []*models.Ref, batch Batch) (IngestResult, error) {
	return Ingest(ctx, in, refs, func(_ context.Context, ref *models.Ref) (models.Ref, error) {
		return *ref, nil
	}, batch)
}

// Ingest imports items in order. Nil items are skipped without counting. Each remaining item is
// transformed and enqueued; item failures are counted and skipped.
//
// Cancellation is checked after each item. Reaching the queue capacity stops the batch with
// [shared.ErrQueueCapacityExceeded], as does a done ctx with its error. In both cases the returned
// result still counts the items already added.
func Ingest[T any](ctx context.Context, in *Ingestor, items []*T, transform Transform[T], batch Batch) (IngestResult, error) {
	var result IngestResult
	total := len(items)
	started := time.Now()

	in.logger.Debug("ProcessPlaylist called", "title", batch.Title, "total", total, "mode", batch.Mode)
	sendProgress(batch.Progress, ingestStartUpdate(batch.Title, total))

	finish := func(err error) (IngestResult, error) {
		in.logger.Info("playlist processed",
			"title", batch.Title, "added", result.Added, "failed", result.Failed,
			"cancelled", result.Cancelled, "took", time.Since(started))
		sendProgress(batch.Progress, ingestDoneUpdate(batch.Title, result, total))
		return result, err
	}

	for _, item := range items {
		if item == nil {
			result.Skipped++
			metrics.IncIngestedItem("skipped")
			continue
		}

		ok, err := ingestOne(ctx, in, item, transform, batch)
		if err != nil {
			return finish(err)
		}
		if ok {
			result.Added++
		} else {
			result.Failed++
		}

		if shouldReport(total, result.Added, ok) {
			sendProgress(batch.Progress, ingestItemsUpdate(batch.Title, result.Added, total))
		}

		if batch.Cancel.Cancelled() {
			result.Cancelled = true
			in.logger.Info("playlist processing cancelled", "title", batch.Title, "added", result.Added)
			break
		}
	}
	return finish(nil)
}

// ingestOne processes a single item. It returns a non-nil error only when the batch must stop.
func ingestOne[T any](ctx context.Context, in *Ingestor, item *T, transform Transform[T], batch Batch) (bool, error) {
	if in.limiter != nil {
		if err := in.limiter.Wait(ctx); err != nil {
			return false, err
		}
	}

	ref, err := transform(ctx, item)
	if err != nil {
		in.logger.Warn("playlist item skipped", "err", err)
		metrics.IncIngestedItem("failed")
		return false, nil
	}

	if _, err := in.queue.Enqueue(ctx, ref, batch.AddedBy, batch.Mode); err != nil {
		metrics.IncIngestedItem("failed")
		switch {
		case errors.Is(err, shared.ErrQueueCapacityExceeded):
			return false, err
		case ctx.Err() != nil:
			return false, ctx.Err()
		default:
			in.logger.Warn("playlist item skipped", "url", ref.URL, "err", err)
			return false, nil
		}
	}

	metrics.IncIngestedItem("added")
	return true, nil
}
