package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytq/internal/metrics"
	"github.com/desertthunder/ytq/internal/shared"
)

// DefaultChunkSize is 512 KiB.
const DefaultChunkSize int64 = 512 * 1024

// Source is a remote resource of known length that can be fetched by byte range.
type Source interface {
	// Length returns the total size of the resource in bytes.
	Length() int64
	// FetchRange returns bytes start through end inclusive. An end below zero requests everything
	// from start to the end of the resource.
	FetchRange(ctx context.Context, start, end int64) (io.ReadCloser, error)
}

// State is the lifecycle phase of a [Stream].
type State int32

const (
	Idle State = iota
	Fetching
	Draining
	Done
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Draining:
		return "draining"
	case Done:
		return "done"
	case Errored:
		return "errored"
	default:
		return ""
	}
}

// Range is one inclusive byte range.
type Range struct {
	Start int64
	End   int64
}

// Len returns the number of bytes covered by r.
func (r Range) Len() int64 { return r.End - r.Start + 1 }

func (r Range) String() string { return fmt.Sprintf("bytes=%d-%d", r.Start, r.End) }

// Chunks splits a resource of total bytes into sequential ranges of at most size bytes.
func Chunks(total, size int64) []Range {
	if total <= 0 || size <= 0 {
		return nil
	}

	ranges := make([]Range, 0, (total+size-1)/size)
	for start := int64(0); start < total; start += size {
		ranges = append(ranges, Range{Start: start, End: min(start+size-1, total-1)})
	}
	return ranges
}

// Assembler opens chunked streams.
type Assembler struct {
	chunkSize int64
	logger    *log.Logger
}

// NewAssembler creates an Assembler. A non-positive chunkSize selects [DefaultChunkSize].
func NewAssembler(chunkSize int64, logger *log.Logger) *Assembler {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Assembler{chunkSize: chunkSize, logger: shared.WithLogger(logger, "component", "stream")}
}

// ChunkSize returns the configured range size.
func (a *Assembler) ChunkSize() int64 { return a.chunkSize }

// Open starts streaming src. The returned Stream must be read to the end or closed.
func (a *Assembler) Open(ctx context.Context, src Source) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()

	s := &Stream{
		pr:     pr,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.chunk.Store(-1)
	go a.run(ctx, s, pw, src)
	return s
}

func (a *Assembler) run(ctx context.Context, s *Stream, pw *io.PipeWriter, src Source) {
	total := src.Length()
	logger := a.logger.With("length", total, "chunk_size", a.chunkSize)
	logger.Debug("stream opened")

	var err error
	if total < a.chunkSize {
		err = a.single(ctx, s, pw, src, total)
	} else {
		err = a.chunked(ctx, s, pw, src, total)
	}

	if err != nil {
		if s.closed.Load() {
			err = fmt.Errorf("%w: %w", shared.ErrSessionClosed, err)
		}
		logger.Warn("stream aborted", "chunk", s.Chunk(), "err", err)
		s.finish(pw, Errored, err)
		return
	}

	logger.Debug("stream complete", "chunks", s.Chunk()+1)
	s.finish(pw, Done, nil)
}

// single pipes the whole resource from one open-ended fetch.
func (a *Assembler) single(ctx context.Context, s *Stream, pw *io.PipeWriter, src Source, total int64) error {
	s.transition(Fetching, 0)
	body, err := fetch(ctx, src, 0, -1)
	if err != nil {
		return err
	}
	defer body.Close()

	s.transition(Draining, 0)
	n, err := io.Copy(pw, body)
	metrics.AddStreamBytes(n)
	if err != nil {
		return err
	}
	if total > 0 && n < total {
		return fmt.Errorf("%w: short read, got %d of %d bytes", shared.ErrNetwork, n, total)
	}
	return nil
}

// chunked pipes each range in order with exactly one fetch in flight.
func (a *Assembler) chunked(ctx context.Context, s *Stream, pw *io.PipeWriter, src Source, total int64) error {
	for i, r := range Chunks(total, a.chunkSize) {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.transition(Fetching, i)
		body, err := fetch(ctx, src, r.Start, r.End)
		if err != nil {
			return fmt.Errorf("chunk %d (%s): %w", i, r, err)
		}

		s.transition(Draining, i)
		n, err := io.CopyN(pw, body, r.Len())
		body.Close()
		metrics.AddStreamBytes(n)

		switch {
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: chunk %d (%s) short read, got %d of %d bytes", shared.ErrNetwork, i, r, n, r.Len())
		case err != nil:
			return fmt.Errorf("chunk %d (%s): %w", i, r, err)
		}
	}
	return nil
}

func fetch(ctx context.Context, src Source, start, end int64) (io.ReadCloser, error) {
	body, err := src.FetchRange(ctx, start, end)
	metrics.IncStreamFetch(err == nil)
	return body, err
}

// Stream is the continuous output of one [Assembler.Open] call.
//
// Read returns the resource bytes in order, then io.EOF, or the fetch error that aborted the stream.
type Stream struct {
	pr     *io.PipeReader
	cancel context.CancelFunc
	done   chan struct{}
	closed atomic.Bool

	state atomic.Int32
	chunk atomic.Int64

	mu  sync.Mutex
	err error
}

func (s *Stream) Read(p []byte) (int, error) {
	return s.pr.Read(p)
}

// Close tears the stream down: no further fetches are started, the in-flight fetch is cancelled,
// and Close waits for the fetch loop to exit.
func (s *Stream) Close() error {
	s.closed.Store(true)
	s.cancel()
	s.pr.Close()
	<-s.done
	return nil
}

// Done is closed exactly once when the stream finishes, successfully or not.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Err returns the error that ended the stream, or nil after a complete delivery or while running.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// State returns the current lifecycle phase.
func (s *Stream) State() State { return State(s.state.Load()) }

// Chunk returns the index of the chunk being fetched or drained, or -1 before the first fetch.
func (s *Stream) Chunk() int { return int(s.chunk.Load()) }

func (s *Stream) transition(state State, chunk int) {
	s.chunk.Store(int64(chunk))
	s.state.Store(int32(state))
}

// finish records the outcome before closing the pipe, so a reader that sees EOF or an error can
// already observe Err and State.
func (s *Stream) finish(pw *io.PipeWriter, state State, err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.state.Store(int32(state))

	if err != nil {
		pw.CloseWithError(err)
	} else {
		pw.Close()
	}
	s.cancel()
	close(s.done)
}
