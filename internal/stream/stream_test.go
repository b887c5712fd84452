package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/ytq/internal/shared"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

// fakeSource serves ranges of data from memory and records every request.
type fakeSource struct {
	data     []byte
	failAt   int // fetch index that fails, or -1
	shortAt  int // fetch index that returns one byte less, or -1
	block    bool
	mu       sync.Mutex
	ranges   []Range
	open     int
	maxOpen  int
	failWith error
}

func newFakeSource(n int) *fakeSource {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return &fakeSource{data: data, failAt: -1, shortAt: -1, failWith: errors.New("connection reset")}
}

func (f *fakeSource) Length() int64 { return int64(len(f.data)) }

func (f *fakeSource) FetchRange(ctx context.Context, start, end int64) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx := len(f.ranges)
	f.ranges = append(f.ranges, Range{Start: start, End: end})
	if idx == f.failAt {
		return nil, f.failWith
	}

	if end < 0 {
		end = int64(len(f.data)) - 1
	}
	payload := f.data[start : end+1]
	if idx == f.shortAt {
		payload = payload[:len(payload)-1]
	}

	f.open++
	f.maxOpen = max(f.maxOpen, f.open)
	var r io.Reader = bytes.NewReader(payload)
	if f.block {
		r = &blockingReader{ctx: ctx, r: r}
	}
	return &trackedBody{Reader: r, src: f}, nil
}

func (f *fakeSource) Ranges() []Range {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Range(nil), f.ranges...)
}

type trackedBody struct {
	io.Reader
	src  *fakeSource
	once sync.Once
}

func (b *trackedBody) Close() error {
	b.once.Do(func() {
		b.src.mu.Lock()
		b.src.open--
		b.src.mu.Unlock()
	})
	return nil
}

// blockingReader delivers its first read, then blocks until ctx is done.
type blockingReader struct {
	ctx  context.Context
	r    io.Reader
	read bool
}

func (b *blockingReader) Read(p []byte) (int, error) {
	if !b.read {
		b.read = true
		return b.r.Read(p[:min(len(p), 1024)])
	}
	<-b.ctx.Done()
	return 0, b.ctx.Err()
}

func waitDone(t *testing.T, s *Stream) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not finish")
	}
}

func TestChunks(t *testing.T) {
	tests := []struct {
		name        string
		total, size int64
		want        []Range
	}{
		{
			name:  "uneven tail",
			total: 1_500_000, size: 524_288,
			want: []Range{{0, 524_287}, {524_288, 1_048_575}, {1_048_576, 1_499_999}},
		},
		{name: "exact multiple", total: 20, size: 10, want: []Range{{0, 9}, {10, 19}}},
		{name: "equal to size", total: 10, size: 10, want: []Range{{0, 9}}},
		{name: "empty", total: 0, size: 10, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Chunks(tt.total, tt.size)); diff != "" {
				t.Errorf("Chunks() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAssembler_ChunkedRanges(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	src := newFakeSource(1_500_000)
	a := NewAssembler(524_288, nil)
	s := a.Open(context.Background(), src)
	defer s.Close()

	got, err := io.ReadAll(s)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	waitDone(t, s)

	if !bytes.Equal(got, src.data) {
		t.Errorf("output differs from resource (%d vs %d bytes)", len(got), len(src.data))
	}

	want := []Range{{0, 524_287}, {524_288, 1_048_575}, {1_048_576, 1_499_999}}
	if diff := cmp.Diff(want, src.Ranges()); diff != "" {
		t.Errorf("fetched ranges mismatch (-want +got):\n%s", diff)
	}
	if src.maxOpen != 1 {
		t.Errorf("max concurrent fetches = %d, want 1", src.maxOpen)
	}
	if s.State() != Done || s.Err() != nil {
		t.Errorf("State() = %v, Err() = %v; want done with no error", s.State(), s.Err())
	}
	if s.Chunk() != 2 {
		t.Errorf("Chunk() = %d, want 2", s.Chunk())
	}
}

func TestAssembler_SingleFetch(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	src := newFakeSource(1000)
	s := NewAssembler(4096, nil).Open(context.Background(), src)
	defer s.Close()

	got, err := io.ReadAll(s)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	waitDone(t, s)

	if !bytes.Equal(got, src.data) {
		t.Error("output differs from resource")
	}
	if diff := cmp.Diff([]Range{{0, -1}}, src.Ranges()); diff != "" {
		t.Errorf("fetched ranges mismatch (-want +got):\n%s", diff)
	}
}

func TestAssembler_FetchErrorForwarded(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	src := newFakeSource(30)
	src.failAt = 1
	s := NewAssembler(10, nil).Open(context.Background(), src)
	defer s.Close()

	got, err := io.ReadAll(s)
	if !errors.Is(err, src.failWith) {
		t.Fatalf("ReadAll() error = %v, want %v", err, src.failWith)
	}
	waitDone(t, s)

	if !bytes.Equal(got, src.data[:10]) {
		t.Errorf("expected only the first chunk to be delivered, got %d bytes", len(got))
	}
	if len(src.Ranges()) != 2 {
		t.Errorf("fetches = %d, want 2 (no retry, no further chunks)", len(src.Ranges()))
	}
	if s.State() != Errored || !errors.Is(s.Err(), src.failWith) {
		t.Errorf("State() = %v, Err() = %v", s.State(), s.Err())
	}
}

func TestAssembler_ShortRead(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	src := newFakeSource(30)
	src.shortAt = 0
	s := NewAssembler(10, nil).Open(context.Background(), src)
	defer s.Close()

	if _, err := io.ReadAll(s); !errors.Is(err, shared.ErrNetwork) {
		t.Fatalf("ReadAll() error = %v, want ErrNetwork", err)
	}
	if len(src.Ranges()) != 1 {
		t.Errorf("fetches = %d, want 1", len(src.Ranges()))
	}
}

func TestAssembler_Close(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	src := newFakeSource(100_000)
	src.block = true
	s := NewAssembler(10_000, nil).Open(context.Background(), src)

	buf := make([]byte, 512)
	if _, err := io.ReadFull(s, buf); err != nil {
		t.Fatalf("ReadFull() error = %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	waitDone(t, s)

	if s.State() != Errored || !errors.Is(s.Err(), shared.ErrSessionClosed) {
		t.Errorf("State() = %v, Err() = %v; want errored with ErrSessionClosed", s.State(), s.Err())
	}
	if n := len(src.Ranges()); n != 1 {
		t.Errorf("fetches after teardown = %d, want 1", n)
	}
	if _, err := s.Read(buf); err == nil {
		t.Error("Read() after Close() should fail")
	}
}

func TestAssembler_ContextCancelled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	src := newFakeSource(100)
	src.block = true
	s := NewAssembler(10, nil).Open(ctx, src)
	defer s.Close()

	buf := make([]byte, 10)
	if _, err := io.ReadFull(s, buf); err != nil {
		t.Fatalf("ReadFull() error = %v", err)
	}
	cancel()

	if _, err := io.ReadAll(s); !errors.Is(err, context.Canceled) {
		t.Errorf("ReadAll() error = %v, want context.Canceled", err)
	}
	waitDone(t, s)
}

func TestState_String(t *testing.T) {
	for state, want := range map[State]string{Idle: "idle", Fetching: "fetching", Draining: "draining", Done: "done", Errored: "errored"} {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}
