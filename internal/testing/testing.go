// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/shared"
)

// MockResolver is a test double for the metadata provider. It answers from Tracks keyed by URL.
type MockResolver struct {
	mu          sync.Mutex
	Tracks      map[string]models.BasicInfo
	RelatedRefs map[string]models.Ref
	Streams     map[string]models.Playable
	Calls       []string
}

// NewMockResolver creates a resolver that knows the given tracks.
func NewMockResolver(tracks ...models.BasicInfo) *MockResolver {
	m := &MockResolver{
		Tracks:      make(map[string]models.BasicInfo),
		RelatedRefs: make(map[string]models.Ref),
		Streams:     make(map[string]models.Playable),
	}
	for _, t := range tracks {
		m.Tracks[t.URL] = t
	}
	return m
}

func (m *MockResolver) Resolve(ctx context.Context, ref models.Ref, forceCache bool) (*models.BasicInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "resolve:"+ref.URL)

	info, ok := m.Tracks[ref.URL]
	if !ok {
		return nil, errors.New("unknown track")
	}
	return &info, nil
}

func (m *MockResolver) Related(ctx context.Context, url string) (*models.Ref, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "related:"+url)

	ref, ok := m.RelatedRefs[url]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrRelatedTrackNotFound, url)
	}
	return &ref, nil
}

func (m *MockResolver) Playable(ctx context.Context, url string) (*models.Playable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "playable:"+url)

	p, ok := m.Streams[url]
	if !ok {
		return nil, errors.New("no stream")
	}
	return &p, nil
}

// CallLog returns a copy of the recorded calls.
func (m *MockResolver) CallLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Calls...)
}

// Track builds metadata for tests.
func Track(title string, seconds int) models.BasicInfo {
	return models.BasicInfo{
		Title:         title,
		URL:           "https://www.youtube.com/watch?v=" + title,
		ServiceID:     models.ServiceYouTube,
		LengthSeconds: seconds,
	}
}

// Entry builds a queue entry for tests. The title doubles as the entry ID.
func Entry(title, userID string) models.Entry {
	return models.Entry{
		ID:      title,
		Info:    Track(title, 60),
		AddedBy: models.AddedBy{UserID: userID, DisplayName: "user-" + userID},
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
