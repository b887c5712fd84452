package stream

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/ytq/internal/shared"
)

// HTTPSource fetches ranges of a remote file with HTTP Range requests.
type HTTPSource struct {
	client    *http.Client
	url       string
	length    int64
	userAgent string
}

// NewHTTPSource creates a source for url whose size is already known.
func NewHTTPSource(client *http.Client, url string, length int64, userAgent string) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{client: client, url: url, length: length, userAgent: userAgent}
}

// ProbeHTTPSource issues a HEAD request to learn the size of url.
func ProbeHTTPSource(ctx context.Context, client *http.Client, url, userAgent string) (*HTTPSource, error) {
	src := NewHTTPSource(client, url, 0, userAgent)

	req, err := src.newRequest(ctx, http.MethodHead)
	if err != nil {
		return nil, err
	}

	resp, err := src.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrNetwork, err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HEAD %s returned %s", shared.ErrNetwork, url, resp.Status)
	}
	if resp.ContentLength < 0 {
		return nil, fmt.Errorf("%w: %s did not report a content length", shared.ErrNetwork, url)
	}

	src.length = resp.ContentLength
	return src, nil
}

func (h *HTTPSource) Length() int64 { return h.length }

// URL returns the address being fetched.
func (h *HTTPSource) URL() string { return h.url }

// FetchRange requests bytes start..end. A full-resource request (start 0, end below zero) is sent
// without a Range header.
func (h *HTTPSource) FetchRange(ctx context.Context, start, end int64) (io.ReadCloser, error) {
	req, err := h.newRequest(ctx, http.MethodGet)
	if err != nil {
		return nil, err
	}

	ranged := start > 0 || end >= 0
	switch {
	case end >= 0:
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))
	case start > 0:
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", start))
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusPartialContent:
	case resp.StatusCode == http.StatusOK && (!ranged || (start == 0 && end == h.length-1)):
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: GET %s (%d-%d) returned %s", shared.ErrNetwork, h.url, start, end, resp.Status)
	}
	return resp.Body, nil
}

func (h *HTTPSource) newRequest(ctx context.Context, method string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, h.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	return req, nil
}
