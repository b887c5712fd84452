package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/desertthunder/ytq/internal/shared"
	tu "github.com/desertthunder/ytq/internal/testing"
)

func TestAPIService(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Custom BaseURL and Client", func(t *testing.T) {
			customClient := &http.Client{}
			srv := NewAPIService("http://example.com", "", customClient)

			if srv.BaseURL() != "http://example.com" {
				t.Errorf("expected baseURL 'http://example.com', got %s", srv.BaseURL())
			}
			if srv.httpClient != customClient {
				t.Error("expected custom client to be used")
			}
		})

		t.Run("With Empty BaseURL", func(t *testing.T) {
			srv := NewAPIService("", "", nil)

			if srv.BaseURL() != defaultBaseURL {
				t.Errorf("expected default baseURL %q, got %s", defaultBaseURL, srv.BaseURL())
			}
			if srv.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("Decodes JSON and sends query", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET method, got %s", r.Method)
				}
				if r.URL.Path != "/test" {
					t.Errorf("expected path '/test', got %s", r.URL.Path)
				}
				if got := r.URL.Query().Get("q"); got != "a b" {
					t.Errorf("expected query q='a b', got %q", got)
				}
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]string{"status": "success"})
			}))
			defer server.Close()

			var out map[string]string
			srv := NewAPIService(server.URL, "", server.Client())
			if err := srv.Get(context.Background(), "/test", url.Values{"q": {"a b"}}, &out); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out["status"] != "success" {
				t.Errorf("expected status 'success', got %v", out)
			}
		})

		t.Run("Sends bearer token when API key is set", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Authorization"); got != "Bearer secret" {
					t.Errorf("expected bearer token, got %q", got)
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, "secret", server.Client())
			if err := srv.Health(context.Background()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})

		t.Run("Returns APIError with detail", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(map[string]string{"detail": "video unavailable"})
			}))
			defer server.Close()

			err := NewAPIService(server.URL, "", nil).Get(context.Background(), "/x", nil, nil)

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %v", err)
			}
			if apiErr.StatusCode != http.StatusNotFound || apiErr.Detail != "video unavailable" {
				t.Errorf("unexpected APIError: %+v", apiErr)
			}
			if !IsNotFound(err) {
				t.Error("expected IsNotFound to be true")
			}
		})

		t.Run("Transport failure wraps ErrNetwork", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
			err := NewAPIService("http://example.com", "", client).Get(context.Background(), "/x", nil, nil)
			if !errors.Is(err, shared.ErrNetwork) {
				t.Errorf("expected ErrNetwork, got %v", err)
			}
		})

		t.Run("Unreadable body wraps ErrNetwork", func(t *testing.T) {
			resp := &http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: http.Header{}}
			client := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}

			var out map[string]any
			err := NewAPIService("http://example.com", "", client).Get(context.Background(), "/x", nil, &out)
			if !errors.Is(err, shared.ErrNetwork) {
				t.Errorf("expected ErrNetwork, got %v", err)
			}
		})
	})
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{name: "with detail", err: &APIError{StatusCode: 500, Detail: "boom"}, want: "proxy API error (status 500): boom"},
		{name: "without detail", err: &APIError{StatusCode: 502}, want: "proxy API error: status 502"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}

	if IsNotFound(io.EOF) {
		t.Error("IsNotFound should be false for unrelated errors")
	}
}
