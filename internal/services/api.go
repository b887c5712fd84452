// API client for making JSON requests to the metadata proxy
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/desertthunder/ytq/internal/shared"
	"golang.org/x/oauth2"
)

const defaultBaseURL string = "http://localhost:8080"

// APIError is a non-2xx response from the proxy.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("proxy API error (status %d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("proxy API error: status %d", e.StatusCode)
}

// APIService performs JSON requests against the metadata proxy.
type APIService struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIService creates a new API service instance for the proxy.
//
// When apiKey is set, requests carry it as a bearer token through an [oauth2] static token source.
func NewAPIService(baseURL, apiKey string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if apiKey != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, client)
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey, TokenType: "Bearer"}))
	}

	return &APIService{
		baseURL:    baseURL,
		httpClient: client,
	}
}

// BaseURL returns the proxy address.
func (a *APIService) BaseURL() string { return a.baseURL }

// Get performs a GET request to path with the given query and decodes the JSON body into result.
//
// Transport failures wrap [shared.ErrNetwork]; non-2xx responses are returned as [*APIError].
func (a *APIService) Get(ctx context.Context, path string, query url.Values, result any) error {
	fullURL := a.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %w", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			apiErr.Detail = errResp.Detail
		}
		return apiErr
	}

	if result == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", shared.ErrNetwork, err)
	}
	return nil
}

// Health checks that the proxy is reachable.
func (a *APIService) Health(ctx context.Context) error {
	return a.Get(ctx, "/health", nil, nil)
}

// IsNotFound reports whether err is a 404 or 422 from the proxy.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode == http.StatusUnprocessableEntity
	}
	return false
}
