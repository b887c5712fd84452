// Proxy [Service] implementation
//
// Communicates with the metadata proxy that wraps YouTube and other sources.
package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/shared"
)

// YouTubeImage represents an image/thumbnail in proxy responses.
type YouTubeImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ProxyService implements the Service interface via the metadata proxy.
type ProxyService struct {
	api *APIService
}

// NewProxyService creates a proxy-backed service.
func NewProxyService(api *APIService) *ProxyService {
	if api == nil {
		api = NewAPIService("", "", nil)
	}
	return &ProxyService{api: api}
}

// Name returns the service name.
func (p *ProxyService) Name() string {
	return "Proxy"
}

// Resolve calls GET /api/resolve on the proxy.
func (p *ProxyService) Resolve(ctx context.Context, ref models.Ref, forceCache bool) (*models.BasicInfo, error) {
	if ref.URL == "" {
		return nil, fmt.Errorf("%w: empty url", shared.ErrUnresolvableSource)
	}

	query := url.Values{"url": {ref.URL}, "cache": {strconv.FormatBool(forceCache)}}
	if ref.Hint != "" {
		query.Set("type", ref.Hint)
	}

	var track Track
	if err := p.api.Get(ctx, "/api/resolve", query, &track); err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %w", shared.ErrUnresolvableSource, err)
		}
		return nil, err
	}
	if track.Title == "" {
		return nil, fmt.Errorf("%w: proxy returned no title for %s", shared.ErrUnresolvableSource, ref.URL)
	}
	if track.URL == "" && track.VideoID == "" {
		track.URL = ref.URL
	}
	return track.BasicInfo(), nil
}

// Related calls GET /api/related on the proxy and returns the first suggestion.
func (p *ProxyService) Related(ctx context.Context, trackURL string) (*models.Ref, error) {
	var resp struct {
		Tracks []Track `json:"tracks"`
	}
	if err := p.api.Get(ctx, "/api/related", url.Values{"url": {trackURL}}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Tracks) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrRelatedTrackNotFound, trackURL)
	}

	ref := resp.Tracks[0].Ref()
	return &ref, nil
}

// Playable calls GET /api/playable on the proxy.
func (p *ProxyService) Playable(ctx context.Context, trackURL string) (*models.Playable, error) {
	var playable models.Playable
	if err := p.api.Get(ctx, "/api/playable", url.Values{"url": {trackURL}}, &playable); err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %w", shared.ErrUnresolvableSource, err)
		}
		return nil, err
	}
	if playable.StreamURL == "" {
		return nil, fmt.Errorf("%w: no stream for %s", shared.ErrUnresolvableSource, trackURL)
	}
	return &playable, nil
}

// Playlist calls GET /api/playlist on the proxy.
func (p *ProxyService) Playlist(ctx context.Context, playlistURL string) (*Playlist, error) {
	var resp struct {
		ID     string   `json:"id"`
		Title  string   `json:"title"`
		Tracks []*Track `json:"tracks"`
	}
	if err := p.api.Get(ctx, "/api/playlist", url.Values{"url": {playlistURL}}, &resp); err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %w", shared.ErrUnresolvableSource, err)
		}
		return nil, err
	}
	return &Playlist{ID: resp.ID, Title: resp.Title, Tracks: resp.Tracks}, nil
}
