// package services defines interface Service for resolving tracks against a metadata proxy
package services

import (
	"context"

	"github.com/desertthunder/ytq/internal/models"
)

// Service defines the operations the queue needs from a music metadata provider.
type Service interface {
	// Resolve returns metadata for a track reference.
	// forceCache asks the provider to cache the source because it is likely to play soon.
	Resolve(ctx context.Context, ref models.Ref, forceCache bool) (*models.BasicInfo, error)

	// Related returns one track related to url, for auto-continue.
	Related(ctx context.Context, url string) (*models.Ref, error)

	// Playable returns the raw audio location of a resolved track.
	Playable(ctx context.Context, url string) (*models.Playable, error)

	// Playlist expands a playlist URL into its tracks.
	// Entries the provider could not read are returned as nil.
	Playlist(ctx context.Context, url string) (*Playlist, error)

	// Name returns the name of the service
	Name() string
}

// Playlist is an expanded playlist reference.
type Playlist struct {
	ID     string
	Title  string
	Tracks []*Track
}

// Track is one playlist item as reported by the provider.
type Track struct {
	VideoID     string         `json:"videoId"`
	Title       string         `json:"title"`
	URL         string         `json:"url"`
	Service     string         `json:"service"`
	DurationSec int            `json:"duration_seconds"`
	Thumbnails  []YouTubeImage `json:"thumbnails"`
	IsLive      bool           `json:"is_live"`
}

// BasicInfo converts a provider track into queue metadata, keeping the widest thumbnail.
func (t *Track) BasicInfo() *models.BasicInfo {
	info := &models.BasicInfo{
		Title:         t.Title,
		URL:           t.URL,
		ServiceID:     t.Service,
		LengthSeconds: t.DurationSec,
		IsLive:        t.IsLive,
	}
	if info.URL == "" && t.VideoID != "" {
		info.URL = "https://www.youtube.com/watch?v=" + t.VideoID
	}
	if info.ServiceID == "" {
		info.ServiceID = models.ServiceYouTube
	}

	width := -1
	for _, img := range t.Thumbnails {
		if img.Width > width {
			width = img.Width
			info.Thumbnail = img.URL
		}
	}
	return info
}

// Ref converts a provider track into a reference that carries its metadata, so enqueueing it needs
// no second resolution.
func (t *Track) Ref() models.Ref {
	info := t.BasicInfo()
	return models.Ref{URL: info.URL, Hint: info.ServiceID, Known: info}
}
