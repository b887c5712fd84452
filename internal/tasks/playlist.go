package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/services"
	"github.com/desertthunder/ytq/internal/shared"
)

// PlaylistSource expands a playlist URL into tracks.
type PlaylistSource interface {
	Playlist(ctx context.Context, url string) (*services.Playlist, error)
}

// ImportPlaylist expands playlistURL through src and ingests its tracks. The batch title defaults
// to the playlist title.
func ImportPlaylist(ctx context.Context, in *Ingestor, src PlaylistSource, playlistURL string, batch Batch) (IngestResult, error) {
	if playlistURL == "" {
		return IngestResult{}, fmt.Errorf("%w: playlist url", shared.ErrMissingArgument)
	}

	pl, err := src.Playlist(ctx, playlistURL)
	if err != nil {
		return IngestResult{}, err
	}
	if batch.Title == "" {
		batch.Title = pl.Title
	}

	return Ingest(ctx, in, pl.Tracks, trackRef, batch)
}

func trackRef(_ context.Context, t *services.Track) (models.Ref, error) {
	if t.URL == "" && t.VideoID == "" {
		return models.Ref{}, fmt.Errorf("%w: track %q has no url", shared.ErrUnresolvableSource, t.Title)
	}
	return t.Ref(), nil
}
