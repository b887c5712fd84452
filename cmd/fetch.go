package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/player"
	"github.com/desertthunder/ytq/internal/shared"
	"github.com/desertthunder/ytq/internal/stream"
	"github.com/urfave/cli/v3"
)

// Fetch downloads a track's audio through the chunked assembler.
//
// With --direct the URL is treated as the raw stream location instead of a track page.
func (r *Runner) Fetch(ctx context.Context, cmd *cli.Command) error {
	url := cmd.StringArg("url")
	if url == "" {
		return fmt.Errorf("%w: url", shared.ErrMissingArgument)
	}

	playable := &models.Playable{StreamURL: url}
	if !cmd.Bool("direct") {
		if r.provider == nil {
			return fmt.Errorf("%w: no playable resolver configured", shared.ErrServiceUnavailable)
		}
		var err error
		if playable, err = r.provider.Playable(ctx, url); err != nil {
			return err
		}
	}

	src, err := player.HTTPSources(r.httpClient, r.config.Stream.UserAgent)(ctx, playable)
	if err != nil {
		return err
	}

	chunkSize := r.config.Stream.ChunkSize
	if n := cmd.Int("chunk-size"); n > 0 {
		chunkSize = int64(n)
	}

	var out io.Writer = r.output
	path := cmd.String("output")
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	s := stream.NewAssembler(chunkSize, r.logger).Open(ctx, src)
	defer s.Close()

	r.logger.Info("fetching", "url", playable.StreamURL, "length", src.Length(), "chunk_size", chunkSize)
	n, err := io.Copy(out, s)
	if err != nil {
		return fmt.Errorf("%w: stopped after %d bytes: %w", shared.ErrNetwork, n, err)
	}

	r.logger.Info("fetch complete", "bytes", n, "chunks", s.Chunk()+1, "state", s.State())
	if path != "" {
		return r.writePlain("✓ Wrote %d bytes to %s\n", n, path)
	}
	return nil
}
