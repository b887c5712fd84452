package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytq/internal/shared"
	"github.com/urfave/cli/v3"
)

// Health checks that the metadata proxy is reachable.
func (r *Runner) Health(ctx context.Context, cmd *cli.Command) error {
	if r.api == nil {
		return fmt.Errorf("%w: resolver not configured", shared.ErrServiceUnavailable)
	}

	r.logger.Info("checking resolver", "base_url", r.api.BaseURL())

	err := r.api.Health(ctx)
	if cmd.Bool("json") {
		status := map[string]string{"base_url": r.api.BaseURL(), "status": "ok"}
		if err != nil {
			status["status"] = "unavailable"
			status["error"] = err.Error()
		}
		if werr := r.writeJSON(status, cmd.Bool("pretty")); werr != nil {
			return werr
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}

	if !cmd.Bool("json") {
		return r.writePlain("✓ Resolver reachable at %s\n", r.api.BaseURL())
	}
	return nil
}
