package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytq/internal/player"
	"github.com/desertthunder/ytq/internal/shared"
	"github.com/desertthunder/ytq/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive queue editor for one session. Changes are saved on exit.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/ytq-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	return r.withSession(ctx, cmd.StringArg("session"), func(s *player.Session) error {
		model := ui.NewModel(ctx, s, ui.Options{
			Playlists:         r.playlists,
			RequestsPerSecond: r.config.Resolver.RequestsPerSecond,
			User:              userFlags(cmd),
		})
		p := tea.NewProgram(model, tea.WithAltScreen())

		if _, err := p.Run(); err != nil {
			return fmt.Errorf("error running TUI: %w", err)
		}
		return nil
	})
}
