package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytq/internal/player"
	"github.com/desertthunder/ytq/internal/queue"
	"github.com/desertthunder/ytq/internal/repositories"
	"github.com/desertthunder/ytq/internal/services"
	"github.com/desertthunder/ytq/internal/shared"
	"github.com/desertthunder/ytq/internal/stream"
	"github.com/desertthunder/ytq/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	provider   player.Provider
	playlists  tasks.PlaylistSource
	api        *services.APIService
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Provider   player.Provider
	Playlists  tasks.PlaylistSource
	API        *services.APIService
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		provider:   opts.Provider,
		playlists:  opts.Playlists,
		api:        opts.API,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger replaces the logger used by subsequent commands.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, queueCommand, fetchCommand, healthCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// openStore opens the configured database and brings its schema up to date.
func (r *Runner) openStore() (*sql.DB, *repositories.QueueRepository, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, repositories.NewQueueRepository(db), nil
}

// newRegistry builds a session registry restoring from repo.
func (r *Runner) newRegistry(repo *repositories.QueueRepository, notifier queue.Notifier) *player.Registry {
	return player.NewRegistry(player.RegistryOpts{
		Provider:  r.provider,
		Loader:    repo,
		Notifier:  notifier,
		Assembler: stream.NewAssembler(r.config.Stream.ChunkSize, r.logger),
		Sources:   player.HTTPSources(r.httpClient, r.config.Stream.UserAgent),
		Queue:     r.config.Queue,
		Logger:    r.logger,
	})
}

// withSession loads one persisted session, runs fn against it and saves the result.
func (r *Runner) withSession(ctx context.Context, id string, fn func(*player.Session) error) error {
	if id == "" {
		return fmt.Errorf("%w: session", shared.ErrMissingArgument)
	}

	db, repo, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	registry := r.newRegistry(repo, nil)
	defer registry.CloseAll()

	session, err := registry.Get(ctx, id)
	if err != nil {
		return err
	}

	fnErr := fn(session)

	if err := repo.SaveSnapshot(ctx, session.Player.Snapshot()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return fnErr
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
