package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/ytq/internal/formatter"
	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/notify"
	"github.com/desertthunder/ytq/internal/player"
	"github.com/desertthunder/ytq/internal/shared"
	"github.com/desertthunder/ytq/internal/tasks"
	"github.com/urfave/cli/v3"
)

// QueueList prints the stored queue of a session.
func (r *Runner) QueueList(ctx context.Context, cmd *cli.Command) error {
	snap, err := r.loadSnapshot(ctx, cmd.StringArg("session"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(formatter.Rows(snap.Entries), cmd.Bool("pretty"))
	}
	data, err := formatter.Export(snap, cmd.String("format"))
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}

// QueueSessions lists every stored session.
func (r *Runner) QueueSessions(ctx context.Context, cmd *cli.Command) error {
	db, repo, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	snaps, err := repo.List(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		type summary struct {
			Session       string `json:"session"`
			Entries       int    `json:"entries"`
			LengthSeconds int    `json:"length_seconds"`
			UpdatedAt     string `json:"updated_at"`
		}
		out := make([]summary, 0, len(snaps))
		for _, s := range snaps {
			out = append(out, summary{s.SessionID, len(s.Entries), lengthOf(s.Entries), s.UpdatedAt.Format("2006-01-02 15:04:05")})
		}
		return r.writeJSON(out, cmd.Bool("pretty"))
	}

	if len(snaps) == 0 {
		return r.writePlain("No stored sessions.\n")
	}
	r.writePlainHeader(fmt.Sprintf("Sessions (%d)", len(snaps)))
	for _, s := range snaps {
		r.writePlain("%-24s %4d entries  %8s  updated %s\n",
			s.SessionID, len(s.Entries), formatter.FormatDuration(lengthOf(s.Entries)), s.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// QueueAdd resolves one URL and enqueues it.
func (r *Runner) QueueAdd(ctx context.Context, cmd *cli.Command) error {
	url := cmd.StringArg("url")
	if url == "" {
		return fmt.Errorf("%w: url", shared.ErrMissingArgument)
	}
	mode := models.Append
	if cmd.Bool("next") {
		mode = models.Prepend
	}

	return r.withSession(ctx, cmd.StringArg("session"), func(s *player.Session) error {
		added, err := s.Queue.Enqueue(ctx, models.Ref{URL: url, Hint: cmd.String("hint")}, userFlags(cmd), mode)
		if err != nil {
			return err
		}
		eta, _ := s.Queue.LengthSecondsTo(added.Position)
		return r.writePlain("✓ Added %q at position %d (plays in %s)\n",
			added.Entry.Info.Title, added.Position, formatter.FormatDuration(eta))
	})
}

// QueueImport enqueues a playlist URL, or the rows of a CSV export with --csv.
func (r *Runner) QueueImport(ctx context.Context, cmd *cli.Command) error {
	source := cmd.StringArg("source")
	if source == "" {
		return fmt.Errorf("%w: source", shared.ErrMissingArgument)
	}

	fromCSV := cmd.Bool("csv")
	var refs []*models.Ref
	if fromCSV {
		f, err := os.Open(source)
		if err != nil {
			return fmt.Errorf("failed to open CSV file: %w", err)
		}
		refs, err = formatter.RefsFromCSV(f)
		f.Close()
		if err != nil {
			return err
		}
	} else if r.playlists == nil {
		return fmt.Errorf("%w: no playlist provider configured", shared.ErrServiceUnavailable)
	}

	mode := models.Append
	if cmd.Bool("next") {
		mode = models.Prepend
	}

	return r.withSession(ctx, cmd.StringArg("session"), func(s *player.Session) error {
		progress := make(chan tasks.ProgressUpdate, 16)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for update := range progress {
				r.logger.Info(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
			}
		}()

		batch := tasks.Batch{Title: source, Mode: mode, AddedBy: userFlags(cmd), Progress: progress}
		in := tasks.NewIngestor(s.Queue, r.config.Resolver.RequestsPerSecond, r.logger)

		var result tasks.IngestResult
		var err error
		if fromCSV {
			result, err = in.Run(ctx, refs, batch)
		} else {
			result, err = tasks.ImportPlaylist(ctx, in, r.playlists, source, batch)
		}
		close(progress)
		<-done

		r.writePlain("✓ Imported %d tracks (%d failed, %d skipped)\n", result.Added, result.Failed, result.Skipped)
		if errors.Is(err, shared.ErrQueueCapacityExceeded) {
			r.writePlain("Queue is full, stopped at %d of %d entries\n", s.Queue.Len(), s.Queue.MaxLength())
		}
		return err
	})
}

// QueueMove moves the entry at one position to another.
func (r *Runner) QueueMove(ctx context.Context, cmd *cli.Command) error {
	from, err := indexArg(cmd, "from")
	if err != nil {
		return err
	}
	to, err := indexArg(cmd, "to")
	if err != nil {
		return err
	}

	return r.withSession(ctx, cmd.StringArg("session"), func(s *player.Session) error {
		if err := s.Queue.Move(ctx, from, to); err != nil {
			return err
		}
		return r.writePlain("✓ Moved %d to %d\n", from, to)
	})
}

// QueueMoveLast brings the last entry to the front of the queue.
func (r *Runner) QueueMoveLast(ctx context.Context, cmd *cli.Command) error {
	return r.withSession(ctx, cmd.StringArg("session"), func(s *player.Session) error {
		moved, err := s.Queue.MoveLast(ctx)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Moved %s to %d\n", moved.Entry.Info.Title, moved.Position)
	})
}

// QueueRemove removes one position, or every entry of a contributor with --user-only.
func (r *Runner) QueueRemove(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user-only")

	return r.withSession(ctx, cmd.StringArg("session"), func(s *player.Session) error {
		if userID != "" {
			removed, err := s.Queue.RemoveIf(ctx, func(e models.Entry) bool { return e.AddedBy.UserID == userID })
			if err != nil {
				return err
			}
			return r.writePlain("✓ Removed %d entries added by %s\n", len(removed), userID)
		}

		i, err := indexArg(cmd, "index")
		if err != nil {
			return err
		}
		entry, err := s.Queue.RemoveAt(ctx, i)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Removed %q\n", entry.Info.Title)
	})
}

// QueueShuffle shuffles every position but the head.
func (r *Runner) QueueShuffle(ctx context.Context, cmd *cli.Command) error {
	return r.withSession(ctx, cmd.StringArg("session"), func(s *player.Session) error {
		if err := s.Queue.Shuffle(ctx); err != nil {
			return err
		}
		return r.writePlain("✓ Shuffled %d entries\n", s.Queue.Len())
	})
}

// QueueClear empties the queue.
func (r *Runner) QueueClear(ctx context.Context, cmd *cli.Command) error {
	return r.withSession(ctx, cmd.StringArg("session"), func(s *player.Session) error {
		n := s.Queue.Len()
		if err := s.Queue.RemoveAll(ctx); err != nil {
			return err
		}
		return r.writePlain("✓ Cleared %d entries\n", n)
	})
}

// QueueSkip advances past the head, applying the session's loop and auto-continue modes.
func (r *Runner) QueueSkip(ctx context.Context, cmd *cli.Command) error {
	return r.withSession(ctx, cmd.StringArg("session"), func(s *player.Session) error {
		head, err := s.Player.Advance(ctx)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Skipped %q\n", head.Info.Title)
	})
}

// QueueFairness toggles contributor interleaving and reorders the queue when enabled.
func (r *Runner) QueueFairness(ctx context.Context, cmd *cli.Command) error {
	enabled, err := switchArg(cmd, "state")
	if err != nil {
		return err
	}

	return r.withSession(ctx, cmd.StringArg("session"), func(s *player.Session) error {
		s.Queue.SetFairness(enabled)
		if enabled {
			if err := s.Queue.Interleave(ctx); err != nil {
				return err
			}
		}
		return r.writePlain("✓ Fairness %s\n", onOff(enabled))
	})
}

// QueueLoop sets the loop mode: off, track, queue or once.
func (r *Runner) QueueLoop(ctx context.Context, cmd *cli.Command) error {
	mode := strings.ToLower(cmd.StringArg("mode"))

	var apply func(*player.Flags)
	switch mode {
	case "off":
		apply = func(f *player.Flags) { f.TrackLoop, f.QueueLoop, f.OnceLoop = false, false, false }
	case "track":
		apply = func(f *player.Flags) { f.TrackLoop, f.QueueLoop = true, false }
	case "queue":
		apply = func(f *player.Flags) { f.TrackLoop, f.QueueLoop = false, true }
	case "once":
		apply = func(f *player.Flags) { f.OnceLoop = true }
	default:
		return fmt.Errorf("%w: loop mode must be off, track, queue or once, got %q", shared.ErrInvalidArgument, mode)
	}

	return r.withSession(ctx, cmd.StringArg("session"), func(s *player.Session) error {
		s.Player.UpdateFlags(apply)
		return r.writePlain("✓ Loop %s\n", mode)
	})
}

// QueueAutoContinue toggles appending a related track when the queue advances.
func (r *Runner) QueueAutoContinue(ctx context.Context, cmd *cli.Command) error {
	enabled, err := switchArg(cmd, "state")
	if err != nil {
		return err
	}

	return r.withSession(ctx, cmd.StringArg("session"), func(s *player.Session) error {
		s.Player.UpdateFlags(func(f *player.Flags) { f.AutoContinue = enabled })
		return r.writePlain("✓ Auto-continue %s\n", onOff(enabled))
	})
}

// QueueSearch prints the entries whose title or URL contains a keyword.
func (r *Runner) QueueSearch(ctx context.Context, cmd *cli.Command) error {
	keyword := cmd.StringArg("keyword")
	if keyword == "" {
		return fmt.Errorf("%w: keyword", shared.ErrMissingArgument)
	}

	return r.withSession(ctx, cmd.StringArg("session"), func(s *player.Session) error {
		results := s.Queue.Search(keyword)
		if cmd.Bool("json") {
			return r.writeJSON(results, cmd.Bool("pretty"))
		}
		if len(results) == 0 {
			return r.writePlain("No entries match %q.\n", keyword)
		}
		for _, res := range results {
			r.writePlain("%3d. %s [%s]\n", res.Position, res.Entry.Info.Title, formatter.FormatDuration(res.Entry.Info.LengthSeconds))
		}
		return nil
	})
}

// QueueExport renders the stored queue as text, Markdown or CSV.
func (r *Runner) QueueExport(ctx context.Context, cmd *cli.Command) error {
	snap, err := r.loadSnapshot(ctx, cmd.StringArg("session"))
	if err != nil {
		return err
	}

	format := cmd.String("format")
	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(snap, format, path); err != nil {
			return err
		}
		r.logger.Info("queue exported", "session", snap.SessionID, "format", format, "path", path)
		return r.writePlain("✓ Exported %d entries to %s\n", len(snap.Entries), path)
	}

	data, err := formatter.Export(snap, format)
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}

// QueueDelete removes a stored session.
func (r *Runner) QueueDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("session")
	if id == "" {
		return fmt.Errorf("%w: session", shared.ErrMissingArgument)
	}

	db, repo, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repo.Delete(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted session %s\n", id)
}

// QueueWatch prints the IDs of sessions changed by a running server, as announced over Redis.
func (r *Runner) QueueWatch(ctx context.Context, cmd *cli.Command) error {
	if r.config.Redis.Addr == "" {
		return fmt.Errorf("%w: redis.addr is not set", shared.ErrMissingConfig)
	}

	rdb := notify.NewRedisClient(r.config.Redis)
	defer rdb.Close()

	n := notify.NewRedisNotifier(rdb, r.config.Redis.Channel, r.logger)
	ids, err := n.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("%w: redis at %s: %v", shared.ErrServiceUnavailable, r.config.Redis.Addr, err)
	}

	r.logger.Info("watching for queue changes", "channel", n.Channel())
	for id := range ids {
		if err := r.writePlain("%s\n", id); err != nil {
			return err
		}
	}
	return nil
}

// loadSnapshot reads a stored session without creating it. Unknown sessions read as empty.
func (r *Runner) loadSnapshot(ctx context.Context, id string) (*models.Snapshot, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: session", shared.ErrMissingArgument)
	}

	db, repo, err := r.openStore()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	snap, err := repo.Load(ctx, id)
	if errors.Is(err, shared.ErrSessionNotFound) {
		return &models.Snapshot{SessionID: id}, nil
	}
	return snap, err
}

func userFlags(cmd *cli.Command) models.AddedBy {
	return models.AddedBy{UserID: cmd.String("user"), DisplayName: cmd.String("name")}
}

func indexArg(cmd *cli.Command, name string) (int, error) {
	raw := cmd.StringArg(name)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number, got %q", shared.ErrInvalidArgument, name, raw)
	}
	return i, nil
}

func switchArg(cmd *cli.Command, name string) (bool, error) {
	switch raw := strings.ToLower(cmd.StringArg(name)); raw {
	case "on", "true", "yes":
		return true, nil
	case "off", "false", "no":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s must be on or off, got %q", shared.ErrInvalidArgument, name, raw)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func lengthOf(entries []models.Entry) int {
	total := 0
	for _, e := range entries {
		total += e.Info.LengthSeconds
	}
	return total
}
