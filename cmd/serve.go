package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/ytq/internal/notify"
	"github.com/desertthunder/ytq/internal/server"
	"github.com/desertthunder/ytq/internal/shared"
	"github.com/desertthunder/ytq/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

// Serve hosts the HTTP API until interrupted. Dirty sessions are flushed to the database on an
// interval and, when Redis is configured, announced on its channel.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Port = port
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, repo, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	dirty := notify.NewDirtySet()
	notifiers := notify.Fanout{dirty}

	var redisNotifier *notify.RedisNotifier
	if r.config.Redis.Addr != "" {
		rdb := notify.NewRedisClient(r.config.Redis)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("%w: redis at %s: %v", shared.ErrServiceUnavailable, r.config.Redis.Addr, err)
		}
		redisNotifier = notify.NewRedisNotifier(rdb, r.config.Redis.Channel, r.logger)
		notifiers = append(notifiers, redisNotifier)
	}

	registry := r.newRegistry(repo, notifiers)
	defer registry.CloseAll()

	flusher := tasks.NewFlusher(dirty, registry, repo, tasks.FlusherOpts{
		Interval: r.config.Server.FlushInterval.Duration,
		Logger:   r.logger,
	})

	api := server.NewAPI(registry, server.APIOpts{
		Playlists:         r.playlists,
		RequestsPerSecond: r.config.Resolver.RequestsPerSecond,
		Logger:            r.logger,
	})
	srv := server.New(cfg.Addr(), api, r.logger)

	var background []func(context.Context) error
	if redisNotifier != nil {
		background = append(background, redisNotifier.Run)
	}

	r.logger.Info("serving", "addr", cfg.Addr(), "database", r.config.Database.Path, "redis", r.config.Redis.Addr != "")
	return runUntilShutdown(ctx, srv.Run, flusher.Run, background...)
}

// runUntilShutdown runs serve and the background tasks until ctx is done or one of them fails. The
// flush loop keeps its own context and is stopped only after serve has returned, so its final pass
// sees every mutation the server accepted.
func runUntilShutdown(ctx context.Context, serve, flush func(context.Context) error, background ...func(context.Context) error) error {
	flushCtx, stopFlush := context.WithCancel(context.WithoutCancel(ctx))
	defer stopFlush()
	flushed := make(chan error, 1)
	go func() { flushed <- flush(flushCtx) }()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(gctx) })
	for _, run := range background {
		g.Go(func() error { return run(gctx) })
	}
	err := g.Wait()

	stopFlush()
	return errors.Join(err, <-flushed)
}
