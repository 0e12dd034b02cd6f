package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/pickem/internal/config"
	"github.com/playperu/pickem/internal/database"
	"github.com/playperu/pickem/internal/game"
	"github.com/playperu/pickem/internal/handler/feed"
	"github.com/playperu/pickem/internal/handler/health"
	"github.com/playperu/pickem/internal/metrics"
	"github.com/playperu/pickem/internal/migrations"
	"github.com/playperu/pickem/internal/notify"
	"github.com/playperu/pickem/internal/server"
	"github.com/playperu/pickem/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	st := store.New(db)
	if cfg.SeedDemo {
		if err := store.SeedDemo(ctx, logger, st); err != nil {
			return fmt.Errorf("seeding demo data: %w", err)
		}
	}

	checks := map[string]health.Checker{"sqlite": health.SQL(db)}
	broker := notify.NewBroker()
	sinks := notify.Fanout{broker}

	// --- Redis (optional) ---
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis")

		checks["redis"] = health.Redis(rdb)
		sinks = append(sinks, notify.NewPublisher(rdb, cfg.NotifyChannelPrefix, logger))
	}

	// --- Game service ---
	m := metrics.New()
	games := game.NewService(st, sinks, logger,
		game.WithGameTTL(cfg.GameTTL),
		game.WithRecorder(m),
	)

	// --- HTTP Server ---
	deps := server.Deps{
		Games:             games,
		Hosts:             st,
		Broker:            broker,
		JoinRatePerMinute: cfg.JoinRatePerMinute,
		SPADir:            cfg.SPADir,
	}
	srv := server.New(cfg.HTTPAddr, logger, deps, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, checks).Routes())
		r.Mount("/ws", feed.NewHandler(logger, broker, server.FeedAuthorizer(games, st)).Routes())
		r.Handle("/metrics", m.Handler())
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
