package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hookline/hookline/internal/config"
	"github.com/hookline/hookline/internal/hub"
	"github.com/hookline/hookline/internal/logging"
	"github.com/hookline/hookline/internal/retention"
	"github.com/hookline/hookline/internal/server"
	"github.com/hookline/hookline/internal/store"
)

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	listenAddr := fs.String("listen", "", "bind address (overrides HOOKLINE_LISTEN_ADDR)")
	dbPath := fs.String("db", "", "database path (overrides HOOKLINE_DB_PATH)")
	_ = fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := runServe(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	s, err := store.NewLibSQLStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Migrate(ctx); err != nil {
		return err
	}

	h := hub.NewMemoryHub(cfg.QueueCapacity)

	if cfg.RetentionEnabled() {
		pruner, err := retention.NewPruner(s, cfg.RetentionSchedule, cfg.RetentionHorizon(), logger)
		if err != nil {
			return err
		}
		if err := pruner.Start(ctx); err != nil {
			return err
		}
		defer pruner.Stop()
	}

	srv := server.New(
		server.Deps{Store: s, Hub: h, Logger: logger},
		server.Options{
			BacklogLimit:     cfg.BacklogLimit,
			WebSocketEnabled: cfg.WebSocketEnabled,
			PingInterval:     cfg.PingInterval,
		},
	)

	logger.InfoContext(ctx, "starting hookline hub",
		slog.String("version", version),
		slog.String("db", cfg.DBPath),
		slog.Bool("websocket", cfg.WebSocketEnabled))

	return srv.ListenAndServe(ctx, cfg.ListenAddr)
}
