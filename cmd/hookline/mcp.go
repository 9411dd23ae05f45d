package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/hookline/hookline/internal/config"
	"github.com/hookline/hookline/internal/logging"
	"github.com/hookline/hookline/internal/store"
	"github.com/hookline/hookline/pkg/mcp"
)

// cmdMCP serves event queries over MCP stdio.
func cmdMCP(args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	dbPath := fs.String("db", "", "database path (overrides HOOKLINE_DB_PATH)")
	_ = fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	// Logs go to stderr: stdout carries the MCP transport.
	logger := logging.New(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	s, err := store.NewLibSQLStore(cfg.DBPath)
	if err != nil {
		logger.Error("open store", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	if err := s.Migrate(ctx); err != nil {
		logger.Error("migrate store", "error", err)
		os.Exit(1)
	}

	srv := mcp.NewHooklineServer(mcp.HooklineServerDeps{Store: s, Logger: logger})

	logger.InfoContext(ctx, "hookline MCP server listening on stdio")
	if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
		logger.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
