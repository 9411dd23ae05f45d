package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/hookline/hookline/internal/bridge"
	"github.com/hookline/hookline/internal/config"
	"github.com/hookline/hookline/internal/ingest"
	"github.com/hookline/hookline/internal/logging"
	"github.com/hookline/hookline/internal/policy"
	"github.com/hookline/hookline/internal/store"
)

// cmdHook runs one gateway invocation and returns the process exit code.
// The agent runtime treats a non-zero exit as a deny.
func cmdHook(args []string) int {
	fs := flag.NewFlagSet("hook", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: hookline hook <event_type>")
		return 0
	}
	eventType := fs.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		// Configuration problems must not block the agent.
		fmt.Fprintln(os.Stdout, `{"proceed": true}`)
		fmt.Fprintf(os.Stderr, "hookline: load config: %v\n", err)
		return 0
	}

	// Logs go to stderr: stdout carries only the decision object.
	logger := logging.New(os.Stderr, cfg.LogLevel)

	ctx := context.Background()

	s, err := store.NewLibSQLStore(cfg.DBPath)
	if err != nil {
		fmt.Fprintln(os.Stdout, `{"proceed": true}`)
		logger.Error("open store", "error", err)
		return 0
	}
	defer s.Close()

	if err := s.Migrate(ctx); err != nil {
		fmt.Fprintln(os.Stdout, `{"proceed": true}`)
		logger.Error("migrate store", "error", err)
		return 0
	}

	var evaluator *policy.Evaluator
	if cfg.PolicyRulesPath != "" {
		rules, rulesErr := policy.LoadRules(cfg.PolicyRulesPath)
		if rulesErr != nil {
			logger.Warn("deny rules not loaded", "error", rulesErr)
		} else if len(rules) > 0 {
			evaluator, err = policy.NewEvaluator(rules, logger)
			if err != nil {
				logger.Warn("policy evaluator unavailable", "error", err)
			}
		}
	}

	var notifier bridge.Notifier = bridge.NopNotifier{}
	if cfg.BridgeURL != "" {
		notifier = bridge.NewHTTPBridge(cfg.BridgeURL, cfg.BridgeTimeout, logger)
	}

	gateway, err := ingest.NewGateway(s, evaluator, notifier, logger)
	if err != nil {
		fmt.Fprintln(os.Stdout, `{"proceed": true}`)
		logger.Error("build gateway", "error", err)
		return 0
	}

	return gateway.Process(ctx, eventType, os.Stdin, os.Stdout)
}
