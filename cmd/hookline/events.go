package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/itchyny/gojq"

	"github.com/hookline/hookline/internal/config"
	"github.com/hookline/hookline/internal/store"
	"github.com/hookline/hookline/pkg/schema"
)

// cmdEvents prints recorded events as JSON lines, optionally filtered
// through a jq expression.
func cmdEvents(args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	limit := fs.Int("limit", 50, "maximum events to print")
	eventType := fs.String("type", "", "filter by event type")
	sessionID := fs.String("session", "", "replay one session oldest-first")
	since := fs.String("since", "", "only events at or after this RFC 3339 time")
	until := fs.String("until", "", "only events at or before this RFC 3339 time")
	jqExpr := fs.String("jq", "", "jq expression applied to each event")
	_ = fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "hookline: load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	s, err := store.NewLibSQLStore(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hookline: open store: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	if err := s.Migrate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "hookline: migrate store: %v\n", err)
		os.Exit(1)
	}

	events, err := queryEvents(ctx, s, *limit, *eventType, *sessionID, *since, *until)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hookline: %v\n", err)
		os.Exit(1)
	}

	var query *gojq.Query
	if *jqExpr != "" {
		query, err = gojq.Parse(*jqExpr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "hookline: parse jq expression: %v\n", err)
			os.Exit(1)
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	for _, event := range events {
		if query == nil {
			if err := encoder.Encode(event); err != nil {
				fmt.Fprintf(os.Stderr, "hookline: %v\n", err)
				os.Exit(1)
			}
			continue
		}
		if err := printFiltered(encoder, query, event); err != nil {
			fmt.Fprintf(os.Stderr, "hookline: %v\n", err)
			os.Exit(1)
		}
	}
}

func queryEvents(ctx context.Context, s store.EventStore, limit int, eventType, sessionID, since, until string) ([]*schema.HookEvent, error) {
	if sessionID != "" {
		return s.BySession(ctx, sessionID)
	}
	if since != "" || until != "" {
		start, end, err := parseRange(since, until)
		if err != nil {
			return nil, err
		}
		return s.InRange(ctx, start, end)
	}
	if eventType != "" {
		parsed, known := schema.ParseEventType(eventType)
		if !known {
			return nil, fmt.Errorf("unknown event type: %s", eventType)
		}
		return s.ByType(ctx, parsed, limit)
	}
	return s.Recent(ctx, limit)
}

func parseRange(since, until string) (time.Time, time.Time, error) {
	start := time.Time{}
	end := time.Now().UTC()

	if since != "" {
		parsed, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse --since: %w", err)
		}
		start = parsed
	}
	if until != "" {
		parsed, err := time.Parse(time.RFC3339, until)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse --until: %w", err)
		}
		end = parsed
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--until precedes --since")
	}
	return start, end, nil
}

// printFiltered runs the jq expression over one event. gojq operates on
// plain JSON values, so the event is round-tripped through encoding/json.
func printFiltered(encoder *json.Encoder, query *gojq.Query, event *schema.HookEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return err
	}

	iter := query.Run(value)
	for {
		out, ok := iter.Next()
		if !ok {
			return nil
		}
		if jqErr, isErr := out.(error); isErr {
			return fmt.Errorf("jq: %w", jqErr)
		}
		if out == nil {
			continue
		}
		if err := encoder.Encode(out); err != nil {
			return err
		}
	}
}
