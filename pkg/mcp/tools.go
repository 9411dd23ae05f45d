package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hookline/hookline/pkg/schema"
)

const defaultQueryLimit = 50

// handleRecentEvents lists the newest events.
func (s *HooklineServer) handleRecentEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", defaultQueryLimit)
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	events, err := s.store.Recent(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("recent events query failed: %v", err)), nil
	}

	return marshalResult(map[string]any{
		"events": events,
		"count":  len(events),
	})
}

// handleEventsByType lists the newest events of one type.
func (s *HooklineServer) handleEventsByType(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("event_type")
	if err != nil {
		return mcp.NewToolResultError("event_type is required"), nil
	}
	eventType, known := schema.ParseEventType(raw)
	if !known {
		return mcp.NewToolResultError(fmt.Sprintf("unknown event type: %s", raw)), nil
	}
	limit := req.GetInt("limit", defaultQueryLimit)
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	events, queryErr := s.store.ByType(ctx, eventType, limit)
	if queryErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("events by type query failed: %v", queryErr)), nil
	}

	return marshalResult(map[string]any{
		"event_type": eventType,
		"events":     events,
		"count":      len(events),
	})
}

// handleSessionTimeline replays one session oldest-first.
func (s *HooklineServer) handleSessionTimeline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	events, queryErr := s.store.BySession(ctx, sessionID)
	if queryErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("session timeline query failed: %v", queryErr)), nil
	}

	return marshalResult(map[string]any{
		"session_id": sessionID,
		"events":     events,
		"count":      len(events),
	})
}

// handleStatistics reports store and stream counters.
func (s *HooklineServer) handleStatistics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	total, err := s.store.CountEvents(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("count query failed: %v", err)), nil
	}

	result := map[string]any{"total_events": total}
	if s.hub != nil {
		stats := s.hub.Stats()
		result["active_subscribers"] = stats.ActiveSubscribers
		result["events_published"] = stats.EventsPublished
	}

	return marshalResult(result)
}

func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
