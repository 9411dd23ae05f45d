// Package mcp exposes the event store to agents over the Model Context
// Protocol. All tools are read-only: ingestion happens exclusively through
// the hook gateway.
package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hookline/hookline/internal/hub"
	"github.com/hookline/hookline/internal/store"
	"github.com/hookline/hookline/pkg/schema"
)

// HooklineServerDeps holds the dependencies for creating a HooklineServer.
type HooklineServerDeps struct {
	Store  store.EventStore
	Hub    hub.Broadcaster
	Logger *slog.Logger
}

// HooklineServer wraps an MCP server with event query tool handlers.
type HooklineServer struct {
	store     store.EventStore
	hub       hub.Broadcaster
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewHooklineServer creates a new HooklineServer with all tools registered.
func NewHooklineServer(deps HooklineServerDeps) *HooklineServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	s := &HooklineServer{
		store:  deps.Store,
		hub:    deps.Hub,
		logger: logger,
	}

	mcpSrv := server.NewMCPServer(
		"hookline",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Hookline records agent runtime hook events. Use hookline.recent_events to inspect the latest activity, hookline.events_by_type to filter by hook kind, hookline.session_timeline to replay a session in order, and hookline.statistics for store and stream counters."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *HooklineServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *HooklineServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// tools returns the registered MCP tools as ServerTool entries.
func (s *HooklineServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: recentEventsTool(), Handler: s.handleRecentEvents},
		{Tool: eventsByTypeTool(), Handler: s.handleEventsByType},
		{Tool: sessionTimelineTool(), Handler: s.handleSessionTimeline},
		{Tool: statisticsTool(), Handler: s.handleStatistics},
	}
}

// --- Tool definitions ---

func recentEventsTool() mcp.Tool {
	return mcp.NewTool("hookline.recent_events",
		mcp.WithDescription("List the most recent hook events, newest first"),
		mcp.WithNumber("limit", mcp.Description("Maximum events to return (default: 50)")),
	)
}

func eventsByTypeTool() mcp.Tool {
	return mcp.NewTool("hookline.events_by_type",
		mcp.WithDescription("List recent hook events of one type, newest first"),
		mcp.WithString("event_type", mcp.Required(),
			mcp.Enum(eventTypeNames()...),
			mcp.Description("Hook event type to filter by"),
		),
		mcp.WithNumber("limit", mcp.Description("Maximum events to return (default: 50)")),
	)
}

func sessionTimelineTool() mcp.Tool {
	return mcp.NewTool("hookline.session_timeline",
		mcp.WithDescription("Replay all events of one agent session in arrival order"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Agent session ID")),
	)
}

func statisticsTool() mcp.Tool {
	return mcp.NewTool("hookline.statistics",
		mcp.WithDescription("Store and live stream counters"),
	)
}

func eventTypeNames() []string {
	types := schema.EventTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}
