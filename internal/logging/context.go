package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	sessionIDKey ctxKey = iota
	eventIDKey
	hookTypeKey
)

// WithSessionID returns a context with the agent session ID set.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// WithEventID returns a context with the event ID set.
func WithEventID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, eventIDKey, id)
}

// WithHookType returns a context with the hook type set.
func WithHookType(ctx context.Context, hookType string) context.Context {
	return context.WithValue(ctx, hookTypeKey, hookType)
}

// SessionID extracts the session ID from the context, or "" if absent.
func SessionID(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey).(string)
	return v
}

// EventID extracts the event ID from the context, or "" if absent.
func EventID(ctx context.Context) string {
	v, _ := ctx.Value(eventIDKey).(string)
	return v
}

// HookType extracts the hook type from the context, or "" if absent.
func HookType(ctx context.Context) string {
	v, _ := ctx.Value(hookTypeKey).(string)
	return v
}

// WithIDs sets all three correlation IDs on the context at once.
func WithIDs(ctx context.Context, sessionID, eventID, hookType string) context.Context {
	ctx = WithSessionID(ctx, sessionID)
	ctx = WithEventID(ctx, eventID)
	ctx = WithHookType(ctx, hookType)
	return ctx
}

// LogWith returns a logger enriched with correlation IDs from the context.
// Only non-empty values are added as attributes.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if v := SessionID(ctx); v != "" {
		logger = logger.With(slog.String("session_id", v))
	}
	if v := EventID(ctx); v != "" {
		logger = logger.With(slog.String("event_id", v))
	}
	if v := HookType(ctx); v != "" {
		logger = logger.With(slog.String("hook_type", v))
	}
	return logger
}

// CorrelationHandler wraps an slog.Handler, automatically injecting
// correlation IDs from the context into every log record.
// Use with slog.New(NewCorrelationHandler(inner)) so callers can use
// logger.InfoContext(ctx, ...) and IDs appear automatically.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps the given handler with automatic correlation ID injection.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	if v := SessionID(ctx); v != "" {
		r.AddAttrs(slog.String("session_id", v))
	}
	if v := EventID(ctx); v != "" {
		r.AddAttrs(slog.String("event_id", v))
	}
	if v := HookType(ctx); v != "" {
		r.AddAttrs(slog.String("hook_type", v))
	}
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}
