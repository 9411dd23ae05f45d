// Package bridge forwards committed events from the hook gateway process
// to the long-running hub over loopback HTTP. The hook process is short
// lived, so delivery is best effort with a tight deadline: a down or slow
// hub never delays the agent runtime.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hookline/hookline/pkg/schema"
)

// DefaultTimeout bounds the whole notify round trip.
const DefaultTimeout = 50 * time.Millisecond

// Notifier delivers a committed event to live subscribers.
type Notifier interface {
	Notify(ctx context.Context, event *schema.HookEvent) error
}

// HTTPBridge posts events to the hub's internal ingest endpoint.
type HTTPBridge struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewHTTPBridge creates a bridge posting to baseURL's /internal/events
// endpoint. A zero timeout uses DefaultTimeout.
func NewHTTPBridge(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPBridge {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPBridge{
		url:    baseURL + "/internal/events",
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Notify posts the event. The returned error always carries the
// BRIDGE_UNREACHABLE code; callers are expected to log and continue.
func (b *HTTPBridge) Notify(ctx context.Context, event *schema.HookEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return schema.NewError(schema.ErrCodeBridgeUnreachable, "encode event for bridge").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(payload))
	if err != nil {
		return schema.NewError(schema.ErrCodeBridgeUnreachable, "build bridge request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeBridgeUnreachable,
			"hub not reachable at %s", b.url).WithCause(err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return schema.NewErrorf(schema.ErrCodeBridgeUnreachable,
			"hub rejected event: %s", resp.Status).
			WithDetails(map[string]any{"status": resp.StatusCode})
	}
	return nil
}

// NotifyQuietly runs Notify and downgrades any failure to a log line.
// Live delivery is advisory once the event is durably stored.
func (b *HTTPBridge) NotifyQuietly(ctx context.Context, event *schema.HookEvent) {
	if err := b.Notify(ctx, event); err != nil {
		b.logger.DebugContext(ctx, "bridge delivery skipped",
			slog.String("event_id", event.ID),
			slog.String("error", err.Error()))
	}
}

// NopNotifier discards events. Used when the bridge is disabled.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, *schema.HookEvent) error { return nil }

var (
	_ Notifier = (*HTTPBridge)(nil)
	_ Notifier = NopNotifier{}
)
