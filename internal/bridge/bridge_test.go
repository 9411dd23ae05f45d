package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hookline/hookline/pkg/schema"
)

func sampleEvent() *schema.HookEvent {
	return &schema.HookEvent{
		ID:        "evt-1",
		Seq:       7,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		EventType: schema.EventPreCommand,
		ToolName:  "Bash",
		Command:   "go vet ./...",
		SessionID: "S1",
	}
}

func TestNotify_DeliversEvent(t *testing.T) {
	var received schema.HookEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/internal/events", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	b := NewHTTPBridge(srv.URL, time.Second, nil)
	require.NoError(t, b.Notify(context.Background(), sampleEvent()))

	assert.Equal(t, "evt-1", received.ID)
	assert.Equal(t, int64(7), received.Seq)
	assert.Equal(t, schema.EventPreCommand, received.EventType)
}

func TestNotify_HubDown(t *testing.T) {
	b := NewHTTPBridge("http://127.0.0.1:1", 100*time.Millisecond, nil)

	err := b.Notify(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeBridgeUnreachable, schema.CodeOf(err))
}

func TestNotify_RejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	b := NewHTTPBridge(srv.URL, time.Second, nil)
	err := b.Notify(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeBridgeUnreachable, schema.CodeOf(err))
}

func TestNotify_TimeoutBounded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	b := NewHTTPBridge(srv.URL, 50*time.Millisecond, nil)

	start := time.Now()
	err := b.Notify(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestNotifyQuietly_SwallowsFailure(t *testing.T) {
	b := NewHTTPBridge("http://127.0.0.1:1", 50*time.Millisecond, nil)
	b.NotifyQuietly(context.Background(), sampleEvent())
}

func TestNopNotifier(t *testing.T) {
	require.NoError(t, NopNotifier{}.Notify(context.Background(), sampleEvent()))
}
