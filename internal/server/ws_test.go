package server

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/hookline/hookline/pkg/schema"
)

func dialWS(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	wsURL := strings.Replace(env.srv.URL, "http://", "ws://", 1) + "/ws"
	conn, err := websocket.Dial(wsURL, "", env.srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readFrame decodes frames until one of the wanted type arrives, skipping
// keepalive pings.
func readFrame(t *testing.T, decoder *json.Decoder, wantType string) wsFrame {
	t.Helper()
	deadline := time.After(5 * time.Second)
	frames := make(chan wsFrame, 1)
	errs := make(chan error, 1)
	go func() {
		for {
			var frame wsFrame
			if err := decoder.Decode(&frame); err != nil {
				errs <- err
				return
			}
			if frame.Type == framePing {
				continue
			}
			frames <- frame
			return
		}
	}()

	select {
	case frame := <-frames:
		require.Equal(t, wantType, frame.Type)
		return frame
	case err := <-errs:
		t.Fatalf("read frame: %v", err)
	case <-deadline:
		t.Fatalf("no %s frame within deadline", wantType)
	}
	return wsFrame{}
}

func TestWS_LiveEventDelivery(t *testing.T) {
	env := newTestEnv(t, Options{WebSocketEnabled: true})
	conn := dialWS(t, env)
	decoder := json.NewDecoder(conn)

	// Give the handler time to register the subscriber.
	require.Eventually(t, func() bool {
		return env.hub.Stats().ActiveSubscribers == 1
	}, 2*time.Second, 10*time.Millisecond)

	env.hub.Publish(&schema.HookEvent{ID: "evt-ws", Seq: 3, EventType: schema.EventNotification})

	frame := readFrame(t, decoder, frameEvent)
	var event schema.HookEvent
	require.NoError(t, json.Unmarshal(frame.Data, &event))
	assert.Equal(t, "evt-ws", event.ID)
	assert.Equal(t, int64(3), event.Seq)
}

func TestWS_GetRecentEvents(t *testing.T) {
	env := newTestEnv(t, Options{WebSocketEnabled: true})
	env.seed(t, 7, schema.EventPreCommand, "S1")

	conn := dialWS(t, env)
	decoder := json.NewDecoder(conn)

	require.NoError(t, json.NewEncoder(conn).Encode(wsFrame{
		Type:  frameGetRecentEvents,
		Limit: 5,
	}))

	frame := readFrame(t, decoder, frameRecentEvents)
	var body eventList
	require.NoError(t, json.Unmarshal(frame.Data, &body))
	require.Equal(t, 5, body.Count)
	assert.Equal(t, int64(7), body.Events[0].Seq)
	assert.Equal(t, int64(3), body.Events[4].Seq)
}

func TestWS_GetStatistics(t *testing.T) {
	env := newTestEnv(t, Options{WebSocketEnabled: true})
	env.seed(t, 2, schema.EventPostEdit, "S1")

	conn := dialWS(t, env)
	decoder := json.NewDecoder(conn)

	require.NoError(t, json.NewEncoder(conn).Encode(wsFrame{Type: frameGetStatistics}))

	frame := readFrame(t, decoder, frameStatistics)
	var body struct {
		TotalEvents       int64 `json:"total_events"`
		ActiveSubscribers int   `json:"active_subscribers"`
	}
	require.NoError(t, json.Unmarshal(frame.Data, &body))
	assert.Equal(t, int64(2), body.TotalEvents)
	assert.Equal(t, 1, body.ActiveSubscribers)
}

func TestWS_PingPong(t *testing.T) {
	env := newTestEnv(t, Options{WebSocketEnabled: true})
	conn := dialWS(t, env)
	decoder := json.NewDecoder(conn)

	require.NoError(t, json.NewEncoder(conn).Encode(wsFrame{Type: framePing}))

	readFrame(t, decoder, framePong)
}

func TestWS_UnsupportedFrameType(t *testing.T) {
	env := newTestEnv(t, Options{WebSocketEnabled: true})
	conn := dialWS(t, env)
	decoder := json.NewDecoder(conn)

	require.NoError(t, json.NewEncoder(conn).Encode(wsFrame{Type: "subscribe_all"}))

	frame := readFrame(t, decoder, frameError)
	var body map[string]string
	require.NoError(t, json.Unmarshal(frame.Data, &body))
	assert.Contains(t, body["message"], "subscribe_all")
}

func TestWS_DisconnectRemovesSubscriber(t *testing.T) {
	env := newTestEnv(t, Options{WebSocketEnabled: true})
	conn := dialWS(t, env)

	require.Eventually(t, func() bool {
		return env.hub.Stats().ActiveSubscribers == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return env.hub.Stats().ActiveSubscribers == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWS_IdlePing(t *testing.T) {
	env := newTestEnv(t, Options{WebSocketEnabled: true, PingInterval: 50 * time.Millisecond})
	conn := dialWS(t, env)
	decoder := json.NewDecoder(conn)

	var frame wsFrame
	require.NoError(t, decoder.Decode(&frame))
	assert.Equal(t, framePing, frame.Type)
}
