package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/hookline/hookline/pkg/schema"
)

// Frame types accepted from clients.
const (
	frameGetRecentEvents = "get_recent_events"
	frameGetStatistics   = "get_statistics"
	framePing            = "ping"
)

// Frame types sent to clients.
const (
	frameEvent        = "event"
	frameRecentEvents = "recent_events"
	frameStatistics   = "statistics"
	framePong         = "pong"
	frameError        = "error"
)

const maxDecodeErrorsPerConn = 5

type wsFrame struct {
	Type  string          `json:"type"`
	Limit int             `json:"limit,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// wsPeer serializes frame writes so the event pump and the request loop
// never interleave on the wire.
type wsPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newWSPeer(conn *websocket.Conn) *wsPeer {
	return &wsPeer{encoder: json.NewEncoder(conn)}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(s.serveWS).ServeHTTP(w, r)
}

func (s *Server) serveWS(conn *websocket.Conn) {
	defer conn.Close()

	ctx := conn.Request().Context()
	peer := newWSPeer(conn)

	sub := s.deps.Hub.Subscribe()
	defer s.deps.Hub.Unsubscribe(sub)

	// The pump owns outbound event delivery; request frames are answered
	// inline from the read loop through the same serialized peer.
	pumpDone := make(chan struct{})
	stopPump := make(chan struct{})
	go func() {
		defer close(pumpDone)
		s.pumpEvents(ctx, peer, sub.Events(), stopPump)
	}()

	s.readLoop(ctx, conn, peer)

	close(stopPump)
	<-pumpDone
}

// pumpEvents forwards broadcast events to the peer and sends keepalive
// pings while the connection is idle. A write failure ends the connection.
func (s *Server) pumpEvents(ctx context.Context, peer *wsPeer, events <-chan *schema.HookEvent, stop <-chan struct{}) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := peer.writeFrame(wsFrame{Type: frameEvent, Data: mustJSON(event)}); err != nil {
				s.deps.Logger.DebugContext(ctx, "subscriber write failed, dropping",
					slog.String("error", err.Error()))
				return
			}
			ticker.Reset(s.opts.PingInterval)
		case <-ticker.C:
			if err := peer.writeFrame(wsFrame{Type: framePing}); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, peer *wsPeer) {
	decoder := json.NewDecoder(conn)
	decodeErrors := 0

	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return
			}
			decodeErrors++
			_ = writeWSError(peer, "invalid frame payload")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		switch frame.Type {
		case frameGetRecentEvents:
			s.handleRecentFrame(ctx, peer, frame)
		case frameGetStatistics:
			s.handleStatisticsFrame(ctx, peer)
		case framePing:
			_ = peer.writeFrame(wsFrame{Type: framePong})
		default:
			_ = writeWSError(peer, "unsupported frame type: "+frame.Type)
		}
	}
}

func (s *Server) handleRecentFrame(ctx context.Context, peer *wsPeer, frame wsFrame) {
	limit := clampLimit(frame.Limit, s.opts.BacklogLimit, maxListLimit)

	events, err := s.deps.Store.Recent(ctx, limit)
	if err != nil {
		s.deps.Logger.ErrorContext(ctx, "list recent events", slog.String("error", err.Error()))
		_ = writeWSError(peer, "store query failed")
		return
	}

	_ = peer.writeFrame(wsFrame{
		Type: frameRecentEvents,
		Data: mustJSON(map[string]any{
			"events": events,
			"count":  len(events),
		}),
	})
}

func (s *Server) handleStatisticsFrame(ctx context.Context, peer *wsPeer) {
	total, err := s.deps.Store.CountEvents(ctx)
	if err != nil {
		s.deps.Logger.ErrorContext(ctx, "count events", slog.String("error", err.Error()))
		_ = writeWSError(peer, "store query failed")
		return
	}
	stats := s.deps.Hub.Stats()

	_ = peer.writeFrame(wsFrame{
		Type: frameStatistics,
		Data: mustJSON(map[string]any{
			"total_events":       total,
			"active_subscribers": stats.ActiveSubscribers,
			"events_published":   stats.EventsPublished,
		}),
	})
}

func writeWSError(peer *wsPeer, message string) error {
	return peer.writeFrame(wsFrame{
		Type: frameError,
		Data: mustJSON(map[string]string{"message": message}),
	})
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
