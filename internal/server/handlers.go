package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hookline/hookline/pkg/schema"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	limit := clampLimit(queryInt(r, "limit", 0), s.opts.BacklogLimit, maxListLimit)

	events, err := s.deps.Store.Recent(r.Context(), limit)
	if err != nil {
		s.storeError(w, r, "list recent events", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

func (s *Server) handleEventsByType(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("type")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "type query param is required")
		return
	}
	eventType, known := schema.ParseEventType(raw)
	if !known {
		writeError(w, http.StatusBadRequest, "unknown event type: "+raw)
		return
	}
	limit := clampLimit(queryInt(r, "limit", 0), s.opts.BacklogLimit, maxListLimit)

	events, err := s.deps.Store.ByType(r.Context(), eventType, limit)
	if err != nil {
		s.storeError(w, r, "list events by type", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

func (s *Server) handleEventsInRange(w http.ResponseWriter, r *http.Request) {
	start, ok := queryTime(r, "start")
	if !ok {
		writeError(w, http.StatusBadRequest, "start must be an RFC 3339 timestamp")
		return
	}
	end, ok := queryTime(r, "end")
	if !ok {
		writeError(w, http.StatusBadRequest, "end must be an RFC 3339 timestamp")
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end must not precede start")
		return
	}

	events, err := s.deps.Store.InRange(r.Context(), start, end)
	if err != nil {
		s.storeError(w, r, "list events in range", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	event, err := s.deps.Store.GetEvent(r.Context(), id)
	if err != nil {
		if schema.CodeOf(err) == schema.ErrCodeNotFound {
			writeError(w, http.StatusNotFound, "event not found: "+id)
			return
		}
		s.storeError(w, r, "get event", err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	events, err := s.deps.Store.BySession(r.Context(), sessionID)
	if err != nil {
		s.storeError(w, r, "list session events", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"events":     events,
		"count":      len(events),
	})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	total, err := s.deps.Store.CountEvents(r.Context())
	if err != nil {
		s.storeError(w, r, "count events", err)
		return
	}
	stats := s.deps.Hub.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"total_events":       total,
		"active_subscribers": stats.ActiveSubscribers,
		"events_published":   stats.EventsPublished,
	})
}

// handleIngest accepts a committed event from the hook gateway and fans it
// out to live subscribers. The event is already durable on the gateway
// side, so this endpoint only publishes.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var event schema.HookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event payload")
		return
	}
	if event.ID == "" {
		writeError(w, http.StatusBadRequest, "event id is required")
		return
	}

	s.deps.Hub.Publish(&event)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) storeError(w http.ResponseWriter, r *http.Request, action string, err error) {
	s.deps.Logger.ErrorContext(r.Context(), action, slog.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, "store query failed")
}
