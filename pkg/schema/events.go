package schema

import (
	"time"
)

// EventType is the closed tag set for captured hook events.
type EventType string

const (
	EventPromptSubmitted EventType = "prompt_submitted"
	EventPreCommand      EventType = "pre_command"
	EventPostCommand     EventType = "post_command"
	EventPreEdit         EventType = "pre_edit"
	EventPostEdit        EventType = "post_edit"
	EventPreAgentSpawn   EventType = "pre_agent_spawn"
	EventPostAgentSpawn  EventType = "post_agent_spawn"
	EventNotification    EventType = "notification"
	EventCustom          EventType = "custom"
)

var knownEventTypes = map[EventType]struct{}{
	EventPromptSubmitted: {},
	EventPreCommand:      {},
	EventPostCommand:     {},
	EventPreEdit:         {},
	EventPostEdit:        {},
	EventPreAgentSpawn:   {},
	EventPostAgentSpawn:  {},
	EventNotification:    {},
	EventCustom:          {},
}

// ParseEventType maps a raw tag onto the closed set. Unrecognized tags fold
// to EventCustom so new hook kinds flow through the pipeline instead of being
// rejected; the second return reports whether the tag was recognized.
func ParseEventType(raw string) (EventType, bool) {
	et := EventType(raw)
	if _, ok := knownEventTypes[et]; ok {
		return et, true
	}
	return EventCustom, false
}

// EventTypes returns all recognized tags.
func EventTypes() []EventType {
	return []EventType{
		EventPromptSubmitted,
		EventPreCommand,
		EventPostCommand,
		EventPreEdit,
		EventPostEdit,
		EventPreAgentSpawn,
		EventPostAgentSpawn,
		EventNotification,
		EventCustom,
	}
}

// HookEvent is one captured hook invocation or runtime notification.
// Immutable once persisted: Seq is assigned exactly once at commit time and
// defines the global total order. CreatedAt is advisory only — concurrent
// writers race on wall clocks, so it is never used as an ordering key.
type HookEvent struct {
	ID        string         `json:"id"`
	Seq       int64          `json:"seq,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	EventType EventType      `json:"event_type"`
	ToolName  string         `json:"tool_name,omitempty"`
	Command   string         `json:"command,omitempty"`
	Output    string         `json:"output,omitempty"`
	FilePaths []string       `json:"file_paths,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// StreamStats is the broadcast hub's public counter snapshot.
type StreamStats struct {
	ActiveSubscribers int   `json:"active_subscribers"`
	EventsPublished   int64 `json:"events_published"`
}
