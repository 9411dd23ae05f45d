package ingest

import (
	"strings"

	"github.com/hookline/hookline/pkg/schema"
)

// complexity buckets for spawned agent tasks, keyed off prompt length.
const (
	complexityLow    = "low"
	complexityMedium = "medium"
	complexityHigh   = "high"
)

// Enrich attaches per-hook derived metadata to the event. The input is the
// validated payload the event was built from.
func Enrich(event *schema.HookEvent, in *schema.HookInput) {
	notes := map[string]any{}

	switch event.EventType {
	case schema.EventPreCommand, schema.EventPostCommand:
		if event.Command != "" {
			notes["command_length"] = len(event.Command)
		}
		if event.EventType == schema.EventPostCommand && event.Output != "" {
			notes["output_length"] = len(event.Output)
		}
	case schema.EventPreEdit, schema.EventPostEdit:
		notes["file_count"] = len(event.FilePaths)
	case schema.EventPreAgentSpawn, schema.EventPostAgentSpawn:
		task := taskDescription(in)
		if task != "" {
			words := len(strings.Fields(task))
			notes["task_length"] = len(task)
			notes["word_count"] = words
			notes["complexity"] = complexityFor(words)
		}
	case schema.EventPromptSubmitted:
		if prompt, ok := in.ToolInput["prompt"].(string); ok && prompt != "" {
			notes["prompt_length"] = len(prompt)
		}
	}

	if len(notes) == 0 {
		return
	}
	if event.Metadata == nil {
		event.Metadata = notes
		return
	}
	for k, v := range notes {
		event.Metadata[k] = v
	}
}

func taskDescription(in *schema.HookInput) string {
	if in == nil || in.ToolInput == nil {
		return ""
	}
	for _, key := range []string{"description", "prompt"} {
		if s, ok := in.ToolInput[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func complexityFor(words int) string {
	switch {
	case words > 100:
		return complexityHigh
	case words > 30:
		return complexityMedium
	default:
		return complexityLow
	}
}
