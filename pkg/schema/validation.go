package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// hookInputSchemaJSON is the JSON Schema for raw hook payload validation.
// Embedded as a constant to avoid filesystem dependencies.
const hookInputSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://hookline.dev/schemas/hook-input.json",
  "type": "object",
  "properties": {
    "tool_name": { "type": "string" },
    "session_id": { "type": "string" },
    "timestamp": { "type": "string" },
    "tool_input": {
      "type": "object",
      "properties": {
        "command": { "type": "string" },
        "output": { "type": "string" },
        "file_path": { "type": "string" },
        "file_paths": {
          "type": "array",
          "items": { "type": "string" }
        },
        "prompt": { "type": "string" },
        "description": { "type": "string" }
      }
    }
  }
}`

// InputValidator validates raw hook payloads against the embedded JSON
// Schema. It is safe for concurrent use and fully side-effect free: a given
// payload always yields either a well-formed HookInput or a VALIDATION_ERROR
// naming the offending field.
type InputValidator struct {
	schema *jsonschema.Schema
}

// NewInputValidator compiles the hook input schema once.
func NewInputValidator() (*InputValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(hookInputSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal hook input schema: %w", err)
	}
	if err := c.AddResource("https://hookline.dev/schemas/hook-input.json", doc); err != nil {
		return nil, fmt.Errorf("add hook input schema resource: %w", err)
	}
	compiled, err := c.Compile("https://hookline.dev/schemas/hook-input.json")
	if err != nil {
		return nil, fmt.Errorf("compile hook input schema: %w", err)
	}
	return &InputValidator{schema: compiled}, nil
}

// Validate checks a raw payload and decodes it into a HookInput.
func (v *InputValidator) Validate(raw map[string]any) (*HookInput, error) {
	if raw == nil {
		return nil, NewError(ErrCodeValidation, "payload is nil")
	}

	doc, err := toJSONValue(raw)
	if err != nil {
		return nil, NewError(ErrCodeValidation, "failed to serialize payload").WithCause(err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return nil, toHookError(err)
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return nil, NewError(ErrCodeValidation, "failed to serialize payload").WithCause(err)
	}
	in := &HookInput{}
	if err := json.Unmarshal(b, in); err != nil {
		return nil, NewError(ErrCodeValidation, "failed to decode payload").WithCause(err)
	}
	return in, nil
}

// Time parses the advisory client timestamp. The second return is false
// when the field is absent or malformed; callers fall back to their own
// clock rather than rejecting the event.
func (in *HookInput) Time() (time.Time, bool) {
	if in.Timestamp == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, in.Timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// EventFromInput builds the persistable event fields from a validated
// payload. It assigns no identity and reads no clocks — the gateway owns
// both — and never fails: validation already ran.
func EventFromInput(eventType EventType, in *HookInput) *HookEvent {
	e := &HookEvent{
		EventType: eventType,
		ToolName:  in.ToolName,
		SessionID: in.SessionID,
	}
	if in.ToolInput == nil {
		return e
	}
	if cmd, ok := in.ToolInput["command"].(string); ok {
		e.Command = cmd
	}
	if out, ok := in.ToolInput["output"].(string); ok {
		e.Output = out
	}
	e.FilePaths = filePathsFrom(in.ToolInput)
	return e
}

// filePathsFrom accepts both the single file_path and plural file_paths
// shapes emitted by different tool kinds.
func filePathsFrom(toolInput map[string]any) []string {
	if p, ok := toolInput["file_path"].(string); ok && p != "" {
		return []string{p}
	}
	raw, ok := toolInput["file_paths"].([]any)
	if !ok {
		return nil
	}
	paths := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			paths = append(paths, s)
		}
	}
	return paths
}

// toJSONValue round-trips a Go value through JSON encoding so numeric
// values become json.Number, as the jsonschema library requires.
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toHookError converts a jsonschema.ValidationError into a HookError that
// names the offending field.
func toHookError(err error) *HookError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return NewError(ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return NewError(ErrCodeValidation, verr.Error())
	}

	field := strings.Join(verr.InstanceLocation, "/")
	if len(verr.Causes) > 0 {
		field = strings.Join(verr.Causes[0].InstanceLocation, "/")
	}

	msg := violations[0]
	if len(violations) > 1 {
		msg = fmt.Sprintf("validation failed with %d errors", len(violations))
	}
	return NewError(ErrCodeValidation, msg).
		WithField(field).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf error
// messages with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
