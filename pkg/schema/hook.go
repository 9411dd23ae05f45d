package schema

// HookInput is the raw payload a hook invocation reads from stdin.
// tool_input carries tool-specific keys (command, file_path, file_paths,
// prompt, description, output); unrecognized keys pass through untouched.
type HookInput struct {
	ToolName  string         `json:"tool_name,omitempty"`
	ToolInput map[string]any `json:"tool_input,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// Decision is the gateway's verdict, written to stdout as JSON.
// Proceed defaults to true for every internal failure; only a matched
// policy rule sets it to false.
type Decision struct {
	Proceed  bool           `json:"proceed"`
	Reason   string         `json:"reason,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ExitCode maps the decision onto the process exit status contract:
// 0 means proceed, 1 means block.
func (d Decision) ExitCode() int {
	if d.Proceed {
		return 0
	}
	return 1
}

// Note records an internal error on the decision without flipping Proceed.
func (d *Decision) Note(key string, value any) {
	if d.Metadata == nil {
		d.Metadata = make(map[string]any)
	}
	d.Metadata[key] = value
}
