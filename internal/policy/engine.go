package policy

import "context"

// Engine evaluates a rule expression against a hook event's fields.
// Two implementations: Expr (default, general logic) and CEL (guard-style
// conditions). Rules pick an engine with an "expr:" or "cel:" prefix.
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}
