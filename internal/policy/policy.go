// Package policy evaluates deny rules against validated hook events.
//
// Rules are boolean expressions in either Expr or CEL. An expression
// prefixed "cel:" runs on the CEL engine, "expr:" (or no prefix) on the
// Expr engine. A rule that evaluates true denies the event; the first
// matching rule wins.
package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/hookline/hookline/pkg/schema"
)

// Rule is a single deny rule. When is the boolean expression, Reason is
// returned to the agent runtime when the rule matches.
type Rule struct {
	Name   string `json:"name"`
	When   string `json:"when"`
	Reason string `json:"reason,omitempty"`
}

// LoadRules reads a JSON array of rules from path. A missing file is not
// an error: it yields an empty rule set.
func LoadRules(path string) ([]Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, schema.NewErrorf(schema.ErrCodePolicy, "read rules file %s: %s", path, err.Error()).WithCause(err)
	}

	var rules []Rule
	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodePolicy, "parse rules file %s: %s", path, err.Error()).WithCause(err)
	}

	for i, r := range rules {
		if r.When == "" {
			return nil, schema.NewErrorf(schema.ErrCodePolicy, "rule %d (%s) has no expression", i, r.Name)
		}
	}
	return rules, nil
}

// Evaluator runs an ordered rule set against events.
type Evaluator struct {
	rules  []Rule
	expr   *ExprEngine
	cel    *CELEngine
	logger *slog.Logger
}

// NewEvaluator builds an evaluator over the given rules. Both engines are
// created up front so a bad environment fails fast rather than at first
// evaluation.
func NewEvaluator(rules []Rule, logger *slog.Logger) (*Evaluator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	celEngine, err := NewCELEngine()
	if err != nil {
		return nil, err
	}
	return &Evaluator{
		rules:  rules,
		expr:   NewExprEngine(),
		cel:    celEngine,
		logger: logger,
	}, nil
}

// Evaluate runs the rules in order against the event. The first rule whose
// expression is true produces a deny decision carrying the rule's reason.
// An expression error never blocks the agent: the failing rule is logged,
// skipped, and evaluation continues.
func (ev *Evaluator) Evaluate(ctx context.Context, event *schema.HookEvent) (schema.Decision, error) {
	if len(ev.rules) == 0 {
		return schema.Decision{Proceed: true}, nil
	}

	data := eventData(event)

	for _, r := range ev.rules {
		matched, err := ev.evalRule(ctx, r, data)
		if err != nil {
			ev.logger.WarnContext(ctx, "policy rule failed, skipping",
				slog.String("rule", r.Name),
				slog.String("error", err.Error()))
			continue
		}
		if matched {
			reason := r.Reason
			if reason == "" {
				reason = fmt.Sprintf("denied by rule %s", r.Name)
			}
			d := schema.Decision{Proceed: false, Reason: reason}
			d.Note("rule", r.Name)
			return d, nil
		}
	}
	return schema.Decision{Proceed: true}, nil
}

func (ev *Evaluator) evalRule(ctx context.Context, r Rule, data map[string]any) (bool, error) {
	engine, expression := ev.dispatch(r.When)

	result, err := engine.Evaluate(ctx, expression, data)
	if err != nil {
		return false, err
	}

	b, ok := result.(bool)
	if !ok {
		return false, schema.NewErrorf(schema.ErrCodePolicy,
			"rule %s returned %T, want bool", r.Name, result)
	}
	return b, nil
}

// dispatch selects the engine by expression prefix. Expr is the default.
func (ev *Evaluator) dispatch(expression string) (Engine, string) {
	if rest, ok := strings.CutPrefix(expression, "cel:"); ok {
		return ev.cel, strings.TrimSpace(rest)
	}
	if rest, ok := strings.CutPrefix(expression, "expr:"); ok {
		return ev.expr, strings.TrimSpace(rest)
	}
	return ev.expr, expression
}

// eventData flattens the event into the variable set both engines expose.
func eventData(event *schema.HookEvent) map[string]any {
	filePaths := event.FilePaths
	if filePaths == nil {
		filePaths = []string{}
	}
	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return map[string]any{
		"event_type": string(event.EventType),
		"tool_name":  event.ToolName,
		"command":    event.Command,
		"output":     event.Output,
		"session_id": event.SessionID,
		"file_paths": filePaths,
		"metadata":   metadata,
	}
}
