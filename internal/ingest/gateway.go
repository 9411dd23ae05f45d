// Package ingest implements the hook gateway: the short-lived process the
// agent runtime invokes around each tool call. It reads one JSON payload
// from stdin, validates and persists the resulting event, consults the deny
// rules, and writes a single decision object to stdout.
//
// The gateway never blocks the agent on its own failures: validation and
// persistence errors degrade to a proceed decision that carries the error
// in metadata. Only a matched deny rule produces a non-zero exit code.
package ingest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hookline/hookline/internal/bridge"
	"github.com/hookline/hookline/internal/logging"
	"github.com/hookline/hookline/internal/policy"
	"github.com/hookline/hookline/internal/store"
	"github.com/hookline/hookline/pkg/schema"
)

// Gateway wires the validation, policy, storage, and bridge stages behind
// a single Process call.
type Gateway struct {
	validator *schema.InputValidator
	store     store.EventStore
	evaluator *policy.Evaluator
	notifier  bridge.Notifier
	logger    *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewGateway builds a gateway. A nil notifier disables live delivery and a
// nil evaluator disables deny rules.
func NewGateway(s store.EventStore, ev *policy.Evaluator, n bridge.Notifier, logger *slog.Logger) (*Gateway, error) {
	validator, err := schema.NewInputValidator()
	if err != nil {
		return nil, err
	}
	if n == nil {
		n = bridge.NopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		validator: validator,
		store:     s,
		evaluator: ev,
		notifier:  n,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}, nil
}

// Process handles one hook invocation: decode stdin, validate, persist,
// evaluate rules, emit the decision on stdout. The returned value is the
// process exit code (0 proceed, 1 deny).
func (g *Gateway) Process(ctx context.Context, eventType string, stdin io.Reader, stdout io.Writer) int {
	decision := g.run(ctx, eventType, stdin)

	if err := json.NewEncoder(stdout).Encode(decision); err != nil {
		g.logger.ErrorContext(ctx, "write decision", slog.String("error", err.Error()))
	}
	return decision.ExitCode()
}

func (g *Gateway) run(ctx context.Context, rawType string, stdin io.Reader) schema.Decision {
	eventType, known := schema.ParseEventType(rawType)
	if !known {
		g.logger.DebugContext(ctx, "unknown hook type folded to custom",
			slog.String("hook_type", rawType))
	}
	ctx = logging.WithHookType(ctx, string(eventType))

	var raw map[string]any
	if err := json.NewDecoder(stdin).Decode(&raw); err != nil {
		g.logger.WarnContext(ctx, "malformed hook payload", slog.String("error", err.Error()))
		return proceedDespite(schema.NewError(schema.ErrCodeValidation, "payload is not valid JSON").WithCause(err))
	}

	in, err := g.validator.Validate(raw)
	if err != nil {
		g.logger.WarnContext(ctx, "payload failed validation", slog.String("error", err.Error()))
		return proceedDespite(err)
	}

	event := schema.EventFromInput(eventType, in)
	event.ID = g.newID()
	event.CreatedAt = g.eventTime(in)
	Enrich(event, in)

	ctx = logging.WithIDs(ctx, event.SessionID, event.ID, string(eventType))

	decision := schema.Decision{Proceed: true}
	if g.evaluator != nil {
		d, perr := g.evaluator.Evaluate(ctx, event)
		if perr != nil {
			g.logger.WarnContext(ctx, "policy evaluation failed", slog.String("error", perr.Error()))
		} else {
			decision = d
		}
	}
	if !decision.Proceed {
		event.Metadata = noteDenial(event.Metadata, decision.Reason)
	}

	seq, err := store.ShieldedAppend(ctx, g.store, event)
	if err != nil {
		if schema.CodeOf(err) == schema.ErrCodePersistence {
			g.logger.ErrorContext(ctx, "event not persisted", slog.String("error", err.Error()))
			return proceedDespite(err)
		}
		// Commit landed before a cancellation was observed. The event
		// is durable, so the decision stands.
		g.logger.WarnContext(ctx, "append raced cancellation", slog.String("error", err.Error()))
	}
	g.logger.InfoContext(ctx, "event recorded", slog.Int64("seq", seq))

	g.notify(ctx, event)

	return decision
}

// eventTime prefers the payload's own timestamp so events keep the
// runtime's ordering even when the gateway is invoked late.
func (g *Gateway) eventTime(in *schema.HookInput) time.Time {
	if ts, ok := in.Time(); ok {
		return ts.UTC()
	}
	return g.now()
}

func (g *Gateway) notify(ctx context.Context, event *schema.HookEvent) {
	if err := g.notifier.Notify(ctx, event); err != nil {
		g.logger.DebugContext(ctx, "live delivery skipped", slog.String("error", err.Error()))
	}
}

// proceedDespite wraps an internal failure in a proceed decision so the
// agent runtime is never blocked by the observer's own errors.
func proceedDespite(err error) schema.Decision {
	d := schema.Decision{Proceed: true}
	d.Note("error", err.Error())
	d.Note("error_code", schema.CodeOf(err))
	return d
}

func noteDenial(metadata map[string]any, reason string) map[string]any {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["denied"] = true
	metadata["deny_reason"] = reason
	return metadata
}
