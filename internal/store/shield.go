package store

import (
	"context"

	"github.com/hookline/hookline/pkg/schema"
)

// ShieldedAppend persists an event with the commit protected from caller
// cancellation. The append runs on a context detached from ctx's cancel
// signal, so a kill arriving mid-commit cannot interrupt it: the row either
// lands fully formed with its seq assigned, or not at all. Cancellation is
// honored only after the commit resolves — the caller gets the committed
// seq together with a STORE_ERROR noting the deferred cancellation.
func ShieldedAppend(ctx context.Context, s EventStore, event *schema.HookEvent) (int64, error) {
	seq, err := s.Append(context.WithoutCancel(ctx), event)
	if err != nil {
		return 0, err
	}
	if cerr := ctx.Err(); cerr != nil {
		return seq, schema.NewError(schema.ErrCodeStore,
			"append committed before cancellation was honored").
			WithCause(cerr).
			WithDetails(map[string]any{"seq": seq})
	}
	return seq, nil
}
