package store

import (
	"context"
	"time"

	"github.com/hookline/hookline/pkg/schema"
)

// EventStore defines the persistence contract for the append-only hook
// event log. All implementations must be safe for concurrent use, including
// concurrent writers in separate OS processes sharing one backing file.
type EventStore interface {
	// Append persists one event and returns its store-assigned sequence
	// number. Atomic: a failed append leaves no trace, a successful one a
	// fully formed row.
	Append(ctx context.Context, event *schema.HookEvent) (int64, error)

	// Queries. A failed query returns nothing plus an error, never a
	// truncated success.
	Recent(ctx context.Context, limit int) ([]*schema.HookEvent, error)
	ByType(ctx context.Context, eventType schema.EventType, limit int) ([]*schema.HookEvent, error)
	BySession(ctx context.Context, sessionID string) ([]*schema.HookEvent, error)
	InRange(ctx context.Context, start, end time.Time) ([]*schema.HookEvent, error)
	GetEvent(ctx context.Context, id string) (*schema.HookEvent, error)
	CountEvents(ctx context.Context) (int64, error)

	// PruneBefore deletes events with created_at older than cutoff and
	// returns how many rows were removed. Retention only; nothing else in
	// the pipeline deletes.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Maintenance
	Migrate(ctx context.Context) error
	Vacuum(ctx context.Context) error

	// Lifecycle
	Close() error
}
