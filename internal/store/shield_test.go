package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hookline/hookline/pkg/schema"
)

func TestShieldedAppend_CommitsDespiteCancelledContext(t *testing.T) {
	s := newTestStore(t)
	appendN(t, s, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // signal arrives before the commit even starts

	e := &schema.HookEvent{
		EventType: schema.EventPreCommand,
		ToolName:  "Bash",
		Command:   "rm build/",
		Metadata:  map[string]any{"hook_type": "pre_command"},
	}
	seq, err := ShieldedAppend(ctx, s, e)

	// Cancellation is reported, but only after the commit resolved.
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeStore, schema.CodeOf(err))
	assert.Equal(t, int64(4), seq)

	// The store holds exactly N+1 fully formed rows.
	n, countErr := s.CountEvents(context.Background())
	require.NoError(t, countErr)
	assert.Equal(t, int64(4), n)

	got, getErr := s.GetEvent(context.Background(), e.ID)
	require.NoError(t, getErr)
	assert.Equal(t, "rm build/", got.Command)
	assert.Equal(t, e.Metadata, got.Metadata)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestShieldedAppend_CleanPathPassesThrough(t *testing.T) {
	s := newTestStore(t)

	e := &schema.HookEvent{EventType: schema.EventNotification}
	seq, err := ShieldedAppend(context.Background(), s, e)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
}
