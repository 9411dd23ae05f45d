package hub

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hookline/hookline/pkg/schema"
)

func event(seq int64) *schema.HookEvent {
	return &schema.HookEvent{
		ID:        fmt.Sprintf("e-%d", seq),
		Seq:       seq,
		EventType: schema.EventPreCommand,
	}
}

func TestPublishSubscribe(t *testing.T) {
	h := NewMemoryHub(8)

	sub := h.Subscribe()
	defer h.Unsubscribe(sub)

	h.Publish(event(1))

	select {
	case got := <-sub.Events():
		assert.Equal(t, int64(1), got.Seq)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublish_NoSubscribers(t *testing.T) {
	h := NewMemoryHub(8)

	// Must not block or panic with an empty registry.
	h.Publish(event(1))
	assert.Equal(t, int64(1), h.Stats().EventsPublished)
}

func TestPublish_DropsOldestForFullQueue(t *testing.T) {
	h := NewMemoryHub(3)

	sub := h.Subscribe()
	defer h.Unsubscribe(sub)

	for seq := int64(1); seq <= 5; seq++ {
		h.Publish(event(seq))
	}

	// Capacity 3, five published: 1 and 2 were evicted, 3..5 remain in order.
	var got []int64
	for i := 0; i < 3; i++ {
		select {
		case e := <-sub.Events():
			got = append(got, e.Seq)
		case <-time.After(time.Second):
			t.Fatal("timed out draining queue")
		}
	}
	assert.Equal(t, []int64{3, 4, 5}, got)

	select {
	case e := <-sub.Events():
		t.Fatalf("unexpected extra event: %+v", e)
	default:
	}
}

func TestPublish_SaturatedSubscriberDoesNotAffectOthers(t *testing.T) {
	h := NewMemoryHub(1000)

	stuck := h.Subscribe() // never reads
	defer h.Unsubscribe(stuck)

	// Saturate the stuck subscriber's queue before anyone else connects.
	for seq := int64(-1000); seq < 0; seq++ {
		h.Publish(event(seq))
	}

	other := h.Subscribe()
	defer h.Unsubscribe(other)

	start := time.Now()
	for seq := int64(1); seq <= 1000; seq++ {
		h.Publish(event(seq))
	}
	assert.Less(t, time.Since(start), 5*time.Second, "publish must never block on the stuck subscriber")

	// The other subscriber received every one of the 1000 events in order.
	for want := int64(1); want <= 1000; want++ {
		select {
		case e := <-other.Events():
			require.Equal(t, want, e.Seq)
		default:
			t.Fatalf("missing event %d for the active subscriber", want)
		}
	}
}

func TestUnsubscribe_DiscardsQueueAndCloses(t *testing.T) {
	h := NewMemoryHub(8)

	sub := h.Subscribe()
	h.Publish(event(1))
	h.Unsubscribe(sub)

	// Queued-but-undelivered events are still readable until drained, then
	// the closed channel reports no more.
	for {
		if _, ok := <-sub.Events(); !ok {
			break
		}
	}

	// Double unsubscribe is a no-op.
	h.Unsubscribe(sub)

	assert.Equal(t, 0, h.Stats().ActiveSubscribers)
}

func TestStats(t *testing.T) {
	h := NewMemoryHub(8)

	a := h.Subscribe()
	b := h.Subscribe()
	h.Publish(event(1))
	h.Publish(event(2))

	stats := h.Stats()
	assert.Equal(t, 2, stats.ActiveSubscribers)
	assert.Equal(t, int64(2), stats.EventsPublished)

	h.Unsubscribe(a)
	h.Unsubscribe(b)
	assert.Equal(t, 0, h.Stats().ActiveSubscribers)
}
