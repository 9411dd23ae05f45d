package hub

import (
	"sync"
	"sync/atomic"

	"github.com/hookline/hookline/pkg/schema"
)

// DefaultQueueCapacity bounds a subscriber's outbound queue when the
// configured capacity is zero or negative.
const DefaultQueueCapacity = 200

// Subscriber is a live connection handle. It is owned by the hub for its
// lifetime: the hub is the only sender and closer of its queue, the
// connection's writer goroutine the only receiver.
type Subscriber struct {
	id uint64
	ch chan *schema.HookEvent
}

// Events returns the subscriber's outbound queue. The channel is closed on
// Unsubscribe.
func (s *Subscriber) Events() <-chan *schema.HookEvent {
	return s.ch
}

// MemoryHub is the in-process Broadcaster. The subscriber registry is
// mutated only under the hub's own lock — connection handlers never touch
// it directly. The hub holds no event history; backlog replay goes to the
// store.
type MemoryHub struct {
	mu       sync.Mutex
	subs     map[uint64]*Subscriber
	queueCap int

	nextID    atomic.Uint64
	published atomic.Int64
}

// NewMemoryHub creates a hub whose subscribers get bounded queues of the
// given capacity.
func NewMemoryHub(queueCap int) *MemoryHub {
	if queueCap <= 0 {
		queueCap = DefaultQueueCapacity
	}
	return &MemoryHub{
		subs:     make(map[uint64]*Subscriber),
		queueCap: queueCap,
	}
}

// Subscribe registers a new live connection with an empty outbound queue.
func (h *MemoryHub) Subscribe() *Subscriber {
	sub := &Subscriber{
		id: h.nextID.Add(1),
		ch: make(chan *schema.HookEvent, h.queueCap),
	}
	h.mu.Lock()
	h.subs[sub.id] = sub
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes a connection and discards its undelivered events.
// Safe to call more than once.
func (h *MemoryHub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub.id]; !ok {
		return
	}
	delete(h.subs, sub.id)
	close(sub.ch)
}

// Publish enqueues the event onto every live subscriber's queue. A full
// queue drops that subscriber's oldest item to make room; other subscribers
// are unaffected and the caller never blocks.
func (h *MemoryHub) Publish(event *schema.HookEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		select {
		case sub.ch <- event:
			continue
		default:
		}
		// Queue full: evict the oldest entry for this subscriber only.
		// The reader may have drained in between, so both selects stay
		// non-blocking.
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
	h.published.Add(1)
}

// Stats reports the active subscriber count and total events published.
func (h *MemoryHub) Stats() schema.StreamStats {
	h.mu.Lock()
	active := len(h.subs)
	h.mu.Unlock()
	return schema.StreamStats{
		ActiveSubscribers: active,
		EventsPublished:   h.published.Load(),
	}
}

var _ Broadcaster = (*MemoryHub)(nil)
