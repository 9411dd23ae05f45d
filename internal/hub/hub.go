package hub

import (
	"github.com/hookline/hookline/pkg/schema"
)

// Broadcaster provides fan-out of newly committed hook events to live
// subscribers. Delivery is best-effort: a slow subscriber loses its own
// oldest queued events, never anyone else's, and publishing never blocks.
type Broadcaster interface {
	Subscribe() *Subscriber
	Unsubscribe(sub *Subscriber)
	Publish(event *schema.HookEvent)
	Stats() schema.StreamStats
}
