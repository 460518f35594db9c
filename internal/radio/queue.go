package radio

import (
	"log"

	"github.com/sweeney/trap-sensor/internal/codec"
	"github.com/sweeney/trap-sensor/internal/logic"
)

// uplink is a payload waiting for a session.
type uplink struct {
	port      uint8
	payload   []byte
	confirmed bool
}

// heartbeat reports whether u is a trap heartbeat. Every trap uplink carries
// the current status, so a queued heartbeat is superseded by anything newer.
func (u uplink) heartbeat() bool {
	if u.port != StatusPort {
		return false
	}
	m, err := codec.Decode(u.payload)
	return err == nil && m.Event == logic.EventHeartbeat
}

// uplinkQueue holds uplinks while the radio has no session. When full it
// evicts the oldest heartbeat, or the oldest uplink if no heartbeat is
// queued, so trap events outlive a long outage.
// Not safe for concurrent use; the caller must synchronize.
type uplinkQueue struct {
	items    []uplink
	capacity int
	dropped  int // since last drain
}

func newUplinkQueue(capacity int) *uplinkQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &uplinkQueue{
		items:    make([]uplink, 0, capacity),
		capacity: capacity,
	}
}

func (q *uplinkQueue) push(u uplink) {
	if len(q.items) == q.capacity {
		victim := 0
		for i, it := range q.items {
			if it.heartbeat() {
				victim = i
				break
			}
		}
		if q.dropped == 0 {
			log.Printf("radio: queue full (%d uplinks), dropping heartbeat=%v", q.capacity, q.items[victim].heartbeat())
		}
		q.dropped++
		q.items = append(q.items[:victim], q.items[victim+1:]...)
	}
	q.items = append(q.items, u)
}

// drain empties the queue and returns its uplinks, oldest first.
func (q *uplinkQueue) drain() []uplink {
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = make([]uplink, 0, q.capacity)
	if q.dropped > 0 {
		log.Printf("radio: %d uplinks were dropped while queued", q.dropped)
		q.dropped = 0
	}
	return out
}

func (q *uplinkQueue) len() int {
	return len(q.items)
}
