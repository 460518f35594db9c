package logic

import "time"

// EventForTransition returns the event for a status change from old to new.
// Moving to Unknown, or not moving at all, reports nothing.
func EventForTransition(old, new Status) Event {
	if old == new {
		return EventNone
	}
	switch new {
	case StatusSprung:
		return EventSprung
	case StatusSet:
		return EventSet
	default:
		return EventNone
	}
}

// ApplyHeartbeat upgrades EventNone to EventHeartbeat when the next wake would
// land past the heartbeat interval. The node cannot wake exactly on the
// boundary, so it looks one sleep interval ahead: the gap between uplinks
// never exceeds heartbeatInterval by more than one sleep cycle.
// Any other event is returned unchanged.
func ApplyHeartbeat(event Event, now, lastUplinkAt time.Time, sleepInterval, heartbeatInterval time.Duration) Event {
	if event != EventNone {
		return event
	}
	elapsed := now.Sub(lastUplinkAt)
	if elapsed+sleepInterval > heartbeatInterval {
		return EventHeartbeat
	}
	return EventNone
}
