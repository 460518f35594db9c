// Package logic contains the pure decision logic of the trap sensor.
// This package has NO external dependencies (no GPIO, bus, radio, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "fmt"

// Status is the last sampled state of the trap switch.
// The numeric values are part of the uplink wire format.
type Status uint8

const (
	StatusSprung  Status = 0
	StatusSet     Status = 1
	StatusUnknown Status = 2
)

var statusNames = [...]string{
	StatusSprung:  "sprung",
	StatusSet:     "set",
	StatusUnknown: "unknown",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// StatusFromLevel maps the sensor input to a Status.
// The switch pulls the line high when the trap has been sprung.
func StatusFromLevel(asserted bool) Status {
	if asserted {
		return StatusSprung
	}
	return StatusSet
}

// Event is what the node reports in a cycle. It is derived, never stored.
// The numeric values are part of the uplink wire format.
type Event uint8

const (
	EventSprung    Event = 0
	EventSet       Event = 1
	EventHeartbeat Event = 2
	EventNone      Event = 3
)

var eventNames = [...]string{
	EventSprung:    "sprung",
	EventSet:       "set",
	EventHeartbeat: "heartbeat",
	EventNone:      "none",
}

func (e Event) String() string {
	if int(e) < len(eventNames) {
		return eventNames[e]
	}
	return fmt.Sprintf("event(%d)", uint8(e))
}

// WakeCause is the reason the node came out of deep sleep.
type WakeCause uint8

const (
	// WakeReset covers power-on and any reset that did not come from deep sleep.
	WakeReset WakeCause = iota
	// WakeTimer is the periodic duty-cycle timer.
	WakeTimer
	// WakeExternal is the button line.
	WakeExternal
)

func (c WakeCause) String() string {
	switch c {
	case WakeReset:
		return "reset"
	case WakeTimer:
		return "timer"
	case WakeExternal:
		return "button"
	default:
		return fmt.Sprintf("wake(%d)", uint8(c))
	}
}

// ParseWakeCause parses the names produced by WakeCause.String.
func ParseWakeCause(s string) (WakeCause, error) {
	switch s {
	case "reset":
		return WakeReset, nil
	case "timer":
		return WakeTimer, nil
	case "button", "external":
		return WakeExternal, nil
	default:
		return 0, fmt.Errorf("unknown wake cause %q", s)
	}
}
