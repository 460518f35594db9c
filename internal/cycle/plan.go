// Package cycle runs one wake cycle of the trap node: it classifies the wake
// cause into an ordered list of actions, executes them, and arms the wake
// sources before deep sleep.
package cycle

import (
	"fmt"

	"github.com/sweeney/trap-sensor/internal/logic"
)

// Action is one step of a wake cycle.
type Action uint8

const (
	// ActionBootstrap configures the PMIC rails after a reset.
	ActionBootstrap Action = iota
	// ActionStartDisplay starts the bounded display session.
	ActionStartDisplay
	// ActionSample reads the trap switch and decides what to report.
	ActionSample
	// ActionReport transmits the uplink if there is anything to report.
	ActionReport
	// ActionPowerDown shuts the radio and switches off the radio and GPS rails.
	ActionPowerDown
	// ActionAwaitDisplay waits for the display session to end.
	ActionAwaitDisplay
	// ActionSleep arms the wake sources and enters deep sleep.
	ActionSleep
)

var actionNames = [...]string{
	ActionBootstrap:    "bootstrap",
	ActionStartDisplay: "start-display",
	ActionSample:       "sample",
	ActionReport:       "report",
	ActionPowerDown:    "power-down",
	ActionAwaitDisplay: "await-display",
	ActionSleep:        "sleep",
}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

// Plan returns the actions for a wake cause, in execution order. Every plan
// ends with ActionSleep.
func Plan(cause logic.WakeCause) []Action {
	switch cause {
	case logic.WakeReset:
		return []Action{ActionBootstrap, ActionSample, ActionReport, ActionPowerDown, ActionSleep}
	case logic.WakeExternal:
		return []Action{ActionStartDisplay, ActionSample, ActionReport, ActionPowerDown, ActionAwaitDisplay, ActionSleep}
	default:
		return []Action{ActionSample, ActionReport, ActionPowerDown, ActionSleep}
	}
}
