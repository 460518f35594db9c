package power

import "fmt"

// RailSetting is one step of the cold-boot rail sequence.
type RailSetting struct {
	Rail       RailID
	On         bool
	Millivolts uint16 // ignored when On is false
}

// BootstrapPlan is the T-Beam rail setup applied once after a reset.
//
// DCDC1 feeds the OLED and sits on the same I2C bus as the PMIC; it must stay
// on, or the bus connection to the PMIC can be lost.
func BootstrapPlan() []RailSetting {
	return []RailSetting{
		{Rail: DCDC1, On: true, Millivolts: 2500},
		{Rail: DCDC2, On: false},
		{Rail: DCDC3, On: true, Millivolts: 3300},
		{Rail: LDO2, On: true, Millivolts: 3300},
		{Rail: LDO3, On: true, Millivolts: 3300},
	}
}

// BootstrapError reports a failed step of the cold-boot rail sequence.
// The node cannot run safely after one.
type BootstrapError struct {
	Rail RailID
	Err  error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("bootstrap %s: %v", e.Rail, e.Err)
}

func (e *BootstrapError) Unwrap() error {
	return e.Err
}

// Bootstrap applies plan in order. Each enabled rail is switched on before
// its voltage is programmed. The first failure stops the sequence.
func Bootstrap(c *Controller, plan []RailSetting) error {
	for _, s := range plan {
		if err := c.SetEnabled(s.Rail, s.On); err != nil {
			return &BootstrapError{Rail: s.Rail, Err: err}
		}
		if !s.On {
			continue
		}
		if err := c.SetVoltage(s.Rail, s.Millivolts); err != nil {
			return &BootstrapError{Rail: s.Rail, Err: err}
		}
	}
	return nil
}
