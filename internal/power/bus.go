// Package power drives the AXP192 power-management IC: switchable rails,
// rail voltages and the battery voltage ADC.
// The real bus implementations use Linux I2C or a TinyGo-style I2C peripheral.
// The fake implementation allows testing without hardware.
package power

import "fmt"

// Bus performs single-byte register transactions against the PMIC.
type Bus interface {
	ReadRegister(reg uint8) (uint8, error)
	WriteRegister(reg uint8, value uint8) error
}

// Address is the AXP192 7-bit I2C address.
const Address = 0x34

// BusError reports a failed register transaction. Bus implementations return
// it and the Controller passes it up unchanged.
type BusError struct {
	Op       string // "read" or "write"
	Register uint8
	Err      error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("pmic %s reg 0x%02X: %v", e.Op, e.Register, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}
