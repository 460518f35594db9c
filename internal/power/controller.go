package power

import (
	"errors"
	"fmt"
	"sync"
)

// Voltage ranges accepted by SetVoltage, in millivolts.
const (
	DCDCMinMillivolts  = 700
	DCDCMaxMillivolts  = 3500
	DCDCStepMillivolts = 25

	LDOMinMillivolts  = 1800
	LDOMaxMillivolts  = 3300
	LDOStepMillivolts = 100
)

// BatteryMillivoltsPerLSB is the battery ADC scale.
const BatteryMillivoltsPerLSB = 1.1

// ErrVoltageRange is returned by SetVoltage for targets the rail cannot encode.
var ErrVoltageRange = errors.New("voltage out of range")

// Controller operates the rails described by a RailTable.
//
// Register transactions are serialized, and a read-modify-write holds the
// lock across both halves, so a concurrent reader never sees a torn update
// and two rails sharing a register never clobber each other.
type Controller struct {
	mu    sync.Mutex
	bus   Bus
	rails *RailTable
}

// NewController creates a Controller for the given bus and rails.
func NewController(bus Bus, rails *RailTable) *Controller {
	return &Controller{bus: bus, rails: rails}
}

func (c *Controller) rail(id RailID) (Rail, error) {
	r, ok := c.rails.Lookup(id)
	if !ok {
		return Rail{}, fmt.Errorf("%w: %s", ErrUnknownRail, id)
	}
	return r, nil
}

// update rewrites only the bits in mask. Caller holds c.mu.
func (c *Controller) update(reg, mask, bits uint8) error {
	v, err := c.bus.ReadRegister(reg)
	if err != nil {
		return err
	}
	v = v&^mask | bits&mask
	return c.bus.WriteRegister(reg, v)
}

// SetEnabled switches a rail on or off without touching other rails that
// share its control register.
func (c *Controller) SetEnabled(id RailID, on bool) error {
	r, err := c.rail(id)
	if err != nil {
		return err
	}
	var bits uint8
	if on {
		bits = r.EnableMask
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.update(r.ControlRegister, r.EnableMask, bits)
}

// Enabled reports whether a rail is switched on.
func (c *Controller) Enabled(id RailID) (bool, error) {
	r, err := c.rail(id)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := c.bus.ReadRegister(r.ControlRegister)
	if err != nil {
		return false, err
	}
	return v&r.EnableMask != 0, nil
}

// ReadVoltageRaw returns the rail's voltage setting as stored by the PMIC.
// DCDC rails read their own register whole; LDO2 and LDO3 take the high and
// low nibble of the shared register.
func (c *Controller) ReadVoltageRaw(id RailID) (uint8, error) {
	r, err := c.rail(id)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	v, err := c.bus.ReadRegister(r.VoltageRegister)
	c.mu.Unlock()
	if err != nil {
		return 0, err
	}
	if r.Kind == KindLDO23 {
		return v & r.VoltageMask >> r.voltageShift(), nil
	}
	return v, nil
}

// ReadVoltageScaled returns the rail voltage in millivolts.
func (c *Controller) ReadVoltageScaled(id RailID) (uint16, error) {
	r, err := c.rail(id)
	if err != nil {
		return 0, err
	}
	raw, err := c.ReadVoltageRaw(id)
	if err != nil {
		return 0, err
	}
	return ScaleVoltage(r.Kind, raw), nil
}

// SetVoltage programs a rail's output voltage. Targets between steps round
// down to the next encodable value.
func (c *Controller) SetVoltage(id RailID, millivolts uint16) error {
	r, err := c.rail(id)
	if err != nil {
		return err
	}
	raw, err := UnscaleVoltage(r.Kind, millivolts)
	if err != nil {
		return fmt.Errorf("%s: %w", id, err)
	}
	if raw > r.VoltageMask>>r.voltageShift() {
		return fmt.Errorf("%w: %s cannot encode %d mV", ErrVoltageRange, id, millivolts)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.update(r.VoltageRegister, r.VoltageMask, raw<<r.voltageShift())
}

// ReadBatteryRaw assembles the 12-bit battery ADC value: the high register
// holds bits 11..4 and the low nibble of the next register holds bits 3..0.
func (c *Controller) ReadBatteryRaw() (uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hi, err := c.bus.ReadRegister(regBatteryVoltageHigh)
	if err != nil {
		return 0, err
	}
	lo, err := c.bus.ReadRegister(regBatteryVoltageLow)
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<4 | uint16(lo&0x0F), nil
}

// ReadBatteryVoltage returns the battery voltage in millivolts.
func (c *Controller) ReadBatteryVoltage() (float32, error) {
	raw, err := c.ReadBatteryRaw()
	if err != nil {
		return 0, err
	}
	return float32(BatteryMillivolts(raw)), nil
}

// BatteryMillivolts scales a raw battery ADC reading.
func BatteryMillivolts(raw uint16) float64 {
	return float64(raw) * BatteryMillivoltsPerLSB
}

// ScaleVoltage converts a raw setting to millivolts.
func ScaleVoltage(kind Kind, raw uint8) uint16 {
	if kind == KindLDO23 {
		return uint16(raw)*LDOStepMillivolts + LDOMinMillivolts
	}
	return uint16(raw)*DCDCStepMillivolts + DCDCMinMillivolts
}

// UnscaleVoltage is the inverse of ScaleVoltage for the range a rail kind
// accepts.
func UnscaleVoltage(kind Kind, millivolts uint16) (uint8, error) {
	lo, hi, step := uint16(DCDCMinMillivolts), uint16(DCDCMaxMillivolts), uint16(DCDCStepMillivolts)
	if kind == KindLDO23 {
		lo, hi, step = LDOMinMillivolts, LDOMaxMillivolts, LDOStepMillivolts
	}
	if millivolts < lo || millivolts > hi {
		return 0, fmt.Errorf("%w: %d mV not in [%d, %d] for %s", ErrVoltageRange, millivolts, lo, hi, kind)
	}
	return uint8((millivolts - lo) / step), nil
}
