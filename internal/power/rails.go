package power

import (
	"errors"
	"fmt"
)

// RailID names a switchable PMIC output.
type RailID uint8

const (
	DCDC1 RailID = iota // OLED and shared I2C bus
	DCDC2               // not connected
	DCDC3               // ESP32 core
	LDO2                // LoRa radio
	LDO3                // GPS

	railCount
)

var railNames = [...]string{
	DCDC1: "DCDC1",
	DCDC2: "DCDC2",
	DCDC3: "DCDC3",
	LDO2:  "LDO2",
	LDO3:  "LDO3",
}

func (id RailID) String() string {
	if id < railCount {
		return railNames[id]
	}
	return fmt.Sprintf("rail(%d)", uint8(id))
}

// Kind selects the voltage encoding of a rail.
type Kind uint8

const (
	// KindDCDC rails hold a whole-byte setting: mV = raw*25 + 700.
	KindDCDC Kind = iota
	// KindLDO23 rails hold one nibble of a shared register: mV = raw*100 + 1800.
	KindLDO23
)

func (k Kind) String() string {
	switch k {
	case KindDCDC:
		return "DCDC"
	case KindLDO23:
		return "LDO23"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// AXP192 register map.
const (
	regPowerOutputControl = 0x12
	regDCDC2Voltage       = 0x23
	regDCDC1Voltage       = 0x26
	regDCDC3Voltage       = 0x27
	regLDO23Voltage       = 0x28
	regBatteryVoltageHigh = 0x78
	regBatteryVoltageLow  = 0x79
)

// Rail describes where a rail's enable bit and voltage setting live.
type Rail struct {
	ID              RailID
	ControlRegister uint8
	EnableMask      uint8
	Kind            Kind

	VoltageRegister uint8
	// VoltageMask selects the rail's voltage field within VoltageRegister.
	// LDO23 rails use 0xF0 (LDO2) or 0x0F (LDO3).
	VoltageMask uint8
}

// voltageShift is the bit position of the rail's voltage field.
func (r Rail) voltageShift() uint {
	var s uint
	for m := r.VoltageMask; m != 0 && m&1 == 0; m >>= 1 {
		s++
	}
	return s
}

// DefaultRails is the AXP192 wiring on the TTGO T-Beam. All five enable bits
// live in one register, and LDO2/LDO3 share a voltage register.
func DefaultRails() []Rail {
	return []Rail{
		{ID: DCDC1, ControlRegister: regPowerOutputControl, EnableMask: 1 << 0, Kind: KindDCDC, VoltageRegister: regDCDC1Voltage, VoltageMask: 0x7F},
		{ID: DCDC2, ControlRegister: regPowerOutputControl, EnableMask: 1 << 4, Kind: KindDCDC, VoltageRegister: regDCDC2Voltage, VoltageMask: 0x3F},
		{ID: DCDC3, ControlRegister: regPowerOutputControl, EnableMask: 1 << 1, Kind: KindDCDC, VoltageRegister: regDCDC3Voltage, VoltageMask: 0x7F},
		{ID: LDO2, ControlRegister: regPowerOutputControl, EnableMask: 1 << 2, Kind: KindLDO23, VoltageRegister: regLDO23Voltage, VoltageMask: 0xF0},
		{ID: LDO3, ControlRegister: regPowerOutputControl, EnableMask: 1 << 3, Kind: KindLDO23, VoltageRegister: regLDO23Voltage, VoltageMask: 0x0F},
	}
}

// Table validation errors.
var (
	ErrUnknownRail = errors.New("unknown rail")
	ErrDuplicate   = errors.New("duplicate rail")
	ErrEmptyMask   = errors.New("rail has empty mask")
	ErrMaskOverlap = errors.New("rail masks overlap on shared register")
	ErrInvalidKind = errors.New("invalid rail kind")
)

// RailTable is a validated lookup from rail ID to descriptor.
type RailTable struct {
	rails map[RailID]Rail
}

// NewRailTable validates the descriptors. Two rails may share a register
// only if their bits do not overlap; otherwise toggling one would clobber
// the other.
func NewRailTable(rails ...Rail) (*RailTable, error) {
	t := &RailTable{rails: make(map[RailID]Rail, len(rails))}
	controlBits := make(map[uint8]uint8)
	voltageBits := make(map[uint8]uint8)

	for _, r := range rails {
		if r.ID >= railCount {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRail, r.ID)
		}
		if _, ok := t.rails[r.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, r.ID)
		}
		if r.Kind != KindDCDC && r.Kind != KindLDO23 {
			return nil, fmt.Errorf("%w: %s has %s", ErrInvalidKind, r.ID, r.Kind)
		}
		if r.EnableMask == 0 || r.VoltageMask == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyMask, r.ID)
		}
		if controlBits[r.ControlRegister]&r.EnableMask != 0 {
			return nil, fmt.Errorf("%w: %s enable bits 0x%02X in reg 0x%02X", ErrMaskOverlap, r.ID, r.EnableMask, r.ControlRegister)
		}
		if voltageBits[r.VoltageRegister]&r.VoltageMask != 0 {
			return nil, fmt.Errorf("%w: %s voltage bits 0x%02X in reg 0x%02X", ErrMaskOverlap, r.ID, r.VoltageMask, r.VoltageRegister)
		}
		controlBits[r.ControlRegister] |= r.EnableMask
		voltageBits[r.VoltageRegister] |= r.VoltageMask
		t.rails[r.ID] = r
	}
	return t, nil
}

// MustRailTable is NewRailTable for static tables known to be valid.
func MustRailTable(rails ...Rail) *RailTable {
	t, err := NewRailTable(rails...)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the descriptor for id.
func (t *RailTable) Lookup(id RailID) (Rail, bool) {
	r, ok := t.rails[id]
	return r, ok
}
