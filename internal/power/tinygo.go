package power

import "tinygo.org/x/drivers"

// TxBus adapts a TinyGo-style I2C peripheral to Bus.
type TxBus struct {
	i2c  drivers.I2C
	addr uint16

	// Fixed buffers to avoid per-call heap allocations.
	w [2]byte
	r [1]byte
}

// NewTxBus creates a Bus for the PMIC at addr. Use Address for the AXP192.
func NewTxBus(i2c drivers.I2C, addr uint16) *TxBus {
	return &TxBus{i2c: i2c, addr: addr}
}

// ReadRegister writes the register index and reads one byte back.
func (b *TxBus) ReadRegister(reg uint8) (uint8, error) {
	b.w[0] = reg
	if err := b.i2c.Tx(b.addr, b.w[:1], b.r[:]); err != nil {
		return 0, &BusError{Op: "read", Register: reg, Err: err}
	}
	return b.r[0], nil
}

// WriteRegister writes the register index followed by the value.
func (b *TxBus) WriteRegister(reg uint8, value uint8) error {
	b.w[0] = reg
	b.w[1] = value
	if err := b.i2c.Tx(b.addr, b.w[:2], nil); err != nil {
		return &BusError{Op: "write", Register: reg, Err: err}
	}
	return nil
}
