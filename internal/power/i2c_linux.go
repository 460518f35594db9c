//go:build linux && !tinygo

package power

import (
	"fmt"

	"github.com/reef-pi/rpi/i2c"
)

// LinuxBus talks to the PMIC through the Linux I2C character device.
type LinuxBus struct {
	bus  i2c.Bus
	addr byte
}

// NewLinuxBus opens the I2C bus for the PMIC at addr.
func NewLinuxBus(addr byte) (*LinuxBus, error) {
	b, err := i2c.New()
	if err != nil {
		return nil, fmt.Errorf("open i2c bus: %w", err)
	}
	return &LinuxBus{bus: b, addr: addr}, nil
}

// ReadRegister reads one byte from reg.
func (b *LinuxBus) ReadRegister(reg uint8) (uint8, error) {
	buf := make([]byte, 1)
	if err := b.bus.ReadFromReg(b.addr, reg, buf); err != nil {
		return 0, &BusError{Op: "read", Register: reg, Err: err}
	}
	return buf[0], nil
}

// WriteRegister writes one byte to reg.
func (b *LinuxBus) WriteRegister(reg uint8, value uint8) error {
	if err := b.bus.WriteToReg(b.addr, reg, []byte{value}); err != nil {
		return &BusError{Op: "write", Register: reg, Err: err}
	}
	return nil
}

// Close releases the I2C device.
func (b *LinuxBus) Close() error {
	return b.bus.Close()
}
