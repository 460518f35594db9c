//go:build !linux || tinygo

package power

import "errors"

// LinuxBus is not available on non-Linux platforms.
type LinuxBus struct{}

// NewLinuxBus returns an error on non-Linux platforms.
func NewLinuxBus(addr byte) (*LinuxBus, error) {
	return nil, errors.New("power: i2c not supported on this platform (requires Linux)")
}

// ReadRegister is not implemented on non-Linux platforms.
func (b *LinuxBus) ReadRegister(reg uint8) (uint8, error) {
	return 0, &BusError{Op: "read", Register: reg, Err: errors.New("not supported")}
}

// WriteRegister is not implemented on non-Linux platforms.
func (b *LinuxBus) WriteRegister(reg uint8, value uint8) error {
	return &BusError{Op: "write", Register: reg, Err: errors.New("not supported")}
}

// Close is not implemented on non-Linux platforms.
func (b *LinuxBus) Close() error {
	return nil
}
