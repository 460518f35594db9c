//go:build !linux || tinygo

package gpio

import (
	"context"
	"errors"
)

// RealSensor is not available on non-Linux platforms.
type RealSensor struct{}

// NewRealSensor returns an error on non-Linux platforms.
func NewRealSensor(chip string, offset int) (*RealSensor, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (s *RealSensor) Read() (bool, error) {
	return false, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (s *RealSensor) Close() error {
	return nil
}

// RealButton is not available on non-Linux platforms.
type RealButton struct{}

// NewRealButton returns a button that never fires on non-Linux platforms.
func NewRealButton(chip string) *RealButton {
	return &RealButton{}
}

// WaitLow blocks until ctx is done.
func (b *RealButton) WaitLow(ctx context.Context, mask uint64) error {
	<-ctx.Done()
	return ctx.Err()
}

// Close is not implemented on non-Linux platforms.
func (b *RealButton) Close() error {
	return nil
}
