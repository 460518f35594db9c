//go:build tinygo

package gpio

import (
	"context"
	"errors"
	"machine"
	"time"
)

// PinSensor reads the trap switch from a microcontroller pin.
type PinSensor struct {
	pin machine.Pin
}

// NewPinSensor leaves the pin floating until sampled.
func NewPinSensor(n int) *PinSensor {
	p := machine.Pin(n)
	p.Configure(machine.PinConfig{Mode: machine.PinInput})
	return &PinSensor{pin: p}
}

// Read enables the pull-up, samples, and returns the pin to floating.
func (s *PinSensor) Read() (bool, error) {
	s.pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	time.Sleep(time.Millisecond)
	v := s.pin.Get()
	s.pin.Configure(machine.PinConfig{Mode: machine.PinInput})
	return v, nil
}

// Close is a no-op; pins are not reference counted.
func (s *PinSensor) Close() error {
	return nil
}

// PinButton polls button pins for a low level.
type PinButton struct {
	interval time.Duration
}

// NewPinButton creates a Button that samples every 20ms.
func NewPinButton() *PinButton {
	return &PinButton{interval: 20 * time.Millisecond}
}

// WaitLow blocks until any pin in mask reads low. The T-Beam button has an
// external pull-up, so the pins are plain inputs.
func (b *PinButton) WaitLow(ctx context.Context, mask uint64) error {
	lines := MaskLines(mask)
	if len(lines) == 0 {
		return errors.New("gpio: empty button mask")
	}
	pins := make([]machine.Pin, len(lines))
	for i, n := range lines {
		pins[i] = machine.Pin(n)
		pins[i].Configure(machine.PinConfig{Mode: machine.PinInput})
	}

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		for _, p := range pins {
			if !p.Get() {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (b *PinButton) Close() error {
	return nil
}
