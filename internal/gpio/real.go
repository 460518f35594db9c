//go:build linux && !tinygo

package gpio

import (
	"context"
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealSensor reads the trap switch from actual hardware using Linux GPIO character device.
type RealSensor struct {
	line *gpiocdev.Line
}

// NewRealSensor requests the sensor line, left floating until sampled.
func NewRealSensor(chip string, offset int) (*RealSensor, error) {
	l, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsInput, gpiocdev.WithBiasDisabled)
	if err != nil {
		return nil, fmt.Errorf("request sensor line %d: %w", offset, err)
	}
	return &RealSensor{line: l}, nil
}

// Read enables the pull-up, samples, and returns the line to floating.
func (s *RealSensor) Read() (bool, error) {
	if err := s.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
		return false, fmt.Errorf("pull up sensor line: %w", err)
	}
	v, readErr := s.line.Value()
	if err := s.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithBiasDisabled); err != nil {
		return false, errors.Join(readErr, fmt.Errorf("float sensor line: %w", err))
	}
	if readErr != nil {
		return false, fmt.Errorf("read sensor line: %w", readErr)
	}
	return v == 1, nil
}

// Close releases the sensor line.
func (s *RealSensor) Close() error {
	if s.line == nil {
		return nil
	}
	return s.line.Close()
}

// RealButton watches button lines for a low level.
type RealButton struct {
	chip string
}

// NewRealButton creates a Button on chip. Lines are requested per wait so
// they are released while the node is awake.
func NewRealButton(chip string) *RealButton {
	return &RealButton{chip: chip}
}

// WaitLow requests every line in mask with a pull-up and a falling-edge
// handler, then blocks until one reads low.
func (b *RealButton) WaitLow(ctx context.Context, mask uint64) error {
	offsets := MaskLines(mask)
	if len(offsets) == 0 {
		return errors.New("gpio: empty button mask")
	}

	low := make(chan struct{}, 1)
	handler := func(evt gpiocdev.LineEvent) {
		if evt.Type == gpiocdev.LineEventFallingEdge {
			select {
			case low <- struct{}{}:
			default:
			}
		}
	}

	lines, err := gpiocdev.RequestLines(b.chip, offsets,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(handler),
	)
	if err != nil {
		return fmt.Errorf("request button lines %v: %w", offsets, err)
	}
	defer lines.Close()

	values := make([]int, len(offsets))
	if err := lines.Values(values); err != nil {
		return fmt.Errorf("read button lines: %w", err)
	}
	for _, v := range values {
		if v == 0 {
			return nil
		}
	}

	select {
	case <-low:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close is a no-op; lines are only held during WaitLow.
func (b *RealButton) Close() error {
	return nil
}
