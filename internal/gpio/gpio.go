// Package gpio provides the trap switch and wake button with hardware abstraction.
// The real implementation uses the Linux GPIO character device, or machine
// pins under TinyGo.
// The fake implementation allows testing without hardware.
package gpio

import "context"

// Sensor samples the trap switch.
type Sensor interface {
	// Read pulls the line up, samples it, and leaves it floating again so it
	// draws no current during sleep. Returns true if the line reads high.
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Button waits for the wake button.
type Button interface {
	// WaitLow blocks until any line in mask reads low or ctx is done.
	// A line that is already low returns immediately (level-triggered).
	WaitLow(ctx context.Context, mask uint64) error

	// Close releases GPIO resources.
	Close() error
}

// Line offsets on the T-Beam.
const (
	DefaultSensorLine = 13
	DefaultButtonLine = 38
	DefaultChip       = "gpiochip0"
)

// MaskLines returns the line offsets set in mask, lowest first.
func MaskLines(mask uint64) []int {
	var lines []int
	for i := 0; i < 64; i++ {
		if mask&(1<<uint(i)) != 0 {
			lines = append(lines, i)
		}
	}
	return lines
}
