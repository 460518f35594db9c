package gpio

import (
	"context"
	"errors"
	"sync"
)

// FakeSensor is a test double that returns scripted sensor levels.
type FakeSensor struct {
	// Samples contains scripted levels to return.
	// Each call to Read() consumes the next sample.
	Samples []bool

	// index tracks current position in Samples
	index int

	// Reads counts calls to Read.
	Reads int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeSensor creates a FakeSensor with the given samples.
func NewFakeSensor(samples ...bool) *FakeSensor {
	return &FakeSensor{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeSensor) Read() (bool, error) {
	f.Reads++
	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample, nil
}

// Close marks the sensor as closed.
func (f *FakeSensor) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the sensor to the beginning of samples.
func (f *FakeSensor) Reset() {
	f.index = 0
	f.Reads = 0
	f.Closed = false
}

// FakeButton is a Button that fires when Press is called.
type FakeButton struct {
	mu      sync.Mutex
	presses chan struct{}
	masks   []uint64
}

// NewFakeButton creates a FakeButton.
func NewFakeButton() *FakeButton {
	return &FakeButton{presses: make(chan struct{}, 1)}
}

// Press releases one pending or future WaitLow.
func (f *FakeButton) Press() {
	select {
	case f.presses <- struct{}{}:
	default:
	}
}

// WaitLow blocks until Press or ctx is done.
func (f *FakeButton) WaitLow(ctx context.Context, mask uint64) error {
	f.mu.Lock()
	f.masks = append(f.masks, mask)
	f.mu.Unlock()

	select {
	case <-f.presses:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Masks returns the masks passed to WaitLow.
func (f *FakeButton) Masks() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint64(nil), f.masks...)
}

// Close is a no-op.
func (f *FakeButton) Close() error {
	return nil
}
