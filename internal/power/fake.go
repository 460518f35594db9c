package power

import (
	"errors"
	"sync"
)

// FakeBus is an in-memory register file for tests.
type FakeBus struct {
	mu sync.Mutex

	// Registers holds the current register values.
	Registers map[uint8]uint8

	// Writes records every write in order.
	Writes []RegisterWrite

	// ReadErrors and WriteErrors fail transactions on specific registers.
	ReadErrors  map[uint8]error
	WriteErrors map[uint8]error
}

// RegisterWrite is one recorded write.
type RegisterWrite struct {
	Register uint8
	Value    uint8
}

// NewFakeBus creates a FakeBus with the given initial register values.
func NewFakeBus(initial map[uint8]uint8) *FakeBus {
	regs := make(map[uint8]uint8, len(initial))
	for k, v := range initial {
		regs[k] = v
	}
	return &FakeBus{
		Registers:   regs,
		ReadErrors:  make(map[uint8]error),
		WriteErrors: make(map[uint8]error),
	}
}

// ReadRegister returns the stored value. Unset registers read as zero.
func (f *FakeBus) ReadRegister(reg uint8) (uint8, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ReadErrors[reg]; err != nil {
		return 0, &BusError{Op: "read", Register: reg, Err: err}
	}
	return f.Registers[reg], nil
}

// WriteRegister stores the value and records the write.
func (f *FakeBus) WriteRegister(reg uint8, value uint8) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.WriteErrors[reg]; err != nil {
		return &BusError{Op: "write", Register: reg, Err: err}
	}
	f.Registers[reg] = value
	f.Writes = append(f.Writes, RegisterWrite{Register: reg, Value: value})
	return nil
}

// Register returns the current value of reg.
func (f *FakeBus) Register(reg uint8) uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Registers[reg]
}

// ErrFakeBus is a convenience error for scripted failures.
var ErrFakeBus = errors.New("simulated bus failure")
