package cycle

import (
	"context"
	"sync"
	"time"

	"github.com/sweeney/trap-sensor/internal/logic"
)

// FakePlatform records armed wake sources and sleeps.
type FakePlatform struct {
	mu sync.Mutex

	// Cause is returned by WakeCause.
	Cause logic.WakeCause

	// Timers and Externals record every armed source.
	Timers    []time.Duration
	Externals []ExternalWake

	// Sleeps counts DeepSleep calls.
	Sleeps int

	// TimerError and ExternalError fail the matching arm call.
	TimerError    error
	ExternalError error

	// OnSleep, if set, runs inside DeepSleep. It may change Cause for the
	// next cycle.
	OnSleep func(p *FakePlatform)
}

// NewFakePlatform creates a FakePlatform reporting cause.
func NewFakePlatform(cause logic.WakeCause) *FakePlatform {
	return &FakePlatform{Cause: cause}
}

func (f *FakePlatform) WakeCause() logic.WakeCause {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Cause
}

func (f *FakePlatform) ArmTimerWake(d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Timers = append(f.Timers, d)
	return f.TimerError
}

func (f *FakePlatform) ArmExternalWake(w ExternalWake) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Externals = append(f.Externals, w)
	return f.ExternalError
}

func (f *FakePlatform) DeepSleep(ctx context.Context) error {
	f.mu.Lock()
	f.Sleeps++
	hook := f.OnSleep
	f.mu.Unlock()
	if hook != nil {
		hook(f)
	}
	return ctx.Err()
}

// SleepCount returns the number of DeepSleep calls.
func (f *FakePlatform) SleepCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Sleeps
}
