package cycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/trap-sensor/internal/logic"
)

// ExternalWake is a level-triggered wake on digital inputs: the node wakes
// while a line in Mask reads low.
type ExternalWake struct {
	Mask uint64
}

// DefaultButtonWake is the T-Beam user button on GPIO 38.
func DefaultButtonWake() ExternalWake {
	return ExternalWake{Mask: 1 << 38}
}

// Platform is the sleep controller of the node.
type Platform interface {
	// WakeCause reports why the current cycle started.
	WakeCause() logic.WakeCause

	// ArmTimerWake wakes the node after d.
	ArmTimerWake(d time.Duration) error

	// ArmExternalWake wakes the node on the given input level.
	ArmExternalWake(w ExternalWake) error

	// DeepSleep enters deep sleep with the armed sources. On hardware it does
	// not return; on a host it returns when the next cycle should start.
	DeepSleep(ctx context.Context) error
}

// Scheduler arms the wake sources and puts the node to sleep.
type Scheduler struct {
	platform Platform
	interval time.Duration
	button   ExternalWake
}

// NewScheduler creates a Scheduler.
func NewScheduler(p Platform, interval time.Duration, button ExternalWake) *Scheduler {
	return &Scheduler{platform: p, interval: interval, button: button}
}

// Schedule arms a timer wake and a button wake, then sleeps. Both sources
// are always attempted. If either fails the node does not sleep, since it
// might never wake; the error is returned instead.
func (s *Scheduler) Schedule(ctx context.Context) error {
	var errs []error

	log.Printf("sleep: setting up wakeup from timer (%v)", s.interval)
	if err := s.platform.ArmTimerWake(s.interval); err != nil {
		errs = append(errs, fmt.Errorf("arm timer wake: %w", err))
	}

	log.Printf("sleep: setting up wakeup from button (mask 0x%X)", s.button.Mask)
	if err := s.platform.ArmExternalWake(s.button); err != nil {
		errs = append(errs, fmt.Errorf("arm button wake: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	log.Printf("sleep: deep sleeping")
	return s.platform.DeepSleep(ctx)
}
