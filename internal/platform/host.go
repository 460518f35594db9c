// Package platform provides sleep controllers for running the node on a
// Linux host instead of a microcontroller.
package platform

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/sweeney/trap-sensor/internal/cycle"
	"github.com/sweeney/trap-sensor/internal/gpio"
	"github.com/sweeney/trap-sensor/internal/logic"
)

// ErrNotArmed is returned by DeepSleep when no timer wake is armed.
var ErrNotArmed = errors.New("platform: no timer wake armed")

// Host emulates deep sleep inside one long-running process. DeepSleep blocks
// until the armed timer fires or the button reads low, and the next
// WakeCause reports which one it was.
type Host struct {
	mu     sync.Mutex
	button gpio.Button
	cause  logic.WakeCause
	timer  time.Duration
	armed  bool
	wake   *cycle.ExternalWake

	// after is time.After; replaced in tests.
	after func(time.Duration) <-chan time.Time
}

// NewHost creates a Host whose first cycle reports cause. A nil button
// disables external wakes.
func NewHost(button gpio.Button, cause logic.WakeCause) *Host {
	return &Host{button: button, cause: cause, after: time.After}
}

// WakeCause reports why the current cycle started.
func (h *Host) WakeCause() logic.WakeCause {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cause
}

// ArmTimerWake sets the sleep duration.
func (h *Host) ArmTimerWake(d time.Duration) error {
	if d <= 0 {
		return errors.New("platform: timer wake must be positive")
	}
	h.mu.Lock()
	h.timer = d
	h.armed = true
	h.mu.Unlock()
	return nil
}

// ArmExternalWake watches the lines in w.Mask during the next sleep.
func (h *Host) ArmExternalWake(w cycle.ExternalWake) error {
	if w.Mask == 0 {
		return errors.New("platform: empty wake mask")
	}
	if h.button == nil {
		return errors.New("platform: no button configured")
	}
	h.mu.Lock()
	h.wake = &w
	h.mu.Unlock()
	return nil
}

// DeepSleep blocks until a wake source fires or ctx is done. Armed sources
// are consumed; the next cycle must arm them again.
func (h *Host) DeepSleep(ctx context.Context) error {
	h.mu.Lock()
	timer, armed, wake := h.timer, h.armed, h.wake
	h.armed, h.wake = false, nil
	h.mu.Unlock()

	if !armed {
		return ErrNotArmed
	}

	sleepCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pressed := make(chan error, 1)
	if wake != nil {
		go func() {
			pressed <- h.button.WaitLow(sleepCtx, wake.Mask)
		}()
	}

	expired := h.after(timer)
	select {
	case <-expired:
		h.setCause(logic.WakeTimer)
		return nil
	case err := <-pressed:
		if err == nil {
			h.setCause(logic.WakeExternal)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// A broken button line must not stop the duty cycle: sleep out the
		// timer instead.
		log.Printf("platform: button wait: %v", err)
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-expired:
		h.setCause(logic.WakeTimer)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Host) setCause(c logic.WakeCause) {
	h.mu.Lock()
	h.cause = c
	h.mu.Unlock()
	log.Printf("platform: woke by %s", c)
}

// OneShot runs a single cycle per process. The node is expected to be
// restarted by an external scheduler (a systemd timer, cron) after the armed
// interval, so DeepSleep only logs what would have been armed and returns.
type OneShot struct {
	cause logic.WakeCause
	timer time.Duration
	wake  *cycle.ExternalWake
}

// NewOneShot creates a OneShot reporting cause.
func NewOneShot(cause logic.WakeCause) *OneShot {
	return &OneShot{cause: cause}
}

func (o *OneShot) WakeCause() logic.WakeCause {
	return o.cause
}

func (o *OneShot) ArmTimerWake(d time.Duration) error {
	if d <= 0 {
		return errors.New("platform: timer wake must be positive")
	}
	o.timer = d
	return nil
}

func (o *OneShot) ArmExternalWake(w cycle.ExternalWake) error {
	if w.Mask == 0 {
		return errors.New("platform: empty wake mask")
	}
	o.wake = &w
	return nil
}

// DeepSleep returns immediately.
func (o *OneShot) DeepSleep(ctx context.Context) error {
	if o.timer == 0 {
		return ErrNotArmed
	}
	log.Printf("platform: one-shot cycle done, next wake in %v", o.timer)
	return ctx.Err()
}

// NextWake returns the armed timer interval.
func (o *OneShot) NextWake() time.Duration {
	return o.timer
}
