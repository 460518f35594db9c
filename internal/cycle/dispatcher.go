package cycle

import (
	"context"
	"log"
	"time"

	"github.com/sweeney/trap-sensor/internal/codec"
	"github.com/sweeney/trap-sensor/internal/display"
	"github.com/sweeney/trap-sensor/internal/gpio"
	"github.com/sweeney/trap-sensor/internal/logic"
	"github.com/sweeney/trap-sensor/internal/power"
	"github.com/sweeney/trap-sensor/internal/radio"
	"github.com/sweeney/trap-sensor/internal/retention"
)

// Config holds the fixed parameters of the duty cycle.
type Config struct {
	SleepInterval     time.Duration
	HeartbeatInterval time.Duration
	DisplayWindow     time.Duration
	ButtonWake        ExternalWake
	RadioPins         radio.Pins
	UplinkPort        uint8
	Bootstrap         []power.RailSetting
}

// DefaultConfig returns the T-Beam trap settings.
func DefaultConfig() Config {
	return Config{
		SleepInterval:     10 * time.Second,
		HeartbeatInterval: 600 * time.Second,
		DisplayWindow:     5 * time.Second,
		ButtonWake:        DefaultButtonWake(),
		RadioPins:         radio.DefaultPins(),
		UplinkPort:        radio.StatusPort,
		Bootstrap:         power.BootstrapPlan(),
	}
}

// Deps are the collaborators a Dispatcher drives.
type Deps struct {
	Rails    *power.Controller
	Sensor   gpio.Sensor
	Radio    radio.Radio
	Display  display.Renderer
	Store    retention.Store
	Platform Platform
	Now      func() time.Time
}

// Dispatcher runs wake cycles. It owns the persistent state: it is the only
// writer, and it writes only after sampling and after a transmit.
type Dispatcher struct {
	cfg       Config
	deps      Deps
	scheduler *Scheduler
}

// New creates a Dispatcher. A nil Now uses time.Now.
func New(cfg Config, deps Deps) *Dispatcher {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Dispatcher{
		cfg:       cfg,
		deps:      deps,
		scheduler: NewScheduler(deps.Platform, cfg.SleepInterval, cfg.ButtonWake),
	}
}

// Result describes a completed (or aborted) cycle.
type Result struct {
	Cause       logic.WakeCause
	Actions     []Action
	Previous    logic.Status
	Status      logic.Status
	Event       logic.Event
	Transmitted bool
	State       retention.State
}

// run is the per-cycle working state.
type run struct {
	now     time.Time
	state   retention.State
	event   logic.Event
	session *display.Session
	result  Result
}

// RunCycle executes one wake cycle, ending in deep sleep. A returned
// *power.BootstrapError means the cycle was aborted before any wake source
// was armed; the node should restart. Sensor, rail and radio failures are
// logged and do not stop the cycle.
func (d *Dispatcher) RunCycle(ctx context.Context) (Result, error) {
	cause := d.deps.Platform.WakeCause()
	r := &run{
		event:  logic.EventNone,
		result: Result{Cause: cause, Actions: Plan(cause)},
	}
	log.Printf("woke: cause=%s", cause)

	if cause == logic.WakeReset {
		r.state = retention.Initial()
		d.save(r)
	} else {
		s, err := d.deps.Store.Load()
		if err != nil {
			log.Printf("retention: load: %v", err)
		}
		r.state = s
	}
	r.result.Previous = r.state.Status
	r.result.Status = r.state.Status
	r.result.Event = logic.EventNone

	for _, a := range r.result.Actions {
		if err := d.exec(ctx, a, r); err != nil {
			r.result.State = r.state
			return r.result, err
		}
	}
	r.result.State = r.state
	return r.result, nil
}

func (d *Dispatcher) exec(ctx context.Context, a Action, r *run) error {
	switch a {
	case ActionBootstrap:
		log.Printf("power: configuring rails")
		return power.Bootstrap(d.deps.Rails, d.cfg.Bootstrap)
	case ActionStartDisplay:
		d.startDisplay(r)
	case ActionSample:
		d.sample(r)
	case ActionReport:
		if r.event != logic.EventNone {
			d.report(r)
		}
	case ActionPowerDown:
		d.powerDown()
	case ActionAwaitDisplay:
		r.session.Wait()
	case ActionSleep:
		return d.scheduler.Schedule(ctx)
	}
	return nil
}

func (d *Dispatcher) startDisplay(r *run) {
	log.Printf("display: button wake, starting display")
	snapshot := r.state
	since := d.deps.Now().Sub(snapshot.LastUplinkAt)
	rails := d.deps.Rails
	r.session = display.Start(d.deps.Display, d.cfg.DisplayWindow, func() display.Summary {
		mv, err := rails.ReadBatteryVoltage()
		if err != nil {
			log.Printf("display: battery: %v", err)
		}
		return display.Summary{
			Status:            snapshot.Status,
			BatteryMillivolts: mv,
			SinceLastUplink:   since,
		}
	})
}

func (d *Dispatcher) sample(r *run) {
	old := r.state.Status
	status := old
	level, err := d.deps.Sensor.Read()
	if err != nil {
		log.Printf("sensor: read error: %v", err)
	} else {
		status = logic.StatusFromLevel(level)
	}

	r.now = d.deps.Now()
	event := logic.EventForTransition(old, status)
	event = logic.ApplyHeartbeat(event, r.now, r.state.LastUplinkAt, d.cfg.SleepInterval, d.cfg.HeartbeatInterval)
	log.Printf("sensor: status %s -> %s, event %s", old, status, event)

	r.event = event
	r.state.Status = status
	r.result.Status = status
	r.result.Event = event
	d.save(r)
}

func (d *Dispatcher) report(r *run) {
	log.Printf("radio: sending %s", r.event)
	if err := d.deps.Rails.SetEnabled(power.LDO2, true); err != nil {
		log.Printf("power: radio rail on: %v", err)
	}
	if err := d.deps.Radio.Configure(d.cfg.RadioPins); err != nil {
		log.Printf("radio: configure: %v", err)
		return
	}

	switch {
	case d.deps.Radio.ResumeAfterSleep():
		log.Printf("radio: resumed from sleep")
	case d.deps.Radio.Join():
		log.Printf("radio: newly joined")
	default:
		log.Printf("radio: failed to join")
	}

	battery, err := d.deps.Rails.ReadBatteryRaw()
	if err != nil {
		log.Printf("power: battery: %v", err)
	}
	log.Printf("power: battery raw %d", battery)

	payload := codec.Encode(r.event, r.state.Status, battery)
	log.Printf("radio: message %02x %02x", payload[0], payload[1])
	if err := d.deps.Radio.Transmit(payload[:], d.cfg.UplinkPort, false); err != nil {
		log.Printf("radio: transmit: %v", err)
	}

	// Recorded once the radio has taken the uplink, not on delivery.
	r.state.LastUplinkAt = r.now
	r.result.Transmitted = true
	d.save(r)

	d.deps.Radio.WaitForIdle()
	d.deps.Radio.PrepareForSleep()
}

// powerDown runs whether or not anything was sent. DCDC1 stays on: the PMIC
// shares its I2C bus with the OLED on that rail.
func (d *Dispatcher) powerDown() {
	d.deps.Radio.Shutdown()
	log.Printf("power: turning off GPS and radio")
	for _, rail := range []power.RailID{power.LDO3, power.LDO2} {
		if err := d.deps.Rails.SetEnabled(rail, false); err != nil {
			log.Printf("power: %s off: %v", rail, err)
		}
	}
}

func (d *Dispatcher) save(r *run) {
	if err := d.deps.Store.Save(r.state); err != nil {
		log.Printf("retention: save: %v", err)
	}
}
