package cycle

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/sweeney/trap-sensor/internal/codec"
	"github.com/sweeney/trap-sensor/internal/display"
	"github.com/sweeney/trap-sensor/internal/gpio"
	"github.com/sweeney/trap-sensor/internal/logic"
	"github.com/sweeney/trap-sensor/internal/power"
	"github.com/sweeney/trap-sensor/internal/radio"
	"github.com/sweeney/trap-sensor/internal/retention"
)

const (
	regControl     = 0x12
	regBatteryHigh = 0x78
	regBatteryLow  = 0x79
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	bus      *power.FakeBus
	sensor   *gpio.FakeSensor
	radio    *radio.FakeRadio
	display  *display.FakeRenderer
	store    *retention.MemoryStore
	platform *FakePlatform
	now      time.Time
	d        *Dispatcher
}

func newHarness(t *testing.T, cause logic.WakeCause, samples ...bool) *harness {
	t.Helper()
	h := &harness{
		bus: power.NewFakeBus(map[uint8]uint8{
			regBatteryHigh: 0x12,
			regBatteryLow:  0x3F,
		}),
		sensor:   gpio.NewFakeSensor(samples...),
		radio:    radio.NewFakeRadio(),
		display:  &display.FakeRenderer{},
		store:    retention.NewMemoryStore(),
		platform: NewFakePlatform(cause),
		now:      t0,
	}
	cfg := DefaultConfig()
	cfg.DisplayWindow = 20 * time.Millisecond
	h.d = New(cfg, Deps{
		Rails:    power.NewController(h.bus, power.MustRailTable(power.DefaultRails()...)),
		Sensor:   h.sensor,
		Radio:    h.radio,
		Display:  h.display,
		Store:    h.store,
		Platform: h.platform,
		Now:      func() time.Time { return h.now },
	})
	return h
}

func (h *harness) run(t *testing.T) Result {
	t.Helper()
	res, err := h.d.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	return res
}

func (h *harness) stored(t *testing.T) retention.State {
	t.Helper()
	s, err := h.store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return s
}

func TestResetCycle(t *testing.T) {
	h := newHarness(t, logic.WakeReset, true)
	// Stale state from before the reset must not be used.
	h.store.Save(retention.State{Status: logic.StatusSprung, LastUplinkAt: t0})

	res := h.run(t)

	if res.Previous != logic.StatusUnknown {
		t.Errorf("Previous = %s, want Unknown", res.Previous)
	}
	if res.Status != logic.StatusSprung || res.Event != logic.EventSprung {
		t.Errorf("Status/Event = %s/%s, want Sprung/Sprung", res.Status, res.Event)
	}
	if !res.Transmitted {
		t.Fatal("expected a transmission")
	}

	if len(h.radio.Uplinks) != 1 {
		t.Fatalf("Uplinks = %d, want 1", len(h.radio.Uplinks))
	}
	up := h.radio.Uplinks[0]
	if up.Port != radio.StatusPort || up.Confirmed {
		t.Errorf("Port/Confirmed = %d/%v, want 1/false", up.Port, up.Confirmed)
	}
	msg, err := codec.Decode(up.Payload)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := codec.Message{Event: logic.EventSprung, Status: logic.StatusSprung, BatteryRaw: 0x12F}
	if msg != want {
		t.Errorf("message = %+v, want %+v", msg, want)
	}

	if got := h.stored(t); got.Status != logic.StatusSprung || !got.LastUplinkAt.Equal(t0) {
		t.Errorf("stored = %+v", got)
	}

	// Rails: DCDC1 and DCDC3 on, radio and GPS off after power-down.
	if got := h.bus.Register(regControl); got != 0x03 {
		t.Errorf("control register = 0b%08b, want 0b00000011", got)
	}
	if h.platform.SleepCount() != 1 {
		t.Errorf("Sleeps = %d, want 1", h.platform.SleepCount())
	}
}

func TestRadioCallOrder(t *testing.T) {
	h := newHarness(t, logic.WakeReset, false)
	h.run(t)

	want := []string{"configure", "resume", "join", "transmit", "wait", "prepare", "shutdown"}
	if !reflect.DeepEqual(h.radio.Calls, want) {
		t.Errorf("Calls = %v, want %v", h.radio.Calls, want)
	}
	if h.radio.Pins != radio.DefaultPins() {
		t.Errorf("Pins = %v, want defaults", h.radio.Pins)
	}
}

func TestResumedSessionSkipsJoin(t *testing.T) {
	h := newHarness(t, logic.WakeReset, false)
	h.radio.Resume = true
	h.run(t)

	for _, c := range h.radio.Calls {
		if c == "join" {
			t.Fatalf("joined despite resumed session: %v", h.radio.Calls)
		}
	}
}

func TestTimerCycleNoChange(t *testing.T) {
	h := newHarness(t, logic.WakeTimer, false)
	h.store.Save(retention.State{Status: logic.StatusSet, LastUplinkAt: t0.Add(-30 * time.Second)})

	res := h.run(t)

	if res.Event != logic.EventNone || res.Transmitted {
		t.Errorf("Event = %s, Transmitted = %v; want None, false", res.Event, res.Transmitted)
	}
	if !reflect.DeepEqual(h.radio.Calls, []string{"shutdown"}) {
		t.Errorf("Calls = %v, want [shutdown]", h.radio.Calls)
	}
	if got := h.stored(t); !got.LastUplinkAt.Equal(t0.Add(-30 * time.Second)) {
		t.Errorf("LastUplinkAt changed to %v", got.LastUplinkAt)
	}
	if h.platform.SleepCount() != 1 {
		t.Error("did not sleep")
	}
}

func TestTimerCycleHeartbeat(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    logic.Event
	}{
		{"before window", 590 * time.Second, logic.EventNone},
		{"inside window", 591 * time.Second, logic.EventHeartbeat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, logic.WakeTimer, false)
			h.store.Save(retention.State{Status: logic.StatusSet, LastUplinkAt: t0.Add(-tt.elapsed)})

			res := h.run(t)
			if res.Event != tt.want {
				t.Errorf("Event = %s, want %s", res.Event, tt.want)
			}
			if res.Transmitted != (tt.want == logic.EventHeartbeat) {
				t.Errorf("Transmitted = %v", res.Transmitted)
			}
		})
	}
}

func TestTransitionsAcrossCycles(t *testing.T) {
	h := newHarness(t, logic.WakeReset, false, false, true, true, false)

	want := []logic.Event{logic.EventSet, logic.EventNone, logic.EventSprung, logic.EventNone, logic.EventSet}
	for i, ev := range want {
		res := h.run(t)
		if res.Event != ev {
			t.Errorf("cycle %d: Event = %s, want %s", i, res.Event, ev)
		}
		h.platform.Cause = logic.WakeTimer
		h.now = h.now.Add(10 * time.Second)
	}
	if len(h.radio.Uplinks) != 3 {
		t.Errorf("Uplinks = %d, want 3", len(h.radio.Uplinks))
	}
}

func TestBootstrapFailureDoesNotSleep(t *testing.T) {
	h := newHarness(t, logic.WakeReset, true)
	h.bus.WriteErrors[regControl] = power.ErrFakeBus

	_, err := h.d.RunCycle(context.Background())

	var be *power.BootstrapError
	if !errors.As(err, &be) {
		t.Fatalf("error = %v, want *power.BootstrapError", err)
	}
	if be.Rail != power.DCDC1 {
		t.Errorf("failed rail = %s, want DCDC1", be.Rail)
	}
	if h.sensor.Reads != 0 {
		t.Error("sensor sampled after failed bootstrap")
	}
	if len(h.platform.Timers)+len(h.platform.Externals) != 0 || h.platform.SleepCount() != 0 {
		t.Error("wake sources armed after failed bootstrap")
	}
}

func TestSensorFailureKeepsStatus(t *testing.T) {
	h := newHarness(t, logic.WakeTimer)
	h.sensor.ReadError = errors.New("line busy")
	h.store.Save(retention.State{Status: logic.StatusSet, LastUplinkAt: t0})

	res := h.run(t)

	if res.Status != logic.StatusSet || res.Event != logic.EventNone {
		t.Errorf("Status/Event = %s/%s, want Set/None", res.Status, res.Event)
	}
	if h.platform.SleepCount() != 1 {
		t.Error("did not sleep after sensor failure")
	}
}

func TestConfigureFailureSkipsTransmit(t *testing.T) {
	h := newHarness(t, logic.WakeTimer, true)
	h.radio.ConfigureError = errors.New("no radio")
	h.store.Save(retention.State{Status: logic.StatusSet, LastUplinkAt: t0.Add(-time.Minute)})

	res := h.run(t)

	if res.Transmitted || len(h.radio.Uplinks) != 0 {
		t.Error("transmitted with unconfigured radio")
	}
	if got := h.stored(t); got.Status != logic.StatusSprung || !got.LastUplinkAt.Equal(t0.Add(-time.Minute)) {
		t.Errorf("stored = %+v", got)
	}
	if h.bus.Register(regControl)&0x0C != 0 {
		t.Error("radio or GPS rail left on")
	}
	if h.platform.SleepCount() != 1 {
		t.Error("did not sleep")
	}
}

func TestTransmitErrorStillRecordsUplink(t *testing.T) {
	h := newHarness(t, logic.WakeTimer, true)
	h.radio.TransmitError = errors.New("duty cycle")
	h.store.Save(retention.State{Status: logic.StatusSet, LastUplinkAt: t0.Add(-time.Minute)})

	h.run(t)

	if got := h.stored(t); !got.LastUplinkAt.Equal(t0) {
		t.Errorf("LastUplinkAt = %v, want %v", got.LastUplinkAt, t0)
	}
}

func TestBatteryReadFailureSendsZero(t *testing.T) {
	h := newHarness(t, logic.WakeReset, true)
	h.bus.ReadErrors[regBatteryHigh] = power.ErrFakeBus

	h.run(t)

	msg, err := codec.Decode(h.radio.Uplinks[0].Payload)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if msg.BatteryRaw != 0 {
		t.Errorf("BatteryRaw = %d, want 0", msg.BatteryRaw)
	}
}

func TestButtonCycleWaitsForDisplay(t *testing.T) {
	h := newHarness(t, logic.WakeExternal, false)
	h.store.Save(retention.State{Status: logic.StatusSet, LastUplinkAt: t0.Add(-125 * time.Second)})

	offsAtSleep := -1
	h.platform.OnSleep = func(*FakePlatform) { offsAtSleep = h.display.Offs() }

	h.run(t)

	if offsAtSleep != 1 {
		t.Errorf("display blanked %d times before sleep, want 1", offsAtSleep)
	}
	summaries := h.display.Summaries()
	if len(summaries) != 1 {
		t.Fatalf("summaries = %d, want 1", len(summaries))
	}
	s := summaries[0]
	if s.Status != logic.StatusSet || s.SinceLastUplink != 125*time.Second {
		t.Errorf("summary = %+v", s)
	}
	if s.BatteryMillivolts < 333 || s.BatteryMillivolts > 334 {
		t.Errorf("BatteryMillivolts = %v, want ~333.3", s.BatteryMillivolts)
	}
}

func TestDCDC1NeverDisabled(t *testing.T) {
	for _, cause := range []logic.WakeCause{logic.WakeReset, logic.WakeTimer, logic.WakeExternal} {
		t.Run(cause.String(), func(t *testing.T) {
			h := newHarness(t, cause, true)
			h.bus.Registers[regControl] = 0x1F
			h.run(t)

			for _, w := range h.bus.Writes {
				if w.Register == regControl && w.Value&0x01 == 0 {
					t.Errorf("write 0b%08b to control register cleared DCDC1", w.Value)
				}
			}
		})
	}
}

func TestEveryCauseArmsBothWakes(t *testing.T) {
	for _, cause := range []logic.WakeCause{logic.WakeReset, logic.WakeTimer, logic.WakeExternal} {
		t.Run(cause.String(), func(t *testing.T) {
			h := newHarness(t, cause, false)
			h.run(t)

			if !reflect.DeepEqual(h.platform.Timers, []time.Duration{10 * time.Second}) {
				t.Errorf("Timers = %v", h.platform.Timers)
			}
			if !reflect.DeepEqual(h.platform.Externals, []ExternalWake{DefaultButtonWake()}) {
				t.Errorf("Externals = %v", h.platform.Externals)
			}
		})
	}
}

func TestArmFailureReturnsError(t *testing.T) {
	h := newHarness(t, logic.WakeTimer, false)
	h.platform.TimerError = errors.New("rtc")

	if _, err := h.d.RunCycle(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if h.platform.SleepCount() != 0 {
		t.Error("slept without a timer wake")
	}
}
