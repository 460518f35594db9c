// Package status provides a thread-safe view of the traps heard by the bench
// receiver. It is read by the HTTP handlers.
package status

import (
	"sort"
	"sync"
	"time"

	"github.com/sweeney/trap-sensor/internal/codec"
	"github.com/sweeney/trap-sensor/internal/logic"
)

// Config contains receiver configuration for display.
type Config struct {
	Broker      string
	TopicPrefix string
	HTTPAddr    string
	KafkaTopic  string // empty when forwarding is disabled

	// StaleAfter marks a device stale when nothing has been heard for this
	// long. Zero disables staleness.
	StaleAfter time.Duration
}

// EventCounts tallies received events per device.
type EventCounts struct {
	Sprung    int
	Set       int
	Heartbeat int
	Other     int
}

func (c *EventCounts) add(e logic.Event) {
	switch e {
	case logic.EventSprung:
		c.Sprung++
	case logic.EventSet:
		c.Set++
	case logic.EventHeartbeat:
		c.Heartbeat++
	default:
		c.Other++
	}
}

// Device is the last known state of one trap.
type Device struct {
	ID         string
	Status     logic.Status
	LastEvent  logic.Event
	BatteryRaw uint16
	Port       uint8
	FirstSeen  time.Time
	LastSeen   time.Time
	Uplinks    int
	Counts     EventCounts
}

// BatteryMillivolts returns the last reported battery voltage.
func (d Device) BatteryMillivolts() float64 {
	return codec.Message{BatteryRaw: d.BatteryRaw}.BatteryMillivolts()
}

// Stale reports whether the device has been silent for longer than after.
func (d Device) Stale(now time.Time, after time.Duration) bool {
	return after > 0 && now.Sub(d.LastSeen) > after
}

// Snapshot is a point-in-time view of receiver state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Devices       []Device // sorted by ID
	Decoded       int
	Rejected      int
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the receiver started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Device returns the device with the given ID.
func (s Snapshot) Device(id string) (Device, bool) {
	i := sort.Search(len(s.Devices), func(i int) bool { return s.Devices[i].ID >= id })
	if i < len(s.Devices) && s.Devices[i].ID == id {
		return s.Devices[i], true
	}
	return Device{}, false
}

// Tracker holds mutable receiver state behind an RWMutex.
type Tracker struct {
	mu            sync.RWMutex
	devices       map[string]*Device
	decoded       int
	rejected      int
	startTime     time.Time
	mqttConnected bool
	cfg           Config
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		devices:   make(map[string]*Device),
		startTime: startTime,
		cfg:       cfg,
	}
}

// Record stores a decoded uplink from deviceID received at at.
func (t *Tracker) Record(deviceID string, port uint8, msg codec.Message, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	d, ok := t.devices[deviceID]
	if !ok {
		d = &Device{ID: deviceID, FirstSeen: at}
		t.devices[deviceID] = d
	}
	d.Status = msg.Status
	d.LastEvent = msg.Event
	d.BatteryRaw = msg.BatteryRaw
	d.Port = port
	d.LastSeen = at
	d.Uplinks++
	d.Counts.add(msg.Event)
	t.decoded++
}

// Reject counts an uplink that could not be decoded.
func (t *Tracker) Reject() {
	t.mu.Lock()
	t.rejected++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.mqttConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the receiver state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := Snapshot{
		Devices:       make([]Device, 0, len(t.devices)),
		Decoded:       t.decoded,
		Rejected:      t.rejected,
		StartTime:     t.startTime,
		MQTTConnected: t.mqttConnected,
		Config:        t.cfg,
	}
	for _, d := range t.devices {
		s.Devices = append(s.Devices, *d)
	}
	t.mu.RUnlock()

	sort.Slice(s.Devices, func(i, j int) bool { return s.Devices[i].ID < s.Devices[j].ID })
	s.Now = time.Now()
	return s
}
