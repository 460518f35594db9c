package status

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/trap-sensor/internal/codec"
	"github.com/sweeney/trap-sensor/internal/logic"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestNewTracker(t *testing.T) {
	cfg := Config{Broker: "tcp://localhost:1883", TopicPrefix: "traps", HTTPAddr: ":8080"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.TopicPrefix != "traps" {
		t.Errorf("Config.TopicPrefix: got %q", snap.Config.TopicPrefix)
	}
	if len(snap.Devices) != 0 {
		t.Errorf("Devices: got %d, want 0", len(snap.Devices))
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestRecordAndSnapshot(t *testing.T) {
	tr := NewTracker(start, Config{})

	tr.Record("trap-1", 1, codec.Message{Event: logic.EventSet, Status: logic.StatusSet, BatteryRaw: 3700}, start.Add(time.Minute))
	tr.Record("trap-1", 1, codec.Message{Event: logic.EventSprung, Status: logic.StatusSprung, BatteryRaw: 3690}, start.Add(2*time.Minute))
	tr.Record("trap-1", 1, codec.Message{Event: logic.EventHeartbeat, Status: logic.StatusSprung, BatteryRaw: 3680}, start.Add(12*time.Minute))

	snap := tr.Snapshot()
	d, ok := snap.Device("trap-1")
	if !ok {
		t.Fatal("trap-1 not found")
	}
	if d.Status != logic.StatusSprung || d.LastEvent != logic.EventHeartbeat {
		t.Errorf("Status/LastEvent: got %s/%s", d.Status, d.LastEvent)
	}
	if d.BatteryRaw != 3680 {
		t.Errorf("BatteryRaw: got %d, want 3680", d.BatteryRaw)
	}
	if !d.FirstSeen.Equal(start.Add(time.Minute)) || !d.LastSeen.Equal(start.Add(12*time.Minute)) {
		t.Errorf("FirstSeen/LastSeen: got %v/%v", d.FirstSeen, d.LastSeen)
	}
	if d.Uplinks != 3 {
		t.Errorf("Uplinks: got %d, want 3", d.Uplinks)
	}
	want := EventCounts{Sprung: 1, Set: 1, Heartbeat: 1}
	if d.Counts != want {
		t.Errorf("Counts: got %+v, want %+v", d.Counts, want)
	}
	if snap.Decoded != 3 {
		t.Errorf("Decoded: got %d, want 3", snap.Decoded)
	}
}

func TestSnapshotSortedByID(t *testing.T) {
	tr := NewTracker(start, Config{})
	for _, id := range []string{"c", "a", "b"} {
		tr.Record(id, 1, codec.Message{}, start)
	}

	snap := tr.Snapshot()
	var ids []string
	for _, d := range snap.Devices {
		ids = append(ids, d.ID)
	}
	if fmt.Sprint(ids) != "[a b c]" {
		t.Errorf("IDs: got %v", ids)
	}
	if _, ok := snap.Device("d"); ok {
		t.Error("found unknown device")
	}
}

func TestReject(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.Reject()
	tr.Reject()
	if got := tr.Snapshot().Rejected; got != 2 {
		t.Errorf("Rejected: got %d, want 2", got)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.Record("trap-1", 1, codec.Message{Status: logic.StatusSet}, start)

	snap := tr.Snapshot()
	tr.Record("trap-1", 1, codec.Message{Status: logic.StatusSprung}, start.Add(time.Second))

	if snap.Devices[0].Status != logic.StatusSet {
		t.Error("snapshot changed after Record")
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(start, Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}
	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestDeviceStale(t *testing.T) {
	d := Device{LastSeen: start}

	tests := []struct {
		name  string
		now   time.Time
		after time.Duration
		want  bool
	}{
		{"disabled", start.Add(time.Hour), 0, false},
		{"fresh", start.Add(10 * time.Minute), 20 * time.Minute, false},
		{"boundary", start.Add(20 * time.Minute), 20 * time.Minute, false},
		{"stale", start.Add(21 * time.Minute), 20 * time.Minute, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Stale(tt.now, tt.after); got != tt.want {
				t.Errorf("Stale() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSnapshotUptime(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(90 * time.Second)}
	if snap.Uptime() != 90*time.Second {
		t.Errorf("Uptime: got %v, want 90s", snap.Uptime())
	}
}

func TestFormatJSON(t *testing.T) {
	snap := Snapshot{
		Devices: []Device{{
			ID:         "trap-1",
			Status:     logic.StatusSprung,
			LastEvent:  logic.EventSprung,
			BatteryRaw: 303,
			Port:       1,
			FirstSeen:  start,
			LastSeen:   start.Add(5 * time.Minute),
			Uplinks:    2,
			Counts:     EventCounts{Set: 1, Sprung: 1},
		}},
		Decoded:       2,
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config: Config{
			Broker:      "tcp://localhost:1883",
			TopicPrefix: "traps",
			StaleAfter:  20 * time.Minute,
		},
	}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(snap), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if !s.MQTT.Connected || s.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("MQTT: got %+v", s.MQTT)
	}
	if s.Config.StaleAfterS != 1200 {
		t.Errorf("Config.StaleAfterS: got %d", s.Config.StaleAfterS)
	}
	if len(s.Devices) != 1 {
		t.Fatalf("Devices: got %d, want 1", len(s.Devices))
	}
	d := s.Devices[0]
	if d.Status != "sprung" || d.LastEvent != "sprung" {
		t.Errorf("Status/LastEvent: got %q/%q", d.Status, d.LastEvent)
	}
	if d.SecondsSince != 600 {
		t.Errorf("SecondsSince: got %d, want 600", d.SecondsSince)
	}
	if d.Stale {
		t.Error("expected Stale=false")
	}
	if d.BatteryMillivolts < 333.2 || d.BatteryMillivolts > 333.4 {
		t.Errorf("BatteryMillivolts: got %v, want 333.3", d.BatteryMillivolts)
	}
	if d.Counts.Set != 1 || d.Counts.Sprung != 1 {
		t.Errorf("Counts: got %+v", d.Counts)
	}
}

func TestFormatJSONEmptyDevices(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start}

	// An empty list, not null, so clients can iterate without a check.
	var raw map[string]map[string]interface{}
	if err := json.Unmarshal(FormatJSON(snap), &raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["status"]["devices"].([]interface{}); !ok {
		t.Errorf("devices: got %T, want array", raw["status"]["devices"])
	}
}

func TestFormatJSONOmitsKafkaTopicWhenEmpty(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start}

	var raw map[string]map[string]interface{}
	json.Unmarshal(FormatJSON(snap), &raw)
	cfg := raw["status"]["config"].(map[string]interface{})
	if _, exists := cfg["kafka_topic"]; exists {
		t.Error("kafka_topic should be omitted when empty")
	}
}

func TestFormatDevice(t *testing.T) {
	d := Device{ID: "trap-9", Status: logic.StatusSet, LastSeen: start}
	snap := Snapshot{Now: start.Add(time.Hour), Config: Config{StaleAfter: 20 * time.Minute}}

	var parsed DeviceJSON
	if err := json.Unmarshal(FormatDevice(snap, d), &parsed); err != nil {
		t.Fatal(err)
	}
	if parsed.ID != "trap-9" || parsed.Status != "set" || !parsed.Stale {
		t.Errorf("device: got %+v", parsed)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Record(fmt.Sprintf("trap-%d", i%5), 1, codec.Message{BatteryRaw: uint16(i)}, time.Now())
			tr.SetMQTTConnected(i%2 == 0)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}
