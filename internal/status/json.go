package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for receiver status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Decoded       int          `json:"decoded"`
	Rejected      int          `json:"rejected"`
	Devices       []DeviceJSON `json:"devices"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// DeviceJSON is the JSON representation of one trap.
type DeviceJSON struct {
	ID                string     `json:"id"`
	Status            string     `json:"status"`
	LastEvent         string     `json:"last_event"`
	BatteryRaw        uint16     `json:"battery_raw"`
	BatteryMillivolts float64    `json:"battery_mv"`
	Port              uint8      `json:"port"`
	FirstSeen         string     `json:"first_seen"`
	LastSeen          string     `json:"last_seen"`
	SecondsSince      int64      `json:"seconds_since"`
	Stale             bool       `json:"stale"`
	Uplinks           int        `json:"uplinks"`
	Counts            CountsJSON `json:"event_counts"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Sprung    int `json:"sprung"`
	Set       int `json:"set"`
	Heartbeat int `json:"heartbeat"`
	Other     int `json:"other"`
}

// ConfigJSON is the JSON representation of receiver config.
type ConfigJSON struct {
	Broker      string `json:"broker"`
	TopicPrefix string `json:"topic_prefix"`
	HTTPAddr    string `json:"http_addr"`
	KafkaTopic  string `json:"kafka_topic,omitempty"`
	StaleAfterS int64  `json:"stale_after_s"`
}

func buildDevice(d Device, now time.Time, staleAfter time.Duration) DeviceJSON {
	return DeviceJSON{
		ID:                d.ID,
		Status:            d.Status.String(),
		LastEvent:         d.LastEvent.String(),
		BatteryRaw:        d.BatteryRaw,
		BatteryMillivolts: d.BatteryMillivolts(),
		Port:              d.Port,
		FirstSeen:         d.FirstSeen.UTC().Format(time.RFC3339),
		LastSeen:          d.LastSeen.UTC().Format(time.RFC3339),
		SecondsSince:      int64(now.Sub(d.LastSeen).Truncate(time.Second).Seconds()),
		Stale:             d.Stale(now, staleAfter),
		Uplinks:           d.Uplinks,
		Counts: CountsJSON{
			Sprung:    d.Counts.Sprung,
			Set:       d.Counts.Set,
			Heartbeat: d.Counts.Heartbeat,
			Other:     d.Counts.Other,
		},
	}
}

func buildInner(snap Snapshot) StatusInner {
	devices := make([]DeviceJSON, 0, len(snap.Devices))
	for _, d := range snap.Devices {
		devices = append(devices, buildDevice(d, snap.Now, snap.Config.StaleAfter))
	}
	return StatusInner{
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Decoded:       snap.Decoded,
		Rejected:      snap.Rejected,
		Devices:       devices,
		Config: ConfigJSON{
			Broker:      snap.Config.Broker,
			TopicPrefix: snap.Config.TopicPrefix,
			HTTPAddr:    snap.Config.HTTPAddr,
			KafkaTopic:  snap.Config.KafkaTopic,
			StaleAfterS: int64(snap.Config.StaleAfter / time.Second),
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatDevice returns the JSON for one device as seen at snap.Now.
func FormatDevice(snap Snapshot, d Device) []byte {
	data, _ := json.MarshalIndent(buildDevice(d, snap.Now, snap.Config.StaleAfter), "", "  ")
	return data
}
