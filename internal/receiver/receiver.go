// Package receiver decodes trap uplinks heard on the MQTT bench broker,
// records them in a status.Tracker and optionally forwards them downstream.
package receiver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/trap-sensor/internal/codec"
	"github.com/sweeney/trap-sensor/internal/status"
)

// ErrTopic is returned for topics outside <prefix>/<device>/up/<port>.
var ErrTopic = errors.New("receiver: unexpected topic")

// Uplink is one decoded trap message.
type Uplink struct {
	DeviceID   string
	Port       uint8
	Message    codec.Message
	Raw        []byte
	ReceivedAt time.Time
}

// Sink takes decoded uplinks for delivery elsewhere.
type Sink interface {
	Forward(ctx context.Context, u Uplink) error
	Close() error
}

// Filter returns the subscription filter matching every device and port.
func Filter(prefix string) string {
	return prefix + "/+/up/+"
}

// ParseTopic splits an uplink topic into device ID and port.
func ParseTopic(prefix, topic string) (string, uint8, error) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return "", 0, fmt.Errorf("%w: %q", ErrTopic, topic)
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] != "up" {
		return "", 0, fmt.Errorf("%w: %q", ErrTopic, topic)
	}
	port, err := strconv.ParseUint(parts[2], 10, 8)
	if err != nil {
		return "", 0, fmt.Errorf("%w: port %q", ErrTopic, parts[2])
	}
	return parts[0], uint8(port), nil
}

// Receiver handles uplink messages.
type Receiver struct {
	prefix  string
	tracker *status.Tracker
	sink    Sink
	now     func() time.Time
}

// New creates a Receiver. A nil sink disables forwarding.
func New(prefix string, tracker *status.Tracker, sink Sink) *Receiver {
	return &Receiver{prefix: prefix, tracker: tracker, sink: sink, now: time.Now}
}

// HandleMessage decodes one uplink, records it and forwards it. A payload
// that fails to decode is counted as rejected. A forwarding failure is
// returned after the uplink has been recorded.
func (r *Receiver) HandleMessage(ctx context.Context, topic string, payload []byte) (Uplink, error) {
	id, port, err := ParseTopic(r.prefix, topic)
	if err != nil {
		r.tracker.Reject()
		return Uplink{}, err
	}
	msg, err := codec.Decode(payload)
	if err != nil {
		r.tracker.Reject()
		return Uplink{}, fmt.Errorf("decode uplink from %s: %w", id, err)
	}

	u := Uplink{
		DeviceID:   id,
		Port:       port,
		Message:    msg,
		Raw:        append([]byte(nil), payload...),
		ReceivedAt: r.now(),
	}
	r.tracker.Record(id, port, msg, u.ReceivedAt)
	log.Printf("uplink: %s port=%d %s", id, port, msg)

	if r.sink != nil {
		if err := r.sink.Forward(ctx, u); err != nil {
			return u, fmt.Errorf("forward uplink from %s: %w", id, err)
		}
	}
	return u, nil
}

// UplinkJSON is the record forwarded for each decoded uplink.
type UplinkJSON struct {
	DeviceID          string  `json:"device_id"`
	Port              uint8   `json:"port"`
	Event             string  `json:"event"`
	Status            string  `json:"status"`
	BatteryRaw        uint16  `json:"battery_raw"`
	BatteryMillivolts float64 `json:"battery_mv"`
	Payload           string  `json:"payload"` // hex
	ReceivedAt        string  `json:"received_at"`
}

// FormatUplink returns the JSON record for u.
func FormatUplink(u Uplink) []byte {
	data, _ := json.Marshal(UplinkJSON{
		DeviceID:          u.DeviceID,
		Port:              u.Port,
		Event:             u.Message.Event.String(),
		Status:            u.Message.Status.String(),
		BatteryRaw:        u.Message.BatteryRaw,
		BatteryMillivolts: u.Message.BatteryMillivolts(),
		Payload:           fmt.Sprintf("%x", u.Raw),
		ReceivedAt:        u.ReceivedAt.UTC().Format(time.RFC3339),
	})
	return data
}
