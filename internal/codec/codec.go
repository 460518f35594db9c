// Package codec packs and unpacks the 2-byte trap uplink.
//
// Layout (big-endian, bit 15 first):
//
//	15..14  event
//	13..12  status
//	11..0   battery raw (PMIC ADC counts, see power.BatteryMillivoltsPerLSB)
//
// The receiver side depends on this layout bit for bit.
package codec

import (
	"errors"
	"fmt"

	"github.com/sweeney/trap-sensor/internal/logic"
	"github.com/sweeney/trap-sensor/internal/power"
)

// Size is the exact length of an uplink payload.
const Size = 2

// MaxBatteryRaw is the largest battery value the payload can carry.
const MaxBatteryRaw = 0x0FFF

// ErrPayloadLength is returned by Decode for payloads that are not Size bytes.
var ErrPayloadLength = errors.New("codec: payload must be 2 bytes")

// Message is a decoded uplink.
type Message struct {
	Event      logic.Event
	Status     logic.Status
	BatteryRaw uint16
}

// BatteryMillivolts scales the raw battery reading the same way the node does.
func (m Message) BatteryMillivolts() float64 {
	return power.BatteryMillivolts(m.BatteryRaw)
}

func (m Message) String() string {
	return fmt.Sprintf("event=%s status=%s battery=%d", m.Event, m.Status, m.BatteryRaw)
}

// Encode packs an uplink. Values wider than their field are truncated, so
// battery readings above MaxBatteryRaw lose their high bits.
func Encode(event logic.Event, status logic.Status, batteryRaw uint16) [Size]byte {
	var b [Size]byte
	b[0] = byte(event&0x03)<<6 | byte(status&0x03)<<4 | byte(batteryRaw>>8)&0x0F
	b[1] = byte(batteryRaw)
	return b
}

// EncodeMessage is Encode for a Message value.
func EncodeMessage(m Message) [Size]byte {
	return Encode(m.Event, m.Status, m.BatteryRaw)
}

// Decode unpacks an uplink produced by Encode.
func Decode(payload []byte) (Message, error) {
	if len(payload) != Size {
		return Message{}, fmt.Errorf("%w: got %d", ErrPayloadLength, len(payload))
	}
	return Message{
		Event:      logic.Event(payload[0] >> 6 & 0x03),
		Status:     logic.Status(payload[0] >> 4 & 0x03),
		BatteryRaw: uint16(payload[0]&0x0F)<<8 | uint16(payload[1]),
	}, nil
}
