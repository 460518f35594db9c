// Package radio defines the uplink radio the node transmits through, with
// abstraction for testing. Join, retry and queueing belong to the radio; the
// wake cycle only asks it to send.
package radio

import "fmt"

// Radio is the LoRaWAN-style uplink stack.
type Radio interface {
	// Configure sets up the radio for the given wiring.
	Configure(pins Pins) error

	// ResumeAfterSleep restores a session kept across deep sleep.
	// Returns false if there is none and a join is needed.
	ResumeAfterSleep() bool

	// Join establishes a new session.
	Join() bool

	// Transmit queues an uplink. It does not wait for delivery.
	Transmit(payload []byte, port uint8, confirmed bool) error

	// WaitForIdle blocks until queued uplinks have left the radio.
	WaitForIdle()

	// PrepareForSleep saves the session so ResumeAfterSleep can restore it.
	PrepareForSleep()

	// Shutdown powers the radio down.
	Shutdown()
}

// Pins is the SPI wiring of the radio module.
type Pins struct {
	SCLK int `yaml:"sclk"`
	MOSI int `yaml:"mosi"`
	MISO int `yaml:"miso"`
	NSS  int `yaml:"nss"`
	RXTX int `yaml:"rxtx"` // NotConnected if unused
	RST  int `yaml:"rst"`
	DIO0 int `yaml:"dio0"`
	DIO1 int `yaml:"dio1"`
}

// NotConnected marks an unused pin.
const NotConnected = -1

// DefaultPins is the SX1276 wiring on the TTGO T-Beam.
func DefaultPins() Pins {
	return Pins{
		SCLK: 5,
		MOSI: 27,
		MISO: 19,
		NSS:  18,
		RXTX: NotConnected,
		RST:  23,
		DIO0: 26,
		DIO1: 33,
	}
}

func (p Pins) String() string {
	return fmt.Sprintf("sclk=%d mosi=%d miso=%d nss=%d rst=%d dio0=%d dio1=%d", p.SCLK, p.MOSI, p.MISO, p.NSS, p.RST, p.DIO0, p.DIO1)
}

// StatusPort is the application port trap uplinks are sent on.
const StatusPort = 1

// UplinkTopic is the MQTT topic an uplink on port is published to.
func UplinkTopic(prefix, deviceID string, port uint8) string {
	return fmt.Sprintf("%s/%s/up/%d", prefix, deviceID, port)
}
