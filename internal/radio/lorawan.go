package radio

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sync"

	"tinygo.org/x/drivers/lora"
	"tinygo.org/x/drivers/lora/lorawan"
	"tinygo.org/x/drivers/lora/lorawan/region"
)

// ErrPort is returned by LoRaWANRadio.Transmit for uplinks off StatusPort.
// The MAC frames every uplink on FPort 1.
var ErrPort = errors.New("radio: lorawan uplinks use the status port only")

// ErrRegion is returned for an unknown regional plan.
var ErrRegion = errors.New("radio: unknown lorawan region")

// LoRaWANConfig holds the OTAA identity and regional plan of the node.
type LoRaWANConfig struct {
	DevEUI       [8]byte
	AppEUI       [8]byte
	AppKey       [16]byte
	Region       string // EU868, US915 or AU915
	JoinAttempts int
	QueueSize    int
}

// ParseKeys fills the OTAA identity from hex strings.
func (c *LoRaWANConfig) ParseKeys(devEUI, appEUI, appKey string) error {
	for _, k := range []struct {
		name string
		hex  string
		dst  []byte
	}{
		{"dev eui", devEUI, c.DevEUI[:]},
		{"app eui", appEUI, c.AppEUI[:]},
		{"app key", appKey, c.AppKey[:]},
	} {
		b, err := hex.DecodeString(k.hex)
		if err != nil {
			return fmt.Errorf("radio: %s: %w", k.name, err)
		}
		if len(b) != len(k.dst) {
			return fmt.Errorf("radio: %s: got %d bytes, want %d", k.name, len(b), len(k.dst))
		}
		copy(k.dst, b)
	}
	return nil
}

// RegionSettings returns the channel plan for name.
func RegionSettings(name string) (region.Settings, error) {
	switch name {
	case "EU868", "":
		return region.EU868(), nil
	case "US915":
		return region.US915(), nil
	case "AU915":
		return region.AU915(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrRegion, name)
}

// Setup brings up the radio chip for the given wiring.
type Setup func(pins Pins) (lora.Radio, error)

// link is the LoRaWAN MAC.
type link interface {
	attach(r lora.Radio, rs region.Settings)
	join(o *lorawan.Otaa, s *lorawan.Session) error
	send(payload []byte, s *lorawan.Session) error
}

// The MAC keeps its radio and region in package state, so it is bound once
// per process.
var attachOnce sync.Once

type macLink struct{}

func (macLink) attach(r lora.Radio, rs region.Settings) {
	attachOnce.Do(func() {
		lorawan.UseRadio(r)
		lorawan.UseRegionSettings(rs)
		lorawan.SetPublicNetwork(true)
	})
}

func (macLink) join(o *lorawan.Otaa, s *lorawan.Session) error {
	return lorawan.Join(o, s)
}

func (macLink) send(payload []byte, s *lorawan.Session) error {
	return lorawan.SendUplink(payload, s)
}

// LoRaWANRadio is the over-the-air uplink stack on the SX127x. The session
// stays in memory across sleep, so a resumed node keeps its frame counter.
// Uplinks are queued by Transmit and sent by WaitForIdle.
type LoRaWANRadio struct {
	cfg   LoRaWANConfig
	setup Setup
	link  link

	mu      sync.Mutex
	otaa    lorawan.Otaa
	session *lorawan.Session
	saved   *lorawan.Session
	queue   *uplinkQueue
	ready   bool
}

// NewLoRaWANRadio creates a radio that calls setup on Configure.
func NewLoRaWANRadio(cfg LoRaWANConfig, setup Setup) *LoRaWANRadio {
	if cfg.JoinAttempts <= 0 {
		cfg.JoinAttempts = 3
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	return &LoRaWANRadio{
		cfg:   cfg,
		setup: setup,
		link:  macLink{},
		queue: newUplinkQueue(cfg.QueueSize),
	}
}

// Configure brings up the chip and binds it to the MAC.
func (r *LoRaWANRadio) Configure(pins Pins) error {
	rs, err := RegionSettings(r.cfg.Region)
	if err != nil {
		return err
	}
	if r.setup == nil {
		return errors.New("radio: no chip setup")
	}
	chip, err := r.setup(pins)
	if err != nil {
		return fmt.Errorf("radio: setup: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.link.attach(chip, rs)
	r.otaa.Set(r.cfg.AppEUI[:], r.cfg.DevEUI[:], r.cfg.AppKey[:])
	r.ready = true
	log.Printf("radio: configured %s dev_eui=%s", pins, r.otaa.GetDevEUI())
	return nil
}

// ResumeAfterSleep restores the session saved by PrepareForSleep.
func (r *LoRaWANRadio) ResumeAfterSleep() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready || r.saved == nil {
		return false
	}
	r.session = r.saved
	return true
}

// Join runs OTAA, trying up to JoinAttempts times.
func (r *LoRaWANRadio) Join() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready {
		log.Printf("radio: join failed: not configured")
		return false
	}
	for attempt := 1; attempt <= r.cfg.JoinAttempts; attempt++ {
		s := &lorawan.Session{}
		err := r.link.join(&r.otaa, s)
		if err == nil {
			r.session = s
			log.Printf("radio: joined dev_addr=%s", s.GetDevAddr())
			return true
		}
		log.Printf("radio: join attempt %d/%d: %v", attempt, r.cfg.JoinAttempts, err)
	}
	return false
}

// Transmit queues payload for the next WaitForIdle.
func (r *LoRaWANRadio) Transmit(payload []byte, port uint8, confirmed bool) error {
	if port != StatusPort {
		return fmt.Errorf("%w: got port %d", ErrPort, port)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue.push(uplink{
		port:      port,
		payload:   append([]byte(nil), payload...),
		confirmed: confirmed,
	})
	return nil
}

// WaitForIdle sends queued uplinks if joined. An uplink that fails is put
// back with everything after it.
func (r *LoRaWANRadio) WaitForIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		if n := r.queue.len(); n > 0 {
			log.Printf("radio: not joined, %d uplinks queued", n)
		}
		return
	}

	queued := r.queue.drain()
	for i, u := range queued {
		if err := r.link.send(u.payload, r.session); err != nil {
			log.Printf("radio: uplink: %v", err)
			for _, rest := range queued[i:] {
				r.queue.push(rest)
			}
			return
		}
	}
}

// PrepareForSleep keeps the current session, if any.
func (r *LoRaWANRadio) PrepareForSleep() {
	r.mu.Lock()
	r.saved = r.session
	r.mu.Unlock()
}

// Shutdown drops the live session. Queued uplinks and the saved session are
// kept.
func (r *LoRaWANRadio) Shutdown() {
	r.mu.Lock()
	r.session = nil
	r.mu.Unlock()
}

// Queued returns the number of uplinks waiting to be sent.
func (r *LoRaWANRadio) Queued() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queue.len()
}
