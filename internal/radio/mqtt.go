//go:build !tinygo

package radio

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig configures the bench radio.
type MQTTConfig struct {
	Broker         string
	DeviceID       string
	TopicPrefix    string
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
	QueueSize      int
}

// MQTTRadio stands in for the LoRaWAN stack on a bench node: joining connects
// to a broker and uplinks are published as raw payloads on
// <prefix>/<device>/up/<port>. Uplinks sent while not joined are queued and
// replayed after the next successful join.
type MQTTRadio struct {
	cfg MQTTConfig

	mu      sync.Mutex
	pins    Pins
	opts    *paho.ClientOptions
	client  paho.Client
	queue   *uplinkQueue
	pending []paho.Token
	session bool

	// newClient is replaceable for tests.
	newClient func(*paho.ClientOptions) paho.Client
}

// NewMQTTRadio creates a radio for cfg. Nothing connects until Join.
func NewMQTTRadio(cfg MQTTConfig) *MQTTRadio {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "trap"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	return &MQTTRadio{
		cfg:       cfg,
		queue:     newUplinkQueue(cfg.QueueSize),
		newClient: paho.NewClient,
	}
}

// Configure records the wiring and prepares client options.
func (r *MQTTRadio) Configure(pins Pins) error {
	if r.cfg.Broker == "" {
		return errors.New("radio: broker required")
	}
	if r.cfg.DeviceID == "" {
		return errors.New("radio: device id required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.pins = pins
	r.opts = paho.NewClientOptions().
		AddBroker(r.cfg.Broker).
		SetClientID("trap-" + r.cfg.DeviceID).
		SetAutoReconnect(false).
		SetConnectTimeout(r.cfg.ConnectTimeout)
	log.Printf("radio: configured %s", pins)
	return nil
}

// ResumeAfterSleep reconnects if a previous join was saved by PrepareForSleep.
func (r *MQTTRadio) ResumeAfterSleep() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.session {
		return false
	}
	if err := r.connectLocked(); err != nil {
		log.Printf("radio: resume failed: %v", err)
		r.session = false
		return false
	}
	return true
}

// Join connects to the broker.
func (r *MQTTRadio) Join() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.connectLocked(); err != nil {
		log.Printf("radio: join failed: %v", err)
		return false
	}
	return true
}

func (r *MQTTRadio) connectLocked() error {
	if r.opts == nil {
		return errors.New("not configured")
	}
	if r.client != nil && r.client.IsConnected() {
		return nil
	}

	client := r.newClient(r.opts)
	token := client.Connect()
	if !token.WaitTimeout(r.cfg.ConnectTimeout) {
		return fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	r.client = client

	queued := r.queue.drain()
	if len(queued) > 0 {
		log.Printf("radio: replaying %d queued uplinks", len(queued))
	}
	for _, u := range queued {
		r.publishLocked(u)
	}
	return nil
}

// publishLocked sends u on its port topic. Confirmed uplinks use QoS 1,
// unconfirmed QoS 0.
func (r *MQTTRadio) publishLocked(u uplink) {
	var qos byte
	if u.confirmed {
		qos = 1
	}
	topic := UplinkTopic(r.cfg.TopicPrefix, r.cfg.DeviceID, u.port)
	r.pending = append(r.pending, r.client.Publish(topic, qos, false, u.payload))
}

// Transmit publishes payload, or queues it if not joined.
func (r *MQTTRadio) Transmit(payload []byte, port uint8, confirmed bool) error {
	u := uplink{
		port:      port,
		payload:   append([]byte(nil), payload...),
		confirmed: confirmed,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil || !r.client.IsConnected() {
		r.queue.push(u)
		log.Printf("radio: not joined, queued uplink (%d queued)", r.queue.len())
		return nil
	}
	r.publishLocked(u)
	return nil
}

// WaitForIdle waits for in-flight publishes.
func (r *MQTTRadio) WaitForIdle() {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()

	for _, token := range pending {
		if !token.WaitTimeout(r.cfg.PublishTimeout) {
			log.Printf("radio: publish timeout")
			continue
		}
		if err := token.Error(); err != nil {
			log.Printf("radio: publish: %v", err)
		}
	}
}

// PrepareForSleep keeps the session if currently joined.
func (r *MQTTRadio) PrepareForSleep() {
	r.mu.Lock()
	r.session = r.client != nil && r.client.IsConnected()
	r.mu.Unlock()
}

// Shutdown disconnects from the broker. Queued uplinks and the saved
// session are kept.
func (r *MQTTRadio) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return
	}
	r.client.Disconnect(250)
	r.client = nil
}

// Queued returns the number of uplinks waiting for a join.
func (r *MQTTRadio) Queued() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queue.len()
}
