package receiver

import (
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type fakeMessage struct {
	paho.Message
	topic   string
	payload []byte
}

func (m *fakeMessage) Topic() string   { return m.topic }
func (m *fakeMessage) Payload() []byte { return m.payload }

// fakeClient records the subscription and lets tests deliver messages.
type fakeClient struct {
	paho.Client
	filter       string
	handler      paho.MessageHandler
	subscribeErr error
}

func (c *fakeClient) Subscribe(topic string, qos byte, cb paho.MessageHandler) paho.Token {
	c.filter = topic
	c.handler = cb
	return &fakeToken{err: c.subscribeErr}
}

func (c *fakeClient) deliver(topic string, payload []byte) {
	c.handler(c, &fakeMessage{topic: topic, payload: payload})
}

func TestSubscribeDeliversUplinks(t *testing.T) {
	sink := &FakeSink{}
	r, tr := newTestReceiver(sink)
	c := &fakeClient{}

	if err := r.Subscribe(c, time.Second); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if c.filter != "traps/+/up/+" {
		t.Errorf("filter = %q", c.filter)
	}

	c.deliver("traps/trap-1/up/1", []byte{0x1A, 0xBC})
	c.deliver("traps/trap-1/up/1", []byte{0x1A})

	snap := tr.Snapshot()
	if snap.Decoded != 1 || snap.Rejected != 1 {
		t.Errorf("Decoded/Rejected = %d/%d, want 1/1", snap.Decoded, snap.Rejected)
	}
	if len(sink.Uplinks()) != 1 {
		t.Errorf("forwarded = %d, want 1", len(sink.Uplinks()))
	}
}

func TestSubscribeError(t *testing.T) {
	r, _ := newTestReceiver(nil)
	errDenied := errors.New("not authorized")

	err := r.Subscribe(&fakeClient{subscribeErr: errDenied}, time.Second)
	if !errors.Is(err, errDenied) {
		t.Errorf("Subscribe() error = %v, want %v", err, errDenied)
	}
}

func TestClientOptionsTrackConnection(t *testing.T) {
	r, tr := newTestReceiver(nil)
	opts := r.ClientOptions("tcp://localhost:1883", "trap-receiver")

	if opts.ClientID != "trap-receiver" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	c := &fakeClient{}
	opts.OnConnect(c)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected after connect")
	}
	if c.filter != "traps/+/up/+" {
		t.Errorf("not resubscribed on connect: filter = %q", c.filter)
	}

	opts.OnConnectionLost(c, errors.New("eof"))
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false after connection lost")
	}
}
