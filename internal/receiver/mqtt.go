package receiver

import (
	"context"
	"fmt"
	"log"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// ClientOptions returns options for the receiver's broker connection. The
// subscription is renewed on every (re)connect, and the tracker follows the
// connection state.
func (r *Receiver) ClientOptions(broker, clientID string) *paho.ClientOptions {
	return paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c paho.Client) {
			r.tracker.SetMQTTConnected(true)
			if err := r.Subscribe(c, 5*time.Second); err != nil {
				log.Printf("mqtt: %v", err)
			}
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			r.tracker.SetMQTTConnected(false)
			log.Printf("mqtt: connection lost: %v", err)
		})
}

// Subscribe subscribes to every uplink topic under the prefix.
func (r *Receiver) Subscribe(c paho.Client, timeout time.Duration) error {
	filter := Filter(r.prefix)
	token := c.Subscribe(filter, 0, r.onMessage)
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("subscribe %s: timeout", filter)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", filter, err)
	}
	log.Printf("mqtt: subscribed to %s", filter)
	return nil
}

func (r *Receiver) onMessage(_ paho.Client, m paho.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := r.HandleMessage(ctx, m.Topic(), m.Payload()); err != nil {
		log.Printf("uplink: %v", err)
	}
}
