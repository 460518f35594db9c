// Command trap-receiver subscribes to trap uplinks on an MQTT broker, decodes
// them, serves their state over HTTP and optionally forwards them to Kafka.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/trap-sensor/internal/config"
	"github.com/sweeney/trap-sensor/internal/receiver"
	"github.com/sweeney/trap-sensor/internal/status"
	"github.com/sweeney/trap-sensor/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (built-in defaults if empty)")
	broker := flag.String("broker", "", "MQTT broker address (overrides receiver.broker)")
	httpAddr := flag.String("http", "", "HTTP status address (overrides receiver.http_addr)")

	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("fatal: %v", err)
		}
	}
	if *broker != "" {
		cfg.Receiver.Broker = *broker
	}
	if *httpAddr != "" {
		cfg.Receiver.HTTPAddr = *httpAddr
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// staleAfter is how long a trap may stay silent before it is flagged: two
// missed heartbeats.
func staleAfter(n config.NodeConfig) time.Duration {
	return 2 * (n.HeartbeatInterval + n.SleepInterval)
}

func run(cfg *config.Config) error {
	rc := cfg.Receiver

	tracker := status.NewTracker(time.Now(), status.Config{
		Broker:      rc.Broker,
		TopicPrefix: rc.TopicPrefix,
		HTTPAddr:    rc.HTTPAddr,
		KafkaTopic:  rc.Kafka.Topic,
		StaleAfter:  staleAfter(cfg.Node),
	})

	var sink receiver.Sink
	if len(rc.Kafka.Brokers) > 0 {
		sink = receiver.NewKafkaSink(rc.Kafka.Brokers, rc.Kafka.Topic)
		defer sink.Close()
		log.Printf("forwarding uplinks to kafka topic %s", rc.Kafka.Topic)
	}
	recv := receiver.New(rc.TopicPrefix, tracker, sink)

	client := paho.NewClient(recv.ClientOptions(rc.Broker, rc.ClientID))
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: connection to %s pending, retrying in background", rc.Broker)
	} else if err := token.Error(); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer client.Disconnect(250)

	if rc.HTTPAddr != "" {
		srv := web.New(rc.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", rc.HTTPAddr)
	}

	log.Printf("started: broker=%s filter=%s", rc.Broker, receiver.Filter(rc.TopicPrefix))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	log.Printf("received %v, shutting down", s)
	return nil
}
