package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Validate checks configuration correctness. It does not mutate cfg.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalid)
	}
	if err := validateNode(&cfg.Node); err != nil {
		return err
	}
	return validateReceiver(&cfg.Receiver)
}

func validateNode(n *NodeConfig) error {
	if err := validateTopicSegment("node.device_id", n.DeviceID); err != nil {
		return err
	}
	if n.SleepInterval <= 0 {
		return invalid("node.sleep_interval must be positive")
	}
	if n.HeartbeatInterval < n.SleepInterval {
		return invalid("node.heartbeat_interval %v is shorter than sleep_interval %v", n.HeartbeatInterval, n.SleepInterval)
	}
	if n.DisplayWindow <= 0 {
		return invalid("node.display_window must be positive")
	}

	if n.GPIO.Chip == "" {
		return invalid("node.gpio.chip is required")
	}
	if n.GPIO.SensorLine < 0 {
		return invalid("node.gpio.sensor_line must not be negative")
	}
	if len(n.GPIO.ButtonLines) == 0 {
		return invalid("node.gpio.button_lines needs at least one line")
	}
	for _, l := range n.GPIO.ButtonLines {
		if l < 0 || l > 63 {
			return invalid("node.gpio.button_lines: line %d out of range 0-63", l)
		}
	}

	if n.PMIC.Address == 0 || n.PMIC.Address > 0x7F {
		return invalid("node.pmic.address 0x%02X is not a 7-bit I2C address", n.PMIC.Address)
	}

	r := n.Radio
	if r.Broker == "" {
		return invalid("node.radio.broker is required")
	}
	if err := validateTopicSegment("node.radio.topic_prefix", r.TopicPrefix); err != nil {
		return err
	}
	// LoRaWAN application ports.
	if r.Port < 1 || r.Port > 223 {
		return invalid("node.radio.port %d out of range 1-223", r.Port)
	}
	if r.QueueSize < 0 {
		return invalid("node.radio.queue_size must not be negative")
	}
	return nil
}

func validateReceiver(r *ReceiverConfig) error {
	if r.Broker == "" {
		return invalid("receiver.broker is required")
	}
	if err := validateTopicSegment("receiver.topic_prefix", r.TopicPrefix); err != nil {
		return err
	}
	if len(r.Kafka.Brokers) > 0 && r.Kafka.Topic == "" {
		return invalid("receiver.kafka.topic is required when brokers are set")
	}
	return nil
}

// validateTopicSegment rejects values that would change MQTT topic structure.
func validateTopicSegment(field, v string) error {
	if v == "" {
		return invalid("%s is required", field)
	}
	if strings.ContainsAny(v, "/+#") {
		return invalid("%s %q must not contain '/', '+' or '#'", field, v)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}
