// Package config loads the YAML configuration shared by the node and the
// bench receiver.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/trap-sensor/internal/radio"
)

type Config struct {
	Node     NodeConfig     `yaml:"node"`
	Receiver ReceiverConfig `yaml:"receiver"`
}

// ---- NODE ----

type NodeConfig struct {
	DeviceID          string        `yaml:"device_id"`
	SleepInterval     time.Duration `yaml:"sleep_interval"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	DisplayWindow     time.Duration `yaml:"display_window"`
	RetentionPath     string        `yaml:"retention_path"` // used in one-shot mode

	GPIO  GPIOConfig  `yaml:"gpio"`
	PMIC  PMICConfig  `yaml:"pmic"`
	Radio RadioConfig `yaml:"radio"`
}

type GPIOConfig struct {
	Chip        string `yaml:"chip"`
	SensorLine  int    `yaml:"sensor_line"`
	ButtonLines []int  `yaml:"button_lines"`
}

type PMICConfig struct {
	Address uint8 `yaml:"address"`
}

type RadioConfig struct {
	Broker         string        `yaml:"broker"`
	TopicPrefix    string        `yaml:"topic_prefix"`
	Port           uint8         `yaml:"port"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
	QueueSize      int           `yaml:"queue_size"`
	Pins           radio.Pins    `yaml:"pins"`
}

// ---- RECEIVER ----

type ReceiverConfig struct {
	Broker      string      `yaml:"broker"`
	ClientID    string      `yaml:"client_id"`
	TopicPrefix string      `yaml:"topic_prefix"`
	HTTPAddr    string      `yaml:"http_addr"`
	Kafka       KafkaConfig `yaml:"kafka"`
}

// KafkaConfig enables forwarding of decoded uplinks. Empty Brokers disables it.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Default returns the T-Beam trap configuration.
func Default() *Config {
	return &Config{
		Node: NodeConfig{
			DeviceID:          "trap-1",
			SleepInterval:     10 * time.Second,
			HeartbeatInterval: 600 * time.Second,
			DisplayWindow:     5 * time.Second,
			RetentionPath:     "/var/lib/trap-sensor/state",
			GPIO: GPIOConfig{
				Chip:        "gpiochip0",
				SensorLine:  13,
				ButtonLines: []int{38},
			},
			PMIC: PMICConfig{Address: 0x34},
			Radio: RadioConfig{
				Broker:         "tcp://localhost:1883",
				TopicPrefix:    "traps",
				Port:           radio.StatusPort,
				ConnectTimeout: 10 * time.Second,
				PublishTimeout: 5 * time.Second,
				QueueSize:      16,
				Pins:           radio.DefaultPins(),
			},
		},
		Receiver: ReceiverConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "trap-receiver",
			TopicPrefix: "traps",
			HTTPAddr:    ":8080",
		},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ButtonMask returns the wake mask of the configured button lines.
func (n NodeConfig) ButtonMask() uint64 {
	var mask uint64
	for _, l := range n.GPIO.ButtonLines {
		mask |= 1 << uint(l)
	}
	return mask
}
