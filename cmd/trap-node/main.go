// Command trap-node runs the trap sensor duty cycle: wake, sample the trap
// switch, report changes and heartbeats, then sleep.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/sweeney/trap-sensor/internal/config"
	"github.com/sweeney/trap-sensor/internal/cycle"
	"github.com/sweeney/trap-sensor/internal/display"
	"github.com/sweeney/trap-sensor/internal/gpio"
	"github.com/sweeney/trap-sensor/internal/logic"
	"github.com/sweeney/trap-sensor/internal/platform"
	"github.com/sweeney/trap-sensor/internal/power"
	"github.com/sweeney/trap-sensor/internal/radio"
	"github.com/sweeney/trap-sensor/internal/retention"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (built-in defaults if empty)")
	once := flag.Bool("once", false, "Run one cycle and exit, keeping state in node.retention_path")
	wake := flag.String("wake", "reset", `Wake cause of the first cycle ("reset", "timer", "button")`)

	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	cause, err := logic.ParseWakeCause(*wake)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := run(cfg, cause, *once); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// cycleConfig maps the node section of the config file onto the cycle.
func cycleConfig(n config.NodeConfig) cycle.Config {
	c := cycle.DefaultConfig()
	c.SleepInterval = n.SleepInterval
	c.HeartbeatInterval = n.HeartbeatInterval
	c.DisplayWindow = n.DisplayWindow
	c.ButtonWake = cycle.ExternalWake{Mask: n.ButtonMask()}
	c.RadioPins = n.Radio.Pins
	c.UplinkPort = n.Radio.Port
	return c
}

func run(cfg *config.Config, cause logic.WakeCause, once bool) error {
	n := cfg.Node

	bus, err := power.NewLinuxBus(n.PMIC.Address)
	if err != nil {
		return fmt.Errorf("init pmic: %w", err)
	}
	defer bus.Close()
	rails := power.NewController(bus, power.MustRailTable(power.DefaultRails()...))

	sensor, err := gpio.NewRealSensor(n.GPIO.Chip, n.GPIO.SensorLine)
	if err != nil {
		return fmt.Errorf("init sensor: %w", err)
	}
	defer sensor.Close()

	button := gpio.NewRealButton(n.GPIO.Chip)
	defer button.Close()

	deps := cycle.Deps{
		Rails:  rails,
		Sensor: sensor,
		Radio: radio.NewMQTTRadio(radio.MQTTConfig{
			Broker:         n.Radio.Broker,
			DeviceID:       n.DeviceID,
			TopicPrefix:    n.Radio.TopicPrefix,
			ConnectTimeout: n.Radio.ConnectTimeout,
			PublishTimeout: n.Radio.PublishTimeout,
			QueueSize:      n.Radio.QueueSize,
		}),
		Display: display.LogRenderer{},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("started: device=%s sleep=%v heartbeat=%v wake=%s once=%v",
		n.DeviceID, n.SleepInterval, n.HeartbeatInterval, cause, once)

	if once {
		deps.Store = retention.NewFileStore(n.RetentionPath)
		deps.Platform = platform.NewOneShot(cause)
		_, err := cycle.New(cycleConfig(n), deps).RunCycle(ctx)
		return err
	}

	deps.Store = retention.NewMemoryStore()
	deps.Platform = platform.NewHost(button, cause)
	return runLoop(ctx, cycle.New(cycleConfig(n), deps))
}

type cycleRunner interface {
	RunCycle(ctx context.Context) (cycle.Result, error)
}

// runLoop runs cycles back to back; each one blocks in deep sleep until its
// wake source fires. A cycle error means the node would have restarted, so
// it is returned for the supervisor to handle.
func runLoop(ctx context.Context, d cycleRunner) error {
	for {
		res, err := d.RunCycle(ctx)
		if ctx.Err() != nil {
			log.Printf("shutting down")
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s cycle: %w", res.Cause, err)
		}
		log.Printf("cycle done: cause=%s status=%s event=%s sent=%v",
			res.Cause, res.Status, res.Event, res.Transmitted)
	}
}
