//go:build tinygo

// Command trap-node-tbeam runs the trap duty cycle on a TTGO T-Beam built
// with TinyGo. The AXP192 sits on I2C0 and uplinks go out over LoRaWAN on
// the SX1276.
//
// OTAA keys are set at build time:
//
//	tinygo flash -target=esp32-coreboard-v2 \
//	  -ldflags="-X main.devEUI=... -X main.appEUI=... -X main.appKey=..." \
//	  ./cmd/trap-node-tbeam
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"machine"

	"tinygo.org/x/drivers/lora"
	"tinygo.org/x/drivers/sx127x"

	"github.com/sweeney/trap-sensor/internal/cycle"
	"github.com/sweeney/trap-sensor/internal/display"
	"github.com/sweeney/trap-sensor/internal/gpio"
	"github.com/sweeney/trap-sensor/internal/logic"
	"github.com/sweeney/trap-sensor/internal/platform"
	"github.com/sweeney/trap-sensor/internal/power"
	"github.com/sweeney/trap-sensor/internal/radio"
	"github.com/sweeney/trap-sensor/internal/retention"
)

// Set with -ldflags -X.
var (
	devEUI string
	appEUI string
	appKey string
	region = "EU868"
)

// PMIC I2C pins on the T-Beam.
const (
	pinSDA = machine.Pin(21)
	pinSCL = machine.Pin(22)
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run() error {
	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       pinSDA,
		SCL:       pinSCL,
	}); err != nil {
		return fmt.Errorf("init i2c: %w", err)
	}
	rails := power.NewController(power.NewTxBus(i2c, power.Address), power.MustRailTable(power.DefaultRails()...))

	lw := radio.LoRaWANConfig{Region: region}
	if err := lw.ParseKeys(devEUI, appEUI, appKey); err != nil {
		return err
	}

	cfg := cycle.DefaultConfig()
	deps := cycle.Deps{
		Rails:    rails,
		Sensor:   gpio.NewPinSensor(gpio.DefaultSensorLine),
		Radio:    radio.NewLoRaWANRadio(lw, setupSX127x),
		Display:  display.LogRenderer{},
		Store:    retention.NewMemoryStore(),
		Platform: platform.NewHost(gpio.NewPinButton(), logic.WakeReset),
	}

	log.Printf("started: sleep=%v heartbeat=%v region=%s", cfg.SleepInterval, cfg.HeartbeatInterval, region)

	d := cycle.New(cfg, deps)
	ctx := context.Background()
	for {
		res, err := d.RunCycle(ctx)
		if err != nil {
			return fmt.Errorf("%s cycle: %w", res.Cause, err)
		}
		log.Printf("cycle done: cause=%s status=%s event=%s sent=%v",
			res.Cause, res.Status, res.Event, res.Transmitted)
	}
}

// setupSX127x brings up the SX1276 on SPI0 with the configured wiring.
func setupSX127x(p radio.Pins) (lora.Radio, error) {
	rst := machine.Pin(p.RST)
	rst.Configure(machine.PinConfig{Mode: machine.PinOutput})

	spi := machine.SPI0
	if err := spi.Configure(machine.SPIConfig{
		Frequency: 500000,
		SCK:       machine.Pin(p.SCLK),
		SDO:       machine.Pin(p.MOSI),
		SDI:       machine.Pin(p.MISO),
	}); err != nil {
		return nil, fmt.Errorf("init spi: %w", err)
	}

	chip := sx127x.New(spi, rst)
	if err := chip.SetRadioController(sx127x.NewRadioControl(machine.Pin(p.NSS), machine.Pin(p.DIO0), machine.Pin(p.DIO1))); err != nil {
		return nil, err
	}
	chip.Reset()
	if !chip.DetectDevice() {
		return nil, errors.New("sx127x not found")
	}
	return chip, nil
}
