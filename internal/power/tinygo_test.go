package power

import (
	"errors"
	"testing"
)

// fakeI2C records Tx calls against a single-device register file.
type fakeI2C struct {
	regs  map[uint8]uint8
	addrs []uint16
	err   error
}

func (f *fakeI2C) Tx(addr uint16, w, r []byte) error {
	f.addrs = append(f.addrs, addr)
	if f.err != nil {
		return f.err
	}
	if len(r) > 0 {
		r[0] = f.regs[w[0]]
		return nil
	}
	f.regs[w[0]] = w[1]
	return nil
}

func TestTxBus(t *testing.T) {
	dev := &fakeI2C{regs: map[uint8]uint8{0x12: 0x05}}
	b := NewTxBus(dev, Address)

	v, err := b.ReadRegister(0x12)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x05 {
		t.Errorf("read: got 0x%02X, want 0x05", v)
	}

	if err := b.WriteRegister(0x12, 0x0F); err != nil {
		t.Fatal(err)
	}
	if dev.regs[0x12] != 0x0F {
		t.Errorf("write: got 0x%02X, want 0x0F", dev.regs[0x12])
	}

	for _, a := range dev.addrs {
		if a != Address {
			t.Errorf("addressed 0x%02X, want 0x%02X", a, Address)
		}
	}
}

func TestTxBusWrapsErrors(t *testing.T) {
	cause := errors.New("nack")
	b := NewTxBus(&fakeI2C{err: cause}, Address)

	_, err := b.ReadRegister(0x78)
	var be *BusError
	if !errors.As(err, &be) || be.Op != "read" || be.Register != 0x78 {
		t.Errorf("read: got %v", err)
	}
	if err := b.WriteRegister(0x12, 0); !errors.Is(err, cause) {
		t.Errorf("write: got %v, want cause preserved", err)
	}
}

func TestControllerOverTxBus(t *testing.T) {
	dev := &fakeI2C{regs: map[uint8]uint8{0x12: 0x01}}
	c := NewController(NewTxBus(dev, Address), MustRailTable(DefaultRails()...))

	if err := c.SetEnabled(LDO2, true); err != nil {
		t.Fatal(err)
	}
	if dev.regs[0x12] != 0x05 {
		t.Errorf("got 0x%02X, want 0x05", dev.regs[0x12])
	}
}
