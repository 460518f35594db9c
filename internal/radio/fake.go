package radio

// FakeRadio records radio calls for test assertions.
type FakeRadio struct {
	// Calls lists method names in call order.
	Calls []string

	// Uplinks contains all transmitted payloads.
	Uplinks []Uplink

	// Pins is the last wiring passed to Configure.
	Pins Pins

	// Resume and JoinOK control ResumeAfterSleep and Join.
	Resume bool
	JoinOK bool

	// ConfigureError and TransmitError, if set, are returned by those calls.
	ConfigureError error
	TransmitError  error

	// OnTransmit, if set, runs inside Transmit.
	OnTransmit func(Uplink)
}

// Uplink is one recorded Transmit call.
type Uplink struct {
	Payload   []byte
	Port      uint8
	Confirmed bool
}

// NewFakeRadio creates a FakeRadio whose join succeeds.
func NewFakeRadio() *FakeRadio {
	return &FakeRadio{JoinOK: true}
}

func (f *FakeRadio) Configure(pins Pins) error {
	f.Calls = append(f.Calls, "configure")
	f.Pins = pins
	return f.ConfigureError
}

func (f *FakeRadio) ResumeAfterSleep() bool {
	f.Calls = append(f.Calls, "resume")
	return f.Resume
}

func (f *FakeRadio) Join() bool {
	f.Calls = append(f.Calls, "join")
	return f.JoinOK
}

func (f *FakeRadio) Transmit(payload []byte, port uint8, confirmed bool) error {
	f.Calls = append(f.Calls, "transmit")
	u := Uplink{Payload: append([]byte(nil), payload...), Port: port, Confirmed: confirmed}
	if f.OnTransmit != nil {
		f.OnTransmit(u)
	}
	if f.TransmitError != nil {
		return f.TransmitError
	}
	f.Uplinks = append(f.Uplinks, u)
	return nil
}

func (f *FakeRadio) WaitForIdle() {
	f.Calls = append(f.Calls, "wait")
}

func (f *FakeRadio) PrepareForSleep() {
	f.Calls = append(f.Calls, "prepare")
}

func (f *FakeRadio) Shutdown() {
	f.Calls = append(f.Calls, "shutdown")
}

// Reset clears recorded calls.
func (f *FakeRadio) Reset() {
	f.Calls = nil
	f.Uplinks = nil
}
