package receiver

import (
	"context"
	"sync"
)

// FakeSink records forwarded uplinks for test assertions.
type FakeSink struct {
	mu      sync.Mutex
	uplinks []Uplink
	closed  bool

	// ForwardError, if set, is returned by Forward.
	ForwardError error
}

func (f *FakeSink) Forward(ctx context.Context, u Uplink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ForwardError != nil {
		return f.ForwardError
	}
	f.uplinks = append(f.uplinks, u)
	return nil
}

func (f *FakeSink) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Uplinks returns the forwarded uplinks.
func (f *FakeSink) Uplinks() []Uplink {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Uplink(nil), f.uplinks...)
}

// Closed reports whether Close was called.
func (f *FakeSink) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
