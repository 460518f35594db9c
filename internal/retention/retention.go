// Package retention holds the state that must survive deep sleep: the last
// sampled status and the time of the last uplink.
package retention

import (
	"sync"
	"time"

	"github.com/sweeney/trap-sensor/internal/logic"
)

// State is what the node remembers between wake cycles.
type State struct {
	Status       logic.Status
	LastUplinkAt time.Time
}

// Initial is the state after a cold boot.
func Initial() State {
	return State{
		Status:       logic.StatusUnknown,
		LastUplinkAt: time.Unix(0, 0).UTC(),
	}
}

// Store is retention memory. It survives deep sleep but not power loss.
type Store interface {
	Load() (State, error)
	Save(State) error
}

// MemoryStore keeps state in process memory. Deep sleep on the host runs
// inside one process, so this behaves like RTC memory: it survives sleep and
// is lost when the process restarts.
type MemoryStore struct {
	mu    sync.Mutex
	state State
}

// NewMemoryStore creates a MemoryStore holding Initial().
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: Initial()}
}

// Load returns the stored state.
func (m *MemoryStore) Load() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

// Save replaces the stored state.
func (m *MemoryStore) Save(s State) error {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	return nil
}
