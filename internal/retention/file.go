package retention

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sweeney/trap-sensor/internal/logic"
)

// recordSize is one status byte followed by big-endian unix seconds.
const recordSize = 9

// ErrCorrupt is returned when the retention file cannot be parsed.
var ErrCorrupt = errors.New("retention: corrupt record")

// FileStore keeps state in a small file so that an external scheduler can
// run one cycle per process. A missing file loads as Initial().
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the record.
func (f *FileStore) Load() (State, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Initial(), nil
	}
	if err != nil {
		return Initial(), fmt.Errorf("read retention file: %w", err)
	}
	return unmarshal(data)
}

// Save writes the record atomically.
func (f *FileStore) Save(s State) error {
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".retention-*")
	if err != nil {
		return fmt.Errorf("create retention file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(marshal(s)); err != nil {
		tmp.Close()
		return fmt.Errorf("write retention file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close retention file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace retention file: %w", err)
	}
	return nil
}

func marshal(s State) []byte {
	b := make([]byte, recordSize)
	b[0] = byte(s.Status & 0x03)
	binary.BigEndian.PutUint64(b[1:], uint64(s.LastUplinkAt.Unix()))
	return b
}

func unmarshal(b []byte) (State, error) {
	if len(b) != recordSize {
		return Initial(), fmt.Errorf("%w: %d bytes", ErrCorrupt, len(b))
	}
	status := logic.Status(b[0])
	if status > logic.StatusUnknown {
		return Initial(), fmt.Errorf("%w: status %d", ErrCorrupt, b[0])
	}
	return State{
		Status:       status,
		LastUplinkAt: time.Unix(int64(binary.BigEndian.Uint64(b[1:])), 0).UTC(),
	}, nil
}
