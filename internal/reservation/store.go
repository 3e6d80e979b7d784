package reservation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/feeder/internal/model"
)

// SnapshotFileName is the snapshot file kept under the state directory.
const SnapshotFileName = "reservation.toml"

// SnapshotStore persists the single active reservation snapshot.
type SnapshotStore interface {
	Save(snap model.ReservationSnapshot) error
	// Load returns nil without error when no snapshot is stored.
	Load() (*model.ReservationSnapshot, error)
	Clear() error
}

// Ensure FileStore implements SnapshotStore at compile time.
var _ SnapshotStore = (*FileStore)(nil)

// FileStore keeps the snapshot as a TOML file.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore writing to dir/reservation.toml.
func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, SnapshotFileName)}
}

// Path returns the snapshot file path.
func (s *FileStore) Path() string { return s.path }

// Save replaces the stored snapshot. The file is written to a temp file and
// renamed so a crash never leaves a truncated snapshot behind.
func (s *FileStore) Save(snap model.ReservationSnapshot) error {
	if strings.TrimSpace(snap.PointID) == "" {
		return fmt.Errorf("save snapshot: point id is empty")
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := toml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".reservation-*.toml")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load reads the stored snapshot.
func (s *FileStore) Load() (*model.ReservationSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap model.ReservationSnapshot
	if err := toml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	if strings.TrimSpace(snap.PointID) == "" {
		return nil, fmt.Errorf("parse snapshot: point id is empty")
	}
	return &snap, nil
}

// Clear removes the stored snapshot. Clearing a missing snapshot succeeds.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	return nil
}
