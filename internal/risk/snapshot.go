package risk

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SnapshotStore persists the session risk state after every tick so an
// interrupted run resumes from the last completed tick. Writes are atomic
// (temp file + rename): a crash never leaves a partial snapshot behind.
type SnapshotStore struct {
	path string
}

func NewSnapshotStore(path string) (*SnapshotStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &SnapshotStore{path: path}, nil
}

func (st *SnapshotStore) Path() string { return st.path }

// Save writes the state atomically. A failed save is fatal for the run: the
// next tick must not proceed without a durable resumption point.
func (st *SnapshotStore) Save(s *State) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal risk state: %w", err)
	}

	tempPath := st.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write risk state: %w", err)
	}
	if err := os.Rename(tempPath, st.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename risk state: %w", err)
	}
	return nil
}

// Load reads the last persisted state. ok is false when no snapshot exists
// yet, which is not an error for a fresh run.
func (st *SnapshotStore) Load() (*State, bool, error) {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read risk state: %w", err)
	}
	s, err := UnmarshalState(data)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}
