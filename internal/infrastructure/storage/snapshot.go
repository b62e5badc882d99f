package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"mbnotifier/internal/domain"
	"mbnotifier/internal/ports"
)

// SnapshotStore caches the latest scraped children and assignments as one
// JSON document so the bot listener can rebuild the manage keyboard without
// re-scraping between runs.
type SnapshotStore struct {
	path string
}

var _ ports.SnapshotStore = (*SnapshotStore)(nil)

// NewSnapshotStore points the store at a JSON file path.
func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

// Save overwrites the whole snapshot.
func (s *SnapshotStore) Save(children []domain.ChildProfile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	raw, err := json.Marshal(children)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Load returns the cached children; a missing file yields an empty slice.
func (s *SnapshotStore) Load() ([]domain.ChildProfile, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var children []domain.ChildProfile
	if err := json.Unmarshal(raw, &children); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return children, nil
}
