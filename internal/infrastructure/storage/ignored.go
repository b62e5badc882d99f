package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"mbnotifier/internal/ports"
)

// IgnoreStore persists the task-id → title ignore map as a flat JSON
// document, read and written wholesale on every operation. The file is
// shared between the notifier and the bot listener.
type IgnoreStore struct {
	path   string
	logger *slog.Logger
}

var _ ports.IgnoreStore = (*IgnoreStore)(nil)

// NewIgnoreStore points the store at a JSON file path.
func NewIgnoreStore(path string, logger *slog.Logger) *IgnoreStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &IgnoreStore{path: path, logger: logger}
}

// Load returns the ignore map; a missing file is an empty map, not an error.
func (s *IgnoreStore) Load() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ignore list: %w", err)
	}

	var ignored map[string]string
	if err := json.Unmarshal(raw, &ignored); err != nil {
		return nil, fmt.Errorf("parse ignore list: %w", err)
	}
	if ignored == nil {
		ignored = map[string]string{}
	}
	return ignored, nil
}

// Add records a task as ignored. Returns false when it already was.
func (s *IgnoreStore) Add(taskID, title string) (bool, error) {
	ignored, err := s.Load()
	if err != nil {
		return false, err
	}
	if _, ok := ignored[taskID]; ok {
		return false, nil
	}
	ignored[taskID] = title
	if err := s.save(ignored); err != nil {
		return false, err
	}
	s.logger.Info("ignored task", "task_id", taskID, "title", title)
	return true, nil
}

// Remove drops a task from the ignore list. Returns false when it was absent.
func (s *IgnoreStore) Remove(taskID string) (bool, error) {
	ignored, err := s.Load()
	if err != nil {
		return false, err
	}
	if _, ok := ignored[taskID]; !ok {
		return false, nil
	}
	delete(ignored, taskID)
	if err := s.save(ignored); err != nil {
		return false, err
	}
	s.logger.Info("un-ignored task", "task_id", taskID)
	return true, nil
}

func (s *IgnoreStore) save(ignored map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	raw, err := json.MarshalIndent(ignored, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ignore list: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("write ignore list: %w", err)
	}
	return nil
}
