package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store provides read access to user preferences.
type Store interface {
	Get(userID string) (Preferences, error)
}

// FileStore reads preferences from per-user JSON files in a directory.
// A missing file is not an error; defaults are returned instead.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed preference store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Get loads preferences for a user, falling back to defaults when no file
// exists. Fields absent from the file keep their default values.
func (s *FileStore) Get(userID string) (Preferences, error) {
	p := Defaults(userID)
	data, err := os.ReadFile(filepath.Join(s.dir, fmt.Sprintf("prefs-%s.json", userID)))
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return Preferences{}, fmt.Errorf("failed to read preferences for %s: %w", userID, err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return Preferences{}, fmt.Errorf("failed to parse preferences for %s: %w", userID, err)
	}
	p.UserID = userID
	return p, nil
}

// StaticStore serves a fixed set of preferences. Used in tests and for
// single-user deployments configured entirely through code.
type StaticStore struct {
	ByUser map[string]Preferences
}

// Get returns the stored preferences for the user, or defaults.
func (s *StaticStore) Get(userID string) (Preferences, error) {
	if p, ok := s.ByUser[userID]; ok {
		p.UserID = userID
		return p, nil
	}
	return Defaults(userID), nil
}
