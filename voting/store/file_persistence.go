package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/voting-session/voting/model"
)

// FilePersistence implements SnapshotPersistence with one JSON file per
// session, named after the access code.
type FilePersistence struct {
	dir string
}

// NewFilePersistence creates a file-based persistence layer rooted at dir
func NewFilePersistence(dir string) (*FilePersistence, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &FilePersistence{dir: dir}, nil
}

// Save persists a snapshot to a JSON file
func (fp *FilePersistence) Save(snapshot *model.Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	// Written through a temp file and renamed into place
	path := fp.path(snapshot.Session.AccessCode)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Load retrieves a snapshot by access code
func (fp *FilePersistence) Load(accessCode string) (*model.Snapshot, error) {
	data, err := os.ReadFile(fp.path(accessCode))
	if os.IsNotExist(err) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var snapshot model.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	return &snapshot, nil
}

// Delete removes a snapshot file
func (fp *FilePersistence) Delete(accessCode string) error {
	if !fp.Exists(accessCode) {
		return ErrSessionNotFound
	}
	if err := os.Remove(fp.path(accessCode)); err != nil {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// ListAll returns the access codes of all persisted sessions
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var codes []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".json") {
			codes = append(codes, strings.TrimSuffix(name, ".json"))
		}
	}
	return codes, nil
}

// Exists checks if a snapshot file exists
func (fp *FilePersistence) Exists(accessCode string) bool {
	_, err := os.Stat(fp.path(accessCode))
	return err == nil
}

func (fp *FilePersistence) path(accessCode string) string {
	return filepath.Join(fp.dir, fmt.Sprintf("%s.json", model.NormalizeAccessCode(accessCode)))
}
