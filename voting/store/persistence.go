package store

import "github.com/wricardo/voting-session/voting/model"

// SnapshotPersistence defines the interface for persisting whole sessions
type SnapshotPersistence interface {
	// Save persists a session snapshot to storage
	Save(snapshot *model.Snapshot) error

	// Load retrieves a snapshot from storage by access code
	Load(accessCode string) (*model.Snapshot, error)

	// Delete removes a snapshot from storage
	Delete(accessCode string) error

	// ListAll returns all persisted access codes
	ListAll() ([]string, error)

	// Exists checks if a snapshot exists in storage
	Exists(accessCode string) bool
}
