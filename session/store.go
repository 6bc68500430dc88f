package session

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// StorageName keys the persisted session record. The file store appends a
// .json extension.
const StorageName = "todo-auth-storage"

// PersistedSession is the subset of session state that survives restarts.
// IsLoading and Err are transient and never persisted.
type PersistedSession struct {
	User            *User  `json:"user,omitempty"`
	AccessToken     string `json:"accessToken,omitempty"`
	RefreshToken    string `json:"refreshToken,omitempty"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// Store persists session state across process restarts.
type Store interface {
	// Load returns the persisted session, or (nil, nil) when none exists.
	Load() (*PersistedSession, error)
	Save(state *PersistedSession) error
	Clear() error
}

// FileStore persists the session as a JSON file under a directory.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore writing under dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, StorageName+".json")}
}

func (fs *FileStore) Load() (*PersistedSession, error) {
	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[FileStore.Load] read")
	}
	var state PersistedSession
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.Wrap(err, "[FileStore.Load] decode")
	}
	return &state, nil
}

func (fs *FileStore) Save(state *PersistedSession) error {
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return errors.Wrap(err, "[FileStore.Save] mkdir")
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[FileStore.Save] encode")
	}
	// Tokens are credentials; keep the file owner-only.
	if err := os.WriteFile(fs.path, data, 0o600); err != nil {
		return errors.Wrap(err, "[FileStore.Save] write")
	}
	return nil
}

func (fs *FileStore) Clear() error {
	err := os.Remove(fs.path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileStore.Clear] remove")
	}
	return nil
}
