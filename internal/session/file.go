package session

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/Cherry1177/cloudtribe/internal/models"
)

// FileStore persists the session user as a single JSON file, the console
// counterpart of the browser's localStorage entry.
type FileStore struct {
	notifier

	path string

	mu   sync.RWMutex
	user *models.User
}

// NewFileStore opens the store at path, loading an existing record if one
// is present. A missing file simply means nobody is signed in.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	user, err := decodeUser(data)
	if err != nil {
		return nil, err
	}
	s.user = user

	return s, nil
}

func (s *FileStore) Current() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneUser(s.user)
}

func (s *FileStore) Set(user *models.User) error {
	if user == nil {
		return s.Clear()
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding session user: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}

	s.mu.Lock()
	s.user = cloneUser(user)
	s.mu.Unlock()

	s.broadcast(user)
	return nil
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session file: %w", err)
	}

	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()

	s.broadcast(nil)
	return nil
}
