package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hndesk/hndesk/internal/domain"
)

// FileCredentialStore keeps the session secret in a 0600 file, separate
// from the preference store. It satisfies domain.CredentialStore; an
// OS-keychain implementation can replace it behind the same interface.
type FileCredentialStore struct {
	path string
}

// NewFileCredentialStore creates a store writing to path.
func NewFileCredentialStore(path string) *FileCredentialStore {
	return &FileCredentialStore{path: path}
}

func (s *FileCredentialStore) Load() (domain.Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Credentials{}, domain.ErrNoCredentials
		}
		return domain.Credentials{}, fmt.Errorf("reading credentials: %w", err)
	}

	var creds domain.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return domain.Credentials{}, fmt.Errorf("decoding credentials: %w", err)
	}
	if creds.Token == "" || creds.Username == "" {
		return domain.Credentials{}, domain.ErrNoCredentials
	}
	return creds, nil
}

func (s *FileCredentialStore) Save(creds domain.Credentials) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

func (s *FileCredentialStore) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
