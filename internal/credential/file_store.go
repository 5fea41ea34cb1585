package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pagecms/pkg/logging"
)

// DefaultStorageDir is the default directory, relative to the home
// directory, for the credential file.
const DefaultStorageDir = ".config/pagecms"

// FileStore persists the credential as a JSON file.
//
// SECURITY: the file holds a live GitHub token.
//   - The file is written with 0600 permissions (owner read/write only)
//   - The directory is created with 0700 permissions
//   - Token values are never logged
type FileStore struct {
	mu         sync.RWMutex
	storageDir string
	cached     *Credential
}

// storedCredential is the on-disk representation.
type storedCredential struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type,omitempty"`
	Scope       string    `json:"scope,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewFileStore creates a file-backed store under storageDir. An empty
// storageDir selects ~/.config/pagecms.
func NewFileStore(storageDir string) (*FileStore, error) {
	if storageDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		storageDir = filepath.Join(homeDir, DefaultStorageDir)
	}

	if err := os.MkdirAll(storageDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create credential storage directory: %w", err)
	}

	return &FileStore{storageDir: storageDir}, nil
}

// Path returns the location of the credential file.
func (s *FileStore) Path() string {
	return filepath.Join(s.storageDir, StorageKey+".json")
}

// Get returns the stored credential. A missing or unreadable file means no credential.
func (s *FileStore) Get() (Credential, bool) {
	s.mu.RLock()
	if s.cached != nil {
		c := *s.cached
		s.mu.RUnlock()
		return c, !c.IsEmpty()
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return *s.cached, !s.cached.IsEmpty()
	}

	c, err := s.readLocked()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logging.Warn("Credentials", "Ignoring unreadable credential file %s: %v", s.Path(), err)
		}
		return Credential{}, false
	}
	s.cached = &c
	return c, !c.IsEmpty()
}

// Set replaces the stored credential.
func (s *FileStore) Set(c Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := storedCredential{
		AccessToken: c.value,
		TokenType:   c.tokenType,
		Scope:       c.scope,
		CreatedAt:   c.createdAt,
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	if err := writeFileAtomic(s.Path(), data); err != nil {
		logging.Audit(logging.AuditEvent{
			Action:  "credential_store",
			Outcome: "failure",
			Target:  s.Path(),
			Error:   err.Error(),
		})
		return fmt.Errorf("failed to persist credential: %w", err)
	}

	s.cached = &c
	logging.Audit(logging.AuditEvent{
		Action:  "credential_store",
		Outcome: "success",
		Target:  s.Path(),
	})
	return nil
}

// Clear removes the credential file.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.Path())
	if err != nil && !os.IsNotExist(err) {
		logging.Audit(logging.AuditEvent{
			Action:  "credential_clear",
			Outcome: "failure",
			Target:  s.Path(),
			Error:   err.Error(),
		})
		return fmt.Errorf("failed to remove credential file: %w", err)
	}
	s.cached = &Credential{}

	logging.Audit(logging.AuditEvent{
		Action:  "credential_clear",
		Outcome: "success",
		Target:  s.Path(),
	})
	return nil
}

func (s *FileStore) readLocked() (Credential, error) {
	// #nosec G304 -- path is built from the fixed storage key
	data, err := os.ReadFile(s.Path())
	if err != nil {
		return Credential{}, err
	}

	var stored storedCredential
	if err := json.Unmarshal(data, &stored); err != nil {
		return Credential{}, fmt.Errorf("failed to unmarshal credential: %w", err)
	}

	return Credential{
		value:     stored.AccessToken,
		tokenType: stored.TokenType,
		scope:     stored.Scope,
		createdAt: stored.CreatedAt,
	}, nil
}

// writeFileAtomic writes data to a temporary file and renames it into place
// so a concurrent reader never sees a partial credential.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".credential-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
