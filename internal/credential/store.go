package credential

import (
	"sync"

	"pagecms/pkg/logging"
)

// StorageKey is the fixed key under which the single credential is persisted.
const StorageKey = "github_token"

// Store persists exactly one credential across sessions.
// Implementations must be safe for concurrent use; the last Set or Clear wins.
type Store interface {
	// Get returns the stored credential, if any.
	Get() (Credential, bool)
	// Set replaces the stored credential.
	Set(c Credential) error
	// Clear removes the stored credential. Clearing an empty store is not an error.
	Clear() error
}

// MemoryStore keeps the credential in memory only.
type MemoryStore struct {
	mu   sync.RWMutex
	cred Credential
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get returns the stored credential.
func (s *MemoryStore) Get() (Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred, !s.cred.IsEmpty()
}

// Set replaces the stored credential.
func (s *MemoryStore) Set(c Credential) error {
	s.mu.Lock()
	s.cred = c
	s.mu.Unlock()

	logging.Debug("Credentials", "Credential replaced in memory store")
	return nil
}

// Clear removes the stored credential.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	s.cred = Credential{}
	s.mu.Unlock()
	return nil
}
