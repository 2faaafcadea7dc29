package memory

import (
	"context"
	"sync"

	"github.com/forumhub/gatekeeper/core"
	"github.com/forumhub/gatekeeper/ports"
)

// CredentialStore is an in-memory implementation of ports.CredentialStore,
// used in tests and for running without a database. The mutex stands in for
// the row lock: read-modify-write sequences serialize under it.
type CredentialStore struct {
	mu         sync.Mutex
	byID       map[string]*core.Identity
	emailIndex map[string]string
	nameIndex  map[string]string
}

// NewCredentialStore creates an empty in-memory store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		byID:       make(map[string]*core.Identity),
		emailIndex: make(map[string]string),
		nameIndex:  make(map[string]string),
	}
}

// Create persists a new identity, reporting duplicates on either unique field
// as one generic conflict.
func (s *CredentialStore) Create(ctx context.Context, identity *core.Identity) (*core.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.emailIndex[identity.Email]; taken {
		return nil, core.NewConflict("username or email already in use", nil)
	}
	if _, taken := s.nameIndex[identity.Username]; taken {
		return nil, core.NewConflict("username or email already in use", nil)
	}

	stored := *identity
	s.byID[stored.ID] = &stored
	s.emailIndex[stored.Email] = stored.ID
	s.nameIndex[stored.Username] = stored.ID

	result := stored
	return &result, nil
}

// GetByEmail retrieves an identity by email.
func (s *CredentialStore) GetByEmail(ctx context.Context, email string) (*core.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.emailIndex[email]
	if !ok {
		return nil, core.NewNotFound("identity not found", nil)
	}
	result := *s.byID[id]
	return &result, nil
}

// GetByID retrieves an identity by ID.
func (s *CredentialStore) GetByID(ctx context.Context, id string) (*core.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.byID[id]
	if !ok {
		return nil, core.NewNotFound("identity not found", nil)
	}
	result := *identity
	return &result, nil
}

// UpdatePasswordHash applies the read-modify-write while holding the store
// lock, matching the transactional row-lock semantics of the postgres store.
func (s *CredentialStore) UpdatePasswordHash(ctx context.Context, id string, update func(currentHash string) (string, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.byID[id]
	if !ok {
		return core.NewNotFound("identity not found", nil)
	}

	newHash, err := update(identity.PasswordHash)
	if err != nil {
		return err
	}

	identity.PasswordHash = newHash
	return nil
}

var _ ports.CredentialStore = (*CredentialStore)(nil)
