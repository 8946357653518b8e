package memory

import (
	"context"
	"sync"

	"brokerage/internal/identity"
	"brokerage/pkg/domain"
	"brokerage/pkg/platform/sentinel"
)

// InMemoryStore keeps credentials keyed by email.
type InMemoryStore struct {
	mu         sync.RWMutex
	byEmail    map[domain.Email]identity.Credential
	identities map[domain.Identity]struct{}
}

func New() *InMemoryStore {
	return &InMemoryStore{
		byEmail:    make(map[domain.Email]identity.Credential),
		identities: make(map[domain.Identity]struct{}),
	}
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email domain.Email) (*identity.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	credential, ok := s.byEmail[email]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &credential, nil
}

func (s *InMemoryStore) Insert(_ context.Context, credential *identity.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[credential.Email]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.identities[credential.Identity]; ok {
		return sentinel.ErrConflict
	}
	s.byEmail[credential.Email] = *credential
	s.identities[credential.Identity] = struct{}{}
	return nil
}
