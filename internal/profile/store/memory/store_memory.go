package memory

import (
	"context"
	"sync"
	"time"

	"brokerage/internal/profile"
	"brokerage/pkg/domain"
	"brokerage/pkg/platform/sentinel"
)

// InMemoryStore keeps profile rows in memory. Used by tests and by the server
// when no database is configured.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[domain.Identity]*profile.Record
}

func New() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[domain.Identity]*profile.Record)}
}

func (s *InMemoryStore) FindByIdentity(_ context.Context, identity domain.Identity) (*profile.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.profiles[identity]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyRecord(record), nil
}

func (s *InMemoryStore) Insert(_ context.Context, record *profile.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.profiles[record.Identity]; exists {
		return sentinel.ErrConflict
	}
	s.profiles[record.Identity] = copyRecord(record)
	return nil
}

func (s *InMemoryStore) UpdateFields(_ context.Context, identity domain.Identity, fields profile.Fields, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.profiles[identity]
	if !ok {
		return sentinel.ErrNotFound
	}
	record.Fields = profile.Merge(record.Fields, fields)
	record.UpdatedAt = updatedAt
	return nil
}

// Count returns the number of stored profiles.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

func copyRecord(r *profile.Record) *profile.Record {
	cp := *r
	cp.Fields = profile.Merge(nil, r.Fields)
	return &cp
}
