package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"brokerage/internal/kyc"
	"brokerage/pkg/domain"
	"brokerage/pkg/platform/sentinel"
)

// InMemoryStore keeps KYC records in memory.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*kyc.Record
}

func New() *InMemoryStore {
	return &InMemoryStore{records: make(map[uuid.UUID]*kyc.Record)}
}

func (s *InMemoryStore) Latest(_ context.Context, identity domain.Identity) (*kyc.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matches []*kyc.Record
	for _, r := range s.records {
		if r.Identity == identity {
			matches = append(matches, r)
		}
	}
	if len(matches) == 0 {
		return nil, sentinel.ErrNotFound
	}
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		switch {
		case a.SubmittedAt != nil && b.SubmittedAt != nil && !a.SubmittedAt.Equal(*b.SubmittedAt):
			return a.SubmittedAt.After(*b.SubmittedAt)
		case a.SubmittedAt != nil && b.SubmittedAt == nil:
			return true
		case a.SubmittedAt == nil && b.SubmittedAt != nil:
			return false
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return matches[0].Clone(), nil
}

func (s *InMemoryStore) Save(_ context.Context, record *kyc.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record.Clone()
	return nil
}
