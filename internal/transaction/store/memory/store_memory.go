package memory

import (
	"context"
	"fmt"
	"sync"

	"brokerage/internal/transaction"
	"brokerage/pkg/platform/sentinel"
)

// InMemoryStore keeps transactions in insertion order. When constructed with
// accepted modes it rejects any other payment mode encoding the way an
// enumerated database column would.
type InMemoryStore struct {
	mu       sync.RWMutex
	accepted map[string]bool
	records  []transaction.Record
	attempts []string
}

func New(acceptedModes ...string) *InMemoryStore {
	s := &InMemoryStore{}
	if len(acceptedModes) > 0 {
		s.accepted = make(map[string]bool, len(acceptedModes))
		for _, m := range acceptedModes {
			s.accepted[m] = true
		}
	}
	return s
}

func (s *InMemoryStore) Insert(ctx context.Context, record *transaction.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	mode := ""
	if record.PaymentMode != nil {
		mode = *record.PaymentMode
	}
	s.attempts = append(s.attempts, mode)
	if record.PaymentMode != nil && s.accepted != nil && !s.accepted[mode] {
		return fmt.Errorf("invalid payment mode %q: %w", mode, sentinel.ErrRejected)
	}
	for _, r := range s.records {
		if r.ID == record.ID {
			return sentinel.ErrConflict
		}
	}
	s.records = append(s.records, *record)
	return nil
}

// Records returns every stored transaction.
func (s *InMemoryStore) Records() []transaction.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]transaction.Record(nil), s.records...)
}

// Attempts returns the payment mode of every insert attempted, "" when the
// insert carried no mode.
func (s *InMemoryStore) Attempts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.attempts...)
}
