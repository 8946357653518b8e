package memory

import (
	"context"
	"sync"
	"time"

	"brokerage/internal/staging"
	"brokerage/pkg/domain"
	"brokerage/pkg/platform/sentinel"
)

type session struct {
	binding   *staging.Binding
	fragments map[domain.Identity]map[staging.StageKey]staging.Fragment
	expiresAt time.Time
}

// InMemoryStore keeps staged fragments in process memory. Sessions expire
// lazily after ttl of inactivity.
type InMemoryStore struct {
	mu       sync.Mutex
	sessions map[domain.SessionID]*session
	ttl      time.Duration
	now      func() time.Time
}

// Option configures the store.
type Option func(*InMemoryStore)

// WithClock overrides time.Now, for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *InMemoryStore) {
		s.now = now
	}
}

// New constructs an in-memory staging store. A zero ttl disables expiry.
func New(ttl time.Duration, opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		sessions: make(map[domain.SessionID]*session),
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) BindIdentity(_ context.Context, id domain.SessionID, binding staging.Binding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.touch(id)
	b := binding
	sess.binding = &b
	return nil
}

func (s *InMemoryStore) Identity(_ context.Context, id domain.SessionID) (staging.Binding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.live(id)
	if sess == nil || sess.binding == nil {
		return staging.Binding{}, sentinel.ErrNotFound
	}
	return *sess.binding, nil
}

func (s *InMemoryStore) Put(_ context.Context, id domain.SessionID, identity domain.Identity, stage staging.StageKey, fragment staging.Fragment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.touch(id)
	stages, ok := sess.fragments[identity]
	if !ok {
		stages = make(map[staging.StageKey]staging.Fragment)
		sess.fragments[identity] = stages
	}
	stages[stage] = fragment.Clone()
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id domain.SessionID, identity domain.Identity, stage staging.StageKey) (staging.Fragment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.live(id)
	if sess == nil {
		return nil, sentinel.ErrNotFound
	}
	fragment, ok := sess.fragments[identity][stage]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return fragment.Clone(), nil
}

func (s *InMemoryStore) Clear(_ context.Context, id domain.SessionID, identity domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.live(id); sess != nil {
		delete(sess.fragments, identity)
	}
	return nil
}

func (s *InMemoryStore) EndSession(_ context.Context, id domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// live returns the session if present and unexpired. Callers hold s.mu.
func (s *InMemoryStore) live(id domain.SessionID) *session {
	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	if s.ttl > 0 && !s.now().Before(sess.expiresAt) {
		delete(s.sessions, id)
		return nil
	}
	return sess
}

// touch returns the live session, creating it if needed, and extends its expiry.
func (s *InMemoryStore) touch(id domain.SessionID) *session {
	sess := s.live(id)
	if sess == nil {
		sess = &session{fragments: make(map[domain.Identity]map[staging.StageKey]staging.Fragment)}
		s.sessions[id] = sess
	}
	sess.expiresAt = s.now().Add(s.ttl)
	return sess
}
