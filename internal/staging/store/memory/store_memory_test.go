package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"brokerage/internal/staging"
	"brokerage/pkg/domain"
	"brokerage/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	ctx     context.Context
	now     time.Time
	store   *InMemoryStore
	session domain.SessionID
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.store = New(time.Hour, WithClock(func() time.Time { return s.now }))
	s.session = domain.NewSessionID()
}

func (s *InMemoryStoreSuite) TestPutGet() {
	s.Run("absent fragment returns not found", func() {
		_, err := s.store.Get(s.ctx, s.session, "id-1", "basic_profile")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("stored fragment is returned as a copy", func() {
		s.Require().NoError(s.store.Put(s.ctx, s.session, "id-1", "basic_profile", staging.Fragment{"first_name": "Jo"}))

		got, err := s.store.Get(s.ctx, s.session, "id-1", "basic_profile")
		s.Require().NoError(err)
		s.Equal("Jo", got["first_name"])

		got["first_name"] = "mutated"
		again, err := s.store.Get(s.ctx, s.session, "id-1", "basic_profile")
		s.Require().NoError(err)
		s.Equal("Jo", again["first_name"])
	})

	s.Run("fragments are scoped per session", func() {
		_, err := s.store.Get(s.ctx, domain.NewSessionID(), "id-1", "basic_profile")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestClearKeepsBinding() {
	binding := staging.Binding{Identity: "id-1", Email: "a@x.com"}
	s.Require().NoError(s.store.BindIdentity(s.ctx, s.session, binding))
	s.Require().NoError(s.store.Put(s.ctx, s.session, "id-1", "bank_details", staging.Fragment{"account_number": "123"}))

	s.Require().NoError(s.store.Clear(s.ctx, s.session, "id-1"))

	_, err := s.store.Get(s.ctx, s.session, "id-1", "bank_details")
	s.ErrorIs(err, sentinel.ErrNotFound)
	got, err := s.store.Identity(s.ctx, s.session)
	s.Require().NoError(err)
	s.Equal(binding, got)
}

func (s *InMemoryStoreSuite) TestEndSession() {
	s.Require().NoError(s.store.BindIdentity(s.ctx, s.session, staging.Binding{Identity: "id-1"}))

	s.Require().NoError(s.store.EndSession(s.ctx, s.session))

	_, err := s.store.Identity(s.ctx, s.session)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestExpiry() {
	s.Require().NoError(s.store.BindIdentity(s.ctx, s.session, staging.Binding{Identity: "id-1"}))

	s.now = s.now.Add(59 * time.Minute)
	_, err := s.store.Identity(s.ctx, s.session)
	s.Require().NoError(err, "session still live before ttl")

	s.Require().NoError(s.store.Put(s.ctx, s.session, "id-1", "nominee", staging.Fragment{"nominee_name": "A"}))
	s.now = s.now.Add(59 * time.Minute)
	_, err = s.store.Identity(s.ctx, s.session)
	s.Require().NoError(err, "writes extend the session")

	s.now = s.now.Add(time.Hour)
	_, err = s.store.Identity(s.ctx, s.session)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.Get(s.ctx, s.session, "id-1", "nominee")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
