//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"brokerage/internal/staging"
	stagingredis "brokerage/internal/staging/store/redis"
	"brokerage/pkg/domain"
	"brokerage/pkg/platform/sentinel"
	"brokerage/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *stagingredis.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = stagingredis.New(s.redis.Client, time.Minute)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestFragmentRoundTrip() {
	ctx := context.Background()
	session := domain.NewSessionID()

	err := s.store.Put(ctx, session, "id-1", "basic_profile", staging.Fragment{"first_name": "Jo", "age": 31})
	s.Require().NoError(err)

	got, err := s.store.Get(ctx, session, "id-1", "basic_profile")
	s.Require().NoError(err)
	s.Equal("Jo", got["first_name"])
	s.Equal(float64(31), got["age"])

	ttl, err := s.redis.Client.TTL(ctx, "staging:"+session.String()+":fragments:id-1").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
}

func (s *RedisStoreSuite) TestBindingSurvivesClear() {
	ctx := context.Background()
	session := domain.NewSessionID()
	binding := staging.Binding{Identity: "id-1", Email: "jo@x.com"}

	s.Require().NoError(s.store.BindIdentity(ctx, session, binding))
	s.Require().NoError(s.store.Put(ctx, session, "id-1", "nominee", staging.Fragment{"nominee_name": "A"}))
	s.Require().NoError(s.store.Clear(ctx, session, "id-1"))

	_, err := s.store.Get(ctx, session, "id-1", "nominee")
	s.ErrorIs(err, sentinel.ErrNotFound)
	got, err := s.store.Identity(ctx, session)
	s.Require().NoError(err)
	s.Equal(binding, got)
}

func (s *RedisStoreSuite) TestEndSessionRemovesAllKeys() {
	ctx := context.Background()
	session := domain.NewSessionID()

	s.Require().NoError(s.store.BindIdentity(ctx, session, staging.Binding{Identity: "id-1"}))
	s.Require().NoError(s.store.Put(ctx, session, "id-1", "bank_details", staging.Fragment{"account_number": "1"}))
	s.Require().NoError(s.store.EndSession(ctx, session))

	keys, err := s.redis.Client.Keys(ctx, "staging:"+session.String()+":*").Result()
	s.Require().NoError(err)
	s.Empty(keys)
	_, err = s.store.Identity(ctx, session)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
