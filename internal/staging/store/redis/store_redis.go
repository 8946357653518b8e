package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"brokerage/internal/staging"
	"brokerage/pkg/domain"
	"brokerage/pkg/platform/sentinel"
)

const keyPrefix = "staging:"

// RedisStore keeps staged fragments in Redis so a session survives across
// server instances. Every write refreshes the TTL of all keys in the session.
//
// Fragments round-trip through JSON, so numeric values come back as float64.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// New constructs a Redis-backed staging store.
func New(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func bindingKey(session domain.SessionID) string {
	return keyPrefix + session.String() + ":binding"
}

func identitiesKey(session domain.SessionID) string {
	return keyPrefix + session.String() + ":identities"
}

func fragmentsKey(session domain.SessionID, identity domain.Identity) string {
	return keyPrefix + session.String() + ":fragments:" + identity.String()
}

func (s *RedisStore) BindIdentity(ctx context.Context, session domain.SessionID, binding staging.Binding) error {
	payload, err := json.Marshal(binding)
	if err != nil {
		return fmt.Errorf("marshal binding: %w", err)
	}
	if err := s.client.Set(ctx, bindingKey(session), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("bind identity: %w", err)
	}
	return nil
}

func (s *RedisStore) Identity(ctx context.Context, session domain.SessionID) (staging.Binding, error) {
	raw, err := s.client.Get(ctx, bindingKey(session)).Bytes()
	if errors.Is(err, redis.Nil) {
		return staging.Binding{}, sentinel.ErrNotFound
	}
	if err != nil {
		return staging.Binding{}, fmt.Errorf("get binding: %w", err)
	}
	var binding staging.Binding
	if err := json.Unmarshal(raw, &binding); err != nil {
		return staging.Binding{}, fmt.Errorf("unmarshal binding: %w", err)
	}
	return binding, nil
}

func (s *RedisStore) Put(ctx context.Context, session domain.SessionID, identity domain.Identity, stage staging.StageKey, fragment staging.Fragment) error {
	payload, err := json.Marshal(fragment)
	if err != nil {
		return fmt.Errorf("marshal fragment: %w", err)
	}
	fKey := fragmentsKey(session, identity)
	iKey := identitiesKey(session)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, fKey, string(stage), payload)
	pipe.SAdd(ctx, iKey, identity.String())
	if s.ttl > 0 {
		pipe.Expire(ctx, fKey, s.ttl)
		pipe.Expire(ctx, iKey, s.ttl)
		pipe.Expire(ctx, bindingKey(session), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put fragment: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, session domain.SessionID, identity domain.Identity, stage staging.StageKey) (staging.Fragment, error) {
	raw, err := s.client.HGet(ctx, fragmentsKey(session, identity), string(stage)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get fragment: %w", err)
	}
	var fragment staging.Fragment
	if err := json.Unmarshal(raw, &fragment); err != nil {
		return nil, fmt.Errorf("unmarshal fragment: %w", err)
	}
	return fragment, nil
}

func (s *RedisStore) Clear(ctx context.Context, session domain.SessionID, identity domain.Identity) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, fragmentsKey(session, identity))
	pipe.SRem(ctx, identitiesKey(session), identity.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("clear fragments: %w", err)
	}
	return nil
}

func (s *RedisStore) EndSession(ctx context.Context, session domain.SessionID) error {
	identities, err := s.client.SMembers(ctx, identitiesKey(session)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("list session identities: %w", err)
	}
	keys := []string{bindingKey(session), identitiesKey(session)}
	for _, identity := range identities {
		keys = append(keys, fragmentsKey(session, domain.Identity(identity)))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}
