package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/theimaginaryfoundation/flirtframe/opener"
)

const sessionKeyPrefix = "session:"

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func (s *redisStore) Save(ctx context.Context, id string, snap opener.SessionSnapshot) error {
	if err := validateID(id); err != nil {
		return err
	}
	val, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redisStore.Save: marshal: %w", err)
	}
	if err := s.client.Set(ctx, s.key(id), val, s.ttl).Err(); err != nil {
		return fmt.Errorf("redisStore.Save: %w", err)
	}
	return nil
}

// Load refreshes the key's TTL on every hit. A failed refresh is logged and
// the snapshot is still returned.
func (s *redisStore) Load(ctx context.Context, id string) (*opener.SessionSnapshot, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	key := s.key(id)
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redisStore.Load: %w", err)
	}

	var snap opener.SessionSnapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return nil, fmt.Errorf("redisStore.Load: unmarshal: %w", err)
	}

	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		s.logger.Warn("session ttl refresh failed", zap.String("session_id", id), zap.Error(err))
	}
	return &snap, nil
}

func (s *redisStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redisStore.Delete: %w", err)
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

func (s *redisStore) key(id string) string {
	return sessionKeyPrefix + id
}
