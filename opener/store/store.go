// Package store persists session snapshots so a session can outlive the
// process that built it.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/theimaginaryfoundation/flirtframe/opener"
)

// Store defines the interface for session snapshot persistence.
type Store interface {
	// Save replaces the snapshot stored under id.
	Save(ctx context.Context, id string, snap opener.SessionSnapshot) error

	// Load returns nil if no snapshot exists (not an error).
	Load(ctx context.Context, id string) (*opener.SessionSnapshot, error)

	Delete(ctx context.Context, id string) error

	// Close releases the underlying connection.
	Close() error
}

// StoreType represents the type of session store.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeSQLite StoreType = "sqlite"
	StoreTypeRedis  StoreType = "redis"
)

func ParseStoreType(s string) (StoreType, error) {
	switch t := StoreType(strings.ToLower(strings.TrimSpace(s))); t {
	case StoreTypeMemory, StoreTypeSQLite, StoreTypeRedis:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStoreType, s)
	}
}

// NewStore creates a Store of the given type.
// SQLite requires WithSQLitePath and Redis requires WithRedisClient.
func NewStore(storeType StoreType, opts ...StoreOption) (Store, error) {
	config := &storeConfig{}
	for _, opt := range opts {
		opt(config)
	}

	switch storeType {
	case StoreTypeMemory:
		return newMemoryStore(), nil

	case StoreTypeSQLite:
		if strings.TrimSpace(config.sqlitePath) == "" {
			return nil, fmt.Errorf("%w: sqlite path is required", ErrInvalidConfig)
		}
		s, err := newSQLiteStore(config.sqlitePath)
		if err != nil {
			return nil, err
		}
		return s, nil

	case StoreTypeRedis:
		if config.redisClient == nil {
			return nil, fmt.Errorf("%w: redis client is required", ErrInvalidConfig)
		}
		ttl := config.redisTTL
		if ttl <= 0 {
			ttl = defaultRedisTTL
		}
		logger := config.logger
		if logger == nil {
			logger = zap.NewNop()
		}
		return &redisStore{client: config.redisClient, ttl: ttl, logger: logger.Named("redis_store")}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStoreType, storeType)
	}
}

const defaultRedisTTL = 30 * 24 * time.Hour

func validateID(id string) error {
	if strings.TrimSpace(id) == "" || len(id) > 200 {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
