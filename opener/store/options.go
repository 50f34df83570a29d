package store

import (
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StoreOption is a functional option for configuring a session store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	redisClient *redis.Client
	redisTTL    time.Duration
	sqlitePath  string
	logger      *zap.Logger
}

// WithLogger sets the logger for non-fatal store warnings.
func WithLogger(l *zap.Logger) StoreOption {
	return func(c *storeConfig) {
		c.logger = l
	}
}

// WithRedisClient sets the Redis client for the Redis store. The store owns
// the client and closes it on Close.
func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

// WithRedisTTL sets the TTL for Redis keys. Reads refresh it.
func WithRedisTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.redisTTL = ttl
	}
}

// WithSQLitePath sets the database file for the SQLite store. Parent
// directories are created as needed.
func WithSQLitePath(path string) StoreOption {
	return func(c *storeConfig) {
		c.sqlitePath = path
	}
}
