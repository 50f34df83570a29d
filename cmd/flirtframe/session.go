package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/theimaginaryfoundation/flirtframe/opener"
	"github.com/theimaginaryfoundation/flirtframe/opener/profile"
	"github.com/theimaginaryfoundation/flirtframe/opener/store"
)

func (a *app) openStore() (store.Store, error) {
	st, err := store.ParseStoreType(a.cfg.Store)
	if err != nil {
		return nil, err
	}
	opts := []store.StoreOption{store.WithLogger(a.logger)}
	switch st {
	case store.StoreTypeSQLite:
		opts = append(opts, store.WithSQLitePath(a.cfg.DBPath))
	case store.StoreTypeRedis:
		ttl, err := a.cfg.sessionTTL()
		if err != nil {
			return nil, err
		}
		opts = append(opts,
			store.WithRedisClient(redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr})),
			store.WithRedisTTL(ttl),
		)
	}
	s, err := store.NewStore(st, opts...)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", st, err)
	}
	return s, nil
}

// loadSession restores the configured session, or starts an empty one when
// nothing has been saved yet.
func (a *app) loadSession(ctx context.Context, st store.Store) (*opener.SessionMemory, error) {
	mem := opener.NewSessionMemory(opener.WithHistoryLimit(a.cfg.HistoryLimit))
	snap, err := st.Load(ctx, a.cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("load session %q: %w", a.cfg.Session, err)
	}
	if snap != nil {
		mem.Restore(*snap)
	}
	a.logger.Debug("session loaded", zap.Bool("found", snap != nil), zap.Int("records", mem.Len()))
	return mem, nil
}

func (a *app) saveSession(ctx context.Context, st store.Store, mem *opener.SessionMemory) error {
	if err := st.Save(ctx, a.cfg.Session, mem.Snapshot()); err != nil {
		return fmt.Errorf("save session %q: %w", a.cfg.Session, err)
	}
	a.logger.Debug("session saved", zap.Int("records", mem.Len()))
	return nil
}

func (a *app) profileSource() profile.Source {
	if a.cfg.ProfilesDir != "" {
		return profile.FileSource{Dir: a.cfg.ProfilesDir}
	}
	return profile.NewHTTPSource(profile.WithLogger(a.logger))
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	if a.cfg.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
