package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/theimaginaryfoundation/flirtframe/opener"
)

type sqliteStore struct {
	db *sql.DB
}

func newSQLiteStore(dbPath string) (*sqliteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("newSQLiteStore: mkdir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("newSQLiteStore: open: %w", err)
	}
	// One writer at a time avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	s := &sqliteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("newSQLiteStore: migrate: %w", err)
	}
	return s, nil
}

func (s *sqliteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		snapshot TEXT NOT NULL,
		record_count INTEGER NOT NULL,
		saved_at DATETIME NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_saved_at ON sessions(saved_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *sqliteStore) Save(ctx context.Context, id string, snap opener.SessionSnapshot) error {
	if err := validateID(id); err != nil {
		return err
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("sqliteStore.Save: marshal: %w", err)
	}
	savedAt := snap.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, snapshot, record_count, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			snapshot = excluded.snapshot,
			record_count = excluded.record_count,
			saved_at = excluded.saved_at,
			updated_at = CURRENT_TIMESTAMP
	`, id, string(b), len(snap.Records), savedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("sqliteStore.Save: %w", err)
	}
	return nil
}

func (s *sqliteStore) Load(ctx context.Context, id string) (*opener.SessionSnapshot, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM sessions WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqliteStore.Load: %w", err)
	}

	var snap opener.SessionSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("sqliteStore.Load: unmarshal: %w", err)
	}
	return &snap, nil
}

func (s *sqliteStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqliteStore.Delete: %w", err)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
