package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"cynews/internal/logger"
)

// SQLiteSeenStore is the alternative seen-set backend for deployments that
// outgrow the flat JSON file. Writes are durable per Add, so Save only
// prunes. Implements the same surface as FileSeenStore.
type SQLiteSeenStore struct {
	db         *sql.DB
	maxEntries int
	maxAge     time.Duration
}

func NewSQLiteSeenStore(path string, maxEntries, maxAgeDays int) (*SQLiteSeenStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite store: %w", err)
	}

	s := &SQLiteSeenStore{
		db:         db,
		maxEntries: maxEntries,
		maxAge:     time.Duration(maxAgeDays) * 24 * time.Hour,
	}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteSeenStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS seen_items (
		id TEXT PRIMARY KEY,
		title TEXT,
		link TEXT,
		seen_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_seen_items_seen_at ON seen_items(seen_at);

	CREATE TABLE IF NOT EXISTS translation_cache (
		cache_key TEXT PRIMARY KEY,
		translation TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init sqlite schema: %w", err)
	}
	return nil
}

// Load is a no-op; the database is the source of truth.
func (s *SQLiteSeenStore) Load() error { return nil }

func (s *SQLiteSeenStore) Contains(id string) bool {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM seen_items WHERE id = ?`, id).Scan(&count)
	if err != nil {
		logger.Warn("seen lookup failed", "id", id, "error", err)
		return false
	}
	return count > 0
}

func (s *SQLiteSeenStore) Add(id, title, link string) {
	_, err := s.db.Exec(`
		INSERT INTO seen_items (id, title, link, seen_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET seen_at = excluded.seen_at`,
		id, title, link, time.Now())
	if err != nil {
		logger.Warn("seen insert failed", "id", id, "error", err)
	}
}

// Save prunes by age and size cap, mirroring the file store.
func (s *SQLiteSeenStore) Save() error {
	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		if _, err := s.db.Exec(`DELETE FROM seen_items WHERE seen_at < ?`, cutoff); err != nil {
			return fmt.Errorf("prune seen items by age: %w", err)
		}
	}
	if s.maxEntries > 0 {
		_, err := s.db.Exec(`
			DELETE FROM seen_items WHERE id NOT IN (
				SELECT id FROM seen_items ORDER BY seen_at DESC LIMIT ?
			)`, s.maxEntries)
		if err != nil {
			return fmt.Errorf("prune seen items by count: %w", err)
		}
	}
	return nil
}

func (s *SQLiteSeenStore) Len() int {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM seen_items`).Scan(&count); err != nil {
		return 0
	}
	return count
}

// GetTranslation reads a cached translation by key.
func (s *SQLiteSeenStore) GetTranslation(key string) (string, bool) {
	var translation string
	err := s.db.QueryRow(`SELECT translation FROM translation_cache WHERE cache_key = ?`, key).Scan(&translation)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		logger.Warn("translation lookup failed", "error", err)
		return "", false
	}
	return translation, true
}

// SetTranslation stores a translation, overwriting an existing entry.
func (s *SQLiteSeenStore) SetTranslation(key, translation string) {
	_, err := s.db.Exec(`
		INSERT INTO translation_cache (cache_key, translation, created_at) VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET translation = excluded.translation`,
		key, translation, time.Now())
	if err != nil {
		logger.Warn("translation insert failed", "error", err)
	}
}

func (s *SQLiteSeenStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
