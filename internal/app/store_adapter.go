package app

import (
	"fmt"

	"cynews/internal/config"
	"cynews/internal/storage"
)

// SeenStore unifies the file and sqlite seen-set backends.
type SeenStore interface {
	Load() error
	Contains(id string) bool
	Add(id, title, link string)
	Save() error
	Len() int
}

// TranslationCache is what the translator needs from a cache backend.
type TranslationCache interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// sqliteCacheAdapter exposes the sqlite translation table through the
// same Get/Set surface as the file cache.
type sqliteCacheAdapter struct {
	store *storage.SQLiteSeenStore
}

func (a *sqliteCacheAdapter) Get(key string) (string, bool) { return a.store.GetTranslation(key) }
func (a *sqliteCacheAdapter) Set(key, value string)         { a.store.SetTranslation(key, value) }

// stores bundles the persistence backends selected by STORE_BACKEND.
type stores struct {
	seen      SeenStore
	cache     TranslationCache
	saveCache func() error
	close     func() error
}

func openStores(cfg *config.Config) (*stores, error) {
	switch cfg.StoreBackend {
	case "sqlite":
		db, err := storage.NewSQLiteSeenStore(cfg.SQLitePath, cfg.SeenMaxEntries, cfg.SeenMaxAgeDays)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return &stores{
			seen:      db,
			cache:     &sqliteCacheAdapter{store: db},
			saveCache: func() error { return nil }, // sqlite writes through
			close:     db.Close,
		}, nil

	default:
		seen := storage.NewFileSeenStore(cfg.SeenFilePath, cfg.SeenMaxEntries, cfg.SeenMaxAgeDays)
		if err := seen.Load(); err != nil {
			return nil, fmt.Errorf("load seen store: %w", err)
		}
		cache := storage.NewTranslationCache(cfg.TranslationCachePath)
		if err := cache.Load(); err != nil {
			return nil, fmt.Errorf("load translation cache: %w", err)
		}
		return &stores{
			seen:      seen,
			cache:     cache,
			saveCache: cache.Save,
			close:     func() error { return nil },
		}, nil
	}
}
