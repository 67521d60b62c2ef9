package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileSeenStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")

	store := NewFileSeenStore(path, 0, 0)
	if err := store.Load(); err != nil {
		t.Fatalf("load on missing file should succeed: %v", err)
	}
	if store.Contains("https://example.com/a") {
		t.Error("empty store should contain nothing")
	}

	store.Add("https://example.com/a", "Story A", "https://example.com/a")
	if err := store.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A fresh instance reading the same file must see the identity.
	reloaded := NewFileSeenStore(path, 0, 0)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.Contains("https://example.com/a") {
		t.Error("persisted identity must never re-surface as new")
	}
}

func TestFileSeenStoreLoadsLegacyStringArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")
	legacy := `["https://example.com/old1", "https://example.com/old2"]`
	if err := os.WriteFile(path, []byte(legacy), 0644); err != nil {
		t.Fatal(err)
	}

	store := NewFileSeenStore(path, 0, 0)
	if err := store.Load(); err != nil {
		t.Fatalf("load legacy format: %v", err)
	}
	if !store.Contains("https://example.com/old1") || !store.Contains("https://example.com/old2") {
		t.Error("legacy string-array entries should be loaded")
	}
}

func TestFileSeenStorePrunesToNewest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")
	store := NewFileSeenStore(path, 2, 0)

	store.Add("a", "", "")
	store.mu.Lock()
	r := store.records["a"]
	r.SeenAt = time.Now().Add(-48 * time.Hour)
	store.records["a"] = r
	store.mu.Unlock()
	store.Add("b", "", "")
	store.Add("c", "", "")

	if err := store.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	if store.Len() != 2 {
		t.Errorf("expected cap of 2 entries, got %d", store.Len())
	}
	if store.Contains("a") {
		t.Error("oldest entry should be pruned first")
	}
}

func TestFileSeenStorePrunesByAge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")
	store := NewFileSeenStore(path, 0, 30)

	store.Add("fresh", "", "")
	store.mu.Lock()
	store.records["stale"] = SeenRecord{ID: "stale", SeenAt: time.Now().Add(-31 * 24 * time.Hour)}
	store.mu.Unlock()

	if err := store.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	if store.Contains("stale") {
		t.Error("entries older than max age should be dropped")
	}
	if !store.Contains("fresh") {
		t.Error("fresh entries must survive pruning")
	}
}

func TestTranslationCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	cache := NewTranslationCache(path)
	if err := cache.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	key := CacheKey("Headline text here", "Hebrew")
	cache.Set(key, "כותרת")
	if err := cache.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded := NewTranslationCache(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, ok := reloaded.Get(key)
	if !ok || got != "כותרת" {
		t.Errorf("expected cached translation, got %q ok=%v", got, ok)
	}
}

func TestCacheKeyDistinguishesLanguage(t *testing.T) {
	if CacheKey("same text", "Hebrew") == CacheKey("same text", "Russian") {
		t.Error("cache key must include the target language")
	}
	if CacheKey("same text", "Hebrew") != CacheKey("same text", "hebrew") {
		t.Error("cache key should be case-insensitive on language")
	}
}

func TestMessageLogDedupesOnAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.json")
	log := NewMessageLog(path)
	if err := log.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	msg := ProcessedMessage{ID: "abc-2025-06-01", Text: "hello", Timestamp: time.Now()}
	log.Append(msg)
	log.Append(msg)
	if err := log.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded := NewMessageLog(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.Has("abc-2025-06-01") {
		t.Error("persisted message id should be found")
	}
	if len(reloaded.messages) != 1 {
		t.Errorf("duplicate append should be ignored, got %d messages", len(reloaded.messages))
	}
}
