package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// SeenRecord is one entry of the persisted seen-set.
type SeenRecord struct {
	ID     string    `json:"id"`
	Title  string    `json:"title,omitempty"`
	Link   string    `json:"link,omitempty"`
	SeenAt time.Time `json:"seenAt"`
}

// FileSeenStore persists the seen-set as a flat JSON array, whole-file
// read/overwrite. Earlier deployments stored a bare array of URL strings;
// Load accepts both formats.
type FileSeenStore struct {
	filePath   string
	maxEntries int
	maxAge     time.Duration
	mu         sync.RWMutex
	records    map[string]SeenRecord
}

func NewFileSeenStore(filePath string, maxEntries, maxAgeDays int) *FileSeenStore {
	return &FileSeenStore{
		filePath:   filePath,
		maxEntries: maxEntries,
		maxAge:     time.Duration(maxAgeDays) * 24 * time.Hour,
		records:    make(map[string]SeenRecord),
	}
}

func (s *FileSeenStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return nil // first run
	}
	if err != nil {
		return fmt.Errorf("read seen file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var records []SeenRecord
	if err := json.Unmarshal(data, &records); err == nil && recordsLookValid(records) {
		for _, r := range records {
			s.records[r.ID] = r
		}
		return nil
	}

	// Legacy format: plain array of identity strings.
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("parse seen file: %w", err)
	}
	now := time.Now()
	for _, id := range ids {
		s.records[id] = SeenRecord{ID: id, SeenAt: now}
	}
	return nil
}

func recordsLookValid(records []SeenRecord) bool {
	for _, r := range records {
		if r.ID == "" {
			return false
		}
	}
	return len(records) > 0
}

func (s *FileSeenStore) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[id]
	return ok
}

func (s *FileSeenStore) Add(id, title, link string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = SeenRecord{ID: id, Title: title, Link: link, SeenAt: time.Now()}
}

// Save prunes (age first, then size cap keeping newest) and overwrites the file.
func (s *FileSeenStore) Save() error {
	s.mu.Lock()
	s.prune()
	records := make([]SeenRecord, 0, len(s.records))
	for _, r := range s.records {
		records = append(records, r)
	}
	s.mu.Unlock()

	sort.Slice(records, func(i, j int) bool { return records[i].SeenAt.After(records[j].SeenAt) })

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal seen set: %w", err)
	}
	if err := ensureDir(s.filePath); err != nil {
		return err
	}
	if err := os.WriteFile(s.filePath, data, 0644); err != nil {
		return fmt.Errorf("write seen file: %w", err)
	}
	return nil
}

func (s *FileSeenStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *FileSeenStore) prune() {
	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		for id, r := range s.records {
			if r.SeenAt.Before(cutoff) {
				delete(s.records, id)
			}
		}
	}
	if s.maxEntries > 0 && len(s.records) > s.maxEntries {
		records := make([]SeenRecord, 0, len(s.records))
		for _, r := range s.records {
			records = append(records, r)
		}
		sort.Slice(records, func(i, j int) bool { return records[i].SeenAt.After(records[j].SeenAt) })
		for _, r := range records[s.maxEntries:] {
			delete(s.records, r.ID)
		}
	}
}

// TranslationCache is the persisted hash→translation map. A (text, language)
// pair hits the external API at most once; later lookups are pure reads.
type TranslationCache struct {
	filePath string
	mu       sync.RWMutex
	entries  map[string]string
}

func NewTranslationCache(filePath string) *TranslationCache {
	return &TranslationCache{
		filePath: filePath,
		entries:  make(map[string]string),
	}
}

// CacheKey is the stable key for a (text, language) pair.
func CacheKey(text, lang string) string {
	h := sha256.New()
	h.Write([]byte(text + "|" + strings.ToLower(lang)))
	return hex.EncodeToString(h.Sum(nil))[:32]
}

func (c *TranslationCache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read translation cache: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		return fmt.Errorf("parse translation cache: %w", err)
	}
	return nil
}

func (c *TranslationCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *TranslationCache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

func (c *TranslationCache) Save() error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c.entries, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal translation cache: %w", err)
	}
	if err := ensureDir(c.filePath); err != nil {
		return err
	}
	if err := os.WriteFile(c.filePath, data, 0644); err != nil {
		return fmt.Errorf("write translation cache: %w", err)
	}
	return nil
}

// ProcessedMessage is one archived channel message with its translations.
type ProcessedMessage struct {
	ID           string            `json:"id"`
	Text         string            `json:"text"`
	Timestamp    time.Time         `json:"timestamp"`
	Translations map[string]string `json:"translations,omitempty"`
}

// MessageLog keeps the processed channel messages as a JSON array.
type MessageLog struct {
	filePath string
	mu       sync.RWMutex
	messages []ProcessedMessage
	index    map[string]struct{}
}

func NewMessageLog(filePath string) *MessageLog {
	return &MessageLog{filePath: filePath, index: make(map[string]struct{})}
}

func (l *MessageLog) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read message log: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &l.messages); err != nil {
		return fmt.Errorf("parse message log: %w", err)
	}
	for _, m := range l.messages {
		l.index[m.ID] = struct{}{}
	}
	return nil
}

func (l *MessageLog) Has(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.index[id]
	return ok
}

func (l *MessageLog) Append(msg ProcessedMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.index[msg.ID]; ok {
		return
	}
	l.messages = append(l.messages, msg)
	l.index[msg.ID] = struct{}{}
}

func (l *MessageLog) Save() error {
	l.mu.RLock()
	data, err := json.MarshalIndent(l.messages, "", "  ")
	l.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal message log: %w", err)
	}
	if err := ensureDir(l.filePath); err != nil {
		return err
	}
	if err := os.WriteFile(l.filePath, data, 0644); err != nil {
		return fmt.Errorf("write message log: %w", err)
	}
	return nil
}

func ensureDir(filePath string) error {
	dir := filepath.Dir(filePath)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}
