package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	ItemsScraped         int64
	ItemsAccepted        int64
	DuplicatesFiltered   int64
	TranslationsCached   int64
	TranslationsSuccess  int64
	TranslationsFallback int64
	PagesPublished       int64
	EmailsSent           int64

	// Timings
	LastRunDuration    time.Duration
	TotalRunDuration   time.Duration
	RunCount           int64
	AverageRunDuration time.Duration

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) IncrementItemsScraped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsScraped++
}

func (m *Metrics) IncrementItemsAccepted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsAccepted++
}

func (m *Metrics) IncrementDuplicatesFiltered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesFiltered++
}

func (m *Metrics) IncrementTranslationsCached() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TranslationsCached++
}

func (m *Metrics) IncrementTranslationsSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TranslationsSuccess++
}

func (m *Metrics) IncrementTranslationsFallback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TranslationsFallback++
}

func (m *Metrics) IncrementPagesPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PagesPublished++
}

func (m *Metrics) IncrementEmailsSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EmailsSent++
}

func (m *Metrics) RecordRunDuration(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastRunDuration = duration
	m.TotalRunDuration += duration
	m.RunCount++

	if m.RunCount > 0 {
		m.AverageRunDuration = m.TotalRunDuration / time.Duration(m.RunCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"items_scraped":         m.ItemsScraped,
		"items_accepted":        m.ItemsAccepted,
		"duplicates_filtered":   m.DuplicatesFiltered,
		"translations_cached":   m.TranslationsCached,
		"translations_success":  m.TranslationsSuccess,
		"translations_fallback": m.TranslationsFallback,
		"pages_published":       m.PagesPublished,
		"emails_sent":           m.EmailsSent,
		"last_run_duration_ms":  m.LastRunDuration.Milliseconds(),
		"avg_run_duration_ms":   m.AverageRunDuration.Milliseconds(),
		"last_run_time":         m.LastRunTime.Format(time.RFC3339),
		"last_error_time":       m.LastErrorTime.Format(time.RFC3339),
		"last_error":            m.LastError,
		"is_healthy":            m.IsHealthy,
	}
}
