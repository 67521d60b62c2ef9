package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"cynews/internal/logger"
)

// Budget caps outbound AI requests per run window so a misbehaving feed
// cannot burn through the API quota. Counters reset daily.
type Budget struct {
	mu          sync.Mutex
	openaiCount int
	geminiCount int
	totalCount  int
	maxTotal    int
	resetTime   time.Time
	cacheHits   int
	cacheMisses int
}

// NewBudget creates a budget with a shared cap across providers (0 = unlimited).
func NewBudget(maxTotal int) *Budget {
	return &Budget{
		maxTotal:  maxTotal,
		resetTime: time.Now().Add(24 * time.Hour),
	}
}

// CanUseOpenAI reports whether another OpenAI request fits the budget.
func (b *Budget) CanUseOpenAI() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checkReset()
	return b.maxTotal == 0 || b.totalCount < b.maxTotal
}

// CanUseGemini reports whether another Gemini request fits the budget.
func (b *Budget) CanUseGemini() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checkReset()
	return b.maxTotal == 0 || b.totalCount < b.maxTotal
}

// UseOpenAI records one OpenAI request.
func (b *Budget) UseOpenAI() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checkReset()

	if b.maxTotal > 0 && b.totalCount >= b.maxTotal {
		return fmt.Errorf("AI request budget exceeded (%d/%d)", b.totalCount, b.maxTotal)
	}
	b.openaiCount++
	b.totalCount++
	b.cacheMisses++
	return nil
}

// UseGemini records one Gemini request.
func (b *Budget) UseGemini() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checkReset()

	if b.maxTotal > 0 && b.totalCount >= b.maxTotal {
		return fmt.Errorf("AI request budget exceeded (%d/%d)", b.totalCount, b.maxTotal)
	}
	b.geminiCount++
	b.totalCount++
	b.cacheMisses++
	return nil
}

// RecordCacheHit notes that a cached translation spared an API call.
func (b *Budget) RecordCacheHit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheHits++
}

// HitRate returns the cache hit percentage for this window.
func (b *Budget) HitRate() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := b.cacheHits + b.cacheMisses
	if total == 0 {
		return 0
	}
	return float64(b.cacheHits) / float64(total) * 100
}

// Stats returns a snapshot for the metrics endpoint.
func (b *Budget) Stats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return map[string]interface{}{
		"openai_used":  b.openaiCount,
		"gemini_used":  b.geminiCount,
		"total_used":   b.totalCount,
		"total_limit":  b.maxTotal,
		"cache_hits":   b.cacheHits,
		"cache_misses": b.cacheMisses,
		"reset_time":   b.resetTime,
	}
}

func (b *Budget) checkReset() {
	if time.Now().After(b.resetTime) {
		logger.Info("resetting AI request budget",
			"openai_used", b.openaiCount,
			"gemini_used", b.geminiCount,
			"cache_hits", b.cacheHits)
		b.openaiCount = 0
		b.geminiCount = 0
		b.totalCount = 0
		b.cacheHits = 0
		b.cacheMisses = 0
		b.resetTime = time.Now().Add(24 * time.Hour)
	}
}
