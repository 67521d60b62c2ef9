package translate

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"

	"cynews/internal/storage"
)

type memCache struct {
	entries map[string]string
}

func newMemCache() *memCache { return &memCache{entries: make(map[string]string)} }

func (c *memCache) Get(key string) (string, bool) { v, ok := c.entries[key]; return v, ok }
func (c *memCache) Set(key, value string)         { c.entries[key] = value }

// fakeChat scripts responses per call; errors and contents interleave.
type fakeChat struct {
	calls     int
	responses []string
	errs      []error
	prompts   []string
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	idx := f.calls
	f.calls++
	f.prompts = append(f.prompts, req.Messages[len(req.Messages)-1].Content)

	if idx < len(f.errs) && f.errs[idx] != nil {
		return openai.ChatCompletionResponse{}, f.errs[idx]
	}
	content := ""
	if idx < len(f.responses) {
		content = f.responses[idx]
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}, nil
}

func newTranslator(client ChatClient, cache Cache) *Translator {
	return NewWithClient(client, "gpt-4o-mini", cache, nil, time.Millisecond)
}

func TestNoAPIKeyReturnsPlaceholderWithoutNetworkCall(t *testing.T) {
	tr := New("", "gpt-4o-mini", newMemCache(), nil, time.Millisecond)

	got, outcome := tr.Translate(context.Background(), "Some headline text", "el", "Hebrew")
	if outcome != OutcomeFallbackPlaceholder {
		t.Errorf("outcome = %v, want placeholder", outcome)
	}
	if got != "התרגום אינו זמין" {
		t.Errorf("expected fixed Hebrew placeholder, got %q", got)
	}
}

func TestCacheHitSkipsAPI(t *testing.T) {
	cache := newMemCache()
	cache.Set(storage.CacheKey("Headline text here", "Hebrew"), "כותרת")
	client := &fakeChat{}
	tr := newTranslator(client, cache)

	got, outcome := tr.Translate(context.Background(), "Headline text here", "en", "Hebrew")
	if outcome != OutcomeCached {
		t.Errorf("outcome = %v, want cached", outcome)
	}
	if got != "כותרת" {
		t.Errorf("got %q", got)
	}
	if client.calls != 0 {
		t.Errorf("cache hit must not reach the API, recorded %d calls", client.calls)
	}
}

func TestSuccessWritesCacheAndSecondCallIsFree(t *testing.T) {
	cache := newMemCache()
	client := &fakeChat{responses: []string{"Η κυβέρνηση ανακοίνωσε νέο σχέδιο"}}
	tr := newTranslator(client, cache)

	text := "Government announces new plan for the water supply"
	got, outcome := tr.Translate(context.Background(), text, "en", "el")
	if outcome != OutcomeSuccess {
		t.Fatalf("outcome = %v, want success", outcome)
	}

	got2, outcome2 := tr.Translate(context.Background(), text, "en", "el")
	if outcome2 != OutcomeCached {
		t.Errorf("second call outcome = %v, want cached", outcome2)
	}
	if got2 != got {
		t.Errorf("cached result %q differs from original %q", got2, got)
	}
	if client.calls != 1 {
		t.Errorf("expected exactly 1 API call, got %d", client.calls)
	}
}

func TestRefusalPhraseTriggersFallbackChain(t *testing.T) {
	// Both the primary and the English-source retry return a refusal.
	client := &fakeChat{responses: []string{
		"I am Unable To Translate this content",
		"unable to translate",
	}}
	tr := newTranslator(client, newMemCache())

	got, outcome := tr.Translate(context.Background(), "Κλειστοί δρόμοι στη Λευκωσία σήμερα", "el", "he")
	if outcome != OutcomeFallbackLiteral {
		t.Errorf("outcome = %v, want literal fallback", outcome)
	}
	if !strings.HasSuffix(got, " [EL]") {
		t.Errorf("expected source-language tag suffix, got %q", got)
	}
	if client.calls != 2 {
		t.Errorf("expected primary + English retry = 2 calls, got %d", client.calls)
	}
}

func TestEnglishSourceRetryRecovers(t *testing.T) {
	client := &fakeChat{responses: []string{
		"", // blank: classified as failure
		"Перевод заголовка новостей",
	}}
	tr := newTranslator(client, newMemCache())

	got, outcome := tr.Translate(context.Background(), "News headline about the Cyprus economy", "el", "ru")
	if outcome != OutcomeSuccess {
		t.Fatalf("outcome = %v, want success from English retry", outcome)
	}
	if got != "Перевод заголовка новостей" {
		t.Errorf("got %q", got)
	}
	if client.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", client.calls)
	}
	if !strings.Contains(client.prompts[1], "English") {
		t.Errorf("retry should assume English source, prompt was %q", client.prompts[1])
	}
}

func TestKeywordFallbackRussianToEnglish(t *testing.T) {
	client := &fakeChat{responses: []string{"", ""}}
	tr := newTranslator(client, newMemCache())

	got, outcome := tr.Translate(context.Background(), "Полиция Кипра расследует инцидент", "ru", "en")
	if outcome != OutcomeFallbackKeyword {
		t.Fatalf("outcome = %v, want keyword fallback", outcome)
	}
	if !strings.Contains(got, "police") || !strings.Contains(got, "Cyprus") {
		t.Errorf("expected partial keyword substitution, got %q", got)
	}
}

func TestLiteralTagWhenKeywordTableMisses(t *testing.T) {
	client := &fakeChat{responses: []string{"", ""}}
	tr := newTranslator(client, newMemCache())

	got, outcome := tr.Translate(context.Background(), "Случилось нечто совершенно непонятное", "ru", "en")
	if outcome != OutcomeFallbackLiteral {
		t.Fatalf("outcome = %v, want literal fallback", outcome)
	}
	if got != "Случилось нечто совершенно непонятное [RU]" {
		t.Errorf("got %q", got)
	}
}

func TestRateLimitBacksOffThenSucceeds(t *testing.T) {
	client := &fakeChat{
		errs:      []error{&openai.APIError{HTTPStatusCode: 429, Message: "rate limited"}},
		responses: []string{"", "Μετάφραση της είδησης εδώ"},
	}
	tr := newTranslator(client, newMemCache())

	_, outcome := tr.Translate(context.Background(), "A headline that will be rate limited once", "en", "el")
	if outcome != OutcomeSuccess {
		t.Fatalf("outcome = %v, want success after backoff retry", outcome)
	}
	if client.calls != 2 {
		t.Errorf("expected retry after 429, got %d calls", client.calls)
	}
}

func TestTooShortResultIsFailure(t *testing.T) {
	// Result under 10 runes while source exceeds 20: not a real translation.
	client := &fakeChat{responses: []string{"ok", "ok"}}
	tr := newTranslator(client, newMemCache())

	_, outcome := tr.Translate(context.Background(), "A sufficiently long headline about local politics", "en", "el")
	if outcome != OutcomeFallbackLiteral {
		t.Errorf("outcome = %v, want fallback for implausibly short output", outcome)
	}
}

func TestIdenticalOutputFailsForNonRussianTargets(t *testing.T) {
	source := "Κλειστοί δρόμοι στη Λευκωσία αύριο το πρωί"
	client := &fakeChat{responses: []string{source, source}}
	tr := newTranslator(client, newMemCache())

	_, outcome := tr.Translate(context.Background(), source, "el", "en")
	if outcome == OutcomeSuccess {
		t.Error("byte-identical output must be classified as failure for non-Russian targets")
	}
}

func TestIdenticalOutputAllowedForRussianTarget(t *testing.T) {
	// Russian headlines quoted verbatim are plausible for a ru target.
	source := "Отключение электричества в районе Строволос"
	client := &fakeChat{responses: []string{source}}
	tr := newTranslator(client, newMemCache())

	_, outcome := tr.Translate(context.Background(), source, "el", "ru")
	if outcome != OutcomeSuccess {
		t.Errorf("outcome = %v, want success for ru target with identical text", outcome)
	}
}

func TestSameSourceAndTargetIsIdentity(t *testing.T) {
	client := &fakeChat{}
	tr := newTranslator(client, newMemCache())

	got, outcome := tr.Translate(context.Background(), "Already in English", "en", "English")
	if outcome != OutcomeSuccess || got != "Already in English" {
		t.Errorf("got %q (%v)", got, outcome)
	}
	if client.calls != 0 {
		t.Errorf("identity translation must not call the API")
	}
}

func TestPlaceholderLookup(t *testing.T) {
	if got := Placeholder("Hebrew"); got != "התרגום אינו זמין" {
		t.Errorf("Placeholder(Hebrew) = %q", got)
	}
	if got := Placeholder("ru"); got != "Перевод недоступен" {
		t.Errorf("Placeholder(ru) = %q", got)
	}
}
