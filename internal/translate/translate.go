package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"

	"cynews/internal/logger"
	"cynews/internal/metrics"
	"cynews/internal/ratelimit"
	"cynews/internal/retry"
	"cynews/internal/storage"
)

// Outcome reports which tier of the fallback chain produced the result.
type Outcome int

const (
	OutcomeCached Outcome = iota
	OutcomeSuccess
	OutcomeFallbackKeyword
	OutcomeFallbackLiteral
	OutcomeFallbackPlaceholder
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCached:
		return "cached"
	case OutcomeSuccess:
		return "success"
	case OutcomeFallbackKeyword:
		return "fallback-keyword"
	case OutcomeFallbackLiteral:
		return "fallback-literal"
	case OutcomeFallbackPlaceholder:
		return "fallback-placeholder"
	default:
		return "unknown"
	}
}

// Cache is the persisted (text, language) → translation map.
type Cache interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// ChatClient is the subset of the OpenAI client the translator uses,
// extracted so tests can substitute a fake.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Fixed placeholder per language, returned when no API key is configured.
var placeholders = map[string]string{
	"en": "Translation unavailable",
	"he": "התרגום אינו זמין",
	"ru": "Перевод недоступен",
	"el": "Η μετάφραση δεν είναι διαθέσιμη",
}

var languageNames = map[string]string{
	"en": "English",
	"he": "Hebrew",
	"ru": "Russian",
	"el": "Greek",
}

// Model responses that are refusals rather than translations.
var refusalPhrases = []string{
	"unable to translate",
	"cannot provide",
	"i cannot",
	"can't translate",
	"i'm sorry",
	"as an ai",
}

// Last-resort partial dictionary, Russian headlines to English terms.
var ruToEnKeywords = map[string]string{
	"новости":        "news",
	"кипр":           "Cyprus",
	"кипра":          "Cyprus",
	"никосия":        "Nicosia",
	"лимассол":       "Limassol",
	"правительство":  "government",
	"президент":      "president",
	"полиция":        "police",
	"экономика":      "economy",
	"банк":           "bank",
	"погода":         "weather",
	"пожар":          "fire",
	"землетрясение":  "earthquake",
	"аэропорт":       "airport",
	"туризм":         "tourism",
	"забастовка":     "strike",
	"школа":          "school",
	"больница":       "hospital",
	"суд":            "court",
	"выборы":         "elections",
	"налог":          "tax",
	"электричество":  "electricity",
	"вода":           "water",
}

const systemPrompt = "You translate news headlines and short summaries. Translate accurately and concisely, preserving names and the journalistic tone. Return only the translation, nothing else."

// Translator runs the fallback chain: cache → API call → English-source
// retry → keyword table → literal tag. Later tiers assume the earlier ones
// already ran, so the order is load-bearing.
type Translator struct {
	client  ChatClient
	cache   Cache
	budget  *ratelimit.Budget
	model   string
	backoff time.Duration
}

func New(apiKey, model string, cache Cache, budget *ratelimit.Budget, backoff time.Duration) *Translator {
	t := &Translator{
		cache:   cache,
		budget:  budget,
		model:   model,
		backoff: backoff,
	}
	if apiKey != "" {
		t.client = openai.NewClient(apiKey)
	}
	return t
}

// NewWithClient is the test constructor.
func NewWithClient(client ChatClient, model string, cache Cache, budget *ratelimit.Budget, backoff time.Duration) *Translator {
	return &Translator{client: client, cache: cache, budget: budget, model: model, backoff: backoff}
}

// Translate renders text into the target language. sourceLang and
// targetLang accept codes ("he") or names ("Hebrew").
func (t *Translator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, Outcome) {
	text = strings.TrimSpace(text)
	if text == "" {
		return text, OutcomeSuccess
	}

	srcCode, srcName := normalizeLang(sourceLang, "en", "English")
	dstCode, dstName := normalizeLang(targetLang, "en", "English")
	if srcCode == dstCode {
		return text, OutcomeSuccess
	}

	// Tier 0: no credential configured at all.
	if t.client == nil {
		return placeholders[dstCode], OutcomeFallbackPlaceholder
	}

	// Tier 1: cache.
	key := storage.CacheKey(text, dstName)
	if cached, ok := t.cache.Get(key); ok {
		if t.budget != nil {
			t.budget.RecordCacheHit()
		}
		metrics.Global.IncrementTranslationsCached()
		return cached, OutcomeCached
	}

	// Tier 2: primary API call with the source's own language assumption.
	if result, ok := t.callAPI(ctx, text, srcName, dstName, dstCode); ok {
		t.cache.Set(key, result)
		metrics.Global.IncrementTranslationsSuccess()
		return result, OutcomeSuccess
	}

	// Tier 3: one retry assuming the source is actually English. Mixed-language
	// feeds mislabel often enough that this recovers real translations.
	if srcName != "English" {
		if result, ok := t.callAPI(ctx, text, "English", dstName, dstCode); ok {
			t.cache.Set(key, result)
			metrics.Global.IncrementTranslationsSuccess()
			return result, OutcomeSuccess
		}
	}

	metrics.Global.IncrementTranslationsFallback()

	// Tier 4: keyword table, Russian→English only.
	if srcCode == "ru" && dstCode == "en" {
		if partial, ok := keywordTranslate(text); ok {
			return partial, OutcomeFallbackKeyword
		}
	}

	// Tier 5: the original text with a language tag.
	return text + " [" + strings.ToUpper(srcCode) + "]", OutcomeFallbackLiteral
}

// callAPI performs one logical translation request, with a bounded
// rate-limit backoff (the only retried error class here).
func (t *Translator) callAPI(ctx context.Context, text, srcName, dstName, dstCode string) (string, bool) {
	if t.budget != nil && !t.budget.CanUseOpenAI() {
		return "", false
	}

	var result string
	policy := retry.Policy{
		MaxAttempts: 2,
		Delay:       time.Second,
		Classify: func(err error) time.Duration {
			if isRateLimited(err) {
				logger.Warn("rate limited by translation API, backing off", "backoff", t.backoff)
				return t.backoff
			}
			return 0
		},
	}

	err := retry.Do(ctx, policy, func() error {
		if t.budget != nil {
			if err := t.budget.UseOpenAI(); err != nil {
				return err
			}
		}
		resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: t.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{
					Role: openai.ChatMessageRoleUser,
					Content: fmt.Sprintf("Translate this %s news text to %s:\n\n%s",
						srcName, dstName, text),
				},
			},
			Temperature: 0.2,
			MaxTokens:   1000,
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("no choices in response")
		}
		result = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	if err != nil {
		logger.Warn("translation call failed", "target", dstName, "error", err)
		return "", false
	}

	result = strings.Trim(result, `"“”`)
	if isFailedTranslation(result, text, dstCode) {
		logger.Debug("translation classified as failure", "target", dstName, "result", result)
		return "", false
	}
	return result, true
}

// isFailedTranslation applies the response heuristics: refusals, known
// placeholders, implausibly short output, blank output, and (for
// non-Russian targets) output identical to the input.
func isFailedTranslation(result, source, dstCode string) bool {
	if result == "" {
		return true
	}
	lower := strings.ToLower(result)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	if placeholder, ok := placeholders[dstCode]; ok && result == placeholder {
		return true
	}
	if utf8.RuneCountInString(result) < 10 && utf8.RuneCountInString(source) > 20 {
		return true
	}
	if dstCode != "ru" && result == source {
		return true
	}
	return false
}

// keywordTranslate substitutes known Russian terms. Reports ok only when at
// least one substitution happened; otherwise the literal-tag tier applies.
func keywordTranslate(text string) (string, bool) {
	words := strings.Fields(text)
	replaced := false
	for i, w := range words {
		cleaned := strings.ToLower(strings.Trim(w, ".,!?:;«»\"'()"))
		if en, ok := ruToEnKeywords[cleaned]; ok {
			words[i] = en
			replaced = true
		}
	}
	if !replaced {
		return "", false
	}
	return strings.Join(words, " "), true
}

func isRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(strings.ToLower(msg), "rate limit")
}

// Placeholder returns the fixed per-language placeholder string.
func Placeholder(lang string) string {
	code, _ := normalizeLang(lang, "en", "English")
	return placeholders[code]
}

func normalizeLang(lang, defaultCode, defaultName string) (string, string) {
	l := strings.ToLower(strings.TrimSpace(lang))
	if name, ok := languageNames[l]; ok {
		return l, name
	}
	for code, name := range languageNames {
		if strings.EqualFold(name, l) {
			return code, name
		}
	}
	if l == "" {
		return defaultCode, defaultName
	}
	// Unknown language: keep the code, title-case it as the name.
	return l, strings.ToUpper(l[:1]) + l[1:]
}
