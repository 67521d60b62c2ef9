package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"cynews/internal/logger"
	"cynews/internal/metrics"
	"cynews/internal/news"
)

// SeenStore is the persisted seen-set the deduper consults and feeds.
// Both the file and sqlite backends satisfy it.
type SeenStore interface {
	Contains(id string) bool
	Add(id, title, link string)
	Save() error
}

// Options tune the similarity rule. The threshold default (0.8) and its
// inclusivity are configurable because product intent is not settled.
type Options struct {
	SimilarityThreshold float64
	Inclusive           bool // duplicate when similarity >= threshold; otherwise strictly >
}

// Deduper decides whether an item is new. Identity membership is checked
// against the seen-store and against items already accepted this run;
// near-duplicate titles and identical summaries collapse within a run.
type Deduper struct {
	store    SeenStore
	opts     Options
	runIDs   map[string]struct{}
	accepted []acceptedItem
}

type acceptedItem struct {
	tokens      map[string]struct{}
	summaryHash string
}

func New(store SeenStore, opts Options) *Deduper {
	if opts.SimilarityThreshold == 0 {
		opts.SimilarityThreshold = 0.8
		opts.Inclusive = true
	}
	return &Deduper{
		store:  store,
		opts:   opts,
		runIDs: make(map[string]struct{}),
	}
}

// IsNew classifies item and, when it is new, records its identity in the
// run state and the seen-store. Call Flush at the end of the run to persist.
func (d *Deduper) IsNew(item news.Item) bool {
	if _, dup := d.runIDs[item.ID]; dup {
		metrics.Global.IncrementDuplicatesFiltered()
		return false
	}
	if d.store.Contains(item.ID) {
		metrics.Global.IncrementDuplicatesFiltered()
		return false
	}

	tokens := TokenSet(item.Title)
	summaryHash := ""
	if item.Summary != "" {
		summaryHash = contentHash(item.Summary)
	}

	for _, prev := range d.accepted {
		if summaryHash != "" && summaryHash == prev.summaryHash {
			logger.Debug("duplicate by summary hash", "title", item.Title)
			metrics.Global.IncrementDuplicatesFiltered()
			return false
		}
		if d.similar(Jaccard(tokens, prev.tokens)) {
			logger.Debug("duplicate by title similarity", "title", item.Title)
			metrics.Global.IncrementDuplicatesFiltered()
			return false
		}
	}

	d.runIDs[item.ID] = struct{}{}
	d.accepted = append(d.accepted, acceptedItem{tokens: tokens, summaryHash: summaryHash})
	d.store.Add(item.ID, item.Title, item.Link)
	return true
}

func (d *Deduper) similar(similarity float64) bool {
	if d.opts.Inclusive {
		return similarity >= d.opts.SimilarityThreshold
	}
	return similarity > d.opts.SimilarityThreshold
}

// Flush persists the seen-store. Persistence failure is logged and
// swallowed: this run's decisions stand, the next run may reprocess.
func (d *Deduper) Flush() {
	if err := d.store.Save(); err != nil {
		logger.Warn("failed to persist seen set", "error", err)
	}
}

// TokenSet lowercases the title and keeps words longer than 3 characters.
func TokenSet(title string) map[string]struct{} {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, title)

	tokens := make(map[string]struct{})
	for _, w := range strings.Fields(cleaned) {
		if len([]rune(w)) > 3 {
			tokens[w] = struct{}{}
		}
	}
	return tokens
}

// Jaccard is |A∩B| / |A∪B| over the two token sets.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func contentHash(text string) string {
	h := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(h[:])
}
