package news

import "time"

// Item is a single scraped article or channel message. Immutable once
// created, except Translations which is filled in lazily per language.
type Item struct {
	ID           string            `json:"id"` // link for articles, content-hash+day for messages
	Title        string            `json:"title"`
	Summary      string            `json:"summary,omitempty"`
	Link         string            `json:"link"`
	Category     string            `json:"category,omitempty"`
	Published    time.Time         `json:"published"`
	SourceID     string            `json:"sourceId"`
	SourceName   string            `json:"sourceName,omitempty"`
	SourceLang   string            `json:"sourceLang,omitempty"`
	Country      string            `json:"country,omitempty"`
	Translations map[string]string `json:"translations,omitempty"`
}

// Translated returns the translation for lang, falling back to the title.
func (i Item) Translated(lang string) string {
	if i.Translations != nil {
		if t, ok := i.Translations[lang]; ok && t != "" {
			return t
		}
	}
	return i.Title
}
