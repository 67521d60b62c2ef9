package channel

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"cynews/internal/news"
	"cynews/internal/source"
)

// Selectors for the public web preview of a messaging channel. Ordered the
// same way as article selectors: first one that yields messages wins.
var messageSelectors = []string{
	".tgme_widget_message_text",
	".message-text",
	".post-content",
}

const maxTitleRunes = 120

// MessageID builds a stable identity from the message body and its day
// bucket, so edits of the same-day message or reposts on a later day get
// distinct identities without depending on site-specific numeric ids.
func MessageID(text string, published time.Time) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	h := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(h[:])[:16] + "-" + published.UTC().Format("2006-01-02")
}

// FromDocument extracts channel messages from the channel's web view page.
func FromDocument(doc *goquery.Document, src source.Source, now time.Time) []news.Item {
	selectors := src.LinkSelectors
	if len(selectors) == 0 {
		selectors = messageSelectors
	}

	for _, selector := range selectors {
		var items []news.Item

		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) < 20 {
				return
			}
			text = strings.Join(strings.Fields(text), " ")

			published := now
			if t, ok := messageTime(s); ok {
				published = t
			}

			items = append(items, news.Item{
				ID:         MessageID(text, published),
				Title:      messageTitle(text),
				Summary:    text,
				Link:       src.BaseURL,
				Published:  published,
				SourceID:   src.SourceID,
				SourceName: src.SourceName,
				SourceLang: src.SourceLanguage,
				Country:    src.Country,
			})
		})

		if len(items) > 0 {
			return items
		}
	}
	return nil
}

// messageTime looks for a <time datetime="..."> near the message node.
func messageTime(s *goquery.Selection) (time.Time, bool) {
	datetime, ok := s.Closest(".tgme_widget_message").Find("time").Attr("datetime")
	if !ok {
		datetime, ok = s.Parent().Find("time").Attr("datetime")
	}
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, datetime)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// messageTitle takes the first sentence, capped to a readable headline length.
func messageTitle(text string) string {
	title := text
	if idx := strings.IndexAny(text, ".!?\n"); idx > 20 {
		title = text[:idx+1]
	}
	runes := []rune(title)
	if len(runes) > maxTitleRunes {
		title = string(runes[:maxTitleRunes]) + "..."
	}
	return strings.TrimSpace(title)
}
