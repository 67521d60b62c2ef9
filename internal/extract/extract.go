package extract

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"cynews/internal/logger"
	"cynews/internal/news"
	"cynews/internal/source"
)

const minTitleLength = 15

// Substrings that mark navigation/promo links rather than articles.
var blacklist = []string{
	"newsletter",
	"subscribe",
	"subscription",
	"cookie",
	"advertis",
	"sign up",
	"log in",
}

// FromDocument applies the source's selectors in order; the first selector
// that yields any valid items wins. Titles come from the anchor text, links
// from href resolved against the source base URL.
func FromDocument(doc *goquery.Document, src source.Source) []news.Item {
	base, err := url.Parse(src.BaseURL)
	if err != nil {
		logger.Warn("invalid base url", "source", src.SourceID, "error", err)
		return nil
	}

	for _, selector := range src.LinkSelectors {
		var items []news.Item
		seen := map[string]struct{}{}

		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			anchor := s
			if !s.Is("a") {
				anchor = s.Find("a").First()
			}
			href, ok := anchor.Attr("href")
			if !ok {
				return
			}

			title := strings.TrimSpace(anchor.Text())
			if title == "" {
				title = strings.TrimSpace(s.Text())
			}
			link := resolveLink(base, href)
			if !validItem(title, link) {
				return
			}
			if _, dup := seen[link]; dup {
				return
			}
			seen[link] = struct{}{}

			items = append(items, news.Item{
				ID:         link,
				Title:      collapseWhitespace(title),
				Link:       link,
				Published:  time.Now(),
				SourceID:   src.SourceID,
				SourceName: src.SourceName,
				SourceLang: src.SourceLanguage,
				Country:    src.Country,
			})
		})

		if len(items) > 0 {
			logger.Debug("selector matched", "source", src.SourceID, "selector", selector, "items", len(items))
			return items
		}
	}

	return nil
}

// Snippet pulls a short text block from an article page using the source's
// paragraph selectors, first match wins.
func Snippet(doc *goquery.Document, src source.Source) string {
	for _, selector := range src.ParagraphSelectors {
		var paragraphs []string
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) > 20 && !isJunkLine(text) {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) > 0 {
			snippet := strings.Join(paragraphs, " ")
			if len(snippet) > 400 {
				if idx := strings.LastIndex(snippet[:400], ". "); idx > 100 {
					snippet = snippet[:idx+1]
				} else {
					snippet = snippet[:400] + "..."
				}
			}
			return collapseWhitespace(snippet)
		}
	}
	return ""
}

// FromFeed converts an RSS/Atom feed into items; feeds skip selector
// extraction entirely.
func FromFeed(ctx context.Context, parser *gofeed.Parser, src source.Source) ([]news.Item, error) {
	feed, err := parser.ParseURLWithContext(src.BaseURL, ctx)
	if err != nil {
		return nil, err
	}

	var items []news.Item
	for _, entry := range feed.Items {
		if !validItem(entry.Title, entry.Link) {
			continue
		}
		published := time.Now()
		if entry.PublishedParsed != nil {
			published = *entry.PublishedParsed
		}
		items = append(items, news.Item{
			ID:         entry.Link,
			Title:      collapseWhitespace(entry.Title),
			Summary:    collapseWhitespace(stripTags(entry.Description)),
			Link:       entry.Link,
			Published:  published,
			SourceID:   src.SourceID,
			SourceName: src.SourceName,
			SourceLang: src.SourceLanguage,
			Country:    src.Country,
		})
	}
	return items, nil
}

func validItem(title, link string) bool {
	if len(strings.TrimSpace(title)) < minTitleLength {
		return false
	}
	u, err := url.Parse(link)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return false
	}
	lower := strings.ToLower(title + " " + link)
	for _, bad := range blacklist {
		if strings.Contains(lower, bad) {
			return false
		}
	}
	return true
}

func resolveLink(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func isJunkLine(line string) bool {
	lower := strings.ToLower(line)
	junkIndicators := []string{
		"cookie", "gdpr", "advertis", "read more", "click here",
		"follow us", "share this", "related articles", "newsletter",
	}
	for _, indicator := range junkIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func stripTags(s string) string {
	inTag := false
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteRune(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
