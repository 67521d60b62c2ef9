package render

import (
	"bytes"
	"embed"
	"encoding/xml"
	"fmt"
	"html/template"
	"sort"
	"time"

	"cynews/internal/news"
	"cynews/internal/summary"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Language is one entry of the page's language switcher.
type Language struct {
	Code  string
	Label string
	RTL   bool
}

var pageLanguages = map[string]Language{
	"en": {Code: "en", Label: "English"},
	"he": {Code: "he", Label: "עברית", RTL: true},
	"ru": {Code: "ru", Label: "Русский"},
	"el": {Code: "el", Label: "Ελληνικά"},
}

// View model: the template sees structured data, never raw HTML strings.
type PageData struct {
	Title           string
	GeneratedAt     string
	DefaultLanguage string
	Languages       []Language
	Categories      []CategoryView
}

type CategoryView struct {
	ID    string
	Label string
	Items []ItemView
}

type ItemView struct {
	Link       string
	SourceName string
	Published  string
	Summary    string
	Versions   []LangVersion
}

type LangVersion struct {
	Code  string
	Title string
	RTL   bool
}

var categoryLabels = map[string]string{
	"politics":     "Politics",
	"economy":      "Economy",
	"society":      "Society",
	"weather":      "Weather & Environment",
	"cyprus-issue": "Cyprus Issue",
	"general":      "General",
}

var categoryOrder = []string{"cyprus-issue", "politics", "economy", "society", "weather", "general"}

type Renderer struct {
	tmpl   *template.Template
	domain string
}

func New(domain string) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse page templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, domain: domain}, nil
}

// BuildPage groups items by category and assembles the view model. langs
// sets the switcher order; the first one is selected on load.
func BuildPage(items []news.Item, langs []string, now time.Time) PageData {
	byCategory := map[string][]ItemView{}
	for _, item := range items {
		category := item.Category
		if category == "" {
			category = summary.Categorize(item.Title)
		}

		view := ItemView{
			Link:       item.Link,
			SourceName: item.SourceName,
			Published:  item.Published.Format("02 Jan 2006 15:04"),
			Summary:    item.Summary,
		}
		for _, lang := range langs {
			meta := pageLanguages[lang]
			view.Versions = append(view.Versions, LangVersion{
				Code:  lang,
				Title: item.Translated(lang),
				RTL:   meta.RTL,
			})
		}
		byCategory[category] = append(byCategory[category], view)
	}

	data := PageData{
		Title:           "Cyprus News Digest",
		GeneratedAt:     now.UTC().Format("2006-01-02 15:04 UTC"),
		DefaultLanguage: langs[0],
	}
	for _, lang := range langs {
		if meta, ok := pageLanguages[lang]; ok {
			data.Languages = append(data.Languages, meta)
		}
	}
	for _, id := range categoryOrder {
		views, ok := byCategory[id]
		if !ok {
			continue
		}
		data.Categories = append(data.Categories, CategoryView{
			ID:    id,
			Label: categoryLabels[id],
			Items: views,
		})
		delete(byCategory, id)
	}
	// Any category outside the known order still renders, alphabetically.
	var rest []string
	for id := range byCategory {
		rest = append(rest, id)
	}
	sort.Strings(rest)
	for _, id := range rest {
		data.Categories = append(data.Categories, CategoryView{ID: id, Label: id, Items: byCategory[id]})
	}
	return data
}

// Page renders the full self-contained edition HTML.
func (r *Renderer) Page(data PageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "page", data); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}

// CNAME returns the custom-domain marker file for the static host.
func (r *Renderer) CNAME() []byte {
	return []byte(r.domain + "\n")
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// Sitemap lists the published page paths for crawlers.
func (r *Renderer) Sitemap(paths []string, now time.Time) ([]byte, error) {
	set := urlSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	lastMod := now.UTC().Format("2006-01-02")
	for _, p := range paths {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:     "https://" + r.domain + "/" + p,
			LastMod: lastMod,
		})
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal sitemap: %w", err)
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}
