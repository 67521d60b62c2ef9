// Package app wires the pipeline together: scrape, dedup, summarize,
// translate, render, publish, notify.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"cynews/internal/channel"
	"cynews/internal/config"
	"cynews/internal/dedup"
	"cynews/internal/extract"
	"cynews/internal/fetch"
	"cynews/internal/gemini"
	"cynews/internal/logger"
	"cynews/internal/mailer"
	"cynews/internal/metrics"
	"cynews/internal/news"
	"cynews/internal/publish"
	"cynews/internal/ratelimit"
	"cynews/internal/render"
	"cynews/internal/source"
	"cynews/internal/storage"
	"cynews/internal/subscribe"
	"cynews/internal/summary"
	"cynews/internal/translate"
)

type App struct {
	cfg        *config.Config
	fetcher    *fetch.Client
	feedParser *gofeed.Parser
	translator *translate.Translator
	gemini     *gemini.Client
	renderer   *render.Renderer
	publisher  *publish.Client
	mailer     *mailer.Mailer
	budget     *ratelimit.Budget
	stores     *stores
	messages   *storage.MessageLog
	subs       *subscribe.Store
	sources    []source.Source

	now func() time.Time
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	sources, err := source.Load(cfg.SourcesConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}

	st, err := openStores(cfg)
	if err != nil {
		return nil, err
	}

	messages := storage.NewMessageLog(cfg.MessagesFilePath)
	if err := messages.Load(); err != nil {
		return nil, fmt.Errorf("load message log: %w", err)
	}

	subs := subscribe.NewStore(cfg.SubscribersFilePath)
	if err := subs.Load(); err != nil {
		return nil, fmt.Errorf("load subscribers: %w", err)
	}

	budget := ratelimit.NewBudget(cfg.MaxAIRequests)
	translator := translate.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, st.cache, budget, cfg.RateLimitBackoff)

	renderer, err := render.New(cfg.SiteDomain)
	if err != nil {
		return nil, fmt.Errorf("init renderer: %w", err)
	}

	a := &App{
		cfg:        cfg,
		fetcher:    fetch.NewClient(cfg.RequestTimeout),
		feedParser: gofeed.NewParser(),
		translator: translator,
		renderer:   renderer,
		budget:     budget,
		stores:     st,
		messages:   messages,
		subs:       subs,
		sources:    sources,
		now:        time.Now,
	}

	if cfg.GeminiAPIKey != "" {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			logger.Warn("Gemini unavailable, using keyword summaries", "error", err)
		} else {
			a.gemini = client
		}
	}
	if cfg.PublishEnabled() {
		a.publisher = publish.New(cfg.GitHubToken, cfg.GitHubUsername, cfg.GitHubRepo, nil)
	}
	if cfg.EmailEnabled() {
		a.mailer = mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.FromEmail, cfg.EmailPassword)
	}

	return a, nil
}

// Subscribers exposes the subscriber store for the HTTP form handler.
func (a *App) Subscribers() *subscribe.Store { return a.subs }

func (a *App) Close() error {
	if a.gemini != nil {
		a.gemini.Close()
	}
	return a.stores.close()
}

// Run executes one full pipeline pass.
func (a *App) Run(ctx context.Context) error {
	start := a.now()
	logger.Info("Starting news run", "sources", len(a.sources), "backend", a.cfg.StoreBackend)

	deduper := dedup.New(a.stores.seen, dedup.Options{
		SimilarityThreshold: a.cfg.SimilarityThreshold,
		Inclusive:           a.cfg.SimilarityInclusive,
	})

	accepted := a.collect(ctx, deduper)
	logger.Info("Collection finished", "accepted", len(accepted))

	if len(accepted) > a.cfg.MaxItemsPerPage {
		accepted = accepted[:a.cfg.MaxItemsPerPage]
	}

	a.translateItems(ctx, accepted)
	a.archiveMessages(accepted)

	var runErr error
	if len(accepted) == 0 {
		logger.Info("No new items, keeping the published page as is")
	} else {
		if err := a.publishSite(ctx, accepted); err != nil {
			logger.Error("Publishing failed", "error", err)
			runErr = err
		}
		a.sendDigests(accepted)
	}

	deduper.Flush()
	if err := a.stores.saveCache(); err != nil {
		logger.Error("Failed to save translation cache", "error", err)
	}
	if err := a.messages.Save(); err != nil {
		logger.Error("Failed to save message log", "error", err)
	}

	metrics.Global.RecordRunDuration(time.Since(start))
	if runErr != nil {
		metrics.Global.SetError(runErr.Error())
		return runErr
	}
	metrics.Global.SetLastRun()
	logger.Info("Run complete", "items", len(accepted), "duration", time.Since(start))
	return nil
}

// RunLoop runs the pipeline on a fixed interval until ctx is cancelled.
// The first pass runs immediately.
func (a *App) RunLoop(ctx context.Context) error {
	if err := a.Run(ctx); err != nil {
		logger.Error("Run failed", "error", err)
	}

	ticker := time.NewTicker(a.cfg.RunInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down run loop")
			return ctx.Err()
		case <-ticker.C:
			if err := a.Run(ctx); err != nil {
				logger.Error("Run failed", "error", err)
			}
		}
	}
}

// collect scrapes every source, filters through the deduper and enriches
// the survivors with summaries. A failing source never aborts the run.
func (a *App) collect(ctx context.Context, deduper *dedup.Deduper) []news.Item {
	var accepted []news.Item

	for i, src := range a.sources {
		if ctx.Err() != nil {
			break
		}
		if i > 0 {
			time.Sleep(a.sourceDelay(src))
		}

		raw, err := a.fetchSource(ctx, src)
		if err != nil {
			logger.Error("Source failed", "source", src.SourceID, "error", err)
			continue
		}
		logger.Debug("Source fetched", "source", src.SourceID, "items", len(raw))

		var fresh []news.Item
		for _, item := range raw {
			metrics.Global.IncrementItemsScraped()
			if src.Type == "channel" && a.messages.Has(item.ID) {
				metrics.Global.IncrementDuplicatesFiltered()
				continue
			}
			if !deduper.IsNew(item) {
				continue
			}
			metrics.Global.IncrementItemsAccepted()
			fresh = append(fresh, item)
		}

		a.enrich(ctx, src, fresh)
		accepted = append(accepted, fresh...)
	}

	return accepted
}

func (a *App) fetchSource(ctx context.Context, src source.Source) ([]news.Item, error) {
	switch src.Type {
	case "rss":
		return extract.FromFeed(ctx, a.feedParser, src)
	case "channel":
		doc, err := a.fetcher.Document(ctx, src.BaseURL)
		if err != nil {
			return nil, err
		}
		return channel.FromDocument(doc, src, a.now()), nil
	default:
		doc, err := a.fetcher.Document(ctx, src.BaseURL)
		if err != nil {
			return nil, err
		}
		return extract.FromDocument(doc, src), nil
	}
}

// enrich fills in Summary and Category. Article pages are fetched only
// for items that survived deduplication, and Gemini is used only while
// the AI budget allows it.
func (a *App) enrich(ctx context.Context, src source.Source, items []news.Item) {
	for i := range items {
		item := &items[i]
		item.Category = summary.Categorize(item.Title)

		snippet := item.Summary
		if snippet == "" && len(src.ParagraphSelectors) > 0 && src.Type != "channel" {
			doc, err := a.fetcher.Document(ctx, item.Link)
			if err != nil {
				logger.Debug("Article page fetch failed", "link", item.Link, "error", err)
			} else {
				snippet = extract.Snippet(doc, src)
			}
		}

		if a.gemini != nil && a.budget.CanUseGemini() {
			if err := a.budget.UseGemini(); err == nil {
				if s, err := a.gemini.Summarize(ctx, item.Title, snippet); err == nil && s != "" {
					item.Summary = s
					continue
				} else if err != nil {
					logger.Warn("Gemini summary failed", "error", err)
				}
			}
		}

		if snippet != "" {
			item.Summary = summary.Fallback(snippet)
		} else {
			item.Summary = summary.Describe(item.Title)
		}
	}
}

// translateItems fills Translations for every configured page language.
// Failed tiers still produce a usable string, so the page never shows a
// blank title.
func (a *App) translateItems(ctx context.Context, items []news.Item) {
	for i := range items {
		if ctx.Err() != nil {
			return
		}
		item := &items[i]
		item.Translations = make(map[string]string, len(a.cfg.TargetLanguages))

		usedAPI := false
		for _, lang := range a.cfg.TargetLanguages {
			text, outcome := a.translator.Translate(ctx, item.Title, item.SourceLang, lang)
			item.Translations[lang] = text
			if outcome != translate.OutcomeCached && outcome != translate.OutcomeFallbackPlaceholder {
				usedAPI = true
			}
		}
		if usedAPI && a.cfg.TranslateDelay > 0 {
			time.Sleep(a.cfg.TranslateDelay)
		}
	}
}

// archiveMessages records processed channel items so reposted messages
// are recognized across runs even after the seen store prunes them.
func (a *App) archiveMessages(items []news.Item) {
	channelIDs := map[string]bool{}
	for _, src := range a.sources {
		if src.Type == "channel" {
			channelIDs[src.SourceID] = true
		}
	}

	for _, item := range items {
		if !channelIDs[item.SourceID] {
			continue
		}
		a.messages.Append(storage.ProcessedMessage{
			ID:           item.ID,
			Text:         item.Summary,
			Timestamp:    item.Published,
			Translations: item.Translations,
		})
	}
}

func (a *App) publishSite(ctx context.Context, items []news.Item) error {
	page := render.BuildPage(items, a.cfg.TargetLanguages, a.now())

	html, err := a.renderer.Page(page)
	if err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	sitemap, err := a.renderer.Sitemap([]string{"index.html"}, a.now())
	if err != nil {
		return fmt.Errorf("render sitemap: %w", err)
	}

	if a.publisher == nil {
		logger.Info("Publishing disabled, page rendered but not uploaded", "bytes", len(html))
		return nil
	}

	message := fmt.Sprintf("Update news page %s", a.now().UTC().Format("2006-01-02 15:04"))
	files := []struct {
		path    string
		content []byte
	}{
		{"index.html", html},
		{"CNAME", a.renderer.CNAME()},
		{"sitemap.xml", sitemap},
	}
	for _, f := range files {
		if err := a.publisher.UploadFile(ctx, f.path, f.content, message); err != nil {
			return fmt.Errorf("upload %s: %w", f.path, err)
		}
	}

	metrics.Global.IncrementPagesPublished()
	logger.Info("Page published", "items", len(items), "domain", a.cfg.SiteDomain)
	return nil
}

// sendDigests mails the configured recipient and every active subscriber.
// Mail failures are logged, never fatal: the page is already live.
func (a *App) sendDigests(items []news.Item) {
	if a.mailer == nil {
		return
	}

	recipients := map[string]struct{}{}
	if a.cfg.ToEmail != "" {
		recipients[a.cfg.ToEmail] = struct{}{}
	}
	for _, sub := range a.subs.Active() {
		recipients[sub.Email] = struct{}{}
	}

	now := a.now()
	for recipient := range recipients {
		if err := a.mailer.SendDigest(recipient, a.cfg.SiteDomain, items, now); err != nil {
			logger.Error("Digest mail failed", "recipient", recipient, "error", err)
			continue
		}
		metrics.Global.IncrementEmailsSent()
	}
}

func (a *App) sourceDelay(src source.Source) time.Duration {
	if src.DelayMs > 0 {
		return time.Duration(src.DelayMs) * time.Millisecond
	}
	return a.cfg.SourceDelay
}
