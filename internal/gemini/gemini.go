package gemini

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Client wraps the Gemini API for optional summary enrichment. When no key
// is configured the pipeline falls back to the keyword summarizer.
type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: client, model: "gemini-1.5-flash"}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Summarize produces a one-or-two-sentence English summary of a headline
// and optional article snippet.
func (c *Client) Summarize(ctx context.Context, title, snippet string) (string, error) {
	model := c.client.GenerativeModel(c.model)

	snippet = strings.Join(strings.Fields(snippet), " ")
	if utf8.RuneCountInString(snippet) > 2000 {
		runes := []rune(snippet)
		snippet = string(runes[:2000])
	}

	prompt := fmt.Sprintf(`Summarize this Cyprus news story in one or two plain English sentences.
Do not add commentary, labels, or introductory phrases.

Headline: %s
Text: %s`, title, snippet)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}

	out := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	return cleanSummary(out), nil
}

// cleanSummary strips labels and boilerplate the model sometimes prepends.
func cleanSummary(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"SUMMARY:", "Summary:", "TL;DR:", "In short:"} {
		s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
	}
	// Keep it to a couple of sentences even if the model rambles.
	if utf8.RuneCountInString(s) > 400 {
		runes := []rune(s)
		cut := string(runes[:400])
		if idx := strings.LastIndex(cut, ". "); idx > 100 {
			cut = cut[:idx+1]
		}
		s = cut
	}
	return s
}
