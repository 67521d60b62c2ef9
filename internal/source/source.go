package source

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source is one configured news origin. Type selects the fetch strategy:
// "html" scrapes BaseURL with LinkSelectors, "rss" parses BaseURL as a feed,
// "channel" reads a public messaging-channel web view.
type Source struct {
	Country            string   `json:"country" yaml:"country"`
	SourceID           string   `json:"sourceId" yaml:"sourceId"`
	SourceName         string   `json:"sourceName" yaml:"sourceName"`
	BaseURL            string   `json:"baseUrl" yaml:"baseUrl"`
	Type               string   `json:"type,omitempty" yaml:"type,omitempty"`
	LinkSelectors      []string `json:"linkSelectors" yaml:"linkSelectors"`
	ParagraphSelectors []string `json:"paragraphSelectors,omitempty" yaml:"paragraphSelectors,omitempty"`
	SourceLanguage     string   `json:"sourceLanguage" yaml:"sourceLanguage"`
	Timezone           string   `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	DelayMs            int      `json:"delayMs,omitempty" yaml:"delayMs,omitempty"`
}

type fileConfig struct {
	Sources []Source `json:"sources" yaml:"sources"`
}

// Load reads the source list from a JSON or YAML file, picked by extension.
func Load(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources config: %w", err)
	}

	var cfg fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse sources yaml: %w", err)
		}
	default:
		// Accept both {"sources": [...]} and a bare top-level array.
		if err := json.Unmarshal(data, &cfg); err != nil || len(cfg.Sources) == 0 {
			var bare []Source
			if err2 := json.Unmarshal(data, &bare); err2 != nil {
				if err != nil {
					return nil, fmt.Errorf("parse sources json: %w", err)
				}
				return nil, fmt.Errorf("parse sources json: %w", err2)
			}
			cfg.Sources = bare
		}
	}

	for i := range cfg.Sources {
		if err := cfg.Sources[i].validate(); err != nil {
			return nil, fmt.Errorf("source %d (%s): %w", i, cfg.Sources[i].SourceID, err)
		}
		if cfg.Sources[i].Type == "" {
			cfg.Sources[i].Type = "html"
		}
	}

	return cfg.Sources, nil
}

func (s *Source) validate() error {
	if s.SourceID == "" {
		return fmt.Errorf("sourceId is required")
	}
	if s.BaseURL == "" {
		return fmt.Errorf("baseUrl is required")
	}
	switch s.Type {
	case "", "html":
		if len(s.LinkSelectors) == 0 {
			return fmt.Errorf("html source needs at least one link selector")
		}
	case "rss", "channel":
	default:
		return fmt.Errorf("unknown source type %q", s.Type)
	}
	return nil
}
