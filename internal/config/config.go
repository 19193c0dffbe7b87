// Package config loads and validates the YAML run configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/go-scripts/newsharvest/internal/extract"
	"github.com/go-scripts/newsharvest/internal/paging"
)

// FetchConfig tunes the page fetcher.
type FetchConfig struct {
	TimeoutSec   int    `yaml:"timeout_sec"`
	SettleWaitMS int    `yaml:"settle_wait_ms"`
	UserAgent    string `yaml:"user_agent"`
	// Static selects the plain HTTP client instead of the browser session.
	Static bool `yaml:"static"`
}

// OutputConfig names the destination CSV.
type OutputConfig struct {
	Path   string `yaml:"path"`
	Append bool   `yaml:"append"`
}

// Config is one crawl run: where to start, how many listing pages, what to
// extract and where the records go.
type Config struct {
	Source       string         `yaml:"source"`
	BaseURL      string         `yaml:"base_url"`
	PageCount    int            `yaml:"page_count"`
	PageParam    string         `yaml:"page_param"`
	Fetch        FetchConfig    `yaml:"fetch"`
	ListingRules []extract.Rule `yaml:"listing_rules"`
	ArticleRules []extract.Rule `yaml:"article_rules"`
	Output       OutputConfig   `yaml:"output"`
}

// Load reads a config file, applies defaults and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.PageParam == "" {
		c.PageParam = paging.DefaultParam
	}
	if c.Fetch.TimeoutSec <= 0 {
		c.Fetch.TimeoutSec = 30
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	}
	if c.Output.Path == "" {
		c.Output.Path = "articles.csv"
	}
}

// Validate reports the first problem that would make a run meaningless.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if err := paging.Validate(c.BaseURL); err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	if c.PageCount < 1 {
		return errors.New("page_count must be at least 1")
	}
	if len(c.ListingRules) == 0 {
		return errors.New("listing_rules must not be empty")
	}
	if len(c.ArticleRules) == 0 {
		return errors.New("article_rules must not be empty")
	}
	for _, r := range append(append([]extract.Rule{}, c.ListingRules...), c.ArticleRules...) {
		if r.Field == "" || r.Selector == "" {
			return fmt.Errorf("rule %+v: field and selector are required", r)
		}
	}
	return nil
}
