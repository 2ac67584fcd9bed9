// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network
// requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-radar/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// Keyword is one configured research interest. The filter stage sends the
// full definition (name, description, examples) to the fast tier.
type Keyword struct {
	// Name is the keyword's display name and grouping key in reports.
	Name string `json:"name" yaml:"name"`

	// Description explains the research area in one or two sentences.
	Description string `json:"description" yaml:"description"`

	// Examples lists representative paper topics or titles.
	Examples []string `json:"examples,omitempty" yaml:"examples,omitempty"`
}

// JournalConfig describes one journal RSS feed source.
type JournalConfig struct {
	// Name is the journal's display name (e.g. "Nature Medicine").
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// FeedURL is the journal's RSS or Atom feed endpoint.
	FeedURL string `json:"feed_url" yaml:"feed_url" mapstructure:"feed_url"`

	// Paywalled marks feeds whose full text requires the institutional
	// proxy. Paywalled journals are skipped when proxy credentials are
	// absent.
	Paywalled bool `json:"paywalled" yaml:"paywalled" mapstructure:"paywalled"`
}

// SourcesConfig holds settings for the source adapters.
type SourcesConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// ArxivCategories lists arXiv subject categories to poll
	// (e.g. "cs.CV", "cs.LG"). Empty disables the arXiv adapter.
	ArxivCategories []string `json:"arxiv_categories" yaml:"arxiv_categories" mapstructure:"arxiv_categories"`

	// Journals lists journal RSS feeds to poll.
	Journals []JournalConfig `json:"journals" yaml:"journals" mapstructure:"journals"`

	// LookbackWindow bounds how far back in a feed a candidate may be
	// published and still count as new (default 24h).
	LookbackWindow time.Duration `json:"lookback_window" yaml:"lookback_window" mapstructure:"lookback_window"`

	// MaxPerSource caps candidates taken from one adapter (default 200).
	MaxPerSource int `json:"max_per_source" yaml:"max_per_source" mapstructure:"max_per_source"`
}

// TierConfig holds settings for one inference tier. The fast, capable, and
// summary tiers share this shape; they differ only in endpoint, model, and
// concurrency economics.
type TierConfig struct {
	// APIBase is the OpenAI-compatible chat completions base URL.
	APIBase string `json:"api_base" yaml:"api_base" mapstructure:"api_base"`

	// APIKey authenticates requests. Filled from secrets when empty.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Model is the model identifier to request.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// Temperature is the sampling temperature.
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`

	// MaxTokens bounds the response length.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// Timeout is the per-request timeout (default 3m; analysis payloads
	// are large).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// RateLimit is the sustained requests-per-second ceiling.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`

	// Concurrency bounds simultaneous in-flight calls for the stage
	// driving this tier.
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`

	// MaxRetries is the number of retry attempts on transient failures
	// (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// RetryBackoff is the base delay for exponential backoff between
	// retries.
	RetryBackoff time.Duration `json:"retry_backoff" yaml:"retry_backoff" mapstructure:"retry_backoff"`

	// Use, on the summary tier only, aliases another tier's endpoint
	// settings: "fast" or "capable". Empty means the tier is configured
	// directly.
	Use string `json:"use,omitempty" yaml:"use,omitempty" mapstructure:"use"`
}

// PaywallConfig holds settings for the institutional proxy accessor.
type PaywallConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// ProxyURL is the EZproxy-style login base (e.g.
	// "https://login.ezproxy.example.edu"). Empty disables the accessor.
	ProxyURL string `json:"proxy_url" yaml:"proxy_url" mapstructure:"proxy_url"`

	// Username and Password are the institutional credentials. Filled
	// from secrets when empty.
	Username string `json:"username,omitempty" yaml:"username,omitempty" mapstructure:"username"`
	Password string `json:"password,omitempty" yaml:"password,omitempty" mapstructure:"password"`

	// SessionTTL is how long an authenticated session is treated as
	// valid before re-authenticating (default 30m).
	SessionTTL time.Duration `json:"session_ttl" yaml:"session_ttl" mapstructure:"session_ttl"`
}

// StoreConfig holds settings for the report archive and paper history.
type StoreConfig struct {
	// DBPath is the SQLite database path (default "reports/reports.db").
	DBPath string `json:"db_path" yaml:"db_path" mapstructure:"db_path"`

	// MarkdownDir, when non-empty, is where the human-readable Markdown
	// digest for each date is written.
	MarkdownDir string `json:"markdown_dir" yaml:"markdown_dir" mapstructure:"markdown_dir"`

	// HistoryRetentionDays is how long processed-paper history is kept
	// before cleanup (default 90).
	HistoryRetentionDays int `json:"history_retention_days" yaml:"history_retention_days" mapstructure:"history_retention_days"`
}

// ServerConfig holds settings for the read-only web viewer.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// ReadTimeout and WriteTimeout bound request handling.
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "json" or "console".
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// OutputConfig holds report output settings.
type OutputConfig struct {
	// Language is the language the summary tier writes narratives in
	// (default "English").
	Language string `json:"language" yaml:"language" mapstructure:"language"`
}
