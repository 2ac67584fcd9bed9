// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads and validates paper-radar configuration from a YAML
// file with PAPER_RADAR_* environment overrides, plus the keyword
// definitions from a separate keywords file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// Config groups all stage configurations for one run.
type Config struct {
	Sources types.SourcesConfig `mapstructure:"sources"`
	Fast    types.TierConfig    `mapstructure:"fast"`
	Capable types.TierConfig    `mapstructure:"capable"`
	Summary types.TierConfig    `mapstructure:"summary"`
	Paywall types.PaywallConfig `mapstructure:"paywall"`
	Store   types.StoreConfig   `mapstructure:"store"`
	Server  types.ServerConfig  `mapstructure:"server"`
	Logging types.LoggingConfig `mapstructure:"logging"`
	Output  types.OutputConfig  `mapstructure:"output"`

	// KeywordsFile is the path to the keyword definitions YAML.
	KeywordsFile string `mapstructure:"keywords_file"`

	// Keywords holds the parsed keyword definitions.
	Keywords []types.Keyword `mapstructure:"-"`
}

// Load reads configuration from cfgFile (or the default search path when
// empty), applies defaults, environment overrides, and secrets, loads
// the keywords file, and validates the result. A validation error here
// is fatal to the run: nothing has been fetched or persisted yet.
func Load(cfgFile string, secrets map[string]string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("paper-radar")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/paper-radar")
		}
	}

	v.SetEnvPrefix("PAPER_RADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing default config file is fine; env and defaults apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	keywords, err := LoadKeywords(cfg.KeywordsFile)
	if err != nil {
		return nil, err
	}
	cfg.Keywords = keywords

	cfg.ApplySecrets(secrets)
	resolveSummaryTier(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("keywords_file", "keywords.yaml")

	v.SetDefault("sources.timeout", 30*time.Second)
	v.SetDefault("sources.user_agent", "paper-radar/0.1")
	v.SetDefault("sources.lookback_window", 24*time.Hour)
	v.SetDefault("sources.max_per_source", 200)

	for _, tier := range []string{"fast", "capable", "summary"} {
		v.SetDefault(tier+".timeout", 3*time.Minute)
		v.SetDefault(tier+".max_retries", 3)
		v.SetDefault(tier+".retry_backoff", time.Second)
		v.SetDefault(tier+".max_tokens", 2000)
	}
	v.SetDefault("fast.temperature", 0.1)
	v.SetDefault("fast.rate_limit", 5.0)
	v.SetDefault("fast.concurrency", 4)
	v.SetDefault("capable.temperature", 0.3)
	v.SetDefault("capable.rate_limit", 1.0)
	v.SetDefault("capable.concurrency", 2)
	v.SetDefault("capable.max_tokens", 4000)
	v.SetDefault("capable.retry_backoff", 5*time.Second)
	v.SetDefault("summary.use", "fast")
	v.SetDefault("summary.temperature", 0.5)
	v.SetDefault("summary.rate_limit", 1.0)
	v.SetDefault("summary.concurrency", 1)

	v.SetDefault("paywall.timeout", 60*time.Second)
	v.SetDefault("paywall.user_agent", "paper-radar/0.1")
	v.SetDefault("paywall.session_ttl", 30*time.Minute)

	v.SetDefault("store.db_path", "reports/reports.db")
	v.SetDefault("store.markdown_dir", "reports")
	v.SetDefault("store.history_retention_days", 90)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("output.language", "English")
}

// resolveSummaryTier fills the summary tier's endpoint settings from the
// tier it aliases. Summary-specific temperature and max_tokens win.
func resolveSummaryTier(cfg *Config) {
	var base types.TierConfig
	switch cfg.Summary.Use {
	case "capable":
		base = cfg.Capable
	case "fast":
		base = cfg.Fast
	default:
		return
	}
	if cfg.Summary.APIBase == "" {
		cfg.Summary.APIBase = base.APIBase
	}
	if cfg.Summary.APIKey == "" {
		cfg.Summary.APIKey = base.APIKey
	}
	if cfg.Summary.Model == "" {
		cfg.Summary.Model = base.Model
	}
}

// ApplySecrets fills credential fields that the config file left empty.
// Config values always win over secrets.
func (c *Config) ApplySecrets(secrets map[string]string) {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = secrets[key]
		}
	}
	fill(&c.Fast.APIKey, "fast-tier-api-key")
	fill(&c.Capable.APIKey, "capable-tier-api-key")
	fill(&c.Summary.APIKey, "summary-tier-api-key")
	fill(&c.Paywall.Username, "proxy-username")
	fill(&c.Paywall.Password, "proxy-password")
}

// Validate checks that the configuration can drive a run. Missing paywall
// credentials are not an error: the accessor disables itself and journal
// full text is skipped with a logged reason.
func (c *Config) Validate() error {
	if len(c.Keywords) == 0 {
		return fmt.Errorf("no keywords configured: %s is empty or missing", c.KeywordsFile)
	}
	seen := make(map[string]bool, len(c.Keywords))
	for i, kw := range c.Keywords {
		if kw.Name == "" {
			return fmt.Errorf("keyword %d has no name", i)
		}
		if seen[kw.Name] {
			return fmt.Errorf("duplicate keyword %q", kw.Name)
		}
		seen[kw.Name] = true
	}

	if len(c.Sources.ArxivCategories) == 0 && len(c.Sources.Journals) == 0 {
		return fmt.Errorf("no sources configured: set sources.arxiv_categories or sources.journals")
	}
	for i, j := range c.Sources.Journals {
		if j.Name == "" || j.FeedURL == "" {
			return fmt.Errorf("journal %d: name and feed_url are required", i)
		}
	}

	for _, tier := range []struct {
		name string
		cfg  types.TierConfig
	}{{"fast", c.Fast}, {"capable", c.Capable}, {"summary", c.Summary}} {
		if tier.cfg.APIBase == "" {
			return fmt.Errorf("%s tier: api_base is required", tier.name)
		}
		if tier.cfg.Model == "" {
			return fmt.Errorf("%s tier: model is required", tier.name)
		}
		if tier.cfg.APIKey == "" {
			return fmt.Errorf("%s tier: api_key is required (config, env, or .secrets/)", tier.name)
		}
	}

	if c.Store.DBPath == "" {
		return fmt.Errorf("store.db_path is required")
	}
	return nil
}

// KeywordNames returns the configured keyword names in order.
func (c *Config) KeywordNames() []string {
	names := make([]string, len(c.Keywords))
	for i, kw := range c.Keywords {
		names[i] = kw.Name
	}
	return names
}

// LoadKeywords parses the keyword definitions YAML: a top-level "keywords"
// list of {name, description, examples}.
func LoadKeywords(path string) ([]types.Keyword, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("keywords file %s not found", path)
		}
		return nil, fmt.Errorf("reading keywords file %s: %w", path, err)
	}

	var doc struct {
		Keywords []types.Keyword `yaml:"keywords"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing keywords file %s: %w", path, err)
	}
	return doc.Keywords, nil
}
