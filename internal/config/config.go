package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Ledger     LedgerConfig     `yaml:"ledger" mapstructure:"ledger"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Discovery  DiscoveryConfig  `yaml:"discovery" mapstructure:"discovery"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Synthesis  SynthesisConfig  `yaml:"synthesis" mapstructure:"synthesis"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// LedgerConfig selects and configures the record ledger backend.
type LedgerConfig struct {
	Driver              string `yaml:"driver" mapstructure:"driver"`
	SpreadsheetID       string `yaml:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	SheetName           string `yaml:"sheet_name" mapstructure:"sheet_name"`
	CredentialsFile     string `yaml:"credentials_file" mapstructure:"credentials_file"`
	ServiceAccountEmail string `yaml:"service_account_email" mapstructure:"service_account_email"`
	PrivateKey          string `yaml:"private_key" mapstructure:"private_key"`
	DatabaseURL         string `yaml:"database_url" mapstructure:"database_url"`
	// BaseURL overrides the Sheets API endpoint (tests).
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// StoreConfig configures the run history database.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// GoogleConfig holds Custom Search credentials.
type GoogleConfig struct {
	APIKey         string `yaml:"api_key" mapstructure:"api_key"`
	SearchEngineID string `yaml:"search_engine_id" mapstructure:"search_engine_id"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
}

// FirecrawlConfig holds Firecrawl API settings.
type FirecrawlConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	PollIntervalMs int    `yaml:"poll_interval_ms" mapstructure:"poll_interval_ms"`
}

// LLMConfig selects the completion provider used for email synthesis.
type LLMConfig struct {
	Provider          string `yaml:"provider" mapstructure:"provider"`
	Model             string `yaml:"model" mapstructure:"model"`
	OpenRouterKey     string `yaml:"openrouter_key" mapstructure:"openrouter_key"`
	OpenRouterBaseURL string `yaml:"openrouter_base_url" mapstructure:"openrouter_base_url"`
	AnthropicKey      string `yaml:"anthropic_key" mapstructure:"anthropic_key"`
	GeminiKey         string `yaml:"gemini_key" mapstructure:"gemini_key"`
	MaxTokens         int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// DiscoveryConfig tunes search pagination.
type DiscoveryConfig struct {
	PageSize      int `yaml:"page_size" mapstructure:"page_size"`
	MaxResults    int `yaml:"max_results" mapstructure:"max_results"`
	DefaultTarget int `yaml:"default_target" mapstructure:"default_target"`
	PageDelayMs   int `yaml:"page_delay_ms" mapstructure:"page_delay_ms"`
}

// ExtractionConfig tunes contact extraction retries and pacing.
type ExtractionConfig struct {
	MaxAttempts        int `yaml:"max_attempts" mapstructure:"max_attempts"`
	AttemptTimeoutSecs int `yaml:"attempt_timeout_secs" mapstructure:"attempt_timeout_secs"`
	BackoffMs          int `yaml:"backoff_ms" mapstructure:"backoff_ms"`
	RecordDelayMs      int `yaml:"record_delay_ms" mapstructure:"record_delay_ms"`
}

// SynthesisConfig tunes page fetching, completion retries, and the template.
type SynthesisConfig struct {
	FetchTimeoutSecs  int    `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	MaxChars          int    `yaml:"max_chars" mapstructure:"max_chars"`
	MaxAttempts       int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	BackoffMs         int    `yaml:"backoff_ms" mapstructure:"backoff_ms"`
	ThrottleBackoffMs int    `yaml:"throttle_backoff_ms" mapstructure:"throttle_backoff_ms"`
	RecordDelayMs     int    `yaml:"record_delay_ms" mapstructure:"record_delay_ms"`
	TemplateFile      string `yaml:"template_file" mapstructure:"template_file"`
	SenderName        string `yaml:"sender_name" mapstructure:"sender_name"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml, environment variables, and defaults.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ledger.driver", "sheets")
	v.SetDefault("ledger.sheet_name", "")
	v.SetDefault("ledger.spreadsheet_id", "")
	v.SetDefault("ledger.credentials_file", "")
	v.SetDefault("ledger.service_account_email", "")
	v.SetDefault("ledger.private_key", "")
	v.SetDefault("ledger.database_url", "")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leadgen.db")
	v.SetDefault("google.api_key", "")
	v.SetDefault("google.search_engine_id", "")
	v.SetDefault("firecrawl.key", "")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("firecrawl.poll_interval_ms", 2000)
	v.SetDefault("llm.provider", "openrouter")
	v.SetDefault("llm.model", "deepseek/deepseek-chat")
	v.SetDefault("llm.openrouter_key", "")
	v.SetDefault("llm.openrouter_base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.anthropic_key", "")
	v.SetDefault("llm.gemini_key", "")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("discovery.page_size", 10)
	v.SetDefault("discovery.max_results", 100)
	v.SetDefault("discovery.default_target", 30)
	v.SetDefault("discovery.page_delay_ms", 300)
	v.SetDefault("extraction.max_attempts", 2)
	v.SetDefault("extraction.attempt_timeout_secs", 20)
	v.SetDefault("extraction.backoff_ms", 2000)
	v.SetDefault("extraction.record_delay_ms", 1000)
	v.SetDefault("synthesis.fetch_timeout_secs", 10)
	v.SetDefault("synthesis.max_chars", 3000)
	v.SetDefault("synthesis.max_attempts", 3)
	v.SetDefault("synthesis.backoff_ms", 3000)
	v.SetDefault("synthesis.throttle_backoff_ms", 10000)
	v.SetDefault("synthesis.record_delay_ms", 2000)
	v.SetDefault("synthesis.sender_name", "Jordan")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that the credentials and limits needed by mode are present.
// Modes: discover, extract, emails, serve, status, export, runs.
func (c *Config) Validate(mode string) error {
	var missing []string
	var invalid []string

	requireLedger := func() {
		switch c.Ledger.Driver {
		case "sheets":
			if c.Ledger.SpreadsheetID == "" {
				missing = append(missing, "ledger.spreadsheet_id")
			}
			if c.Ledger.CredentialsFile == "" && (c.Ledger.ServiceAccountEmail == "" || c.Ledger.PrivateKey == "") {
				missing = append(missing, "ledger.credentials_file (or ledger.service_account_email + ledger.private_key)")
			}
		case "sqlite", "postgres":
			if c.Ledger.DatabaseURL == "" {
				missing = append(missing, "ledger.database_url")
			}
		default:
			invalid = append(invalid, fmt.Sprintf("ledger.driver %q must be one of sheets, sqlite, postgres", c.Ledger.Driver))
		}
	}
	requireSearch := func() {
		if c.Google.APIKey == "" {
			missing = append(missing, "google.api_key")
		}
		if c.Google.SearchEngineID == "" {
			missing = append(missing, "google.search_engine_id")
		}
		if c.Discovery.PageSize < 1 || c.Discovery.PageSize > 10 {
			invalid = append(invalid, "discovery.page_size must be between 1 and 10")
		}
		if c.Discovery.MaxResults < 1 || c.Discovery.MaxResults > 100 {
			invalid = append(invalid, "discovery.max_results must be between 1 and 100")
		}
	}
	requireExtraction := func() {
		if c.Firecrawl.Key == "" {
			missing = append(missing, "firecrawl.key")
		}
		if c.Extraction.MaxAttempts < 1 {
			invalid = append(invalid, "extraction.max_attempts must be >= 1")
		}
	}
	requireSynthesis := func() {
		switch c.LLM.Provider {
		case "openrouter":
			if c.LLM.OpenRouterKey == "" {
				missing = append(missing, "llm.openrouter_key")
			}
		case "anthropic":
			if c.LLM.AnthropicKey == "" {
				missing = append(missing, "llm.anthropic_key")
			}
		case "gemini":
			if c.LLM.GeminiKey == "" {
				missing = append(missing, "llm.gemini_key")
			}
		default:
			invalid = append(invalid, fmt.Sprintf("llm.provider %q must be one of openrouter, anthropic, gemini", c.LLM.Provider))
		}
		if c.Synthesis.MaxAttempts < 1 {
			invalid = append(invalid, "synthesis.max_attempts must be >= 1")
		}
	}

	switch mode {
	case "discover":
		requireLedger()
		requireSearch()
	case "extract":
		requireLedger()
		requireExtraction()
	case "emails":
		requireLedger()
		requireSynthesis()
	case "serve":
		requireLedger()
		requireSearch()
		requireExtraction()
		requireSynthesis()
		if c.Server.Port <= 0 {
			invalid = append(invalid, "server.port must be > 0")
		}
	case "status", "export":
		requireLedger()
	case "runs":
		if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
			invalid = append(invalid, fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver))
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: missing required fields for %s: %s", mode, strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return eris.Errorf("config: invalid values for %s: %s", mode, strings.Join(invalid, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
