package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	OCR        OCRConfig        `yaml:"ocr" mapstructure:"ocr"`
	Resolve    ResolveConfig    `yaml:"resolve" mapstructure:"resolve"`
	Narrative  NarrativeConfig  `yaml:"narrative" mapstructure:"narrative"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Workbook   WorkbookConfig   `yaml:"workbook" mapstructure:"workbook"`
	Sources    SourcesConfig    `yaml:"sources" mapstructure:"sources"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects the run-log backend: sqlite, postgres or none.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// AnthropicConfig configures the model used for value extraction.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// FetchConfig configures document retrieval.
type FetchConfig struct {
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	HostRPS     float64 `yaml:"host_rps" mapstructure:"host_rps"`
	// SourceIntervalMs paces consecutive sources within one indicator.
	SourceIntervalMs int    `yaml:"source_interval_ms" mapstructure:"source_interval_ms"`
	MinPageChars     int    `yaml:"min_page_chars" mapstructure:"min_page_chars"`
	TempDir          string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// OCRConfig configures PDF text extraction.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"` // "local" (pdftotext) or "mistral"
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey    string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel  string `yaml:"mistral_model" mapstructure:"mistral_model"`
}

// ResolveConfig tunes candidate resolution.
type ResolveConfig struct {
	ReportingYear       int     `yaml:"reporting_year" mapstructure:"reporting_year"`
	ConfidenceThreshold int     `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	RelevanceThreshold  float64 `yaml:"relevance_threshold" mapstructure:"relevance_threshold"`
}

// NarrativeConfig configures the analysis paragraph generator.
type NarrativeConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// BatchConfig configures the indicator worker pool.
type BatchConfig struct {
	Workers     int `yaml:"workers" mapstructure:"workers"`
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// WorkbookConfig points at the indicator workbook served by the API.
type WorkbookConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// SourcesConfig points at an optional YAML source catalogue override.
type SourcesConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// RetryConfig configures retries of model calls.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
}

// MonitoringConfig configures run-log alerting in serve mode.
type MonitoringConfig struct {
	Enabled             bool   `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL          string `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs   int    `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours int    `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	// FailureRateThreshold is the share of failed batches that alerts.
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	// IndicatorFailureThreshold is the share of error-tagged indicators
	// that alerts. Zero disables the check.
	IndicatorFailureThreshold float64 `yaml:"indicator_failure_threshold" mapstructure:"indicator_failure_threshold"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads config.yaml from the working directory (if present) and
// overlays INDICATOR_* environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("INDICATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets and paths with no default still need a key so that
	// AutomaticEnv values reach Unmarshal.
	v.SetDefault("store.database_url", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("ocr.mistral_api_key", "")
	v.SetDefault("sources.file", "")
	v.SetDefault("fetch.temp_dir", "")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "indicator.db")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 512)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (compatible; indicator-cli/1.0)")
	v.SetDefault("fetch.timeout_secs", 25)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.host_rps", 2.0)
	v.SetDefault("fetch.source_interval_ms", 2000)
	v.SetDefault("fetch.min_page_chars", 200)
	v.SetDefault("ocr.provider", "local")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("ocr.mistral_model", "mistral-ocr-latest")
	v.SetDefault("resolve.reporting_year", 2025)
	v.SetDefault("resolve.confidence_threshold", 6)
	v.SetDefault("resolve.relevance_threshold", 15.0)
	v.SetDefault("narrative.enabled", true)
	v.SetDefault("narrative.model", "claude-haiku-4-5-20251001")
	v.SetDefault("narrative.max_tokens", 600)
	v.SetDefault("batch.workers", 2)
	v.SetDefault("batch.timeout_secs", 600)
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("workbook.path", "indicadores.xlsx")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.10)
	v.SetDefault("monitoring.indicator_failure_threshold", 0.50)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// InitLogger builds the process logger and installs it as the zap global.
func InitLogger(cfg LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return logger, nil
}
