// Package config loads application settings from config.yaml and the
// environment, and installs the global logger.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/followup-cli/internal/report"
)

// Config is the top-level configuration.
type Config struct {
	Advisor   AdvisorConfig   `yaml:"advisor" mapstructure:"advisor"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Mistral   MistralConfig   `yaml:"mistral" mapstructure:"mistral"`
	PDF       PDFConfig       `yaml:"pdf" mapstructure:"pdf"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Report    ReportConfig    `yaml:"report" mapstructure:"report"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AdvisorConfig configures the model client.
type AdvisorConfig struct {
	// Provider is "anthropic" or "gemini".
	Provider          string   `yaml:"provider" mapstructure:"provider"`
	Model             string   `yaml:"model" mapstructure:"model"`
	FallbackModels    []string `yaml:"fallback_models" mapstructure:"fallback_models"`
	MaxTokens         int      `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature       float64  `yaml:"temperature" mapstructure:"temperature"`
	MaxAttempts       int      `yaml:"max_attempts" mapstructure:"max_attempts"`
	RetryDelayMs      int      `yaml:"retry_delay_ms" mapstructure:"retry_delay_ms"`
	MinCallIntervalMs int      `yaml:"min_call_interval_ms" mapstructure:"min_call_interval_ms"`
	CallTimeoutSecs   int      `yaml:"call_timeout_secs" mapstructure:"call_timeout_secs"`
	PromptCacheTTL    string   `yaml:"prompt_cache_ttl" mapstructure:"prompt_cache_ttl"`
	KnowledgeDir      string   `yaml:"knowledge_dir" mapstructure:"knowledge_dir"`
	KnowledgeMaxChars int      `yaml:"knowledge_max_chars" mapstructure:"knowledge_max_chars"`
}

// RetryDelay is the fixed delay between retry attempts.
func (a AdvisorConfig) RetryDelay() time.Duration {
	return time.Duration(a.RetryDelayMs) * time.Millisecond
}

// MinCallInterval is the minimum spacing between live model calls.
func (a AdvisorConfig) MinCallInterval() time.Duration {
	return time.Duration(a.MinCallIntervalMs) * time.Millisecond
}

// CallTimeout bounds one model call.
func (a AdvisorConfig) CallTimeout() time.Duration {
	return time.Duration(a.CallTimeoutSecs) * time.Second
}

// Models returns the primary model followed by the fallbacks.
func (a AdvisorConfig) Models() []string {
	return append([]string{a.Model}, a.FallbackModels...)
}

// AnthropicConfig holds Anthropic API credentials.
type AnthropicConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// GeminiConfig holds Gemini API credentials.
type GeminiConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// MistralConfig holds Mistral API credentials, used for PDF OCR.
type MistralConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// PDFConfig selects how knowledge-base PDFs are read.
type PDFConfig struct {
	// Provider is "local" (pdftotext), "mistral" or "none".
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
}

// CacheConfig configures the advisory cache.
type CacheConfig struct {
	// Policy is "none", "size" or "ttl".
	Policy     string `yaml:"policy" mapstructure:"policy"`
	MaxEntries int    `yaml:"max_entries" mapstructure:"max_entries"`
	TTLMinutes int    `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
}

// TTL is the entry lifetime under the ttl policy.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ReportConfig configures report filtering.
type ReportConfig struct {
	HiddenPhases []string `yaml:"hidden_phases" mapstructure:"hidden_phases"`
}

// ServerConfig configures the HTTP dashboard.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxUploadMB    int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	BatchTTLHours  int      `yaml:"batch_ttl_hours" mapstructure:"batch_ttl_hours"`
}

// BatchTTL is how long finished batches stay available.
func (s ServerConfig) BatchTTL() time.Duration {
	return time.Duration(s.BatchTTLHours) * time.Hour
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads config.yaml from the working directory (optional) and applies
// FOLLOWUP_* environment overrides, e.g. FOLLOWUP_ANTHROPIC_KEY. A .env file
// in the working directory is loaded first; it never overrides variables
// already set.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. Unlike the default
// config.yaml, an explicit file must exist. An empty path behaves as Load.
func LoadFile(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("FOLLOWUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("advisor.provider", "anthropic")
	v.SetDefault("advisor.model", "claude-haiku-4-5-20251001")
	v.SetDefault("advisor.fallback_models", []string{})
	v.SetDefault("advisor.max_tokens", 1024)
	v.SetDefault("advisor.temperature", 0.7)
	v.SetDefault("advisor.max_attempts", 3)
	v.SetDefault("advisor.retry_delay_ms", 5000)
	v.SetDefault("advisor.min_call_interval_ms", 4000)
	v.SetDefault("advisor.call_timeout_secs", 60)
	v.SetDefault("advisor.prompt_cache_ttl", "1h")
	v.SetDefault("advisor.knowledge_dir", "knowledge_base")
	v.SetDefault("advisor.knowledge_max_chars", 10000)
	// Credentials have empty defaults so AutomaticEnv can bind them.
	v.SetDefault("anthropic.key", "")
	v.SetDefault("gemini.key", "")
	v.SetDefault("mistral.key", "")
	v.SetDefault("pdf.provider", "local")
	v.SetDefault("pdf.pdftotext_path", "pdftotext")
	v.SetDefault("cache.policy", "none")
	v.SetDefault("cache.max_entries", 1000)
	v.SetDefault("cache.ttl_minutes", 1440)
	v.SetDefault("batch.concurrency", 1)
	v.SetDefault("report.hidden_phases", report.DefaultHiddenPhases)
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_upload_mb", 16)
	v.SetDefault("server.batch_ttl_hours", 24)
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

// Validation modes.
const (
	ModeAnalyze = "analyze"
	ModeOffline = "offline"
	ModeServe   = "serve"
)

// Validate checks the settings a command needs. ModeOffline skips
// credential checks.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case ModeAnalyze, ModeServe:
		problems = append(problems, c.credentialProblems()...)
	case ModeOffline:
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if mode == ModeServe && (c.Server.Port < 1 || c.Server.Port > 65535) {
		problems = append(problems, "server.port must be between 1 and 65535")
	}
	if c.Advisor.MaxAttempts < 1 {
		problems = append(problems, "advisor.max_attempts must be >= 1")
	}
	if c.Advisor.RetryDelayMs < 0 || c.Advisor.MinCallIntervalMs < 0 {
		problems = append(problems, "advisor delays must be >= 0")
	}
	if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 32 {
		problems = append(problems, "batch.concurrency must be between 1 and 32")
	}
	switch c.Cache.Policy {
	case "", "none":
	case "size":
		if c.Cache.MaxEntries < 1 {
			problems = append(problems, "cache.max_entries must be >= 1 for the size policy")
		}
	case "ttl":
		if c.Cache.TTLMinutes < 1 {
			problems = append(problems, "cache.ttl_minutes must be >= 1 for the ttl policy")
		}
	default:
		problems = append(problems, "cache.policy must be none, size or ttl")
	}
	switch c.PDF.Provider {
	case "", "none", "local":
	case "mistral":
		if c.Mistral.Key == "" {
			problems = append(problems, "mistral.key is required for the mistral pdf provider (set FOLLOWUP_MISTRAL_KEY)")
		}
	default:
		problems = append(problems, "pdf.provider must be local, mistral or none")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) credentialProblems() []string {
	switch c.Advisor.Provider {
	case "anthropic":
		if c.Anthropic.Key == "" {
			return []string{"anthropic.key is required (set FOLLOWUP_ANTHROPIC_KEY)"}
		}
	case "gemini":
		if c.Gemini.Key == "" {
			return []string{"gemini.key is required (set FOLLOWUP_GEMINI_KEY)"}
		}
	default:
		return []string{"advisor.provider must be anthropic or gemini"}
	}
	if strings.TrimSpace(c.Advisor.Model) == "" {
		return []string{"advisor.model is required"}
	}
	return nil
}

// Redacted returns a copy with credentials masked, for display.
func (c Config) Redacted() Config {
	c.Anthropic.Key = redact(c.Anthropic.Key)
	c.Gemini.Key = redact(c.Gemini.Key)
	c.Mistral.Key = redact(c.Mistral.Key)
	return c
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****"
}

// InitLogger configures the global zap logger.
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
