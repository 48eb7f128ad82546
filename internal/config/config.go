package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	NVIDIA    NVIDIAConfig    `yaml:"nvidia" mapstructure:"nvidia"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	OCR       OCRConfig       `yaml:"ocr" mapstructure:"ocr"`
	Sources   SourcesConfig   `yaml:"sources" mapstructure:"sources"`
	History   HistoryConfig   `yaml:"history" mapstructure:"history"`
	Detect    DetectConfig    `yaml:"detect" mapstructure:"detect"`
	Answer    AnswerConfig    `yaml:"answer" mapstructure:"answer"`
	Retrieval RetrievalConfig `yaml:"retrieval" mapstructure:"retrieval"`
	Assistant AssistantConfig `yaml:"assistant" mapstructure:"assistant"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	UploadsDir     string   `yaml:"uploads_dir" mapstructure:"uploads_dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// LLMConfig selects the chat model used for detection and answering.
type LLMConfig struct {
	Provider      string      `yaml:"provider" mapstructure:"provider"`
	Model         string      `yaml:"model" mapstructure:"model"`
	MaxTokens     int         `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature   float64     `yaml:"temperature" mapstructure:"temperature"`
	RatePerSecond float64     `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	Burst         int         `yaml:"burst" mapstructure:"burst"`
	Retry         RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// RetryConfig holds retry and circuit breaker tuning for provider calls.
type RetryConfig struct {
	MaxAttempts         int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs    int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs        int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	BreakerThreshold    int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownSecs int `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
}

// NVIDIAConfig holds NVIDIA API catalog settings (OpenAI-compatible).
type NVIDIAConfig struct {
	Key            string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	EmbeddingModel string `yaml:"embedding_model" mapstructure:"embedding_model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"api_key" mapstructure:"api_key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// OCRConfig configures image text extraction.
type OCRConfig struct {
	Provider     string `yaml:"provider" mapstructure:"provider"`
	OCRSpaceKey  string `yaml:"ocrspace_api_key" mapstructure:"ocrspace_api_key"`
	OCRSpaceURL  string `yaml:"ocrspace_url" mapstructure:"ocrspace_url"`
	Engine       int    `yaml:"engine" mapstructure:"engine"`
	MistralKey   string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel string `yaml:"mistral_model" mapstructure:"mistral_model"`
	Concurrency  int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// SourcesConfig locates the uploaded source directories.
type SourcesConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// HistoryConfig selects the chat history backend.
type HistoryConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// DetectConfig tunes the question detection rounds.
type DetectConfig struct {
	BatchSize    int `yaml:"batch_size" mapstructure:"batch_size"`
	MaxQuestions int `yaml:"max_questions" mapstructure:"max_questions"`
}

// AnswerConfig tunes section-batched answering.
type AnswerConfig struct {
	SubBatchSize int `yaml:"sub_batch_size" mapstructure:"sub_batch_size"`
	RetrievalK   int `yaml:"retrieval_k" mapstructure:"retrieval_k"`
	Concurrency  int `yaml:"concurrency" mapstructure:"concurrency"`
}

// RetrievalConfig tunes chunking, embedding and index caching.
type RetrievalConfig struct {
	Embedder       string `yaml:"embedder" mapstructure:"embedder"`
	ChunkSize      int    `yaml:"chunk_size" mapstructure:"chunk_size"`
	ChunkOverlap   int    `yaml:"chunk_overlap" mapstructure:"chunk_overlap"`
	EmbedBatchSize int    `yaml:"embed_batch_size" mapstructure:"embed_batch_size"`
	EmbedCacheSize int    `yaml:"embed_cache_size" mapstructure:"embed_cache_size"`
	IndexCacheSize int    `yaml:"index_cache_size" mapstructure:"index_cache_size"`
	HashDimensions int    `yaml:"hash_dimensions" mapstructure:"hash_dimensions"`
}

// AssistantConfig bounds a whole detect/answer/process call.
type AssistantConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the per-call pipeline timeout.
func (a AssistantConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSecs) * time.Second
}

// legacyEnv maps config keys to the unprefixed variables older deployments set.
var legacyEnv = map[string]string{
	"server.port":          "PORT",
	"nvidia.api_key":       "NVIDIA_API_KEY",
	"anthropic.api_key":    "ANTHROPIC_API_KEY",
	"ocr.ocrspace_api_key": "OCR_SPACE_API_KEY",
	"ocr.mistral_api_key":  "MISTRAL_API_KEY",
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ASSISTANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		prefixed := "ASSISTANT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	v.SetDefault("server.port", 5000)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.uploads_dir", "uploads")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("llm.provider", "nvidia")
	v.SetDefault("llm.model", "meta/llama-4-maverick-17b-128e-instruct")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.rate_per_second", 2.0)
	v.SetDefault("llm.burst", 4)
	v.SetDefault("llm.retry.max_attempts", 3)
	v.SetDefault("llm.retry.initial_backoff_ms", 500)
	v.SetDefault("llm.retry.max_backoff_ms", 30000)
	v.SetDefault("llm.retry.breaker_threshold", 5)
	v.SetDefault("llm.retry.breaker_cooldown_secs", 30)

	v.SetDefault("nvidia.api_key", "")
	v.SetDefault("nvidia.base_url", "https://integrate.api.nvidia.com/v1")
	v.SetDefault("nvidia.embedding_model", "baai/bge-m3")
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")

	v.SetDefault("ocr.provider", "ocrspace")
	v.SetDefault("ocr.ocrspace_api_key", "")
	v.SetDefault("ocr.ocrspace_url", "https://api.ocr.space/parse/image")
	v.SetDefault("ocr.engine", 2)
	v.SetDefault("ocr.mistral_api_key", "")
	v.SetDefault("ocr.mistral_model", "mistral-ocr-latest")
	v.SetDefault("ocr.concurrency", 4)

	v.SetDefault("sources.dir", "uploads/sources")
	v.SetDefault("history.driver", "memory")
	v.SetDefault("history.database_url", "")
	v.SetDefault("history.max_conns", 5)

	v.SetDefault("detect.batch_size", 15)
	v.SetDefault("detect.max_questions", 200)
	v.SetDefault("answer.sub_batch_size", 5)
	v.SetDefault("answer.retrieval_k", 20)
	v.SetDefault("answer.concurrency", 1)

	v.SetDefault("retrieval.embedder", "nvidia")
	v.SetDefault("retrieval.chunk_size", 500)
	v.SetDefault("retrieval.chunk_overlap", 50)
	v.SetDefault("retrieval.embed_batch_size", 64)
	v.SetDefault("retrieval.embed_cache_size", 4096)
	v.SetDefault("retrieval.index_cache_size", 16)
	v.SetDefault("retrieval.hash_dimensions", 512)

	v.SetDefault("assistant.timeout_secs", 600)

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

// Validate checks the settings the pipeline cannot run without.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "nvidia":
		if c.NVIDIA.Key == "" {
			return eris.New("config: llm provider nvidia requires nvidia.api_key")
		}
	case "anthropic":
		if c.Anthropic.Key == "" {
			return eris.New("config: llm provider anthropic requires anthropic.api_key")
		}
	default:
		return eris.Errorf("config: unknown llm provider %q", c.LLM.Provider)
	}
	if c.Retrieval.ChunkOverlap >= c.Retrieval.ChunkSize {
		return eris.Errorf("config: retrieval.chunk_overlap %d must be smaller than chunk_size %d",
			c.Retrieval.ChunkOverlap, c.Retrieval.ChunkSize)
	}
	if c.Detect.BatchSize <= 0 || c.Detect.MaxQuestions <= 0 {
		return eris.New("config: detect.batch_size and detect.max_questions must be positive")
	}
	if c.Answer.SubBatchSize <= 0 || c.Answer.RetrievalK <= 0 {
		return eris.New("config: answer.sub_batch_size and answer.retrieval_k must be positive")
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
