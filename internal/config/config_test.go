package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	for _, legacy := range legacyEnv {
		t.Setenv(legacy, "")
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "nvidia", cfg.LLM.Provider)
	assert.Equal(t, "meta/llama-4-maverick-17b-128e-instruct", cfg.LLM.Model)
	assert.Equal(t, 4096, cfg.LLM.MaxTokens)
	assert.Equal(t, 3, cfg.LLM.Retry.MaxAttempts)
	assert.Equal(t, "https://integrate.api.nvidia.com/v1", cfg.NVIDIA.BaseURL)
	assert.Equal(t, "ocrspace", cfg.OCR.Provider)
	assert.Equal(t, 2, cfg.OCR.Engine)
	assert.Equal(t, "uploads/sources", cfg.Sources.Dir)
	assert.Equal(t, "memory", cfg.History.Driver)
	assert.Equal(t, 15, cfg.Detect.BatchSize)
	assert.Equal(t, 200, cfg.Detect.MaxQuestions)
	assert.Equal(t, 5, cfg.Answer.SubBatchSize)
	assert.Equal(t, 20, cfg.Answer.RetrievalK)
	assert.Equal(t, 1, cfg.Answer.Concurrency)
	assert.Equal(t, 500, cfg.Retrieval.ChunkSize)
	assert.Equal(t, 50, cfg.Retrieval.ChunkOverlap)
	assert.Equal(t, 10*time.Minute, cfg.Assistant.Timeout())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
server:
  port: 9090
llm:
  provider: anthropic
history:
  driver: sqlite
  database_url: history.db
answer:
  concurrency: 4
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "sqlite", cfg.History.Driver)
	assert.Equal(t, "history.db", cfg.History.DatabaseURL)
	assert.Equal(t, 4, cfg.Answer.Concurrency)
	// Defaults still apply for unset values
	assert.Equal(t, 5, cfg.Answer.SubBatchSize)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
detect:
  batch_size: 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("ASSISTANT_LOG_LEVEL", "warn")
	t.Setenv("ASSISTANT_DETECT_BATCH_SIZE", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 25, cfg.Detect.BatchSize)
}

func TestLoadLegacyEnv(t *testing.T) {
	chdirTemp(t)

	t.Setenv("PORT", "3000")
	t.Setenv("NVIDIA_API_KEY", "nv-key")
	t.Setenv("OCR_SPACE_API_KEY", "ocr-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "nv-key", cfg.NVIDIA.Key)
	assert.Equal(t, "ocr-key", cfg.OCR.OCRSpaceKey)
}

func TestLoadPrefixedEnvWins(t *testing.T) {
	chdirTemp(t)

	t.Setenv("ASSISTANT_NVIDIA_API_KEY", "prefixed")
	t.Setenv("NVIDIA_API_KEY", "legacy")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.NVIDIA.Key)
}

func validConfig() *Config {
	return &Config{
		LLM:       LLMConfig{Provider: "nvidia"},
		NVIDIA:    NVIDIAConfig{Key: "k"},
		Detect:    DetectConfig{BatchSize: 15, MaxQuestions: 200},
		Answer:    AnswerConfig{SubBatchSize: 5, RetrievalK: 20},
		Retrieval: RetrievalConfig{ChunkSize: 500, ChunkOverlap: 50},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"missing nvidia key", func(c *Config) { c.NVIDIA.Key = "" }, "requires nvidia.api_key"},
		{"missing anthropic key", func(c *Config) { c.LLM.Provider = "anthropic" }, "requires anthropic.api_key"},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "gpt" }, `unknown llm provider "gpt"`},
		{"overlap too large", func(c *Config) { c.Retrieval.ChunkOverlap = 500 }, "must be smaller than chunk_size"},
		{"zero batch", func(c *Config) { c.Detect.BatchSize = 0 }, "detect.batch_size"},
		{"zero k", func(c *Config) { c.Answer.RetrievalK = 0 }, "answer.retrieval_k"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
