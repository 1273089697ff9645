package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"CONFIG_FILE", "PORT", "DEFAULT_LLM", "GEMINI_API_KEY", "GEMINI_MODEL", "OPENAI_API_KEY", "OPENAI_MODEL",
	"DATABASE_URL", "DB_FILE", "INPUT_FILE", "RESULT_FILE", "ERROR_LOG", "TELEGRAM_BOT_TOKEN", "WEBHOOK_URL",
	"STATIC_DIR", "LOG_LEVEL", "BATCH_SIZE", "CHUNK_SIZE", "CONCURRENCY", "STRICT_TAXONOMY", "CACHE_OFF",
	"LOG_DEV", "CACHE_MAX_AGE",
}

// clearEnv обнуляет переменные на время теста: пустое значение считается незаданным.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "gemini", cfg.DefaultLLM)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 50, cfg.ChunkSize)
	assert.Equal(t, "words.txt", cfg.InputFile)
	assert.Equal(t, "morphology_errors.jsonl", cfg.ErrorLog)
	assert.Equal(t, "morphology_detailed.db", cfg.DSN())
	assert.False(t, cfg.StrictTaxonomy)
}

func TestLoad_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("GEMINI_API_KEY", " g-key ")
	t.Setenv("BATCH_SIZE", "25")
	t.Setenv("STRICT_TAXONOMY", "true")
	t.Setenv("CACHE_MAX_AGE", "72h")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/morph")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "g-key", cfg.GeminiAPIKey)
	assert.Equal(t, 25, cfg.BatchSize)
	assert.True(t, cfg.StrictTaxonomy)
	assert.Equal(t, 72*time.Hour, cfg.CacheMaxAge)
	assert.Equal(t, "postgres://u:p@db:5432/morph", cfg.DSN())
}

func TestLoad_BadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("BATCH_SIZE", "ten")
	t.Setenv("CACHE_OFF", "maybe")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
	assert.Contains(t, err.Error(), "CACHE_OFF")

	clearEnv(t)
	t.Setenv("BATCH_SIZE", "0")
	_, err = Load()
	assert.EqualError(t, err, "BATCH_SIZE must be > 0, got 0")
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "7000"
default_llm: gpt
openai_model: gpt-4.1-mini
chunk_size: 20
cache_max_age: 24h
`), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7100")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7100", cfg.Port, "env wins over yaml")
	assert.Equal(t, "gpt", cfg.DefaultLLM)
	assert.Equal(t, "gpt-4.1-mini", cfg.OpenAIModel)
	assert.Equal(t, 20, cfg.ChunkSize)
	assert.Equal(t, 24*time.Hour, cfg.CacheMaxAge)
	assert.Equal(t, 10, cfg.BatchSize, "defaults survive a partial yaml")
}

func TestLoad_MissingYAML(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	assert.Error(t, err)
}
