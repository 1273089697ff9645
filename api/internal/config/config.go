package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	DefaultLLM   string `yaml:"default_llm"`
	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model"`
	OpenAIAPIKey string `yaml:"openai_api_key"`
	OpenAIModel  string `yaml:"openai_model"`

	// DatabaseURL (postgres://...) важнее DBFile.
	DatabaseURL string        `yaml:"database_url"`
	DBFile      string        `yaml:"db_file"`
	CacheMaxAge time.Duration `yaml:"cache_max_age"`
	CacheOff    bool          `yaml:"cache_off"`

	StrictTaxonomy bool `yaml:"strict_taxonomy"`
	ChunkSize      int  `yaml:"chunk_size"`
	Concurrency    int  `yaml:"concurrency"`

	BatchSize  int    `yaml:"batch_size"`
	InputFile  string `yaml:"input_file"`
	ResultFile string `yaml:"result_file"`
	ErrorLog   string `yaml:"error_log"`

	TelegramBotToken string `yaml:"telegram_bot_token"`
	WebhookURL       string `yaml:"webhook_url"`

	StaticDir string `yaml:"static_dir"`
	LogLevel  string `yaml:"log_level"`
	LogDev    bool   `yaml:"log_dev"`
}

func defaults() *Config {
	return &Config{
		Port:        "8000",
		DefaultLLM:  "gemini",
		GeminiModel: "gemini-2.5-flash",
		OpenAIModel: "gpt-4o-mini",
		DBFile:      "morphology_detailed.db",
		ChunkSize:   50,
		Concurrency: 4,
		BatchSize:   10,
		InputFile:   "words.txt",
		ResultFile:  "result.jsonl",
		ErrorLog:    "morphology_errors.jsonl",
		LogLevel:    "info",
	}
}

// Load собирает конфиг: значения по умолчанию, затем YAML из CONFIG_FILE,
// затем переменные окружения (в т.ч. из .env, если он есть).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) loadYAML(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setStr(&c.Port, "PORT")
	setStr(&c.DefaultLLM, "DEFAULT_LLM")
	setStr(&c.GeminiAPIKey, "GEMINI_API_KEY")
	setStr(&c.GeminiModel, "GEMINI_MODEL")
	setStr(&c.OpenAIAPIKey, "OPENAI_API_KEY")
	setStr(&c.OpenAIModel, "OPENAI_MODEL")
	setStr(&c.DatabaseURL, "DATABASE_URL")
	setStr(&c.DBFile, "DB_FILE")
	setStr(&c.InputFile, "INPUT_FILE")
	setStr(&c.ResultFile, "RESULT_FILE")
	setStr(&c.ErrorLog, "ERROR_LOG")
	setStr(&c.TelegramBotToken, "TELEGRAM_BOT_TOKEN")
	setStr(&c.WebhookURL, "WEBHOOK_URL")
	setStr(&c.StaticDir, "STATIC_DIR")
	setStr(&c.LogLevel, "LOG_LEVEL")

	var errs []error
	errs = append(errs,
		setInt(&c.BatchSize, "BATCH_SIZE"),
		setInt(&c.ChunkSize, "CHUNK_SIZE"),
		setInt(&c.Concurrency, "CONCURRENCY"),
		setBool(&c.StrictTaxonomy, "STRICT_TAXONOMY"),
		setBool(&c.CacheOff, "CACHE_OFF"),
		setBool(&c.LogDev, "LOG_DEV"),
		setDuration(&c.CacheMaxAge, "CACHE_MAX_AGE"),
	)
	return errors.Join(errs...)
}

func (c *Config) Validate() error {
	switch {
	case c.BatchSize <= 0:
		return fmt.Errorf("BATCH_SIZE must be > 0, got %d", c.BatchSize)
	case c.ChunkSize < 0:
		return fmt.Errorf("CHUNK_SIZE must be >= 0, got %d", c.ChunkSize)
	case c.Concurrency < 0:
		return fmt.Errorf("CONCURRENCY must be >= 0, got %d", c.Concurrency)
	case c.CacheMaxAge < 0:
		return fmt.Errorf("CACHE_MAX_AGE must be >= 0, got %s", c.CacheMaxAge)
	}
	return nil
}

// DSN — строка подключения хранилища: DATABASE_URL или файл SQLite.
func (c *Config) DSN() string {
	if v := strings.TrimSpace(c.DatabaseURL); v != "" {
		return v
	}
	return strings.TrimSpace(c.DBFile)
}

func getEnv(k string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(k))
	return v, v != ""
}

func setStr(dst *string, k string) {
	if v, ok := getEnv(k); ok {
		*dst = v
	}
}

func setInt(dst *int, k string) error {
	v, ok := getEnv(k)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", k, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, k string) error {
	v, ok := getEnv(k)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", k, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, k string) error {
	v, ok := getEnv(k)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", k, err)
	}
	*dst = d
	return nil
}
