// Package app собирает общие для всех бинарей зависимости из конфига.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"az-morph/api/internal/config"
	"az-morph/api/internal/llm"
	"az-morph/api/internal/llm/gemini"
	"az-morph/api/internal/llm/openai"
	"az-morph/api/internal/morph"
	"az-morph/api/internal/store"
)

func Engines(cfg *config.Config) *llm.Engines {
	return &llm.Engines{
		Default:     cfg.DefaultLLM,
		Gemini:      gemini.Factory,
		GeminiModel: cfg.GeminiModel,
		GeminiKey:   cfg.GeminiAPIKey,
		OpenAI:      openai.Factory,
		OpenAIModel: cfg.OpenAIModel,
		OpenAIKey:   cfg.OpenAIAPIKey,
	}
}

// OpenStore открывает хранилище и прогоняет миграции.
func OpenStore(ctx context.Context, cfg *config.Config) (*store.DB, error) {
	db, err := store.Open(ctx, cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Analyzer настраивает анализатор; cache может быть nil.
func Analyzer(cfg *config.Config, cache morph.Cache, log *zap.Logger) *morph.Analyzer {
	an := morph.NewAnalyzer(morph.Validator{Strict: cfg.StrictTaxonomy}, log.Named("analyzer"))
	an.ChunkSize = cfg.ChunkSize
	an.Concurrency = cfg.Concurrency
	if cache != nil && !cfg.CacheOff {
		an.Cache = cache
		an.CacheMaxAge = cfg.CacheMaxAge
	}
	return an
}

// DescribeStore — строка для лога без пароля.
func DescribeStore(db *store.DB, cfg *config.Config) string {
	if db.Dialect == store.Postgres {
		return fmt.Sprintf("%s %s", db.Dialect, store.SafeDSNSummary(cfg.DSN()))
	}
	return fmt.Sprintf("%s %s", db.Dialect, cfg.DSN())
}
