package morph

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"az-morph/api/internal/util"
)

// Engine — то, что анализатору нужно от LLM-провайдера.
type Engine interface {
	GetModel() string
	Generate(ctx context.Context, system, user string) (string, error)
}

// Cache хранит уже провалидированные разборы между запросами.
// Ключ только слово: разбор, полученный от одной модели, отдаётся и запросам к другой.
type Cache interface {
	Lookup(ctx context.Context, words []string, maxAge time.Duration) (map[string]Analysis, error)
	Save(ctx context.Context, analyses []Analysis, model string) error
}

type Analyzer struct {
	Validator Validator

	// Списки длиннее ChunkSize режутся на части и уходят в модель параллельно.
	ChunkSize   int
	Concurrency int

	Cache       Cache
	CacheMaxAge time.Duration // 0: без ограничения

	Log *zap.Logger
}

func NewAnalyzer(v Validator, log *zap.Logger) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyzer{
		Validator:   v,
		ChunkSize:   50,
		Concurrency: 4,
		Log:         log,
	}
}

// AnalyzeWord разбирает одно слово; пустой ответ модели превращается в Failure.
func (a *Analyzer) AnalyzeWord(ctx context.Context, eng Engine, word string) (Entry, error) {
	entries, err := a.AnalyzeWords(ctx, eng, []string{word})
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Failed(Failure{Error: "No result returned"}), nil
	}
	return entries[0], nil
}

// AnalyzeWords возвращает записи в порядке ответа модели. Ошибка возвращается
// только при сбое транспорта; нечитаемый ответ модели попадает в результат как Failure.
// При включённом кэше сначала идут попадания (в порядке входа), затем ответ модели.
func (a *Analyzer) AnalyzeWords(ctx context.Context, eng Engine, words []string) ([]Entry, error) {
	words = util.CleanWords(words)
	if len(words) == 0 {
		return []Entry{}, nil
	}

	out := make([]Entry, 0, len(words))
	misses := words
	if a.Cache != nil {
		hits, err := a.Cache.Lookup(ctx, words, a.CacheMaxAge)
		if err != nil {
			a.logger().Warn("cache lookup failed", zap.Error(err))
		} else if len(hits) > 0 {
			misses = make([]string, 0, len(words))
			for _, w := range words {
				if an, ok := hits[w]; ok {
					out = append(out, OK(an))
				} else {
					misses = append(misses, w)
				}
			}
			a.logger().Debug("cache", zap.Int("hits", len(words)-len(misses)), zap.Int("misses", len(misses)))
		}
	}
	if len(misses) == 0 {
		return out, nil
	}

	fresh, err := a.analyzeChunks(ctx, eng, misses)
	if err != nil {
		return nil, err
	}

	if a.Cache != nil {
		if valid := Analyses(fresh); len(valid) > 0 {
			if err := a.Cache.Save(ctx, valid, eng.GetModel()); err != nil {
				a.logger().Warn("cache save failed", zap.Error(err))
			}
		}
	}
	return append(out, fresh...), nil
}

func (a *Analyzer) analyzeChunks(ctx context.Context, eng Engine, words []string) ([]Entry, error) {
	size := a.ChunkSize
	if size <= 0 || len(words) <= size {
		return a.analyzeOnce(ctx, eng, words)
	}

	chunks := make([][]string, 0, (len(words)+size-1)/size)
	for i := 0; i < len(words); i += size {
		chunks = append(chunks, words[i:min(i+size, len(words))])
	}

	results := make([][]Entry, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	if a.Concurrency > 0 {
		g.SetLimit(a.Concurrency)
	}
	for i, chunk := range chunks {
		g.Go(func() error {
			res, err := a.analyzeOnce(gctx, eng, chunk)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Entry
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

func (a *Analyzer) analyzeOnce(ctx context.Context, eng Engine, words []string) ([]Entry, error) {
	start := time.Now()
	raw, err := eng.Generate(ctx, SystemInstruction(), UserPrompt(words))
	if err != nil {
		return nil, err
	}

	items, fail := ExtractArray(raw, words)
	if fail != nil {
		a.logger().Warn("unparseable llm response",
			zap.String("model", eng.GetModel()),
			zap.Int("words", len(words)),
			zap.String("error", fail.Error))
		return []Entry{Failed(*fail)}, nil
	}

	entries := a.Validator.ValidateAll(items)
	a.logger().Info("analyzed",
		zap.String("model", eng.GetModel()),
		zap.Int("words", len(words)),
		zap.Int("items", len(items)),
		zap.Duration("took", time.Since(start)))
	return entries, nil
}

func (a *Analyzer) logger() *zap.Logger {
	if a.Log == nil {
		return zap.NewNop()
	}
	return a.Log
}
