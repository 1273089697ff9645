// Package batch прогоняет большой список слов через анализатор порциями
// и сохраняет результат в базу с контрольной точкой после каждой порции.
package batch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"az-morph/api/internal/morph"
	"az-morph/api/internal/store"
)

type Runner struct {
	Analyzer *morph.Analyzer
	Engine   morph.Engine

	DB       *store.DB
	Morph    *store.MorphologyRepo
	Progress *store.ProgressRepo

	BatchSize int
	Limit     int // 0: без ограничения; иначе не начинать порции со смещения >= Limit

	Results io.Writer // JSONL: каждая запись ответа
	Errors  io.Writer // JSONL: только ошибки, с контекстом порции; может быть nil

	RunID string
	Log   *zap.Logger
}

type Stats struct {
	Start    int // смещение, с которого продолжили
	Next     int // сохранённое смещение после прогона
	Total    int
	Batches  int
	Entries  int
	Inserted int64
	Failures int
}

type errorRecord struct {
	RunID   string        `json:"run_id"`
	Offset  int           `json:"offset"`
	Words   []string      `json:"words"`
	Failure morph.Failure `json:"failure"`
}

// Run продолжает обработку с сохранённого смещения. Ошибка модели прерывает прогон,
// контрольная точка при этом не сдвигается: порция будет повторена.
func (r *Runner) Run(ctx context.Context, words []string) (Stats, error) {
	if r.BatchSize <= 0 {
		return Stats{}, fmt.Errorf("batch size must be > 0, got %d", r.BatchSize)
	}
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}

	start, ok, err := r.Progress.Get(ctx, r.DB)
	if err != nil {
		return Stats{}, fmt.Errorf("read progress: %w", err)
	}
	if !ok {
		if err := r.Progress.Set(ctx, r.DB, 0); err != nil {
			return Stats{}, fmt.Errorf("init progress: %w", err)
		}
	}

	st := Stats{Start: start, Next: start, Total: len(words)}
	results := newJSONL(r.Results)
	errs := newJSONL(r.Errors)

	for i := start; i < len(words); i += r.BatchSize {
		if r.Limit > 0 && i >= r.Limit {
			log.Info("limit reached", zap.Int("limit", r.Limit))
			break
		}
		if err := ctx.Err(); err != nil {
			return st, err
		}

		end := min(i+r.BatchSize, len(words))
		chunk := words[i:end]
		log.Info("processing", zap.Int("from", i+1), zap.Int("to", end), zap.Int("total", len(words)))

		entries, err := r.Analyzer.AnalyzeWords(ctx, r.Engine, chunk)
		if err != nil {
			return st, fmt.Errorf("analyze words %d..%d: %w", i+1, end, err)
		}

		for _, e := range entries {
			if err := results.write(e); err != nil {
				return st, fmt.Errorf("write result: %w", err)
			}
			if e.IsFailure() {
				st.Failures++
				if err := errs.write(errorRecord{RunID: r.RunID, Offset: i, Words: chunk, Failure: *e.Failure}); err != nil {
					return st, fmt.Errorf("write error log: %w", err)
				}
			}
		}

		inserted, err := r.commit(ctx, morph.Analyses(entries), i+r.BatchSize)
		if err != nil {
			return st, err
		}

		st.Batches++
		st.Entries += len(entries)
		st.Inserted += inserted
		st.Next = i + r.BatchSize
	}
	return st, nil
}

// commit сохраняет разборы и сдвигает контрольную точку в одной транзакции.
func (r *Runner) commit(ctx context.Context, analyses []morph.Analysis, next int) (int64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted, err := r.Morph.InsertIgnore(ctx, tx, analyses, r.Engine.GetModel())
	if err != nil {
		return 0, err
	}
	if err := r.Progress.Set(ctx, tx, next); err != nil {
		return 0, fmt.Errorf("update progress: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return inserted, nil
}

// ReadWords читает файл: одно слово на строку, пробелы по краям срезаются, пустые строки пропускаются.
func ReadWords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	var words []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	first := true
	for sc.Scan() {
		line := sc.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		if w := strings.TrimSpace(line); w != "" {
			words = append(words, w)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}
	return words, nil
}

type jsonl struct{ enc *json.Encoder }

func newJSONL(w io.Writer) *jsonl {
	if w == nil {
		return &jsonl{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &jsonl{enc: enc}
}

func (j *jsonl) write(v any) error {
	if j.enc == nil {
		return nil
	}
	return j.enc.Encode(v)
}
