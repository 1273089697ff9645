package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"az-morph/api/internal/morph"
)

// лимит переменных в одном запросе SQLite по умолчанию 999/32766, берём с запасом
const lookupBatch = 500

type MorphologyRepo struct{ DB *DB }

func NewMorphologyRepo(db *DB) *MorphologyRepo { return &MorphologyRepo{DB: db} }

const insertMorphology = `
insert into morphology (word, pos, type, segments, usage, field, etymology, gloss, features, definition, model, created_at)
values (?,?,?,?,?,?,?,?,?,?,?,?)
`

// InsertIgnore сохраняет разборы; существующие слова не перезаписываются.
// Возвращает число реально вставленных строк.
func (r *MorphologyRepo) InsertIgnore(ctx context.Context, q Querier, analyses []morph.Analysis, model string) (int64, error) {
	return r.write(ctx, q, insertMorphology+`on conflict (word) do nothing`, analyses, model)
}

// Upsert перезаписывает разбор и обновляет created_at.
func (r *MorphologyRepo) Upsert(ctx context.Context, q Querier, analyses []morph.Analysis, model string) (int64, error) {
	return r.write(ctx, q, insertMorphology+`on conflict (word) do update set
  pos=excluded.pos, type=excluded.type, segments=excluded.segments, usage=excluded.usage,
  field=excluded.field, etymology=excluded.etymology, gloss=excluded.gloss,
  features=excluded.features, definition=excluded.definition,
  model=excluded.model, created_at=excluded.created_at`, analyses, model)
}

func (r *MorphologyRepo) write(ctx context.Context, q Querier, query string, analyses []morph.Analysis, model string) (int64, error) {
	stmt := r.DB.Rebind(query)
	now := time.Now().Unix()
	var affected int64
	for _, a := range analyses {
		segs, err := json.Marshal(a.Segments)
		if err != nil {
			return affected, fmt.Errorf("marshal segments %q: %w", a.Word, err)
		}
		var feats sql.NullString
		if len(a.Features) > 0 {
			b, err := json.Marshal(a.Features)
			if err != nil {
				return affected, fmt.Errorf("marshal features %q: %w", a.Word, err)
			}
			feats = sql.NullString{String: string(b), Valid: true}
		}
		res, err := q.ExecContext(ctx, stmt,
			a.Word, a.POS, a.Type, string(segs), a.Usage,
			nullable(a.Field), nullable(a.Etymology), nullable(a.Gloss),
			feats, nullable(a.Definition), model, now,
		)
		if err != nil {
			return affected, fmt.Errorf("write %q: %w", a.Word, err)
		}
		aff, _ := res.RowsAffected()
		affected += aff
	}
	return affected, nil
}

// Save реализует morph.Cache: свежий ответ модели замещает устаревшую запись.
func (r *MorphologyRepo) Save(ctx context.Context, analyses []morph.Analysis, model string) error {
	_, err := r.Upsert(ctx, r.DB, analyses, model)
	return err
}

// Lookup достаёт сохранённые разборы по словам. Если maxAge > 0, записи старше
// (и записи без created_at) считаются отсутствующими. Битые строки пропускаются.
func (r *MorphologyRepo) Lookup(ctx context.Context, words []string, maxAge time.Duration) (map[string]morph.Analysis, error) {
	out := make(map[string]morph.Analysis, len(words))
	for start := 0; start < len(words); start += lookupBatch {
		part := words[start:min(start+lookupBatch, len(words))]
		if err := r.lookupPart(ctx, part, maxAge, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *MorphologyRepo) lookupPart(ctx context.Context, words []string, maxAge time.Duration, out map[string]morph.Analysis) error {
	if len(words) == 0 {
		return nil
	}
	args := make([]any, len(words))
	for i, w := range words {
		args[i] = w
	}
	q := r.DB.Rebind(`
select word, pos, type, segments, usage, field, etymology, gloss, features, definition, created_at
from morphology
where word in (` + placeholders(len(words)) + `)`)

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("lookup: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, created, err := scanAnalysis(rows)
		if err != nil {
			continue
		}
		if maxAge > 0 && (!created.Valid || time.Since(time.Unix(created.Int64, 0)) > maxAge) {
			continue
		}
		out[a.Word] = a
	}
	return rows.Err()
}

// Get возвращает разбор одного слова или ErrNotFound.
func (r *MorphologyRepo) Get(ctx context.Context, word string) (morph.Analysis, error) {
	q := r.DB.Rebind(`
select word, pos, type, segments, usage, field, etymology, gloss, features, definition, created_at
from morphology where word = ?`)
	rows, err := r.DB.QueryContext(ctx, q, word)
	if err != nil {
		return morph.Analysis{}, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return morph.Analysis{}, err
		}
		return morph.Analysis{}, ErrNotFound
	}
	a, _, err := scanAnalysis(rows)
	return a, err
}

func (r *MorphologyRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, `select count(*) from morphology`).Scan(&n)
	return n, err
}

func scanAnalysis(rows *sql.Rows) (morph.Analysis, sql.NullInt64, error) {
	var (
		a                                             morph.Analysis
		pos, typ, segs, usage                         sql.NullString
		field, etymology, gloss, features, definition sql.NullString
		created                                       sql.NullInt64
	)
	if err := rows.Scan(&a.Word, &pos, &typ, &segs, &usage, &field, &etymology, &gloss, &features, &definition, &created); err != nil {
		return morph.Analysis{}, created, err
	}
	a.POS, a.Type, a.Usage = pos.String, typ.String, usage.String
	if segs.Valid && segs.String != "" {
		if err := json.Unmarshal([]byte(segs.String), &a.Segments); err != nil {
			return morph.Analysis{}, created, fmt.Errorf("segments of %q: %w", a.Word, err)
		}
	}
	if features.Valid && features.String != "" {
		if err := json.Unmarshal([]byte(features.String), &a.Features); err != nil {
			return morph.Analysis{}, created, fmt.Errorf("features of %q: %w", a.Word, err)
		}
	}
	a.Field = fromNullable(field)
	a.Etymology = fromNullable(etymology)
	a.Gloss = fromNullable(gloss)
	a.Definition = fromNullable(definition)
	return a, created, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
