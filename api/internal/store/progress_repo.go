package store

import (
	"context"
	"database/sql"
	"errors"
)

// ProgressRepo хранит смещение пакетной обработки в единственной строке id=1.
type ProgressRepo struct{ DB *DB }

func NewProgressRepo(db *DB) *ProgressRepo { return &ProgressRepo{DB: db} }

// Get возвращает сохранённое смещение; ok=false, если строки ещё нет.
func (r *ProgressRepo) Get(ctx context.Context, q Querier) (index int, ok bool, err error) {
	err = q.QueryRowContext(ctx, `select batch_index from progress where id = 1`).Scan(&index)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return index, true, nil
}

// Set записывает смещение (upsert).
func (r *ProgressRepo) Set(ctx context.Context, q Querier, index int) error {
	const stmt = `
insert into progress (id, batch_index) values (1, ?)
on conflict (id) do update set batch_index = excluded.batch_index`
	_, err := q.ExecContext(ctx, r.DB.Rebind(stmt), index)
	return err
}

// Reset удаляет контрольную точку: следующий прогон начнётся с нуля.
func (r *ProgressRepo) Reset(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, `delete from progress where id = 1`)
	return err
}
