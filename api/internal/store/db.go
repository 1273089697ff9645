package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	_ "modernc.org/sqlite"
)

var ErrNotFound = sql.ErrNoRows

type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// Querier — общее у *sql.DB и *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open выбирает драйвер по DSN: postgres:// идёт в pgx, остальное считается путём к файлу SQLite.
func Open(ctx context.Context, dsn string) (*DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("store: empty dsn")
	}

	var (
		db      *sql.DB
		err     error
		dialect Dialect
	)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dialect = Postgres
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("sql.Open pgx: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(1 * time.Hour)
	} else {
		dialect = SQLite
		db, err = sql.Open("sqlite", sqliteDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("sql.Open sqlite: %w", err)
		}
		// один писатель; для :memory: ещё и одна общая база
		db.SetMaxOpenConns(1)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	return &DB{DB: db, Dialect: dialect}, nil
}

func sqliteDSN(path string) string {
	if path == ":memory:" || strings.HasPrefix(path, "file:") || strings.Contains(path, "?") {
		return path
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Rebind переписывает плейсхолдеры ? в $1..$n для Postgres.
func (d *DB) Rebind(q string) string {
	if d.Dialect != Postgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

const schema = `
create table if not exists morphology (
  word       text primary key,
  pos        text,
  type       text,
  segments   text,
  usage      text,
  field      text,
  etymology  text,
  gloss      text,
  features   text,
  definition text,
  model      text,
  created_at bigint
);
create table if not exists progress (
  id          integer primary key,
  batch_index integer
);`

// Migrate создаёт таблицы и докидывает колонки model/created_at в базы,
// созданные старой версией пакетного скрипта.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	for _, col := range []struct{ name, typ string }{{"model", "text"}, {"created_at", "bigint"}} {
		if err := d.addColumnIfMissing(ctx, "morphology", col.name, col.typ); err != nil {
			return fmt.Errorf("migrate: add %s: %w", col.name, err)
		}
	}
	return nil
}

func (d *DB) addColumnIfMissing(ctx context.Context, table, column, typ string) error {
	if d.Dialect == Postgres {
		_, err := d.ExecContext(ctx, fmt.Sprintf(`alter table %s add column if not exists %s %s`, table, column, typ))
		return err
	}
	var n int
	q := `select count(*) from pragma_table_info(?) where name = ?`
	if err := d.QueryRowContext(ctx, q, table, column).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err := d.ExecContext(ctx, fmt.Sprintf(`alter table %s add column %s %s`, table, column, typ))
	return err
}

// SafeDSNSummary печатает хост/базу/пользователя без пароля.
func SafeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}
