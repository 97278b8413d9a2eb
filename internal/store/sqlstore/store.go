// Package sqlstore implements library.Store on a relational database through
// sqlx, with statements built by goqu. Postgres (lib/pq or pgx) and SQLite
// (mattn/go-sqlite3) are supported.
package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"libradesk/internal/library"
)

// Flavor selects the database/sql driver and the SQL dialect.
type Flavor string

const (
	FlavorPostgres Flavor = "postgres"
	FlavorPgx      Flavor = "pgx"
	FlavorSQLite   Flavor = "sqlite3"
)

// ParseFlavor validates a driver name.
func ParseFlavor(s string) (Flavor, error) {
	switch f := Flavor(s); f {
	case FlavorPostgres, FlavorPgx, FlavorSQLite:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported store driver %q", s)
	}
}

func (f Flavor) driverName() string { return string(f) }

func (f Flavor) dialect() string {
	if f == FlavorSQLite {
		return "sqlite3"
	}
	return "postgres"
}

// system is the otel db.system attribute value.
func (f Flavor) system() string {
	if f == FlavorSQLite {
		return "sqlite"
	}
	return "postgresql"
}

func (f Flavor) isPostgres() bool { return f != FlavorSQLite }

// Config describes a connection.
type Config struct {
	Flavor Flavor
	DSN    string
	// SkipSchema leaves the schema untouched, for databases managed elsewhere.
	SkipSchema bool
	Logger     *slog.Logger
}

// SQLiteDSN builds a DSN for a database file. Transactions start with
// BEGIN IMMEDIATE so the write lock is held from the first statement.
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL", path)
}

// Store is a library.Store on a *sqlx.DB.
type Store struct {
	db     *sqlx.DB
	flavor Flavor
	logger *slog.Logger
}

// Open connects, pings, and applies the embedded schema unless cfg.SkipSchema is set.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if !cfg.SkipSchema {
		if err := ApplySchema(cfg.Flavor, cfg.DSN); err != nil {
			return nil, err
		}
	}

	db, err := sqlx.Open(cfg.Flavor.driverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Flavor.isPostgres() {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(time.Hour)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("connected to record store", slog.String("driver", string(cfg.Flavor)))
	return New(db, cfg.Flavor, logger), nil
}

// New wraps an open connection. The schema must already exist.
func New(db *sqlx.DB, flavor Flavor, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, flavor: flavor, logger: logger}
}

func (s *Store) Books() library.BookRepository           { return &bookRepo{s.conn(s.db)} }
func (s *Store) Members() library.MemberRepository       { return &memberRepo{s.conn(s.db)} }
func (s *Store) Borrowings() library.BorrowingRepository { return &borrowingRepo{s.conn(s.db)} }

func (s *Store) conn(q sqlx.ExtContext) conn {
	return conn{q: q, flavor: s.flavor, dialect: goqu.Dialect(s.flavor.dialect())}
}

// WithinTx runs fn in one database transaction. Statements inside it see the
// same snapshot rules as the database's default isolation level; the locking
// reads of the repositories provide the read-then-write protection.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx library.Repositories) error) error {
	ctx, span := tracer.Start(ctx, "sqlstore.tx", trace.WithAttributes(attribute.String("db.system", s.flavor.system())))
	defer span.End()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		err = classify(fmt.Errorf("failed to begin transaction: %w", err))
		endSpan(span, err)
		return err
	}
	defer tx.Rollback()

	if err := fn(ctx, txRepos{s.conn(tx)}); err != nil {
		endSpan(span, err)
		return err
	}

	if err := tx.Commit(); err != nil {
		err = classify(fmt.Errorf("failed to commit transaction: %w", err))
		endSpan(span, err)
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

type txRepos struct {
	c conn
}

func (t txRepos) Books() library.BookRepository           { return &bookRepo{t.c} }
func (t txRepos) Members() library.MemberRepository       { return &memberRepo{t.c} }
func (t txRepos) Borrowings() library.BorrowingRepository { return &borrowingRepo{t.c} }

// conn is what every repository runs statements through: the pool outside a
// transaction, the *sqlx.Tx inside one.
type conn struct {
	q       sqlx.ExtContext
	flavor  Flavor
	dialect goqu.DialectWrapper
}

func (c conn) get(ctx context.Context, dest any, ds *goqu.SelectDataset) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	return classify(sqlx.GetContext(ctx, c.q, dest, query, args...))
}

func (c conn) selectAll(ctx context.Context, dest any, ds *goqu.SelectDataset) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	return classify(sqlx.SelectContext(ctx, c.q, dest, query, args...))
}

type sqlBuilder interface {
	ToSQL() (string, []interface{}, error)
}

// exec runs a write statement and returns the number of affected rows.
func (c conn) exec(ctx context.Context, b sqlBuilder) (int64, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return 0, fmt.Errorf("failed to build statement: %w", err)
	}

	res, err := c.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}

// locking adds FOR UPDATE where the dialect has row locks. SQLite
// transactions already hold the database write lock from BEGIN IMMEDIATE.
func (c conn) locking(ds *goqu.SelectDataset) *goqu.SelectDataset {
	if c.flavor.isPostgres() {
		return ds.ForUpdate(exp.Wait)
	}
	return ds
}

// sharing adds FOR SHARE on postgres, see locking.
func (c conn) sharing(ds *goqu.SelectDataset) *goqu.SelectDataset {
	if c.flavor.isPostgres() {
		return ds.ForShare(exp.Wait)
	}
	return ds
}
