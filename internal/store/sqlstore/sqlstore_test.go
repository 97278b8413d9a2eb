package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libradesk/internal/library"
	"libradesk/internal/store/storetest"
)

// openSQLite creates a fresh database file per test.
func openSQLite(t *testing.T) library.Store {
	t.Helper()

	dsn := SQLiteDSN(filepath.Join(t.TempDir(), "library.db"))
	store, err := Open(context.Background(), Config{Flavor: FlavorSQLite, DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// openPostgres connects to TEST_DATABASE_URL, or the PG* variables, and
// empties the tables. It skips the test when no server answers.
func openPostgres(flavor Flavor) storetest.Factory {
	return func(t *testing.T) library.Store {
		t.Helper()

		dsn := os.Getenv("TEST_DATABASE_URL")
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
				getEnv("PGHOST", "localhost"),
				getEnv("PGPORT", "5432"),
				getEnv("PGUSER", "libradesk"),
				getEnv("PGPASSWORD", "libradesk"),
				getEnv("PGDATABASE", "libradesk_test"),
			)
		}

		store, err := Open(context.Background(), Config{Flavor: flavor, DSN: dsn})
		if err != nil {
			t.Skipf("skipping postgres tests: could not connect to postgres: %v", err)
		}
		t.Cleanup(func() { store.Close() })

		_, err = store.db.Exec("TRUNCATE TABLE borrowings, members, books")
		require.NoError(t, err)
		return store
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestSQLiteContract(t *testing.T) {
	storetest.Run(t, openSQLite)
}

func TestPostgresContract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres tests in short mode")
	}
	storetest.Run(t, openPostgres(FlavorPostgres))
}

func TestPgxContract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres tests in short mode")
	}
	storetest.Run(t, openPostgres(FlavorPgx))
}

func TestParseFlavor(t *testing.T) {
	for _, name := range []string{"postgres", "pgx", "sqlite3"} {
		f, err := ParseFlavor(name)
		require.NoError(t, err)
		assert.Equal(t, Flavor(name), f)
	}

	_, err := ParseFlavor("mysql")
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "unique violation", in: &pq.Error{Code: "23505"}, want: library.ErrDuplicateKey},
		{name: "foreign key violation", in: &pq.Error{Code: "23503"}, want: library.ErrInUse},
		{name: "serialization failure", in: &pq.Error{Code: "40001"}, want: library.ErrConflict},
		{name: "deadlock", in: &pq.Error{Code: "40P01"}, want: library.ErrConflict},
		{name: "other sql state", in: &pq.Error{Code: "42P01"}, want: library.ErrStoreFailure},
		{name: "plain error", in: errors.New("connection reset"), want: library.ErrStoreFailure},
		{name: "no rows", in: sql.ErrNoRows, want: library.ErrRecordNotFound},
		{
			name: "sqlite foreign key",
			in:   sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey},
			want: library.ErrInUse,
		},
		{
			name: "sqlite restrict on delete",
			in:   sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintTrigger},
			want: library.ErrInUse,
		},
		{
			name: "sqlite unique",
			in:   sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique},
			want: library.ErrDuplicateKey,
		},
		{name: "sqlite busy", in: sqlite3.Error{Code: sqlite3.ErrBusy}, want: library.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(fmt.Errorf("wrapped: %w", tt.in))
			assert.ErrorIs(t, got, tt.want)
		})
	}

	assert.NoError(t, classify(nil))
}

func TestLockingClause(t *testing.T) {
	build := func(flavor Flavor) string {
		c := conn{flavor: flavor, dialect: goqu.Dialect(flavor.dialect())}
		query, _, err := c.locking(c.dialect.From(tableBooks).Select(bookColumns...).Where(goqu.C("title").Eq("Dune"))).
			Prepared(true).ToSQL()
		require.NoError(t, err)
		return query
	}

	assert.Contains(t, build(FlavorPostgres), "FOR UPDATE")
	assert.Contains(t, build(FlavorPostgres), "$1")
	assert.NotContains(t, build(FlavorSQLite), "FOR UPDATE")
	assert.Contains(t, build(FlavorSQLite), "?")
}

func TestTrigramMatch_StripsColumnAndTerm(t *testing.T) {
	ds := trigramMatch(goqu.Dialect("postgres").From(tableBooks).Select(bookColumns...), "title", "Scary-Nights")
	query, args, err := ds.Prepared(true).ToSQL()
	require.NoError(t, err)

	assert.Contains(t, query, `regexp_replace(title, '[^a-zA-Z0-9]+', '', 'g') ILIKE ('%' || regexp_replace($3, '[^a-zA-Z0-9]+', '', 'g') || '%')`)
	assert.Equal(t, []any{"%Scary-Nights%", "Scary-Nights", "Scary-Nights", "Scary-Nights"}, args)
}

func TestSharingClause(t *testing.T) {
	build := func(flavor Flavor) string {
		c := conn{flavor: flavor, dialect: goqu.Dialect(flavor.dialect())}
		query, _, err := c.sharing(c.dialect.From(tableMembers).Select(memberColumns...).Where(goqu.C("name").Eq("Alice"))).
			Prepared(true).ToSQL()
		require.NoError(t, err)
		return query
	}

	assert.Contains(t, build(FlavorPostgres), "FOR SHARE")
	assert.Contains(t, build(FlavorPgx), "FOR SHARE")
	assert.NotContains(t, build(FlavorSQLite), "FOR SHARE")
}
