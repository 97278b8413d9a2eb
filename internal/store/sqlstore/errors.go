package sqlstore

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"libradesk/internal/library"
)

// Postgres SQLSTATE codes the store reacts to.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// classify maps driver errors onto the library error taxonomy. The driver
// error stays in the chain for logging.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return library.ErrRecordNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fromSQLState(string(pqErr.Code), err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fromSQLState(pgErr.Code, err)
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return errors.Join(library.ErrDuplicateKey, err)
		// ON DELETE RESTRICT is enforced by SQLite's internal FK trigger and
		// reports SQLITE_CONSTRAINT_TRIGGER instead of _FOREIGNKEY.
		case sqlite3.ErrConstraintForeignKey, sqlite3.ErrConstraintTrigger:
			return errors.Join(library.ErrInUse, err)
		}
		switch liteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return errors.Join(library.ErrConflict, err)
		}
	}

	return errors.Join(library.ErrStoreFailure, err)
}

func fromSQLState(code string, err error) error {
	switch code {
	case pgUniqueViolation:
		return errors.Join(library.ErrDuplicateKey, err)
	case pgForeignKeyViolation:
		return errors.Join(library.ErrInUse, err)
	case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
		return errors.Join(library.ErrConflict, err)
	default:
		return errors.Join(library.ErrStoreFailure, err)
	}
}
