// Package repositories provides the relational persistence layer for all
// operational record types plus migration bookkeeping.
//
// Each repository targets one table, keyed by the record's natural key so
// writes are idempotent upserts: re-running a migration over identical source
// data overwrites rather than duplicates. Batch writes go through an explicit
// [sql.Tx] supplied by the caller, which owns the commit/rollback decision.
package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/iaminawe/ParkingGarage-sub010/internal/shared"
	"github.com/mattn/go-sqlite3"
)

// Execer abstracts *sql.DB and *sql.Tx so single-record and batched writes
// share one implementation.
type Execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
}

// wrapStoreErr classifies a driver error into the migration taxonomy:
// uniqueness and foreign-key violations become constraint errors, everything
// else is a transient store failure.
func wrapStoreErr(op string, err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && (se.Code == sqlite3.ErrConstraint) {
		return fmt.Errorf("%w: %s: %v", shared.ErrConstraint, op, err)
	}
	return fmt.Errorf("%w: %s: %v", shared.ErrTransientStore, op, err)
}

// count runs a COUNT(*) over the named table.
func count(q Execer, table string) (int, error) {
	var n int
	if err := q.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		return 0, wrapStoreErr("count "+table, err)
	}
	return n, nil
}

// deleteRows clears a table, optionally restricted to rows written by one
// migration run. Returns the number of rows removed.
func deleteRows(q Execer, table, migrationID string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if migrationID == "" {
		res, err = q.Exec("DELETE FROM " + table)
	} else {
		res, err = q.Exec("DELETE FROM "+table+" WHERE migration_id = ?", migrationID)
	}
	if err != nil {
		return 0, wrapStoreErr("clear "+table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrapStoreErr("clear "+table, err)
	}
	return n, nil
}
