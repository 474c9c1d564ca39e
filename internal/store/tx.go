package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"golang.org/x/time/rate"
)

// ErrConflict is returned when a write collides with another one: a unique
// constraint fired, or the database stayed locked through every retry.
var ErrConflict = errors.New("conflicting write")

const maxTxAttempts = 5

// retryLimiter paces retries of busy transactions across the whole process.
var retryLimiter = rate.NewLimiter(rate.Every(25*time.Millisecond), 1)

// RunInTx runs fn inside a transaction and commits it. A transaction that
// fails because SQLite is busy or locked is rolled back and run again; fn must
// therefore do all of its reads through tx.
func RunInTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = runOnce(ctx, db, fn)
		if err == nil {
			return nil
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %w", ErrConflict, err)
		}
		if !isBusy(err) {
			return err
		}

		slog.Warn("database busy, retrying transaction", "attempt", attempt, "error", err)
		if werr := retryLimiter.Wait(ctx); werr != nil {
			return werr
		}
	}
	return fmt.Errorf("%w: gave up after %d attempts: %w", ErrConflict, maxTxAttempts, err)
}

func runOnce(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
