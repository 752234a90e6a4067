package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	ierr "github.com/vircom/folio/internal/errors"
)

// Classify maps a driver error onto the application sentinels. Errors
// already carrying a sentinel pass through unchanged.
//
//   - lock wait timeouts, cancellations, serialization failures and
//     deadlocks become ErrContention (retryable)
//   - unique violations become ErrAlreadyExists
//   - everything else becomes ErrDatabase
func Classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	if isMarked(err) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ierr.WithError(err).
			WithMessage(msg).
			WithHint("The operation timed out waiting for a lock, please retry").
			Mark(ierr.ErrContention)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return classifyPostgres(err, pqErr, msg)
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return classifySQLite(err, liteErr, msg)
	}

	return ierr.WithError(err).
		WithMessage(msg).
		WithHint("A database error occurred").
		Mark(ierr.ErrDatabase)
}

func classifyPostgres(err error, pqErr *pq.Error, msg string) error {
	switch string(pqErr.Code) {
	case pgerrcode.LockNotAvailable,
		pgerrcode.QueryCanceled,
		pgerrcode.SerializationFailure,
		pgerrcode.DeadlockDetected:
		return ierr.WithError(err).
			WithMessage(msg).
			WithHint("The resource is busy, please retry").
			WithReportableDetails(map[string]any{
				"sqlstate": string(pqErr.Code),
			}).
			Mark(ierr.ErrContention)

	case pgerrcode.UniqueViolation:
		return ierr.WithError(err).
			WithMessage(msg).
			WithHint("A record with the same key already exists").
			WithReportableDetails(map[string]any{
				"constraint": pqErr.Constraint,
			}).
			Mark(ierr.ErrAlreadyExists)

	case pgerrcode.ForeignKeyViolation:
		return ierr.WithError(err).
			WithMessage(msg).
			WithHint("A referenced record does not exist").
			WithReportableDetails(map[string]any{
				"constraint": pqErr.Constraint,
			}).
			Mark(ierr.ErrNotFound)

	case pgerrcode.CheckViolation:
		return ierr.WithError(err).
			WithMessage(msg).
			WithHint("The record violates a data constraint").
			WithReportableDetails(map[string]any{
				"constraint": pqErr.Constraint,
			}).
			Mark(ierr.ErrValidation)

	default:
		return ierr.WithError(err).
			WithMessage(msg).
			WithHint("A database error occurred").
			WithReportableDetails(map[string]any{
				"sqlstate": string(pqErr.Code),
			}).
			Mark(ierr.ErrDatabase)
	}
}

func classifySQLite(err error, liteErr sqlite3.Error, msg string) error {
	switch {
	case liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked:
		return ierr.WithError(err).
			WithMessage(msg).
			WithHint("The resource is busy, please retry").
			Mark(ierr.ErrContention)

	case liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
		return ierr.WithError(err).
			WithMessage(msg).
			WithHint("A record with the same key already exists").
			Mark(ierr.ErrAlreadyExists)

	case liteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey:
		return ierr.WithError(err).
			WithMessage(msg).
			WithHint("A referenced record does not exist").
			Mark(ierr.ErrNotFound)

	case liteErr.ExtendedCode == sqlite3.ErrConstraintCheck:
		return ierr.WithError(err).
			WithMessage(msg).
			WithHint("The record violates a data constraint").
			Mark(ierr.ErrValidation)

	default:
		return ierr.WithError(err).
			WithMessage(msg).
			WithHint("A database error occurred").
			Mark(ierr.ErrDatabase)
	}
}

// IsNoRows reports whether err is sql.ErrNoRows
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isMarked(err error) bool {
	return ierr.IsNotFound(err) ||
		ierr.IsAlreadyExists(err) ||
		ierr.IsValidation(err) ||
		ierr.IsInvalidOperation(err) ||
		ierr.IsContention(err) ||
		ierr.IsDatabase(err)
}
