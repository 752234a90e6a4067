package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vircom/folio/internal/types"
)

// Dialect captures the few places where PostgreSQL and SQLite differ for
// row locking. Everything else is written once in portable SQL.
type Dialect interface {
	Name() types.DatabaseDriver
	// LockClause is appended to a SELECT that must hold the row until commit.
	LockClause() string
	// PrepareLock bounds how long the next lock acquisition may wait.
	// Must be called inside a transaction.
	PrepareLock(ctx context.Context, q Querier, timeout time.Duration) error
	// Isolation is the level new transactions are started with
	Isolation() sql.IsolationLevel
}

func dialectFor(driverName string) Dialect {
	if driverName == string(types.DatabaseDriverSQLite) {
		return sqliteDialect{}
	}
	return postgresDialect{}
}

type postgresDialect struct{}

func (postgresDialect) Name() types.DatabaseDriver { return types.DatabaseDriverPostgres }

func (postgresDialect) LockClause() string { return " FOR UPDATE" }

func (postgresDialect) Isolation() sql.IsolationLevel { return sql.LevelReadCommitted }

func (postgresDialect) PrepareLock(ctx context.Context, q Querier, timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}
	// SET does not accept bind parameters
	_, err := q.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeout.Milliseconds()))
	return err
}

// sqliteDialect relies on _txlock=immediate: every transaction takes the
// database write lock at BEGIN, bounded by _busy_timeout.
type sqliteDialect struct{}

func (sqliteDialect) Name() types.DatabaseDriver { return types.DatabaseDriverSQLite }

func (sqliteDialect) LockClause() string { return "" }

// go-sqlite3 rejects any explicit level
func (sqliteDialect) Isolation() sql.IsolationLevel { return sql.LevelDefault }

func (sqliteDialect) PrepareLock(context.Context, Querier, time.Duration) error { return nil }
