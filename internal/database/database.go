package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/vircom/folio/internal/config"
	"github.com/vircom/folio/internal/logger"
	"github.com/vircom/folio/internal/types"
)

// IClient is the unit-of-work boundary used by services.
// Repositories called with the context handed to fn join the transaction.
type IClient interface {
	// WithTx wraps the given function in a transaction. Calls nested inside
	// an existing transaction run in a savepoint.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// DB wraps sqlx.DB to provide transaction management
type DB struct {
	*sqlx.DB
	logger  *logger.Logger
	dialect Dialect
}

var _ IClient = (*DB)(nil)

// Querier interface defines all database operations
// Both *sqlx.DB and *sqlx.Tx implement these methods
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	Rebind(query string) string
}

// NewDB opens the configured database, applies pool settings and, when
// enabled, runs the embedded migrations.
func NewDB(cfg *config.Configuration, logger *logger.Logger) (*DB, error) {
	var (
		driver = string(cfg.Database.Driver)
		dsn    string
	)

	switch cfg.Database.Driver {
	case types.DatabaseDriverPostgres:
		dsn = cfg.Database.Postgres.GetDSN()
	case types.DatabaseDriverSQLite:
		dsn = cfg.Database.SQLite.GetDSN(cfg.Sequence.LockTimeout)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	sqlxDB, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	if cfg.Database.MaxOpenConns > 0 {
		sqlxDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		sqlxDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}
	if cfg.Database.ConnMaxLifetimeMinutes > 0 {
		sqlxDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetimeMinutes) * time.Minute)
	}

	db := NewFromSqlx(sqlxDB, logger)

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := db.Migrate(ctx); err != nil {
			_ = sqlxDB.Close()
			return nil, err
		}
	}

	logger.Infow("connected to database", "driver", driver)
	return db, nil
}

// NewFromSqlx wraps an already opened connection pool
func NewFromSqlx(sqlxDB *sqlx.DB, logger *logger.Logger) *DB {
	return &DB{
		DB:      sqlxDB,
		logger:  logger,
		dialect: dialectFor(sqlxDB.DriverName()),
	}
}

// Close closes the database connection
func (db *DB) Close() {
	if err := db.DB.Close(); err != nil {
		db.logger.Errorw("error closing database", "error", err)
	}
}

// Dialect returns the SQL dialect of the underlying driver
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// GetQuerier returns either the transaction from context or the base DB
func (db *DB) GetQuerier(ctx context.Context) Querier {
	if tx, ok := GetTx(ctx); ok {
		return NewTracedQuerier(tx.Tx, db.logger, tx.ID)
	}
	return NewTracedQuerier(db.DB, db.logger, "")
}
