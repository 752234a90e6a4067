package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/vircom/folio/internal/config"
	"github.com/vircom/folio/internal/database"
	"github.com/vircom/folio/internal/logger"
)

// NewSQLiteDB opens a migrated SQLite database in a per-test temp dir.
// busyTimeout bounds lock waits the same way sequence.lock_timeout does.
func NewSQLiteDB(t testing.TB, busyTimeout time.Duration) *database.DB {
	t.Helper()

	cfg := config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "folio.db")}
	sqlxDB, err := sqlx.Open("sqlite3", cfg.GetDSN(busyTimeout))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlxDB.Close() })

	db := database.NewFromSqlx(sqlxDB, logger.NewNopLogger())
	require.NoError(t, db.Migrate(context.Background()))
	return db
}
