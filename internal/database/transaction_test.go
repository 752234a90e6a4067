package database_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vircom/folio/internal/database"
	"github.com/vircom/folio/internal/testutil"
	"github.com/vircom/folio/internal/types"
)

func TestDialectIsolation(t *testing.T) {
	db := testutil.NewSQLiteDB(t, time.Second)
	assert.Equal(t, types.DatabaseDriverSQLite, db.Dialect().Name())
	assert.Equal(t, sql.LevelDefault, db.Dialect().Isolation())
}

func countConfigs(t *testing.T, db *database.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.GetContext(context.Background(), &n, `SELECT COUNT(*) FROM sequence_configs`))
	return n
}

func insertConfig(ctx context.Context, db *database.DB, documentType string) error {
	q := db.GetQuerier(ctx)
	_, err := q.ExecContext(ctx, q.Rebind(`
		INSERT INTO sequence_configs (id, tenant_id, document_type, prefix, current_number, padding, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		types.GenerateUUID(), types.DefaultTenantID, documentType, "Q", 0, 4, time.Now().UTC(), time.Now().UTC())
	return err
}

func TestWithTxOnSQLite(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t, time.Second)

	// a top-level transaction opens with the dialect's isolation level
	require.NoError(t, db.WithTx(ctx, func(ctx context.Context) error {
		assert.True(t, database.InTx(ctx))
		return insertConfig(ctx, db, "quotation")
	}))
	assert.Equal(t, 1, countConfigs(t, db))

	failure := errors.New("boom")
	err := db.WithTx(ctx, func(ctx context.Context) error {
		if err := insertConfig(ctx, db, "sale"); err != nil {
			return err
		}
		return failure
	})
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, 1, countConfigs(t, db))
}
