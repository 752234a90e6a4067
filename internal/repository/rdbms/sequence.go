package rdbms

import (
	"context"
	"time"

	"github.com/vircom/folio/internal/database"
	"github.com/vircom/folio/internal/domain/sequence"
	ierr "github.com/vircom/folio/internal/errors"
	"github.com/vircom/folio/internal/logger"
	"github.com/vircom/folio/internal/types"
)

const sequenceColumns = `id, tenant_id, document_type, prefix, current_number, padding, created_at, updated_at`

type sequenceRepository struct {
	db          *database.DB
	logger      *logger.Logger
	lockTimeout time.Duration
}

// NewSequenceRepository returns a sequence.Repository backed by db.
// lockTimeout bounds how long GetForUpdate waits for the config row.
func NewSequenceRepository(db *database.DB, logger *logger.Logger, lockTimeout time.Duration) sequence.Repository {
	return &sequenceRepository{
		db:          db,
		logger:      logger,
		lockTimeout: lockTimeout,
	}
}

func (r *sequenceRepository) Get(ctx context.Context, documentType types.DocumentType) (*sequence.SequenceConfig, error) {
	q := r.db.GetQuerier(ctx)

	var cfg sequence.SequenceConfig
	err := q.GetContext(ctx, &cfg, q.Rebind(`
		SELECT `+sequenceColumns+`
		FROM sequence_configs
		WHERE tenant_id = ? AND document_type = ?`),
		types.GetTenantID(ctx), documentType)
	if database.IsNoRows(err) {
		return nil, ierr.WithError(err).
			WithHintf("Sequence config for %s not found", documentType).
			WithReportableDetails(map[string]any{
				"document_type": documentType,
			}).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, database.Classify(err, "failed to get sequence config")
	}
	return &cfg, nil
}

func (r *sequenceRepository) List(ctx context.Context) ([]*sequence.SequenceConfig, error) {
	q := r.db.GetQuerier(ctx)

	var configs []*sequence.SequenceConfig
	err := q.SelectContext(ctx, &configs, q.Rebind(`
		SELECT `+sequenceColumns+`
		FROM sequence_configs
		WHERE tenant_id = ?
		ORDER BY document_type`),
		types.GetTenantID(ctx))
	if err != nil {
		return nil, database.Classify(err, "failed to list sequence configs")
	}
	return configs, nil
}

func (r *sequenceRepository) GetForUpdate(ctx context.Context, defaults *sequence.SequenceConfig) (*sequence.SequenceConfig, error) {
	if !database.InTx(ctx) {
		return nil, ierr.NewError("sequence lock requires a transaction").
			WithHint("An internal error occurred while generating the document number").
			Mark(ierr.ErrSystem)
	}

	q := r.db.GetQuerier(ctx)
	tenantID := types.GetTenantID(ctx)

	if err := r.db.Dialect().PrepareLock(ctx, q, r.lockTimeout); err != nil {
		return nil, database.Classify(err, "failed to set lock timeout")
	}

	// first touch of a (tenant, type) pair creates the row; concurrent
	// creators fall through to the locking read below
	_, err := q.ExecContext(ctx, q.Rebind(`
		INSERT INTO sequence_configs (`+sequenceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, document_type) DO NOTHING`),
		defaults.ID,
		tenantID,
		defaults.DocumentType,
		defaults.Prefix,
		defaults.CurrentNumber,
		defaults.Padding,
		defaults.CreatedAt,
		defaults.UpdatedAt,
	)
	if err != nil {
		return nil, database.Classify(err, "failed to bootstrap sequence config")
	}

	var cfg sequence.SequenceConfig
	err = q.GetContext(ctx, &cfg, q.Rebind(`
		SELECT `+sequenceColumns+`
		FROM sequence_configs
		WHERE tenant_id = ? AND document_type = ?`+r.db.Dialect().LockClause()),
		tenantID, defaults.DocumentType)
	if err != nil {
		return nil, database.Classify(err, "failed to lock sequence config")
	}
	return &cfg, nil
}

func (r *sequenceRepository) UpdateCounter(ctx context.Context, cfg *sequence.SequenceConfig) error {
	q := r.db.GetQuerier(ctx)
	cfg.UpdatedAt = time.Now().UTC()

	result, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE sequence_configs
		SET current_number = ?, updated_at = ?
		WHERE tenant_id = ? AND document_type = ? AND current_number <= ?`),
		cfg.CurrentNumber, cfg.UpdatedAt,
		types.GetTenantID(ctx), cfg.DocumentType, cfg.CurrentNumber)
	if err != nil {
		return database.Classify(err, "failed to update sequence counter")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return database.Classify(err, "failed to update sequence counter")
	}
	if affected == 0 {
		return ierr.NewError("sequence counter cannot move backwards").
			WithHint("The sequence counter was not updated").
			WithReportableDetails(map[string]any{
				"document_type":  cfg.DocumentType,
				"current_number": cfg.CurrentNumber,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	return nil
}

func (r *sequenceRepository) UpdateFormat(ctx context.Context, cfg *sequence.SequenceConfig) error {
	q := r.db.GetQuerier(ctx)
	cfg.UpdatedAt = time.Now().UTC()

	result, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE sequence_configs
		SET prefix = ?, padding = ?, updated_at = ?
		WHERE tenant_id = ? AND document_type = ?`),
		cfg.Prefix, cfg.Padding, cfg.UpdatedAt,
		types.GetTenantID(ctx), cfg.DocumentType)
	if err != nil {
		return database.Classify(err, "failed to update sequence format")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return database.Classify(err, "failed to update sequence format")
	}
	if affected == 0 {
		return ierr.NewError("sequence config not found").
			WithHintf("Sequence config for %s not found", cfg.DocumentType).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *sequenceRepository) ListTenantIDs(ctx context.Context) ([]string, error) {
	q := r.db.GetQuerier(ctx)

	var tenantIDs []string
	if err := q.SelectContext(ctx, &tenantIDs, `SELECT DISTINCT tenant_id FROM sequence_configs ORDER BY tenant_id`); err != nil {
		return nil, database.Classify(err, "failed to list sequence tenants")
	}
	return tenantIDs, nil
}
