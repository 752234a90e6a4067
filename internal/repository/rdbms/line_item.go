package rdbms

import (
	"context"

	"github.com/vircom/folio/internal/database"
	"github.com/vircom/folio/internal/domain/document"
	ierr "github.com/vircom/folio/internal/errors"
	"github.com/vircom/folio/internal/logger"
	"github.com/vircom/folio/internal/types"
)

const lineItemColumns = `id, tenant_id, document_id, position, item_type, item_ref, description,
		quantity, unit_price, discount, amount, created_at`

type lineItemRepository struct {
	db     *database.DB
	logger *logger.Logger
}

func NewLineItemRepository(db *database.DB, logger *logger.Logger) document.LineItemRepository {
	return &lineItemRepository{db: db, logger: logger}
}

func (r *lineItemRepository) CreateMany(ctx context.Context, items []*document.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	q := r.db.GetQuerier(ctx)

	for _, item := range items {
		_, err := q.NamedExecContext(ctx, `
			INSERT INTO document_line_items (`+lineItemColumns+`)
			VALUES (
				:id, :tenant_id, :document_id, :position, :item_type, :item_ref, :description,
				:quantity, :unit_price, :discount, :amount, :created_at
			)`, item)
		if err != nil {
			return ierr.WithError(database.Classify(err, "failed to create line item")).
				WithReportableDetails(map[string]any{
					"document_id":  item.DocumentID,
					"line_item_id": item.ID,
					"position":     item.Position,
				}).
				Error()
		}
	}

	r.logger.Debugw("created line items",
		"document_id", items[0].DocumentID,
		"count", len(items),
	)
	return nil
}

func (r *lineItemRepository) ListByDocument(ctx context.Context, documentID string) ([]*document.LineItem, error) {
	q := r.db.GetQuerier(ctx)

	var items []*document.LineItem
	err := q.SelectContext(ctx, &items, q.Rebind(`
		SELECT `+lineItemColumns+`
		FROM document_line_items
		WHERE tenant_id = ? AND document_id = ?
		ORDER BY position, id`),
		types.GetTenantID(ctx), documentID)
	if err != nil {
		return nil, database.Classify(err, "failed to list line items")
	}
	return items, nil
}
