package rdbms

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vircom/folio/internal/database"
	"github.com/vircom/folio/internal/domain/document"
	ierr "github.com/vircom/folio/internal/errors"
	"github.com/vircom/folio/internal/logger"
	"github.com/vircom/folio/internal/types"
)

const documentColumns = `id, tenant_id, document_type, document_number, status, customer_id, title,
		notes, currency, subtotal, total, source_document_id, idempotency_key, metadata,
		created_at, updated_at, created_by, updated_by`

type documentRepository struct {
	db     *database.DB
	logger *logger.Logger
}

func NewDocumentRepository(db *database.DB, logger *logger.Logger) document.Repository {
	return &documentRepository{db: db, logger: logger}
}

func (r *documentRepository) Create(ctx context.Context, doc *document.Document) error {
	q := r.db.GetQuerier(ctx)

	_, err := q.NamedExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (
			:id, :tenant_id, :document_type, :document_number, :status, :customer_id, :title,
			:notes, :currency, :subtotal, :total, :source_document_id, :idempotency_key, :metadata,
			:created_at, :updated_at, :created_by, :updated_by
		)`, doc)
	if err != nil {
		err = database.Classify(err, "failed to create document")
		if ierr.IsAlreadyExists(err) {
			return ierr.WithError(err).
				WithHint("A document with the same number or idempotency key already exists").
				WithReportableDetails(map[string]any{
					"document_id":     doc.ID,
					"document_type":   doc.DocumentType,
					"document_number": doc.DocumentNumber,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return err
	}
	return nil
}

func (r *documentRepository) Get(ctx context.Context, id string) (*document.Document, error) {
	q := r.db.GetQuerier(ctx)

	var doc document.Document
	err := q.GetContext(ctx, &doc, q.Rebind(`
		SELECT `+documentColumns+`
		FROM documents
		WHERE tenant_id = ? AND id = ?`),
		types.GetTenantID(ctx), id)
	if database.IsNoRows(err) {
		return nil, ierr.WithError(err).
			WithHintf("Document %s not found", id).
			WithReportableDetails(map[string]any{
				"document_id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, database.Classify(err, "failed to get document")
	}
	return &doc, nil
}

func (r *documentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*document.Document, error) {
	q := r.db.GetQuerier(ctx)

	var doc document.Document
	err := q.GetContext(ctx, &doc, q.Rebind(`
		SELECT `+documentColumns+`
		FROM documents
		WHERE tenant_id = ? AND idempotency_key = ?`),
		types.GetTenantID(ctx), key)
	if database.IsNoRows(err) {
		return nil, ierr.WithError(err).
			WithHint("Document not found for idempotency key").
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, database.Classify(err, "failed to get document by idempotency key")
	}
	return &doc, nil
}

// filterClause renders the WHERE clause shared by List and Count
func filterClause(ctx context.Context, filter *types.DocumentFilter) (string, []interface{}) {
	conditions := []string{"tenant_id = ?"}
	args := []interface{}{types.GetTenantID(ctx)}

	if filter != nil {
		if filter.DocumentType != nil {
			conditions = append(conditions, "document_type = ?")
			args = append(args, *filter.DocumentType)
		}
		if filter.Status != nil {
			conditions = append(conditions, "status = ?")
			args = append(args, *filter.Status)
		}
		if filter.CustomerID != nil {
			conditions = append(conditions, "customer_id = ?")
			args = append(args, *filter.CustomerID)
		}
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (r *documentRepository) List(ctx context.Context, filter *types.DocumentFilter) ([]*document.Document, error) {
	q := r.db.GetQuerier(ctx)
	where, args := filterClause(ctx, filter)

	order := "DESC"
	if filter.GetOrder() == types.OrderAsc {
		order = "ASC"
	}
	query := fmt.Sprintf(`SELECT %s FROM documents%s ORDER BY created_at %s, id %s LIMIT ? OFFSET ?`,
		documentColumns, where, order, order)
	args = append(args, filter.GetLimit(), filter.GetOffset())

	var docs []*document.Document
	if err := q.SelectContext(ctx, &docs, q.Rebind(query), args...); err != nil {
		return nil, database.Classify(err, "failed to list documents")
	}
	return docs, nil
}

func (r *documentRepository) Count(ctx context.Context, filter *types.DocumentFilter) (int, error) {
	q := r.db.GetQuerier(ctx)
	where, args := filterClause(ctx, filter)

	var count int
	if err := q.GetContext(ctx, &count, q.Rebind(`SELECT COUNT(*) FROM documents`+where), args...); err != nil {
		return 0, database.Classify(err, "failed to count documents")
	}
	return count, nil
}

func (r *documentRepository) NumberExists(ctx context.Context, documentType types.DocumentType, number string) (bool, error) {
	q := r.db.GetQuerier(ctx)

	var count int
	err := q.GetContext(ctx, &count, q.Rebind(`
		SELECT COUNT(*)
		FROM documents
		WHERE tenant_id = ? AND document_type = ? AND document_number = ?`),
		types.GetTenantID(ctx), documentType, number)
	if err != nil {
		return false, database.Classify(err, "failed to check document number")
	}
	return count > 0, nil
}

func (r *documentRepository) ScanNumbers(ctx context.Context, documentType types.DocumentType, afterID string, limit int) ([]*document.NumberRef, error) {
	q := r.db.GetQuerier(ctx)

	var refs []*document.NumberRef
	err := q.SelectContext(ctx, &refs, q.Rebind(`
		SELECT id, document_number
		FROM documents
		WHERE tenant_id = ? AND document_type = ? AND document_number <> '' AND id > ?
		ORDER BY id
		LIMIT ?`),
		types.GetTenantID(ctx), documentType, afterID, limit)
	if err != nil {
		return nil, database.Classify(err, "failed to scan document numbers")
	}
	return refs, nil
}

func (r *documentRepository) ListUnnumbered(ctx context.Context, documentType types.DocumentType, after *document.UnnumberedCursor, limit int) ([]*document.Document, error) {
	q := r.db.GetQuerier(ctx)

	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE tenant_id = ? AND document_type = ? AND document_number = ''`
	args := []interface{}{types.GetTenantID(ctx), documentType}
	if after != nil {
		query += ` AND (created_at > ? OR (created_at = ? AND id > ?))`
		args = append(args, after.CreatedAt, after.CreatedAt, after.ID)
	}
	query += `
		ORDER BY created_at, id
		LIMIT ?`
	args = append(args, limit)

	var docs []*document.Document
	if err := q.SelectContext(ctx, &docs, q.Rebind(query), args...); err != nil {
		return nil, database.Classify(err, "failed to list unnumbered documents")
	}
	return docs, nil
}

func (r *documentRepository) SetNumber(ctx context.Context, id string, number string) error {
	q := r.db.GetQuerier(ctx)

	result, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE documents
		SET document_number = ?, updated_at = ?, updated_by = ?
		WHERE tenant_id = ? AND id = ? AND document_number = ''`),
		number, time.Now().UTC(), types.GetUserID(ctx),
		types.GetTenantID(ctx), id)
	if err != nil {
		return database.Classify(err, "failed to set document number")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return database.Classify(err, "failed to set document number")
	}
	if affected == 0 {
		return ierr.NewError("document already numbered").
			WithHint("Document numbers cannot be changed once assigned").
			WithReportableDetails(map[string]any{
				"document_id": id,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	return nil
}

func (r *documentRepository) ListTenantIDs(ctx context.Context) ([]string, error) {
	q := r.db.GetQuerier(ctx)

	var tenantIDs []string
	if err := q.SelectContext(ctx, &tenantIDs, `SELECT DISTINCT tenant_id FROM documents ORDER BY tenant_id`); err != nil {
		return nil, database.Classify(err, "failed to list document tenants")
	}
	return tenantIDs, nil
}
