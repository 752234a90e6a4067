package dto

import (
	"context"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/vircom/folio/internal/domain/document"
	ierr "github.com/vircom/folio/internal/errors"
	"github.com/vircom/folio/internal/types"
	"github.com/vircom/folio/internal/validator"
)

// CreateDocumentRequest creates a numbered document
type CreateDocumentRequest struct {
	DocumentType types.DocumentType `json:"document_type" validate:"required,doc_type" example:"quotation"`
	CustomerID   string             `json:"customer_id,omitempty"`
	Title        string             `json:"title,omitempty" validate:"max=255"`
	Notes        string             `json:"notes,omitempty"`
	Currency     string             `json:"currency,omitempty" validate:"omitempty,len=3"`
	Metadata     types.Metadata     `json:"metadata,omitempty"`

	// idempotency_key makes retries safe: a repeated key returns the
	// document created the first time without consuming another number
	IdempotencyKey *string `json:"idempotency_key,omitempty" validate:"omitempty,max=100"`

	LineItems []CreateLineItemRequest `json:"line_items,omitempty" validate:"dive"`
}

// CreateLineItemRequest is one priced row of a new document
type CreateLineItemRequest struct {
	ItemType    string          `json:"item_type,omitempty"`
	ItemRef     string          `json:"item_ref,omitempty"`
	Description string          `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity" swaggertype:"string"`
	UnitPrice   decimal.Decimal `json:"unit_price" swaggertype:"string"`
	Discount    decimal.Decimal `json:"discount" swaggertype:"string"`
}

func (r *CreateDocumentRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	for i, item := range r.LineItems {
		if item.Quantity.IsNegative() || item.UnitPrice.IsNegative() || item.Discount.IsNegative() {
			return ierr.NewError("negative line item value").
				WithHint("Quantity, unit price and discount must not be negative").
				WithReportableDetails(map[string]any{
					"line_item": i,
				}).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// ToDocument builds an unnumbered draft document with its line items
func (r *CreateDocumentRequest) ToDocument(ctx context.Context) *document.Document {
	doc := &document.Document{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DOCUMENT),
		DocumentType:   r.DocumentType,
		Status:         types.DocumentStatusDraft,
		CustomerID:     r.CustomerID,
		Title:          r.Title,
		Notes:          r.Notes,
		Currency:       strings.ToLower(r.Currency),
		IdempotencyKey: r.IdempotencyKey,
		Metadata:       r.Metadata,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}

	doc.LineItems = make([]*document.LineItem, 0, len(r.LineItems))
	for i, item := range r.LineItems {
		li := &document.LineItem{
			ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LINE_ITEM),
			TenantID:    doc.TenantID,
			DocumentID:  doc.ID,
			Position:    i + 1,
			ItemType:    item.ItemType,
			ItemRef:     item.ItemRef,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Discount:    item.Discount,
			CreatedAt:   doc.CreatedAt,
		}
		li.CalculateAmount()
		doc.LineItems = append(doc.LineItems, li)
	}
	doc.RecalculateTotals()
	return doc
}

// DocumentResponse is a document with its line items
type DocumentResponse struct {
	*document.Document
}

// ListDocumentsResponse represents a paginated list of documents
type ListDocumentsResponse = types.ListResponse[*DocumentResponse]

// ImportDocumentsRequest loads legacy documents that already carry numbers.
// The counter is not moved; a repair pass picks the numbers up.
type ImportDocumentsRequest struct {
	DocumentType types.DocumentType     `json:"document_type" validate:"required,doc_type"`
	Documents    []ImportDocumentRecord `json:"documents" validate:"required,min=1,max=1000,dive"`
	// repair_after runs a reconciliation pass once the import committed
	RepairAfter bool `json:"repair_after"`
}

// ImportDocumentRecord is one legacy document
type ImportDocumentRecord struct {
	DocumentNumber string               `json:"document_number" validate:"required,max=64"`
	Status         types.DocumentStatus `json:"status,omitempty"`
	CustomerID     string               `json:"customer_id,omitempty"`
	Title          string               `json:"title,omitempty"`
	Currency       string               `json:"currency,omitempty" validate:"omitempty,len=3"`
	Total          decimal.Decimal      `json:"total" swaggertype:"string"`
	CreatedAt      *time.Time           `json:"created_at,omitempty"`
}

func (r *ImportDocumentsRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(r.Documents))
	for _, rec := range r.Documents {
		if rec.Status != "" {
			if err := rec.Status.Validate(); err != nil {
				return err
			}
		}
		if _, dup := seen[rec.DocumentNumber]; dup {
			return ierr.NewError("duplicate document number in import").
				WithHintf("Document number %s appears more than once", rec.DocumentNumber).
				Mark(ierr.ErrValidation)
		}
		seen[rec.DocumentNumber] = struct{}{}
	}
	return nil
}

// ToDocument converts a legacy record. idempotencyKey ties the row to
// its source so a re-run import skips it.
func (rec *ImportDocumentRecord) ToDocument(ctx context.Context, documentType types.DocumentType, idempotencyKey string) *document.Document {
	doc := &document.Document{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DOCUMENT),
		DocumentType:   documentType,
		DocumentNumber: rec.DocumentNumber,
		Status:         lo.Ternary(rec.Status == "", types.DocumentStatusIssued, rec.Status),
		CustomerID:     rec.CustomerID,
		Title:          rec.Title,
		Currency:       strings.ToLower(rec.Currency),
		Subtotal:       rec.Total,
		Total:          rec.Total,
		IdempotencyKey: lo.ToPtr(idempotencyKey),
		Metadata:       types.Metadata{"imported": "true"},
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
	if rec.CreatedAt != nil {
		doc.CreatedAt = rec.CreatedAt.UTC()
	}
	return doc
}

// ImportDocumentsResponse reports an import run
type ImportDocumentsResponse struct {
	DocumentType types.DocumentType `json:"document_type"`
	Imported     int                `json:"imported"`
	Skipped      int                `json:"skipped"`
	Repair       *RepairReport      `json:"repair,omitempty"`
}

// BackfillNumbersResponse reports a backfill run
type BackfillNumbersResponse struct {
	DocumentType types.DocumentType `json:"document_type"`
	Updated      int                `json:"updated"`
	Failed       int                `json:"failed"`
	FailedIDs    []string           `json:"failed_ids,omitempty"`
}
