package document

import (
	"context"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/vircom/folio/internal/types"
)

// Document is a numbered business document (quotation, sale, ticket...).
// DocumentNumber is empty until a number has been assigned and is
// immutable afterwards.
type Document struct {
	ID               string               `db:"id" json:"id"`
	DocumentType     types.DocumentType   `db:"document_type" json:"document_type"`
	DocumentNumber   string               `db:"document_number" json:"document_number"`
	Status           types.DocumentStatus `db:"status" json:"status"`
	CustomerID       string               `db:"customer_id" json:"customer_id,omitempty"`
	Title            string               `db:"title" json:"title,omitempty"`
	Notes            string               `db:"notes" json:"notes,omitempty"`
	Currency         string               `db:"currency" json:"currency,omitempty"`
	Subtotal         decimal.Decimal      `db:"subtotal" json:"subtotal"`
	Total            decimal.Decimal      `db:"total" json:"total"`
	SourceDocumentID *string              `db:"source_document_id" json:"source_document_id,omitempty"`
	IdempotencyKey   *string              `db:"idempotency_key" json:"idempotency_key,omitempty"`
	Metadata         types.Metadata       `db:"metadata" json:"metadata,omitempty"`
	LineItems        []*LineItem          `db:"-" json:"line_items,omitempty"`
	types.BaseModel
}

// IsNumbered reports whether a number has been assigned
func (d *Document) IsNumbered() bool {
	return d.DocumentNumber != ""
}

// RecalculateTotals sums the line item amounts into Subtotal and Total
func (d *Document) RecalculateTotals() {
	subtotal := decimal.Zero
	for _, item := range d.LineItems {
		subtotal = subtotal.Add(item.Amount)
	}
	d.Subtotal = subtotal
	d.Total = subtotal
}

// Clone copies the domain fields of d into a new draft document owned by
// the caller in ctx. Identity, number, status and audit fields are reset;
// line items are copied and re-pointed at the clone.
func (d *Document) Clone(ctx context.Context) *Document {
	clone := &Document{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DOCUMENT),
		DocumentType:     d.DocumentType,
		Status:           types.DocumentStatusDraft,
		CustomerID:       d.CustomerID,
		Title:            d.Title,
		Notes:            d.Notes,
		Currency:         d.Currency,
		Subtotal:         d.Subtotal,
		Total:            d.Total,
		SourceDocumentID: lo.ToPtr(d.ID),
		Metadata:         lo.Assign(map[string]string(d.Metadata)),
		BaseModel:        types.GetDefaultBaseModel(ctx),
	}

	clone.LineItems = make([]*LineItem, 0, len(d.LineItems))
	for _, item := range d.LineItems {
		clone.LineItems = append(clone.LineItems, item.CopyTo(clone))
	}
	return clone
}

// LineItem is a single priced row of a document
type LineItem struct {
	ID          string          `db:"id" json:"id"`
	TenantID    string          `db:"tenant_id" json:"tenant_id"`
	DocumentID  string          `db:"document_id" json:"document_id"`
	Position    int             `db:"position" json:"position"`
	ItemType    string          `db:"item_type" json:"item_type,omitempty"`
	ItemRef     string          `db:"item_ref" json:"item_ref,omitempty"`
	Description string          `db:"description" json:"description,omitempty"`
	Quantity    decimal.Decimal `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	Discount    decimal.Decimal `db:"discount" json:"discount"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// CalculateAmount sets Amount = Quantity * UnitPrice - Discount, floored at zero
func (li *LineItem) CalculateAmount() {
	amount := li.Quantity.Mul(li.UnitPrice).Sub(li.Discount)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	li.Amount = amount
}

// CopyTo returns a copy of the line item attached to doc
func (li *LineItem) CopyTo(doc *Document) *LineItem {
	return &LineItem{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LINE_ITEM),
		TenantID:    doc.TenantID,
		DocumentID:  doc.ID,
		Position:    li.Position,
		ItemType:    li.ItemType,
		ItemRef:     li.ItemRef,
		Description: li.Description,
		Quantity:    li.Quantity,
		UnitPrice:   li.UnitPrice,
		Discount:    li.Discount,
		Amount:      li.Amount,
		CreatedAt:   doc.CreatedAt,
	}
}

// NumberRef is the projection read by reconciliation scans
type NumberRef struct {
	ID             string `db:"id"`
	DocumentNumber string `db:"document_number"`
}
