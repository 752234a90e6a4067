package document

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vircom/folio/internal/types"
)

func TestLineItemCalculateAmount(t *testing.T) {
	tests := []struct {
		name      string
		quantity  string
		unitPrice string
		discount  string
		want      string
	}{
		{name: "no discount", quantity: "3", unitPrice: "10.50", discount: "0", want: "31.5"},
		{name: "with discount", quantity: "2", unitPrice: "100", discount: "15.25", want: "184.75"},
		{name: "discount larger than amount", quantity: "1", unitPrice: "5", discount: "9", want: "0"},
		{name: "fractional quantity", quantity: "0.5", unitPrice: "3", discount: "0", want: "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			li := &LineItem{
				Quantity:  decimal.RequireFromString(tt.quantity),
				UnitPrice: decimal.RequireFromString(tt.unitPrice),
				Discount:  decimal.RequireFromString(tt.discount),
			}
			li.CalculateAmount()
			assert.True(t, decimal.RequireFromString(tt.want).Equal(li.Amount), "got %s", li.Amount)
		})
	}
}

func TestDocumentClone(t *testing.T) {
	ctx := context.WithValue(context.Background(), types.CtxTenantID, "tenant_1")
	ctx = context.WithValue(ctx, types.CtxUserID, "user_2")

	source := &Document{
		ID:             "doc_source",
		DocumentType:   types.DocumentTypeQuotation,
		DocumentNumber: "Q0007",
		Status:         types.DocumentStatusIssued,
		CustomerID:     "cus_1",
		Title:          "Office chairs",
		Currency:       "usd",
		Metadata:       types.Metadata{"channel": "web"},
		BaseModel:      types.BaseModel{TenantID: "tenant_1", CreatedBy: "user_1"},
		LineItems: []*LineItem{
			{ID: "dli_1", DocumentID: "doc_source", Position: 1, Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(50), Amount: decimal.NewFromInt(100)},
			{ID: "dli_2", DocumentID: "doc_source", Position: 2, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(20), Amount: decimal.NewFromInt(20)},
		},
	}
	source.RecalculateTotals()

	clone := source.Clone(ctx)

	assert.NotEqual(t, source.ID, clone.ID)
	assert.Empty(t, clone.DocumentNumber)
	assert.Equal(t, types.DocumentStatusDraft, clone.Status)
	assert.Equal(t, "user_2", clone.CreatedBy)
	require.NotNil(t, clone.SourceDocumentID)
	assert.Equal(t, source.ID, *clone.SourceDocumentID)
	assert.Equal(t, source.CustomerID, clone.CustomerID)
	assert.Equal(t, source.Title, clone.Title)
	assert.True(t, decimal.NewFromInt(120).Equal(clone.Total))

	clone.Metadata["channel"] = "api"
	assert.Equal(t, "web", source.Metadata["channel"])

	require.Len(t, clone.LineItems, 2)
	for i, item := range clone.LineItems {
		assert.NotEqual(t, source.LineItems[i].ID, item.ID)
		assert.Equal(t, clone.ID, item.DocumentID)
		assert.Equal(t, source.LineItems[i].Position, item.Position)
		assert.True(t, source.LineItems[i].Amount.Equal(item.Amount))
	}
}
