package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vircom/folio/internal/api/dto"
	"github.com/vircom/folio/internal/domain/document"
	"github.com/vircom/folio/internal/domain/sequence"
	"github.com/vircom/folio/internal/testutil"
	"github.com/vircom/folio/internal/types"
)

// newQuotationRequest is a two item quotation totalling 22.50
func newQuotationRequest() dto.CreateDocumentRequest {
	return dto.CreateDocumentRequest{
		DocumentType: types.DocumentTypeQuotation,
		CustomerID:   "cust_1",
		Title:        "Office chairs",
		Currency:     "USD",
		Metadata:     types.Metadata{"channel": "web"},
		LineItems: []dto.CreateLineItemRequest{
			{
				Description: "Chair",
				Quantity:    decimal.NewFromInt(2),
				UnitPrice:   decimal.NewFromInt(10),
				Discount:    decimal.NewFromInt(5),
			},
			{
				Description: "Delivery",
				Quantity:    decimal.NewFromInt(1),
				UnitPrice:   decimal.RequireFromString("7.50"),
			},
		},
	}
}

func newTestServiceParams(s *testutil.BaseServiceTestSuite) ServiceParams {
	stores := s.GetStores()
	return NewServiceParams(
		s.GetLogger(),
		s.GetConfig(),
		s.GetDB(),
		s.GetCache(),
		stores.SequenceRepo,
		stores.DocumentRepo,
		stores.LineItemRepo,
	)
}

// seedConfig stores a sequence config for the tenant in ctx
func seedConfig(ctx context.Context, store *testutil.InMemorySequenceStore, documentType types.DocumentType, prefix string, current int64, padding int) {
	cfg := sequence.NewDefault(ctx, documentType)
	cfg.Prefix = prefix
	cfg.CurrentNumber = current
	cfg.Padding = padding
	store.Seed(ctx, cfg)
}

// seedDocument stores a document carrying number directly, bypassing the allocator
func seedDocument(ctx context.Context, store *testutil.InMemoryDocumentStore, documentType types.DocumentType, number string) *document.Document {
	doc := &document.Document{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DOCUMENT),
		DocumentType:   documentType,
		DocumentNumber: number,
		Status:         types.DocumentStatusIssued,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
	if err := store.Create(ctx, doc); err != nil {
		panic(err)
	}
	return doc
}

// seedUnnumbered stores a document without a number created at createdAt
func seedUnnumbered(ctx context.Context, store *testutil.InMemoryDocumentStore, documentType types.DocumentType, createdAt time.Time) *document.Document {
	doc := &document.Document{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DOCUMENT),
		DocumentType: documentType,
		Status:       types.DocumentStatusDraft,
		BaseModel:    types.GetDefaultBaseModel(ctx),
	}
	doc.CreatedAt = createdAt
	if err := store.Create(ctx, doc); err != nil {
		panic(err)
	}
	return doc
}

func storedCounter(ctx context.Context, store *testutil.InMemorySequenceStore, documentType types.DocumentType) int64 {
	cfg, err := store.Get(ctx, documentType)
	if err != nil {
		return 0
	}
	return cfg.CurrentNumber
}
