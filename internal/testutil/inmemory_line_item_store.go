package testutil

import (
	"context"

	"github.com/samber/lo"
	"github.com/vircom/folio/internal/domain/document"
	"github.com/vircom/folio/internal/types"
)

var _ document.LineItemRepository = (*InMemoryLineItemStore)(nil)

// InMemoryLineItemStore implements document.LineItemRepository
type InMemoryLineItemStore struct {
	*InMemoryStore[*document.LineItem]
	failOn func(item *document.LineItem) error
}

func NewInMemoryLineItemStore() *InMemoryLineItemStore {
	return &InMemoryLineItemStore{
		InMemoryStore: NewInMemoryStore[*document.LineItem](),
	}
}

// FailOn installs a hook consulted before every insert; a non-nil result
// aborts the batch with that error
func (s *InMemoryLineItemStore) FailOn(fn func(item *document.LineItem) error) {
	s.failOn = fn
}

func (s *InMemoryLineItemStore) CreateMany(ctx context.Context, items []*document.LineItem) error {
	for _, item := range items {
		if s.failOn != nil {
			if err := s.failOn(item); err != nil {
				return err
			}
		}
		c := *item
		if err := s.InMemoryStore.Create(ctx, item.ID, &c); err != nil {
			return err
		}
	}
	return nil
}

func (s *InMemoryLineItemStore) ListByDocument(ctx context.Context, documentID string) ([]*document.LineItem, error) {
	tenantID := types.GetTenantID(ctx)
	items := s.InMemoryStore.List(ctx, func(_ context.Context, item *document.LineItem) bool {
		return item.TenantID == tenantID && item.DocumentID == documentID
	}, func(a, b *document.LineItem) bool {
		if a.Position == b.Position {
			return a.ID < b.ID
		}
		return a.Position < b.Position
	})
	return lo.Map(items, func(item *document.LineItem, _ int) *document.LineItem {
		c := *item
		return &c
	}), nil
}
