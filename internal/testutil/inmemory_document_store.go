package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/vircom/folio/internal/domain/document"
	ierr "github.com/vircom/folio/internal/errors"
	"github.com/vircom/folio/internal/types"
)

var _ document.Repository = (*InMemoryDocumentStore)(nil)

// InMemoryDocumentStore implements document.Repository
type InMemoryDocumentStore struct {
	*InMemoryStore[*document.Document]

	// guards the uniqueness check and the insert as one step
	createMu sync.Mutex

	scanMu        sync.Mutex
	scanFailAfter int
	scanErr       error
	scanned       int

	setNumberErr func(id string) error
}

func NewInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{
		InMemoryStore: NewInMemoryStore[*document.Document](),
	}
}

func copyDocument(doc *document.Document) *document.Document {
	if doc == nil {
		return nil
	}
	d := *doc
	d.LineItems = nil
	if doc.Metadata != nil {
		d.Metadata = lo.Assign(map[string]string(doc.Metadata))
	}
	return &d
}

// FailScanAfter makes ScanNumbers return err once n references have been
// handed out. A nil err disables the failure.
func (s *InMemoryDocumentStore) FailScanAfter(n int, err error) {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	s.scanFailAfter = n
	s.scanErr = err
	s.scanned = 0
}

// FailSetNumber makes SetNumber return the error fn reports for a document
// id. A nil fn disables the failure.
func (s *InMemoryDocumentStore) FailSetNumber(fn func(id string) error) {
	s.createMu.Lock()
	defer s.createMu.Unlock()
	s.setNumberErr = fn
}

func (s *InMemoryDocumentStore) Create(ctx context.Context, doc *document.Document) error {
	s.createMu.Lock()
	defer s.createMu.Unlock()

	clash := s.InMemoryStore.List(ctx, func(_ context.Context, d *document.Document) bool {
		if d.TenantID != doc.TenantID {
			return false
		}
		if doc.DocumentNumber != "" && d.DocumentType == doc.DocumentType && d.DocumentNumber == doc.DocumentNumber {
			return true
		}
		return doc.IdempotencyKey != nil && d.IdempotencyKey != nil && *d.IdempotencyKey == *doc.IdempotencyKey
	}, nil)
	if len(clash) > 0 {
		return ierr.NewError("duplicate document").
			WithHint("A document with the same number or idempotency key already exists").
			WithReportableDetails(map[string]any{
				"document_id":     doc.ID,
				"document_number": doc.DocumentNumber,
			}).
			Mark(ierr.ErrAlreadyExists)
	}

	return s.InMemoryStore.Create(ctx, doc.ID, copyDocument(doc))
}

func (s *InMemoryDocumentStore) Get(ctx context.Context, id string) (*document.Document, error) {
	doc, err := s.InMemoryStore.Get(ctx, id)
	if err != nil || doc.TenantID != types.GetTenantID(ctx) {
		return nil, ierr.NewErrorf("document %s not found", id).
			WithHintf("Document %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return copyDocument(doc), nil
}

func (s *InMemoryDocumentStore) GetByIdempotencyKey(ctx context.Context, key string) (*document.Document, error) {
	tenantID := types.GetTenantID(ctx)
	docs := s.InMemoryStore.List(ctx, func(_ context.Context, d *document.Document) bool {
		return d.TenantID == tenantID && d.IdempotencyKey != nil && *d.IdempotencyKey == key
	}, nil)
	if len(docs) == 0 {
		return nil, ierr.NewError("document not found").
			WithHint("Document not found for idempotency key").
			Mark(ierr.ErrNotFound)
	}
	return copyDocument(docs[0]), nil
}

func documentFilterFn(filter *types.DocumentFilter) FilterFunc[*document.Document] {
	return func(ctx context.Context, d *document.Document) bool {
		if d.TenantID != types.GetTenantID(ctx) {
			return false
		}
		if filter == nil {
			return true
		}
		if filter.DocumentType != nil && d.DocumentType != *filter.DocumentType {
			return false
		}
		if filter.Status != nil && d.Status != *filter.Status {
			return false
		}
		if filter.CustomerID != nil && d.CustomerID != *filter.CustomerID {
			return false
		}
		return true
	}
}

func byCreatedAt(a, b *document.Document) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func (s *InMemoryDocumentStore) List(ctx context.Context, filter *types.DocumentFilter) ([]*document.Document, error) {
	sortFn := func(a, b *document.Document) bool { return byCreatedAt(b, a) }
	if filter.GetOrder() == types.OrderAsc {
		sortFn = byCreatedAt
	}

	docs := s.InMemoryStore.List(ctx, documentFilterFn(filter), sortFn)
	docs = paginate(docs, filter.GetLimit(), filter.GetOffset())
	return lo.Map(docs, func(d *document.Document, _ int) *document.Document { return copyDocument(d) }), nil
}

func (s *InMemoryDocumentStore) Count(ctx context.Context, filter *types.DocumentFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, documentFilterFn(filter)), nil
}

func (s *InMemoryDocumentStore) NumberExists(ctx context.Context, documentType types.DocumentType, number string) (bool, error) {
	tenantID := types.GetTenantID(ctx)
	return s.InMemoryStore.Count(ctx, func(_ context.Context, d *document.Document) bool {
		return d.TenantID == tenantID && d.DocumentType == documentType && d.DocumentNumber == number
	}) > 0, nil
}

func (s *InMemoryDocumentStore) ScanNumbers(ctx context.Context, documentType types.DocumentType, afterID string, limit int) ([]*document.NumberRef, error) {
	tenantID := types.GetTenantID(ctx)
	docs := s.InMemoryStore.List(ctx, func(_ context.Context, d *document.Document) bool {
		return d.TenantID == tenantID &&
			d.DocumentType == documentType &&
			d.DocumentNumber != "" &&
			strings.Compare(d.ID, afterID) > 0
	}, func(a, b *document.Document) bool { return a.ID < b.ID })
	docs = paginate(docs, limit, 0)

	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	if s.scanErr != nil && s.scanned+len(docs) > s.scanFailAfter {
		return nil, ierr.WithError(s.scanErr).
			WithHint("A database error occurred").
			Mark(ierr.ErrDatabase)
	}
	s.scanned += len(docs)

	return lo.Map(docs, func(d *document.Document, _ int) *document.NumberRef {
		return &document.NumberRef{ID: d.ID, DocumentNumber: d.DocumentNumber}
	}), nil
}

func (s *InMemoryDocumentStore) ListUnnumbered(ctx context.Context, documentType types.DocumentType, after *document.UnnumberedCursor, limit int) ([]*document.Document, error) {
	tenantID := types.GetTenantID(ctx)
	docs := s.InMemoryStore.List(ctx, func(_ context.Context, d *document.Document) bool {
		if d.TenantID != tenantID || d.DocumentType != documentType || d.DocumentNumber != "" {
			return false
		}
		return after == nil || byCreatedAt(&document.Document{
			ID:        after.ID,
			BaseModel: types.BaseModel{CreatedAt: after.CreatedAt},
		}, d)
	}, byCreatedAt)
	docs = paginate(docs, limit, 0)
	return lo.Map(docs, func(d *document.Document, _ int) *document.Document { return copyDocument(d) }), nil
}

func (s *InMemoryDocumentStore) SetNumber(ctx context.Context, id string, number string) error {
	s.createMu.Lock()
	defer s.createMu.Unlock()

	if s.setNumberErr != nil {
		if err := s.setNumberErr(id); err != nil {
			return err
		}
	}

	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if doc.DocumentNumber != "" {
		return ierr.NewError("document already numbered").
			WithHint("Document numbers cannot be changed once assigned").
			Mark(ierr.ErrInvalidOperation)
	}
	if exists, _ := s.NumberExists(ctx, doc.DocumentType, number); exists {
		return ierr.NewError("duplicate document number").
			WithHint("A document with the same number or idempotency key already exists").
			Mark(ierr.ErrAlreadyExists)
	}

	doc.DocumentNumber = number
	doc.UpdatedAt = time.Now().UTC()
	doc.UpdatedBy = types.GetUserID(ctx)
	return s.InMemoryStore.Update(ctx, id, doc)
}

func (s *InMemoryDocumentStore) ListTenantIDs(ctx context.Context) ([]string, error) {
	docs := s.InMemoryStore.List(ctx, nil, nil)
	tenantIDs := lo.Uniq(lo.Map(docs, func(d *document.Document, _ int) string { return d.TenantID }))
	sort.Strings(tenantIDs)
	return tenantIDs, nil
}
