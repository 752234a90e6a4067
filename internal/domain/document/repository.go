package document

import (
	"context"
	"time"

	"github.com/vircom/folio/internal/types"
)

// Repository defines the persistence operations for documents.
// All methods are scoped to the tenant in ctx unless stated otherwise.
type Repository interface {
	// Create inserts the document header. Line items are stored separately.
	Create(ctx context.Context, doc *Document) error

	// Get retrieves a document by ID without its line items
	Get(ctx context.Context, id string) (*Document, error)

	// GetByIdempotencyKey retrieves the document created with key
	GetByIdempotencyKey(ctx context.Context, key string) (*Document, error)

	// List retrieves documents matching filter
	List(ctx context.Context, filter *types.DocumentFilter) ([]*Document, error)

	// Count returns the number of documents matching filter
	Count(ctx context.Context, filter *types.DocumentFilter) (int, error)

	// NumberExists reports whether a document of the type already carries number
	NumberExists(ctx context.Context, documentType types.DocumentType, number string) (bool, error)

	// ScanNumbers returns up to limit numbered documents of the type with
	// ID greater than afterID, ordered by ID. No rows are locked.
	ScanNumbers(ctx context.Context, documentType types.DocumentType, afterID string, limit int) ([]*NumberRef, error)

	// ListUnnumbered returns up to limit documents of the type without a
	// number, oldest first, strictly after the cursor when one is given
	ListUnnumbered(ctx context.Context, documentType types.DocumentType, after *UnnumberedCursor, limit int) ([]*Document, error)

	// SetNumber assigns a number to a document that has none. Returns
	// ErrInvalidOperation when the document is already numbered.
	SetNumber(ctx context.Context, id string, number string) error

	// ListTenantIDs returns every tenant holding at least one document.
	// Not tenant scoped.
	ListTenantIDs(ctx context.Context) ([]string, error)
}

// UnnumberedCursor is a position in (created_at, id) order
type UnnumberedCursor struct {
	CreatedAt time.Time
	ID        string
}

// CursorAfter returns the cursor positioned on doc
func CursorAfter(doc *Document) *UnnumberedCursor {
	return &UnnumberedCursor{CreatedAt: doc.CreatedAt, ID: doc.ID}
}

// LineItemRepository defines the persistence operations for line items
type LineItemRepository interface {
	// CreateMany inserts items in order; the whole batch belongs to the
	// caller's transaction
	CreateMany(ctx context.Context, items []*LineItem) error

	// ListByDocument returns the items of a document ordered by position
	ListByDocument(ctx context.Context, documentID string) ([]*LineItem, error)
}
