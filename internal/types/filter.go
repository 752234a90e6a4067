package types

import (
	"github.com/samber/lo"
	ierr "github.com/vircom/folio/internal/errors"
)

const (
	FILTER_DEFAULT_LIMIT = 50
	FILTER_MAX_LIMIT     = 1000

	OrderDesc = "desc"
	OrderAsc  = "asc"
)

// DocumentFilter narrows document listings for the tenant in context
type DocumentFilter struct {
	Limit        *int            `json:"limit,omitempty" form:"limit" validate:"omitempty,min=1,max=1000"`
	Offset       *int            `json:"offset,omitempty" form:"offset" validate:"omitempty,min=0"`
	Order        *string         `json:"order,omitempty" form:"order" validate:"omitempty,oneof=asc desc"`
	DocumentType *DocumentType   `json:"document_type,omitempty" form:"document_type"`
	Status       *DocumentStatus `json:"status,omitempty" form:"status"`
	CustomerID   *string         `json:"customer_id,omitempty" form:"customer_id"`
}

func NewDefaultDocumentFilter() *DocumentFilter {
	return &DocumentFilter{
		Limit:  lo.ToPtr(FILTER_DEFAULT_LIMIT),
		Offset: lo.ToPtr(0),
		Order:  lo.ToPtr(OrderDesc),
	}
}

func (f *DocumentFilter) GetLimit() int {
	if f == nil || f.Limit == nil {
		return FILTER_DEFAULT_LIMIT
	}
	return *f.Limit
}

func (f *DocumentFilter) GetOffset() int {
	if f == nil || f.Offset == nil {
		return 0
	}
	return *f.Offset
}

func (f *DocumentFilter) GetOrder() string {
	if f == nil || f.Order == nil {
		return OrderDesc
	}
	return *f.Order
}

func (f *DocumentFilter) Validate() error {
	if f == nil {
		return nil
	}
	if f.Limit != nil && (*f.Limit < 1 || *f.Limit > FILTER_MAX_LIMIT) {
		return ierr.NewError("invalid limit").
			WithHintf("Limit must be between 1 and %d", FILTER_MAX_LIMIT).
			Mark(ierr.ErrValidation)
	}
	if f.Offset != nil && *f.Offset < 0 {
		return ierr.NewError("invalid offset").
			WithHint("Offset must be non-negative").
			Mark(ierr.ErrValidation)
	}
	if f.Order != nil && *f.Order != OrderAsc && *f.Order != OrderDesc {
		return ierr.NewError("invalid order").
			WithHint("Order must be asc or desc").
			Mark(ierr.ErrValidation)
	}
	if f.DocumentType != nil {
		if err := f.DocumentType.Validate(); err != nil {
			return err
		}
	}
	if f.Status != nil {
		if err := f.Status.Validate(); err != nil {
			return err
		}
	}
	return nil
}
