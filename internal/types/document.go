package types

import (
	"sort"

	"github.com/samber/lo"
	ierr "github.com/vircom/folio/internal/errors"
)

// DocumentType is a category of numbered document with its own independent sequence
type DocumentType string

const (
	DocumentTypeQuotation     DocumentType = "quotation"
	DocumentTypeSale          DocumentType = "sale"
	DocumentTypePurchaseOrder DocumentType = "purchase_order"
	DocumentTypeOrder         DocumentType = "order"
	DocumentTypePurchase      DocumentType = "purchase"
	DocumentTypeClient        DocumentType = "client"
	DocumentTypeAppointment   DocumentType = "appointment"
	DocumentTypeTool          DocumentType = "tool"
	DocumentTypeSupplier      DocumentType = "supplier"
	DocumentTypeProduct       DocumentType = "product"
	DocumentTypeService       DocumentType = "service"
	DocumentTypeMaintenance   DocumentType = "maintenance"
	DocumentTypePayroll       DocumentType = "payroll"
	DocumentTypeLoan          DocumentType = "loan"
	DocumentTypeRental        DocumentType = "rental"
	DocumentTypeTicket        DocumentType = "ticket"
	DocumentTypeTransfer      DocumentType = "transfer"
	DocumentTypeVacation      DocumentType = "vacation"
)

var knownDocumentTypes = []DocumentType{
	DocumentTypeQuotation,
	DocumentTypeSale,
	DocumentTypePurchaseOrder,
	DocumentTypeOrder,
	DocumentTypePurchase,
	DocumentTypeClient,
	DocumentTypeAppointment,
	DocumentTypeTool,
	DocumentTypeSupplier,
	DocumentTypeProduct,
	DocumentTypeService,
	DocumentTypeMaintenance,
	DocumentTypePayroll,
	DocumentTypeLoan,
	DocumentTypeRental,
	DocumentTypeTicket,
	DocumentTypeTransfer,
	DocumentTypeVacation,
}

func (t DocumentType) String() string {
	return string(t)
}

// Validate rejects document types that have no registered sequence
func (t DocumentType) Validate() error {
	if t == "" {
		return ierr.NewError("document type is required").
			WithHint("Document type is required").
			Mark(ierr.ErrValidation)
	}

	if !lo.Contains(knownDocumentTypes, t) {
		return ierr.NewError("unknown document type").
			WithHintf("Unknown document type %q", string(t)).
			WithReportableDetails(map[string]any{
				"document_type": string(t),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// KnownDocumentTypes returns the registered document types sorted by name
func KnownDocumentTypes() []DocumentType {
	out := make([]DocumentType, len(knownDocumentTypes))
	copy(out, knownDocumentTypes)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DocumentStatus is the lifecycle status of a document
type DocumentStatus string

const (
	DocumentStatusDraft     DocumentStatus = "draft"
	DocumentStatusIssued    DocumentStatus = "issued"
	DocumentStatusCancelled DocumentStatus = "cancelled"
)

func (s DocumentStatus) Validate() error {
	allowed := []DocumentStatus{
		DocumentStatusDraft,
		DocumentStatusIssued,
		DocumentStatusCancelled,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid document status").
			WithHintf("Document status must be one of %v", allowed).
			Mark(ierr.ErrValidation)
	}
	return nil
}
