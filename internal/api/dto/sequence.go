package dto

import (
	"time"

	"github.com/vircom/folio/internal/domain/sequence"
	"github.com/vircom/folio/internal/types"
	"github.com/vircom/folio/internal/validator"
)

// SequenceConfigResponse is the numbering state of one document type
type SequenceConfigResponse struct {
	DocumentType  types.DocumentType `json:"document_type" example:"quotation"`
	Prefix        string             `json:"prefix" example:"Q"`
	CurrentNumber int64              `json:"current_number" example:"41"`
	Padding       int                `json:"padding" example:"4"`
	NextNumber    string             `json:"next_number" example:"Q0042"`
	// persisted is false for defaults synthesized for a type never used
	Persisted bool       `json:"persisted"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func ToSequenceConfigResponse(cfg *sequence.SequenceConfig, persisted bool) *SequenceConfigResponse {
	resp := &SequenceConfigResponse{
		DocumentType:  cfg.DocumentType,
		Prefix:        cfg.Prefix,
		CurrentNumber: cfg.CurrentNumber,
		Padding:       cfg.Padding,
		NextNumber:    cfg.Next(),
		Persisted:     persisted,
	}
	if persisted {
		updatedAt := cfg.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}
	return resp
}

// ListSequenceConfigsResponse lists every known document type
type ListSequenceConfigsResponse struct {
	Items []*SequenceConfigResponse `json:"items"`
}

// UpdateSequenceConfigRequest changes how future numbers are rendered.
// Existing document numbers are never rewritten.
type UpdateSequenceConfigRequest struct {
	Prefix  string `json:"prefix" validate:"required,doc_prefix" example:"COT"`
	Padding int    `json:"padding" validate:"required,min=3,max=10" example:"5"`
	// acknowledge_legacy_numbers allows a prefix change while documents
	// numbered under the old prefix exist
	AcknowledgeLegacyNumbers bool `json:"acknowledge_legacy_numbers"`
}

func (r *UpdateSequenceConfigRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// UpdateSequenceConfigResponse reports the stored config and, for prefix
// changes, the legacy numbers folded into the counter beforehand
type UpdateSequenceConfigResponse struct {
	Config        *SequenceConfigResponse `json:"config"`
	PrefixChanged bool                    `json:"prefix_changed"`
	LegacyNumbers int                     `json:"legacy_numbers"`
	LegacyRepair  *RepairReport           `json:"legacy_repair,omitempty"`
}

// AllocateNumberResponse carries a reserved number
type AllocateNumberResponse struct {
	DocumentType   types.DocumentType `json:"document_type" example:"sale"`
	DocumentNumber string             `json:"document_number" example:"S0008"`
}

// PreviewNumberResponse shows the next number without reserving it
type PreviewNumberResponse struct {
	DocumentType types.DocumentType `json:"document_type" example:"sale"`
	NextNumber   string             `json:"next_number" example:"S0009"`
}

// RepairReport is the outcome of one reconciliation pass
type RepairReport struct {
	DocumentType   types.DocumentType `json:"document_type"`
	Prefix         string             `json:"prefix"`
	Scanned        int                `json:"scanned"`
	Parsed         int                `json:"parsed"`
	Malformed      int                `json:"malformed"`
	ForeignPrefix  int                `json:"foreign_prefix"`
	Samples        []string           `json:"samples,omitempty"`
	MaxFound       int64              `json:"max_found"`
	PreviousNumber int64              `json:"previous_number"`
	CurrentNumber  int64              `json:"current_number"`
	Repaired       bool               `json:"repaired"`
	DurationMs     int64              `json:"duration_ms"`
}

func NewRepairReport(documentType types.DocumentType, scan *sequence.NumberScan) *RepairReport {
	return &RepairReport{
		DocumentType:  documentType,
		Prefix:        scan.Prefix,
		Scanned:       scan.Scanned,
		Parsed:        scan.Parsed,
		Malformed:     scan.Malformed,
		ForeignPrefix: scan.ForeignPrefix,
		Samples:       scan.Samples,
		MaxFound:      scan.MaxFound,
	}
}

// ReconcileFailure names a type (and tenant, for cron runs) that could not be repaired
type ReconcileFailure struct {
	TenantID     string             `json:"tenant_id,omitempty"`
	DocumentType types.DocumentType `json:"document_type"`
	Error        string             `json:"error"`
}

// ReconcileAllResponse aggregates a repair of every type of a tenant
type ReconcileAllResponse struct {
	Reports  []*RepairReport     `json:"reports"`
	Failures []*ReconcileFailure `json:"failures,omitempty"`
	Repaired int                 `json:"repaired"`
}

// ReconcileTenantsResponse aggregates a scheduled run over all tenants
type ReconcileTenantsResponse struct {
	Tenants  int                 `json:"tenants"`
	Repaired int                 `json:"repaired"`
	Failures []*ReconcileFailure `json:"failures,omitempty"`
}
