package sequence

import (
	"context"
	"strings"
	"time"

	ierr "github.com/vircom/folio/internal/errors"
	"github.com/vircom/folio/internal/types"
	"github.com/vircom/folio/internal/validator"
)

const (
	DefaultPadding  = 4
	MinPadding      = 3
	MaxPadding      = 10
	MaxPrefixLength = 10
)

// SequenceConfig is the numbering state of one document type for one tenant.
// CurrentNumber is the last number handed out; it never decreases.
type SequenceConfig struct {
	ID            string             `db:"id" json:"id"`
	TenantID      string             `db:"tenant_id" json:"tenant_id"`
	DocumentType  types.DocumentType `db:"document_type" json:"document_type"`
	Prefix        string             `db:"prefix" json:"prefix"`
	CurrentNumber int64              `db:"current_number" json:"current_number"`
	Padding       int                `db:"padding" json:"padding"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updated_at"`
}

// DefaultPrefix is the uppercase first letter of the document type
func DefaultPrefix(documentType types.DocumentType) string {
	if documentType == "" {
		return ""
	}
	return strings.ToUpper(string(documentType)[:1])
}

// NewDefault builds the config used when a tenant has never touched a type.
// It is not persisted until the first allocation, repair or update.
func NewDefault(ctx context.Context, documentType types.DocumentType) *SequenceConfig {
	now := time.Now().UTC()
	return &SequenceConfig{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SEQUENCE_CONFIG),
		TenantID:      types.GetTenantID(ctx),
		DocumentType:  documentType,
		Prefix:        DefaultPrefix(documentType),
		CurrentNumber: 0,
		Padding:       DefaultPadding,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Formatted renders n with this config's prefix and padding
func (c *SequenceConfig) Formatted(n int64) string {
	return Format(c.Prefix, n, c.Padding)
}

// Next is the number the next allocation would hand out
func (c *SequenceConfig) Next() string {
	return c.Formatted(c.CurrentNumber + 1)
}

// ValidateFormat checks prefix and padding bounds
func ValidateFormat(prefix string, padding int) error {
	if !validator.IsValidPrefix(prefix) {
		return ierr.NewError("invalid prefix").
			WithHintf("Prefix must be 1 to %d letters or digits and end with a letter", MaxPrefixLength).
			WithReportableDetails(map[string]any{
				"prefix": prefix,
			}).
			Mark(ierr.ErrValidation)
	}
	if padding < MinPadding || padding > MaxPadding {
		return ierr.NewError("invalid padding").
			WithHintf("Padding must be between %d and %d", MinPadding, MaxPadding).
			WithReportableDetails(map[string]any{
				"padding": padding,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
