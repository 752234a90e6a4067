package sequence

import (
	"context"

	"github.com/vircom/folio/internal/types"
)

// Repository defines the persistence operations for sequence configs.
// All methods are scoped to the tenant in ctx.
type Repository interface {
	// Get returns the stored config for the type, or ErrNotFound when the
	// tenant has never allocated, repaired or configured it
	Get(ctx context.Context, documentType types.DocumentType) (*SequenceConfig, error)

	// List returns every stored config of the tenant
	List(ctx context.Context) ([]*SequenceConfig, error)

	// GetForUpdate returns the config for defaults.DocumentType, inserting
	// defaults when the row does not exist yet, and holds an exclusive lock
	// on it until the enclosing transaction ends. Must run inside a transaction.
	GetForUpdate(ctx context.Context, defaults *SequenceConfig) (*SequenceConfig, error)

	// UpdateCounter persists cfg.CurrentNumber. The stored value is never
	// lowered; an attempt to do so returns ErrInvalidOperation.
	UpdateCounter(ctx context.Context, cfg *SequenceConfig) error

	// UpdateFormat persists cfg.Prefix and cfg.Padding
	UpdateFormat(ctx context.Context, cfg *SequenceConfig) error

	// ListTenantIDs returns every tenant holding at least one config.
	// Not tenant scoped.
	ListTenantIDs(ctx context.Context) ([]string, error)
}
