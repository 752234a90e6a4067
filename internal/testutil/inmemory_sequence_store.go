package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/vircom/folio/internal/domain/sequence"
	ierr "github.com/vircom/folio/internal/errors"
	"github.com/vircom/folio/internal/types"
)

var _ sequence.Repository = (*InMemorySequenceStore)(nil)

// InMemorySequenceStore implements sequence.Repository
type InMemorySequenceStore struct {
	*InMemoryStore[*sequence.SequenceConfig]
	updateErr error
}

func NewInMemorySequenceStore() *InMemorySequenceStore {
	return &InMemorySequenceStore{
		InMemoryStore: NewInMemoryStore[*sequence.SequenceConfig](),
	}
}

func sequenceKey(tenantID string, documentType types.DocumentType) string {
	return tenantID + "|" + string(documentType)
}

func copySequenceConfig(cfg *sequence.SequenceConfig) *sequence.SequenceConfig {
	if cfg == nil {
		return nil
	}
	c := *cfg
	return &c
}

// FailUpdates makes every following counter update return err until reset with nil
func (s *InMemorySequenceStore) FailUpdates(err error) {
	s.updateErr = err
}

// Seed stores cfg as-is for the tenant it names
func (s *InMemorySequenceStore) Seed(ctx context.Context, cfg *sequence.SequenceConfig) {
	key := sequenceKey(cfg.TenantID, cfg.DocumentType)
	if err := s.InMemoryStore.Create(ctx, key, copySequenceConfig(cfg)); err != nil {
		_ = s.InMemoryStore.Update(ctx, key, copySequenceConfig(cfg))
	}
}

func (s *InMemorySequenceStore) Get(ctx context.Context, documentType types.DocumentType) (*sequence.SequenceConfig, error) {
	cfg, err := s.InMemoryStore.Get(ctx, sequenceKey(types.GetTenantID(ctx), documentType))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Sequence config for %s not found", documentType).
			Mark(ierr.ErrNotFound)
	}
	return copySequenceConfig(cfg), nil
}

func (s *InMemorySequenceStore) List(ctx context.Context) ([]*sequence.SequenceConfig, error) {
	tenantID := types.GetTenantID(ctx)
	configs := s.InMemoryStore.List(ctx,
		func(_ context.Context, cfg *sequence.SequenceConfig) bool { return cfg.TenantID == tenantID },
		func(a, b *sequence.SequenceConfig) bool { return a.DocumentType < b.DocumentType },
	)
	return lo.Map(configs, func(cfg *sequence.SequenceConfig, _ int) *sequence.SequenceConfig {
		return copySequenceConfig(cfg)
	}), nil
}

func (s *InMemorySequenceStore) GetForUpdate(ctx context.Context, defaults *sequence.SequenceConfig) (*sequence.SequenceConfig, error) {
	if !InTx(ctx) {
		return nil, ierr.NewError("sequence lock requires a transaction").Mark(ierr.ErrSystem)
	}

	key := sequenceKey(types.GetTenantID(ctx), defaults.DocumentType)
	cfg, err := s.InMemoryStore.Get(ctx, key)
	if err == nil {
		return copySequenceConfig(cfg), nil
	}

	created := copySequenceConfig(defaults)
	created.TenantID = types.GetTenantID(ctx)
	if err := s.InMemoryStore.Create(ctx, key, created); err != nil {
		return nil, err
	}
	return copySequenceConfig(created), nil
}

func (s *InMemorySequenceStore) UpdateCounter(ctx context.Context, cfg *sequence.SequenceConfig) error {
	if s.updateErr != nil {
		return s.updateErr
	}

	key := sequenceKey(types.GetTenantID(ctx), cfg.DocumentType)
	stored, err := s.InMemoryStore.Get(ctx, key)
	if err != nil {
		return ierr.NewError("sequence counter cannot move backwards").Mark(ierr.ErrInvalidOperation)
	}
	if cfg.CurrentNumber < stored.CurrentNumber {
		return ierr.NewError("sequence counter cannot move backwards").Mark(ierr.ErrInvalidOperation)
	}

	updated := copySequenceConfig(stored)
	updated.CurrentNumber = cfg.CurrentNumber
	updated.UpdatedAt = time.Now().UTC()
	return s.InMemoryStore.Update(ctx, key, updated)
}

func (s *InMemorySequenceStore) UpdateFormat(ctx context.Context, cfg *sequence.SequenceConfig) error {
	key := sequenceKey(types.GetTenantID(ctx), cfg.DocumentType)
	stored, err := s.InMemoryStore.Get(ctx, key)
	if err != nil {
		return err
	}

	updated := copySequenceConfig(stored)
	updated.Prefix = cfg.Prefix
	updated.Padding = cfg.Padding
	updated.UpdatedAt = time.Now().UTC()
	return s.InMemoryStore.Update(ctx, key, updated)
}

func (s *InMemorySequenceStore) ListTenantIDs(ctx context.Context) ([]string, error) {
	configs := s.InMemoryStore.List(ctx, nil, nil)
	tenantIDs := lo.Uniq(lo.Map(configs, func(cfg *sequence.SequenceConfig, _ int) string { return cfg.TenantID }))
	sort.Strings(tenantIDs)
	return tenantIDs, nil
}
