package service

import (
	"context"

	"github.com/vircom/folio/internal/api/dto"
	"github.com/vircom/folio/internal/domain/sequence"
	ierr "github.com/vircom/folio/internal/errors"
	"github.com/vircom/folio/internal/types"
)

// SequenceService hands out document numbers and manages their format
type SequenceService interface {
	// Allocate reserves the next number as its own unit of work, retrying
	// on contention
	Allocate(ctx context.Context, documentType types.DocumentType) (*dto.AllocateNumberResponse, error)

	// NextNumber reserves the next number inside the caller's transaction
	// (or a new one). The reservation commits or rolls back with it.
	NextNumber(ctx context.Context, documentType types.DocumentType) (string, error)

	// PreviewNext returns the number the next allocation would produce
	// without reserving it
	PreviewNext(ctx context.Context, documentType types.DocumentType) (*dto.PreviewNumberResponse, error)

	GetConfig(ctx context.Context, documentType types.DocumentType) (*dto.SequenceConfigResponse, error)
	ListConfigs(ctx context.Context) (*dto.ListSequenceConfigsResponse, error)
	UpdateConfig(ctx context.Context, documentType types.DocumentType, req dto.UpdateSequenceConfigRequest) (*dto.UpdateSequenceConfigResponse, error)
}

type sequenceService struct {
	ServiceParams
}

func NewSequenceService(params ServiceParams) SequenceService {
	return &sequenceService{
		ServiceParams: params,
	}
}

func (s *sequenceService) Allocate(ctx context.Context, documentType types.DocumentType) (*dto.AllocateNumberResponse, error) {
	if err := documentType.Validate(); err != nil {
		return nil, err
	}

	var number string
	err := retryOnContention(ctx, s.Config.Sequence, s.Logger, "allocate", func() error {
		var err error
		number, err = s.NextNumber(ctx, documentType)
		return err
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Could not generate document number, please retry").
			WithReportableDetails(map[string]any{
				"document_type": documentType,
			}).
			Error()
	}

	return &dto.AllocateNumberResponse{
		DocumentType:   documentType,
		DocumentNumber: number,
	}, nil
}

func (s *sequenceService) NextNumber(ctx context.Context, documentType types.DocumentType) (string, error) {
	if err := documentType.Validate(); err != nil {
		return "", err
	}

	var number string
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		cfg, err := s.SequenceRepo.GetForUpdate(ctx, sequence.NewDefault(ctx, documentType))
		if err != nil {
			return err
		}

		next := cfg.CurrentNumber + 1
		number = cfg.Formatted(next)

		// the counter lags behind numbers written by imports or manual
		// edits; skip past everything already in use under this prefix
		taken, err := s.DocumentRepo.NumberExists(ctx, documentType, number)
		if err != nil {
			return err
		}
		if taken {
			scan, err := scanDocumentNumbers(ctx, s.DocumentRepo, documentType, cfg.Prefix,
				s.Config.Reconciliation.BatchSize, s.Config.Reconciliation.SampleSize)
			if err != nil {
				return err
			}
			if scan.MaxFound >= next {
				next = scan.MaxFound + 1
			}
			s.Logger.Warnw("sequence counter behind existing documents, skipping ahead",
				"tenant_id", types.GetTenantID(ctx),
				"document_type", documentType,
				"counter", cfg.CurrentNumber,
				"max_found", scan.MaxFound,
				"next", next,
			)
			number = cfg.Formatted(next)
		}

		cfg.CurrentNumber = next
		return s.SequenceRepo.UpdateCounter(ctx, cfg)
	})
	if err != nil {
		return "", err
	}

	s.Logger.Debugw("allocated document number",
		"tenant_id", types.GetTenantID(ctx),
		"document_type", documentType,
		"document_number", number,
	)
	return number, nil
}

// loadConfig returns the stored config or synthesized defaults. The bool
// reports whether the config is persisted.
func (s *sequenceService) loadConfig(ctx context.Context, documentType types.DocumentType) (*sequence.SequenceConfig, bool, error) {
	if err := documentType.Validate(); err != nil {
		return nil, false, err
	}

	cfg, err := s.SequenceRepo.Get(ctx, documentType)
	if err == nil {
		return cfg, true, nil
	}
	if ierr.IsNotFound(err) {
		return sequence.NewDefault(ctx, documentType), false, nil
	}
	return nil, false, err
}

func (s *sequenceService) PreviewNext(ctx context.Context, documentType types.DocumentType) (*dto.PreviewNumberResponse, error) {
	cfg, _, err := s.loadConfig(ctx, documentType)
	if err != nil {
		return nil, err
	}
	return &dto.PreviewNumberResponse{
		DocumentType: documentType,
		NextNumber:   cfg.Next(),
	}, nil
}

func (s *sequenceService) GetConfig(ctx context.Context, documentType types.DocumentType) (*dto.SequenceConfigResponse, error) {
	cfg, persisted, err := s.loadConfig(ctx, documentType)
	if err != nil {
		return nil, err
	}
	return dto.ToSequenceConfigResponse(cfg, persisted), nil
}

func (s *sequenceService) ListConfigs(ctx context.Context) (*dto.ListSequenceConfigsResponse, error) {
	stored, err := s.SequenceRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	byType := make(map[types.DocumentType]*sequence.SequenceConfig, len(stored))
	for _, cfg := range stored {
		byType[cfg.DocumentType] = cfg
	}

	knownTypes := types.KnownDocumentTypes()
	resp := &dto.ListSequenceConfigsResponse{
		Items: make([]*dto.SequenceConfigResponse, 0, len(knownTypes)),
	}
	for _, documentType := range knownTypes {
		if cfg, ok := byType[documentType]; ok {
			resp.Items = append(resp.Items, dto.ToSequenceConfigResponse(cfg, true))
			continue
		}
		resp.Items = append(resp.Items, dto.ToSequenceConfigResponse(sequence.NewDefault(ctx, documentType), false))
	}
	return resp, nil
}

func (s *sequenceService) UpdateConfig(ctx context.Context, documentType types.DocumentType, req dto.UpdateSequenceConfigRequest) (*dto.UpdateSequenceConfigResponse, error) {
	if err := documentType.Validate(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := sequence.ValidateFormat(req.Prefix, req.Padding); err != nil {
		return nil, err
	}

	var resp *dto.UpdateSequenceConfigResponse
	err := retryOnContention(ctx, s.Config.Sequence, s.Logger, "update_config", func() error {
		return s.DB.WithTx(ctx, func(ctx context.Context) error {
			cfg, err := s.SequenceRepo.GetForUpdate(ctx, sequence.NewDefault(ctx, documentType))
			if err != nil {
				return err
			}

			resp = &dto.UpdateSequenceConfigResponse{
				PrefixChanged: cfg.Prefix != req.Prefix,
			}

			if resp.PrefixChanged {
				if err := s.absorbPrefixChange(ctx, cfg, req, resp); err != nil {
					return err
				}
			}

			cfg.Prefix = req.Prefix
			cfg.Padding = req.Padding
			if err := s.SequenceRepo.UpdateFormat(ctx, cfg); err != nil {
				return err
			}
			resp.Config = dto.ToSequenceConfigResponse(cfg, true)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("sequence config updated",
		"tenant_id", types.GetTenantID(ctx),
		"document_type", documentType,
		"prefix", req.Prefix,
		"padding", req.Padding,
		"prefix_changed", resp.PrefixChanged,
		"legacy_numbers", resp.LegacyNumbers,
	)
	return resp, nil
}

// absorbPrefixChange runs under the config lock. Documents numbered with the
// old prefix become invisible to scans once the prefix changes, so the
// counter is first raised past them; numbers already carrying the new
// prefix are folded in as well.
func (s *sequenceService) absorbPrefixChange(ctx context.Context, cfg *sequence.SequenceConfig, req dto.UpdateSequenceConfigRequest, resp *dto.UpdateSequenceConfigResponse) error {
	batchSize := s.Config.Reconciliation.BatchSize
	sampleSize := s.Config.Reconciliation.SampleSize

	legacy, err := scanDocumentNumbers(ctx, s.DocumentRepo, cfg.DocumentType, cfg.Prefix, batchSize, sampleSize)
	if err != nil {
		return scanFailure(err, cfg.DocumentType, legacy.Scanned)
	}
	resp.LegacyNumbers = legacy.Parsed

	if legacy.Parsed > 0 && !req.AcknowledgeLegacyNumbers {
		return ierr.NewError("prefix change would hide legacy numbers").
			WithHintf("%d documents are numbered with prefix %s. Set acknowledge_legacy_numbers to change the prefix anyway",
				legacy.Parsed, cfg.Prefix).
			WithReportableDetails(map[string]any{
				"document_type":  cfg.DocumentType,
				"current_prefix": cfg.Prefix,
				"new_prefix":     req.Prefix,
				"legacy_numbers": legacy.Parsed,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	current, err := scanDocumentNumbers(ctx, s.DocumentRepo, cfg.DocumentType, req.Prefix, batchSize, sampleSize)
	if err != nil {
		return scanFailure(err, cfg.DocumentType, legacy.Scanned+current.Scanned)
	}

	report := dto.NewRepairReport(cfg.DocumentType, legacy)
	report.PreviousNumber = cfg.CurrentNumber
	target := max(legacy.MaxFound, current.MaxFound)
	if target > cfg.CurrentNumber {
		cfg.CurrentNumber = target
		if err := s.SequenceRepo.UpdateCounter(ctx, cfg); err != nil {
			return err
		}
		report.Repaired = true
	}
	report.CurrentNumber = cfg.CurrentNumber

	if legacy.Parsed > 0 {
		resp.LegacyRepair = report
	}
	return nil
}
