package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"
	"github.com/vircom/folio/internal/api/dto"
	"github.com/vircom/folio/internal/domain/document"
	"github.com/vircom/folio/internal/domain/sequence"
	ierr "github.com/vircom/folio/internal/errors"
	"github.com/vircom/folio/internal/types"
)

const defaultScanBatchSize = 500

// ReconciliationService repairs counters that fell behind the numbers
// actually present on documents
type ReconciliationService interface {
	// AnalyzeAndRepair scans the documents of one type and raises the
	// counter to the highest number found. Never lowers it.
	AnalyzeAndRepair(ctx context.Context, documentType types.DocumentType) (*dto.RepairReport, error)

	// ReconcileAll repairs every known type of the tenant in ctx
	ReconcileAll(ctx context.Context) (*dto.ReconcileAllResponse, error)

	// ReconcileTenants repairs every type of every tenant with data
	ReconcileTenants(ctx context.Context) (*dto.ReconcileTenantsResponse, error)
}

type reconciliationService struct {
	ServiceParams
}

func NewReconciliationService(params ServiceParams) ReconciliationService {
	return &reconciliationService{
		ServiceParams: params,
	}
}

// scanDocumentNumbers walks every numbered document of the type in keyset
// pages without locking them. The returned scan is never nil, so callers
// can report progress on failure.
func scanDocumentNumbers(
	ctx context.Context,
	repo document.Repository,
	documentType types.DocumentType,
	prefix string,
	batchSize int,
	sampleSize int,
) (*sequence.NumberScan, error) {
	if batchSize <= 0 {
		batchSize = defaultScanBatchSize
	}

	scan := sequence.NewNumberScan(prefix, sampleSize)
	afterID := ""
	for {
		if err := ctx.Err(); err != nil {
			return scan, err
		}

		refs, err := repo.ScanNumbers(ctx, documentType, afterID, batchSize)
		if err != nil {
			return scan, err
		}
		for _, ref := range refs {
			scan.Observe(ref.DocumentNumber)
		}
		if len(refs) < batchSize {
			return scan, nil
		}
		afterID = refs[len(refs)-1].ID
	}
}

// scanFailure reports an aborted scan together with how far it got
func scanFailure(err error, documentType types.DocumentType, scanned int) error {
	return ierr.WithError(err).
		WithHintf("Reconciliation stopped after scanning %d documents", scanned).
		WithReportableDetails(map[string]any{
			"document_type": documentType,
			"scanned":       scanned,
		}).
		Mark(ierr.ErrDatabase)
}

func (s *reconciliationService) AnalyzeAndRepair(ctx context.Context, documentType types.DocumentType) (*dto.RepairReport, error) {
	start := time.Now()
	if err := documentType.Validate(); err != nil {
		return nil, err
	}

	batchSize := s.Config.Reconciliation.BatchSize
	sampleSize := s.Config.Reconciliation.SampleSize

	prefix := sequence.DefaultPrefix(documentType)
	persisted := false
	stored, err := s.SequenceRepo.Get(ctx, documentType)
	switch {
	case err == nil:
		prefix = stored.Prefix
		persisted = true
	case !ierr.IsNotFound(err):
		return nil, scanFailure(err, documentType, 0)
	}

	// unlocked pass; allocations keep running meanwhile
	scan, err := scanDocumentNumbers(ctx, s.DocumentRepo, documentType, prefix, batchSize, sampleSize)
	if err != nil {
		return nil, scanFailure(err, documentType, scan.Scanned)
	}

	report := dto.NewRepairReport(documentType, scan)
	if !persisted && scan.Parsed == 0 {
		// nothing to raise a fresh counter to; leave the type unconfigured
		report.DurationMs = time.Since(start).Milliseconds()
		s.logReport(ctx, report)
		return report, nil
	}

	err = retryOnContention(ctx, s.Config.Sequence, s.Logger, "repair", func() error {
		return s.DB.WithTx(ctx, func(ctx context.Context) error {
			cfg, err := s.SequenceRepo.GetForUpdate(ctx, sequence.NewDefault(ctx, documentType))
			if err != nil {
				return err
			}

			lockedScan := scan
			if cfg.Prefix != scan.Prefix {
				// prefix changed between the scan and the lock
				lockedScan, err = scanDocumentNumbers(ctx, s.DocumentRepo, documentType, cfg.Prefix, batchSize, sampleSize)
				if err != nil {
					return scanFailure(err, documentType, lockedScan.Scanned)
				}
			}

			report = dto.NewRepairReport(documentType, lockedScan)
			report.PreviousNumber = cfg.CurrentNumber
			report.CurrentNumber = cfg.CurrentNumber
			if lockedScan.MaxFound <= cfg.CurrentNumber {
				return nil
			}

			cfg.CurrentNumber = lockedScan.MaxFound
			if err := s.SequenceRepo.UpdateCounter(ctx, cfg); err != nil {
				return err
			}
			report.CurrentNumber = cfg.CurrentNumber
			report.Repaired = true
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	report.DurationMs = time.Since(start).Milliseconds()
	s.logReport(ctx, report)
	return report, nil
}

func (s *reconciliationService) logReport(ctx context.Context, report *dto.RepairReport) {
	if report.Malformed > 0 || report.ForeignPrefix > 0 {
		s.Logger.Warnw("skipped unparseable document numbers",
			"tenant_id", types.GetTenantID(ctx),
			"document_type", report.DocumentType,
			"prefix", report.Prefix,
			"malformed", report.Malformed,
			"foreign_prefix", report.ForeignPrefix,
			"samples", report.Samples,
		)
	}

	s.Logger.Infow("sequence reconciliation completed",
		"tenant_id", types.GetTenantID(ctx),
		"document_type", report.DocumentType,
		"scanned", report.Scanned,
		"max_found", report.MaxFound,
		"previous_number", report.PreviousNumber,
		"current_number", report.CurrentNumber,
		"repaired", report.Repaired,
		"duration_ms", report.DurationMs,
	)
}

func (s *reconciliationService) ReconcileAll(ctx context.Context) (*dto.ReconcileAllResponse, error) {
	var (
		mu   sync.Mutex
		resp = &dto.ReconcileAllResponse{}
	)

	p := pool.New().WithMaxGoroutines(max(1, s.Config.Reconciliation.Concurrency))
	for _, documentType := range types.KnownDocumentTypes() {
		p.Go(func() {
			report, err := s.AnalyzeAndRepair(ctx, documentType)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.Logger.Errorw("sequence reconciliation failed",
					"tenant_id", types.GetTenantID(ctx),
					"document_type", documentType,
					"error", err,
				)
				resp.Failures = append(resp.Failures, &dto.ReconcileFailure{
					DocumentType: documentType,
					Error:        err.Error(),
				})
				return
			}
			resp.Reports = append(resp.Reports, report)
		})
	}
	p.Wait()

	sort.Slice(resp.Reports, func(i, j int) bool {
		return resp.Reports[i].DocumentType < resp.Reports[j].DocumentType
	})
	sort.Slice(resp.Failures, func(i, j int) bool {
		return resp.Failures[i].DocumentType < resp.Failures[j].DocumentType
	})
	resp.Repaired = lo.CountBy(resp.Reports, func(r *dto.RepairReport) bool { return r.Repaired })
	return resp, nil
}

func (s *reconciliationService) ReconcileTenants(ctx context.Context) (*dto.ReconcileTenantsResponse, error) {
	sequenceTenants, err := s.SequenceRepo.ListTenantIDs(ctx)
	if err != nil {
		return nil, err
	}
	documentTenants, err := s.DocumentRepo.ListTenantIDs(ctx)
	if err != nil {
		return nil, err
	}

	tenantIDs := lo.Uniq(append(sequenceTenants, documentTenants...))
	sort.Strings(tenantIDs)

	resp := &dto.ReconcileTenantsResponse{Tenants: len(tenantIDs)}
	for _, tenantID := range tenantIDs {
		if err := ctx.Err(); err != nil {
			return resp, err
		}

		result, err := s.ReconcileAll(types.SetTenantID(ctx, tenantID))
		if err != nil {
			return resp, err
		}
		resp.Repaired += result.Repaired
		for _, failure := range result.Failures {
			failure.TenantID = tenantID
			resp.Failures = append(resp.Failures, failure)
		}
	}

	s.Logger.Infow("scheduled sequence reconciliation completed",
		"tenants", resp.Tenants,
		"repaired", resp.Repaired,
		"failures", len(resp.Failures),
	)
	return resp, nil
}
