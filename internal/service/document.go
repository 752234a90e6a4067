package service

import (
	"context"

	"github.com/samber/lo"
	"github.com/vircom/folio/internal/api/dto"
	"github.com/vircom/folio/internal/cache"
	"github.com/vircom/folio/internal/domain/document"
	ierr "github.com/vircom/folio/internal/errors"
	"github.com/vircom/folio/internal/idempotency"
	"github.com/vircom/folio/internal/types"
)

// DocumentService manages numbered documents
type DocumentService interface {
	// CreateDocument creates a numbered document with its line items. A
	// repeated idempotency key returns the document created the first time.
	CreateDocument(ctx context.Context, req dto.CreateDocumentRequest) (*dto.DocumentResponse, error)
	GetDocument(ctx context.Context, id string) (*dto.DocumentResponse, error)
	ListDocuments(ctx context.Context, filter *types.DocumentFilter) (*dto.ListDocumentsResponse, error)

	// DuplicateDocument clones a document and its line items under a fresh
	// number. Either the whole clone is stored or nothing is.
	DuplicateDocument(ctx context.Context, id string) (*dto.DocumentResponse, error)

	// ImportDocuments stores legacy documents with the numbers they already
	// carry. The counter is left alone.
	ImportDocuments(ctx context.Context, req dto.ImportDocumentsRequest) (*dto.ImportDocumentsResponse, error)

	// BackfillNumbers numbers every unnumbered document of the type, oldest
	// first, one transaction per document
	BackfillNumbers(ctx context.Context, documentType types.DocumentType) (*dto.BackfillNumbersResponse, error)
}

type documentService struct {
	ServiceParams
	sequenceService       SequenceService
	reconciliationService ReconciliationService
	idempotency           *idempotency.Generator
}

func NewDocumentService(params ServiceParams) DocumentService {
	return &documentService{
		ServiceParams:         params,
		sequenceService:       NewSequenceService(params),
		reconciliationService: NewReconciliationService(params),
		idempotency:           idempotency.NewGenerator(),
	}
}

func (s *documentService) idempotencyCacheKey(ctx context.Context, key string) string {
	return cache.GenerateKey(cache.PrefixDocumentIdempotency, types.GetTenantID(ctx), key)
}

// findByIdempotencyKey returns the document created with key, or nil
func (s *documentService) findByIdempotencyKey(ctx context.Context, key string) (*dto.DocumentResponse, error) {
	cacheKey := s.idempotencyCacheKey(ctx, key)
	if id, ok := s.Cache.Get(ctx, cacheKey); ok {
		resp, err := s.GetDocument(ctx, id.(string))
		if err == nil {
			return resp, nil
		}
		if !ierr.IsNotFound(err) {
			return nil, err
		}
		// stale entry, fall back to the store
		s.Cache.Delete(ctx, cacheKey)
	}

	doc, err := s.DocumentRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	s.Cache.Set(ctx, cacheKey, doc.ID, 0)
	return s.GetDocument(ctx, doc.ID)
}

func (s *documentService) CreateDocument(ctx context.Context, req dto.CreateDocumentRequest) (*dto.DocumentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != nil {
		existing, err := s.findByIdempotencyKey(ctx, *req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.Logger.Debugw("document already created for idempotency key",
				"document_id", existing.ID,
				"idempotency_key", *req.IdempotencyKey,
			)
			return existing, nil
		}
	}

	var doc *document.Document
	err := retryOnContention(ctx, s.Config.Sequence, s.Logger, "create_document", func() error {
		return s.DB.WithTx(ctx, func(ctx context.Context) error {
			doc = req.ToDocument(ctx)

			number, err := s.sequenceService.NextNumber(ctx, doc.DocumentType)
			if err != nil {
				return err
			}
			doc.DocumentNumber = number

			if err := s.DocumentRepo.Create(ctx, doc); err != nil {
				return err
			}
			return s.LineItemRepo.CreateMany(ctx, doc.LineItems)
		})
	})
	if err != nil {
		// a concurrent request with the same key won the race
		if req.IdempotencyKey != nil && ierr.IsAlreadyExists(err) {
			existing, lookupErr := s.findByIdempotencyKey(ctx, *req.IdempotencyKey)
			if lookupErr == nil && existing != nil {
				return existing, nil
			}
		}
		if ierr.IsContention(err) {
			return nil, ierr.WithError(err).
				WithHint("Could not generate document number, please retry").
				WithReportableDetails(map[string]any{
					"document_type": req.DocumentType,
				}).
				Error()
		}
		return nil, err
	}

	if doc.IdempotencyKey != nil {
		s.Cache.Set(ctx, s.idempotencyCacheKey(ctx, *doc.IdempotencyKey), doc.ID, 0)
	}

	s.Logger.Infow("document created",
		"tenant_id", doc.TenantID,
		"document_id", doc.ID,
		"document_type", doc.DocumentType,
		"document_number", doc.DocumentNumber,
		"line_items", len(doc.LineItems),
	)
	return &dto.DocumentResponse{Document: doc}, nil
}

func (s *documentService) GetDocument(ctx context.Context, id string) (*dto.DocumentResponse, error) {
	if id == "" {
		return nil, ierr.NewError("document_id is required").
			WithHint("Document ID is required").
			Mark(ierr.ErrValidation)
	}

	doc, err := s.DocumentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := s.LineItemRepo.ListByDocument(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	doc.LineItems = items

	return &dto.DocumentResponse{Document: doc}, nil
}

func (s *documentService) ListDocuments(ctx context.Context, filter *types.DocumentFilter) (*dto.ListDocumentsResponse, error) {
	if filter == nil {
		filter = types.NewDefaultDocumentFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	docs, err := s.DocumentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.DocumentRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(docs, func(doc *document.Document, _ int) *dto.DocumentResponse {
		return &dto.DocumentResponse{Document: doc}
	})
	resp := types.NewListResponse(items, total, filter.GetLimit(), filter.GetOffset())
	return &resp, nil
}

func (s *documentService) DuplicateDocument(ctx context.Context, id string) (*dto.DocumentResponse, error) {
	source, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	if len(source.LineItems) == 0 {
		return nil, ierr.NewError("source document has no line items").
			WithHint("A document without line items cannot be duplicated").
			WithReportableDetails(map[string]any{
				"source_document_id": source.ID,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	var clone *document.Document
	err = retryOnContention(ctx, s.Config.Sequence, s.Logger, "duplicate_document", func() error {
		return s.DB.WithTx(ctx, func(ctx context.Context) error {
			clone = source.Clone(ctx)

			number, err := s.sequenceService.NextNumber(ctx, clone.DocumentType)
			if err != nil {
				return err
			}
			clone.DocumentNumber = number

			if err := s.DocumentRepo.Create(ctx, clone); err != nil {
				return err
			}
			return s.LineItemRepo.CreateMany(ctx, clone.LineItems)
		})
	})
	if err != nil {
		s.Logger.Errorw("failed to duplicate document",
			"source_document_id", source.ID,
			"document_type", source.DocumentType,
			"error", err,
		)
		builder := ierr.WithError(err).
			WithReportableDetails(map[string]any{
				"source_document_id": source.ID,
				"document_type":      source.DocumentType,
			})
		if ierr.IsContention(err) {
			builder = builder.WithHint("Could not generate document number, please retry")
		}
		return nil, builder.Error()
	}

	s.Logger.Infow("document duplicated",
		"source_document_id", source.ID,
		"document_id", clone.ID,
		"document_number", clone.DocumentNumber,
		"line_items", len(clone.LineItems),
	)
	return &dto.DocumentResponse{Document: clone}, nil
}

func (s *documentService) importKey(ctx context.Context, documentType types.DocumentType, number string) string {
	return s.idempotency.GenerateKey(idempotency.ScopeDocumentImport, map[string]interface{}{
		"tenant_id":       types.GetTenantID(ctx),
		"document_type":   documentType,
		"document_number": number,
	})
}

func (s *documentService) ImportDocuments(ctx context.Context, req dto.ImportDocumentsRequest) (*dto.ImportDocumentsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var resp *dto.ImportDocumentsResponse
	err := retryOnContention(ctx, s.Config.Sequence, s.Logger, "import_documents", func() error {
		resp = &dto.ImportDocumentsResponse{DocumentType: req.DocumentType}
		return s.DB.WithTx(ctx, func(ctx context.Context) error {
			for _, rec := range req.Documents {
				key := s.importKey(ctx, req.DocumentType, rec.DocumentNumber)

				_, err := s.DocumentRepo.GetByIdempotencyKey(ctx, key)
				if err == nil {
					resp.Skipped++
					continue
				}
				if !ierr.IsNotFound(err) {
					return err
				}

				taken, err := s.DocumentRepo.NumberExists(ctx, req.DocumentType, rec.DocumentNumber)
				if err != nil {
					return err
				}
				if taken {
					resp.Skipped++
					continue
				}

				if err := s.DocumentRepo.Create(ctx, rec.ToDocument(ctx, req.DocumentType, key)); err != nil {
					return err
				}
				resp.Imported++
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("documents imported",
		"tenant_id", types.GetTenantID(ctx),
		"document_type", req.DocumentType,
		"imported", resp.Imported,
		"skipped", resp.Skipped,
	)

	if req.RepairAfter && resp.Imported > 0 {
		report, err := s.reconciliationService.AnalyzeAndRepair(ctx, req.DocumentType)
		if err != nil {
			// the import itself is committed; the next repair run catches up
			s.Logger.Warnw("repair after import failed",
				"document_type", req.DocumentType,
				"error", err,
			)
		} else {
			resp.Repair = report
		}
	}
	return resp, nil
}

func (s *documentService) BackfillNumbers(ctx context.Context, documentType types.DocumentType) (*dto.BackfillNumbersResponse, error) {
	if err := documentType.Validate(); err != nil {
		return nil, err
	}

	batchSize := s.Config.Reconciliation.BatchSize
	if batchSize <= 0 {
		batchSize = defaultScanBatchSize
	}

	resp := &dto.BackfillNumbersResponse{DocumentType: documentType}
	var cursor *document.UnnumberedCursor
	for {
		if err := ctx.Err(); err != nil {
			return resp, err
		}

		// failed documents stay unnumbered; the cursor moves past them
		docs, err := s.DocumentRepo.ListUnnumbered(ctx, documentType, cursor, batchSize)
		if err != nil {
			return resp, err
		}

		for _, doc := range docs {
			err := retryOnContention(ctx, s.Config.Sequence, s.Logger, "backfill_number", func() error {
				return s.DB.WithTx(ctx, func(ctx context.Context) error {
					number, err := s.sequenceService.NextNumber(ctx, documentType)
					if err != nil {
						return err
					}
					return s.DocumentRepo.SetNumber(ctx, doc.ID, number)
				})
			})
			if err != nil {
				s.Logger.Warnw("failed to backfill document number",
					"document_id", doc.ID,
					"document_type", documentType,
					"error", err,
				)
				resp.FailedIDs = append(resp.FailedIDs, doc.ID)
				continue
			}
			resp.Updated++
		}

		if len(docs) < batchSize {
			break
		}
		cursor = document.CursorAfter(docs[len(docs)-1])
	}

	resp.Failed = len(resp.FailedIDs)
	s.Logger.Infow("document number backfill completed",
		"tenant_id", types.GetTenantID(ctx),
		"document_type", documentType,
		"updated", resp.Updated,
		"failed", resp.Failed,
	)
	return resp, nil
}
