package service

import (
	"context"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
	"github.com/vircom/folio/internal/api/dto"
	ierr "github.com/vircom/folio/internal/errors"
	"github.com/vircom/folio/internal/testutil"
	"github.com/vircom/folio/internal/types"
)

type SequenceServiceSuite struct {
	testutil.BaseServiceTestSuite
	service SequenceService
}

func TestSequenceService(t *testing.T) {
	suite.Run(t, new(SequenceServiceSuite))
}

func (s *SequenceServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewSequenceService(newTestServiceParams(&s.BaseServiceTestSuite))
}

func (s *SequenceServiceSuite) TestDefaultBootstrap() {
	ctx := s.GetContext()

	resp, err := s.service.GetConfig(ctx, types.DocumentTypeQuotation)
	s.NoError(err)
	s.Equal("Q", resp.Prefix)
	s.Equal(int64(0), resp.CurrentNumber)
	s.Equal(4, resp.Padding)
	s.Equal("Q0001", resp.NextNumber)
	s.False(resp.Persisted)

	// reading never persists
	_, err = s.GetStores().SequenceRepo.Get(ctx, types.DocumentTypeQuotation)
	s.True(ierr.IsNotFound(err))
}

func (s *SequenceServiceSuite) TestAllocate() {
	tests := []struct {
		name         string
		setup        func()
		documentType types.DocumentType
		want         string
		wantCounter  int64
	}{
		{
			name:         "first allocation creates the default config",
			documentType: types.DocumentTypeQuotation,
			want:         "Q0001",
			wantCounter:  1,
		},
		{
			name: "continues a stored counter",
			setup: func() {
				seedConfig(s.GetContext(), s.GetStores().SequenceRepo, types.DocumentTypeClient, "C", 7, 4)
			},
			documentType: types.DocumentTypeClient,
			want:         "C0008",
			wantCounter:  8,
		},
		{
			name: "widens past the padding",
			setup: func() {
				seedConfig(s.GetContext(), s.GetStores().SequenceRepo, types.DocumentTypeTicket, "TK", 999, 3)
			},
			documentType: types.DocumentTypeTicket,
			want:         "TK1000",
			wantCounter:  1000,
		},
		{
			name: "skips numbers already taken",
			setup: func() {
				ctx := s.GetContext()
				seedConfig(ctx, s.GetStores().SequenceRepo, types.DocumentTypeSale, "S", 4, 4)
				seedDocument(ctx, s.GetStores().DocumentRepo, types.DocumentTypeSale, "S0005")
				seedDocument(ctx, s.GetStores().DocumentRepo, types.DocumentTypeSale, "S0009")
			},
			documentType: types.DocumentTypeSale,
			want:         "S0010",
			wantCounter:  10,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			if tt.setup != nil {
				tt.setup()
			}

			resp, err := s.service.Allocate(s.GetContext(), tt.documentType)
			s.Require().NoError(err)
			s.Equal(tt.want, resp.DocumentNumber)
			s.Equal(tt.wantCounter, storedCounter(s.GetContext(), s.GetStores().SequenceRepo, tt.documentType))
		})
	}
}

func (s *SequenceServiceSuite) TestAllocateUnknownType() {
	_, err := s.service.Allocate(s.GetContext(), types.DocumentType("widget"))
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *SequenceServiceSuite) TestAllocateIsMonotonic() {
	ctx := s.GetContext()

	previous := ""
	for i := 0; i < 25; i++ {
		resp, err := s.service.Allocate(ctx, types.DocumentTypeOrder)
		s.Require().NoError(err)
		s.Greater(resp.DocumentNumber, previous)
		previous = resp.DocumentNumber
	}
	s.Equal("O0025", previous)
}

func (s *SequenceServiceSuite) TestConcurrentAllocationsAreUnique() {
	ctx := s.GetContext()
	const workers = 40

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = make(map[string]int)
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := s.service.Allocate(ctx, types.DocumentTypeSale)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers[resp.DocumentNumber]++
		}()
	}
	wg.Wait()

	s.Empty(errs)
	s.Len(numbers, workers)
	for number, count := range numbers {
		s.Equal(1, count, "number %s handed out twice", number)
	}
	s.Equal(int64(workers), storedCounter(ctx, s.GetStores().SequenceRepo, types.DocumentTypeSale))
}

func (s *SequenceServiceSuite) TestTenantsHaveIndependentSequences() {
	ctxA := testutil.WithTenant(s.GetContext(), "tenant_a")
	ctxB := testutil.WithTenant(s.GetContext(), "tenant_b")

	for i := 0; i < 3; i++ {
		_, err := s.service.Allocate(ctxA, types.DocumentTypeQuotation)
		s.Require().NoError(err)
	}

	resp, err := s.service.Allocate(ctxB, types.DocumentTypeQuotation)
	s.NoError(err)
	s.Equal("Q0001", resp.DocumentNumber)
}

func (s *SequenceServiceSuite) TestNextNumberRollsBackWithCaller() {
	ctx := s.GetContext()
	seedConfig(ctx, s.GetStores().SequenceRepo, types.DocumentTypeClient, "C", 7, 4)

	boom := errors.New("caller failed")
	err := s.GetDB().WithTx(ctx, func(txCtx context.Context) error {
		number, err := s.service.NextNumber(txCtx, types.DocumentTypeClient)
		s.Require().NoError(err)
		s.Equal("C0008", number)
		return boom
	})
	s.ErrorIs(err, boom)
	s.Equal(int64(7), storedCounter(ctx, s.GetStores().SequenceRepo, types.DocumentTypeClient))

	resp, err := s.service.Allocate(ctx, types.DocumentTypeClient)
	s.NoError(err)
	s.Equal("C0008", resp.DocumentNumber)
}

func (s *SequenceServiceSuite) TestAllocateReportsContention() {
	ctx := s.GetContext()
	seedConfig(ctx, s.GetStores().SequenceRepo, types.DocumentTypeSale, "S", 3, 4)

	release := s.GetDB().Hold()
	_, err := s.service.Allocate(ctx, types.DocumentTypeSale)
	release()

	s.Error(err)
	s.True(ierr.IsContention(err))
	s.Contains(errors.FlattenHints(err), "Could not generate document number, please retry")
	s.Equal(int64(3), storedCounter(ctx, s.GetStores().SequenceRepo, types.DocumentTypeSale))
}

func (s *SequenceServiceSuite) TestAllocateSurfacesPersistenceFailure() {
	ctx := s.GetContext()
	s.GetStores().SequenceRepo.FailUpdates(ierr.NewError("disk full").Mark(ierr.ErrDatabase))
	defer s.GetStores().SequenceRepo.FailUpdates(nil)

	_, err := s.service.Allocate(ctx, types.DocumentTypeSale)
	s.Error(err)
	s.True(ierr.IsDatabase(err))

	// the bootstrap row rolled back with the failed increment
	_, err = s.GetStores().SequenceRepo.Get(ctx, types.DocumentTypeSale)
	s.True(ierr.IsNotFound(err))
}

func (s *SequenceServiceSuite) TestPreviewNextDoesNotReserve() {
	ctx := s.GetContext()
	seedConfig(ctx, s.GetStores().SequenceRepo, types.DocumentTypeClient, "C", 7, 4)

	for i := 0; i < 2; i++ {
		resp, err := s.service.PreviewNext(ctx, types.DocumentTypeClient)
		s.Require().NoError(err)
		s.Equal("C0008", resp.NextNumber)
	}
	s.Equal(int64(7), storedCounter(ctx, s.GetStores().SequenceRepo, types.DocumentTypeClient))
}

func (s *SequenceServiceSuite) TestListConfigs() {
	ctx := s.GetContext()
	seedConfig(ctx, s.GetStores().SequenceRepo, types.DocumentTypeClient, "CL", 12, 5)

	resp, err := s.service.ListConfigs(ctx)
	s.NoError(err)
	s.Len(resp.Items, len(types.KnownDocumentTypes()))

	for _, item := range resp.Items {
		if item.DocumentType == types.DocumentTypeClient {
			s.True(item.Persisted)
			s.Equal("CL00013", item.NextNumber)
			continue
		}
		s.False(item.Persisted)
		s.Equal(int64(0), item.CurrentNumber)
	}
}

func (s *SequenceServiceSuite) TestUpdateConfigValidation() {
	tests := []struct {
		name string
		req  dto.UpdateSequenceConfigRequest
	}{
		{name: "prefix ending in digit", req: dto.UpdateSequenceConfigRequest{Prefix: "Q1", Padding: 4}},
		{name: "prefix too long", req: dto.UpdateSequenceConfigRequest{Prefix: "ABCDEFGHIJK", Padding: 4}},
		{name: "prefix with symbols", req: dto.UpdateSequenceConfigRequest{Prefix: "Q-", Padding: 4}},
		{name: "padding too small", req: dto.UpdateSequenceConfigRequest{Prefix: "Q", Padding: 2}},
		{name: "padding too large", req: dto.UpdateSequenceConfigRequest{Prefix: "Q", Padding: 11}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.UpdateConfig(s.GetContext(), types.DocumentTypeQuotation, tt.req)
			s.Error(err)
			s.True(ierr.IsValidation(err))
		})
	}
}

func (s *SequenceServiceSuite) TestUpdateConfigPaddingOnly() {
	ctx := s.GetContext()
	seedConfig(ctx, s.GetStores().SequenceRepo, types.DocumentTypeQuotation, "Q", 41, 4)
	seedDocument(ctx, s.GetStores().DocumentRepo, types.DocumentTypeQuotation, "Q0041")

	resp, err := s.service.UpdateConfig(ctx, types.DocumentTypeQuotation, dto.UpdateSequenceConfigRequest{
		Prefix:  "Q",
		Padding: 6,
	})
	s.NoError(err)
	s.False(resp.PrefixChanged)
	s.Equal("Q000042", resp.Config.NextNumber)

	// existing numbers keep their old rendering
	exists, err := s.GetStores().DocumentRepo.NumberExists(ctx, types.DocumentTypeQuotation, "Q0041")
	s.NoError(err)
	s.True(exists)
}

func (s *SequenceServiceSuite) TestUpdateConfigPrefixChangeWithoutDocuments() {
	ctx := s.GetContext()

	resp, err := s.service.UpdateConfig(ctx, types.DocumentTypeQuotation, dto.UpdateSequenceConfigRequest{
		Prefix:  "COT",
		Padding: 5,
	})
	s.NoError(err)
	s.True(resp.PrefixChanged)
	s.Equal(0, resp.LegacyNumbers)
	s.Nil(resp.LegacyRepair)

	alloc, err := s.service.Allocate(ctx, types.DocumentTypeQuotation)
	s.NoError(err)
	s.Equal("COT00001", alloc.DocumentNumber)
}

func (s *SequenceServiceSuite) TestUpdateConfigPrefixChangeGuard() {
	ctx := s.GetContext()
	seedConfig(ctx, s.GetStores().SequenceRepo, types.DocumentTypeQuotation, "Q", 5, 4)
	seedDocument(ctx, s.GetStores().DocumentRepo, types.DocumentTypeQuotation, "Q0004")
	seedDocument(ctx, s.GetStores().DocumentRepo, types.DocumentTypeQuotation, "Q0042")

	req := dto.UpdateSequenceConfigRequest{Prefix: "COT", Padding: 4}
	_, err := s.service.UpdateConfig(ctx, types.DocumentTypeQuotation, req)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	cfg, err := s.GetStores().SequenceRepo.Get(ctx, types.DocumentTypeQuotation)
	s.Require().NoError(err)
	s.Equal("Q", cfg.Prefix)
	s.Equal(int64(5), cfg.CurrentNumber)

	req.AcknowledgeLegacyNumbers = true
	resp, err := s.service.UpdateConfig(ctx, types.DocumentTypeQuotation, req)
	s.Require().NoError(err)
	s.True(resp.PrefixChanged)
	s.Equal(2, resp.LegacyNumbers)
	s.Require().NotNil(resp.LegacyRepair)
	s.True(resp.LegacyRepair.Repaired)
	s.Equal(int64(5), resp.LegacyRepair.PreviousNumber)
	s.Equal(int64(42), resp.LegacyRepair.CurrentNumber)
	s.Equal("COT0043", resp.Config.NextNumber)

	alloc, err := s.service.Allocate(ctx, types.DocumentTypeQuotation)
	s.NoError(err)
	s.Equal("COT0043", alloc.DocumentNumber)
}
