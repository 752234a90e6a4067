package service

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
	"github.com/vircom/folio/internal/domain/sequence"
	ierr "github.com/vircom/folio/internal/errors"
	"github.com/vircom/folio/internal/testutil"
	"github.com/vircom/folio/internal/types"
)

type ReconciliationServiceSuite struct {
	testutil.BaseServiceTestSuite
	service         ReconciliationService
	sequenceService SequenceService
}

func TestReconciliationService(t *testing.T) {
	suite.Run(t, new(ReconciliationServiceSuite))
}

func (s *ReconciliationServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	s.service = NewReconciliationService(params)
	s.sequenceService = NewSequenceService(params)
}

func (s *ReconciliationServiceSuite) TestRepairDetectsDrift() {
	ctx := s.GetContext()
	seedConfig(ctx, s.GetStores().SequenceRepo, types.DocumentTypeClient, "C", 5, 4)
	for _, number := range []string{"C0001", "C0042", "C0007"} {
		seedDocument(ctx, s.GetStores().DocumentRepo, types.DocumentTypeClient, number)
	}

	report, err := s.service.AnalyzeAndRepair(ctx, types.DocumentTypeClient)
	s.Require().NoError(err)
	s.True(report.Repaired)
	s.Equal(3, report.Scanned)
	s.Equal(int64(42), report.MaxFound)
	s.Equal(int64(5), report.PreviousNumber)
	s.Equal(int64(42), report.CurrentNumber)

	resp, err := s.sequenceService.Allocate(ctx, types.DocumentTypeClient)
	s.NoError(err)
	s.Equal("C0043", resp.DocumentNumber)
}

func (s *ReconciliationServiceSuite) TestRepairNeverLowersCounter() {
	ctx := s.GetContext()
	seedConfig(ctx, s.GetStores().SequenceRepo, types.DocumentTypeSale, "S", 50, 4)
	seedDocument(ctx, s.GetStores().DocumentRepo, types.DocumentTypeSale, "S0030")

	report, err := s.service.AnalyzeAndRepair(ctx, types.DocumentTypeSale)
	s.NoError(err)
	s.False(report.Repaired)
	s.Equal(int64(30), report.MaxFound)
	s.Equal(int64(50), report.CurrentNumber)
	s.Equal(int64(50), storedCounter(ctx, s.GetStores().SequenceRepo, types.DocumentTypeSale))
}

func (s *ReconciliationServiceSuite) TestRepairIsIdempotent() {
	ctx := s.GetContext()
	seedConfig(ctx, s.GetStores().SequenceRepo, types.DocumentTypeClient, "C", 5, 4)
	seedDocument(ctx, s.GetStores().DocumentRepo, types.DocumentTypeClient, "C0042")

	first, err := s.service.AnalyzeAndRepair(ctx, types.DocumentTypeClient)
	s.Require().NoError(err)
	s.True(first.Repaired)

	second, err := s.service.AnalyzeAndRepair(ctx, types.DocumentTypeClient)
	s.Require().NoError(err)
	s.False(second.Repaired)
	s.Equal(first.CurrentNumber, second.CurrentNumber)
	s.Equal(int64(42), storedCounter(ctx, s.GetStores().SequenceRepo, types.DocumentTypeClient))
}

func (s *ReconciliationServiceSuite) TestRepairSkipsUnparseableNumbers() {
	ctx := s.GetContext()
	seedConfig(ctx, s.GetStores().SequenceRepo, types.DocumentTypeClient, "C", 0, 4)
	for _, number := range []string{"C0003", "C00A1", "C", "X0099", "LEGACY-7"} {
		seedDocument(ctx, s.GetStores().DocumentRepo, types.DocumentTypeClient, number)
	}

	report, err := s.service.AnalyzeAndRepair(ctx, types.DocumentTypeClient)
	s.Require().NoError(err)
	s.Equal(5, report.Scanned)
	s.Equal(1, report.Parsed)
	s.Equal(2, report.Malformed)
	s.Equal(2, report.ForeignPrefix)
	s.Len(report.Samples, 4)
	s.Equal(int64(3), report.CurrentNumber)
}

func (s *ReconciliationServiceSuite) TestRepairLeavesUnusedTypeUnconfigured() {
	ctx := s.GetContext()

	report, err := s.service.AnalyzeAndRepair(ctx, types.DocumentTypeLoan)
	s.NoError(err)
	s.False(report.Repaired)
	s.Equal(0, report.Scanned)

	_, err = s.GetStores().SequenceRepo.Get(ctx, types.DocumentTypeLoan)
	s.True(ierr.IsNotFound(err))
}

func (s *ReconciliationServiceSuite) TestRepairBootstrapsConfigFromDocuments() {
	ctx := s.GetContext()
	seedDocument(ctx, s.GetStores().DocumentRepo, types.DocumentTypeRental, "R0017")

	report, err := s.service.AnalyzeAndRepair(ctx, types.DocumentTypeRental)
	s.NoError(err)
	s.True(report.Repaired)

	cfg, err := s.GetStores().SequenceRepo.Get(ctx, types.DocumentTypeRental)
	s.Require().NoError(err)
	s.Equal("R", cfg.Prefix)
	s.Equal(int64(17), cfg.CurrentNumber)
}

func (s *ReconciliationServiceSuite) TestRepairWalksEveryPage() {
	ctx := s.GetContext()
	// batch size is 3 in tests
	for i := 1; i <= 10; i++ {
		seedDocument(ctx, s.GetStores().DocumentRepo, types.DocumentTypeTicket, sequenceNumber("T", i))
	}

	report, err := s.service.AnalyzeAndRepair(ctx, types.DocumentTypeTicket)
	s.NoError(err)
	s.Equal(10, report.Scanned)
	s.Equal(int64(10), report.CurrentNumber)
}

func (s *ReconciliationServiceSuite) TestRepairReportsScanFailure() {
	ctx := s.GetContext()
	seedConfig(ctx, s.GetStores().SequenceRepo, types.DocumentTypeTicket, "T", 2, 4)
	for i := 1; i <= 7; i++ {
		seedDocument(ctx, s.GetStores().DocumentRepo, types.DocumentTypeTicket, sequenceNumber("T", i))
	}
	s.GetStores().DocumentRepo.FailScanAfter(4, errors.New("connection reset"))
	defer s.GetStores().DocumentRepo.FailScanAfter(0, nil)

	_, err := s.service.AnalyzeAndRepair(ctx, types.DocumentTypeTicket)
	s.Error(err)
	s.True(ierr.IsDatabase(err))
	s.Contains(errors.FlattenHints(err), "Reconciliation stopped after scanning 3 documents")
	s.Equal(int64(2), storedCounter(ctx, s.GetStores().SequenceRepo, types.DocumentTypeTicket))
}

func (s *ReconciliationServiceSuite) TestRepairUnknownType() {
	_, err := s.service.AnalyzeAndRepair(s.GetContext(), types.DocumentType("widget"))
	s.True(ierr.IsValidation(err))
}

func (s *ReconciliationServiceSuite) TestReconcileAll() {
	ctx := s.GetContext()
	seedConfig(ctx, s.GetStores().SequenceRepo, types.DocumentTypeClient, "C", 1, 4)
	seedDocument(ctx, s.GetStores().DocumentRepo, types.DocumentTypeClient, "C0009")
	seedDocument(ctx, s.GetStores().DocumentRepo, types.DocumentTypeSale, "S0004")
	seedConfig(ctx, s.GetStores().SequenceRepo, types.DocumentTypeOrder, "O", 20, 4)
	seedDocument(ctx, s.GetStores().DocumentRepo, types.DocumentTypeOrder, "O0003")

	resp, err := s.service.ReconcileAll(ctx)
	s.Require().NoError(err)
	s.Empty(resp.Failures)
	s.Len(resp.Reports, len(types.KnownDocumentTypes()))
	s.Equal(2, resp.Repaired)

	for i := 1; i < len(resp.Reports); i++ {
		s.Less(resp.Reports[i-1].DocumentType, resp.Reports[i].DocumentType)
	}

	s.Equal(int64(9), storedCounter(ctx, s.GetStores().SequenceRepo, types.DocumentTypeClient))
	s.Equal(int64(4), storedCounter(ctx, s.GetStores().SequenceRepo, types.DocumentTypeSale))
	s.Equal(int64(20), storedCounter(ctx, s.GetStores().SequenceRepo, types.DocumentTypeOrder))
}

func (s *ReconciliationServiceSuite) TestReconcileTenants() {
	ctxA := testutil.WithTenant(s.GetContext(), "tenant_a")
	ctxB := testutil.WithTenant(s.GetContext(), "tenant_b")
	ctxC := testutil.WithTenant(s.GetContext(), "tenant_c")

	seedDocument(ctxA, s.GetStores().DocumentRepo, types.DocumentTypeClient, "C0012")
	seedConfig(ctxB, s.GetStores().SequenceRepo, types.DocumentTypeClient, "C", 1, 4)
	seedDocument(ctxB, s.GetStores().DocumentRepo, types.DocumentTypeClient, "C0003")
	seedConfig(ctxC, s.GetStores().SequenceRepo, types.DocumentTypeSale, "S", 8, 4)

	resp, err := s.service.ReconcileTenants(s.GetContext())
	s.Require().NoError(err)
	s.Equal(3, resp.Tenants)
	s.Equal(2, resp.Repaired)
	s.Empty(resp.Failures)

	s.Equal(int64(12), storedCounter(ctxA, s.GetStores().SequenceRepo, types.DocumentTypeClient))
	s.Equal(int64(3), storedCounter(ctxB, s.GetStores().SequenceRepo, types.DocumentTypeClient))
	s.Equal(int64(8), storedCounter(ctxC, s.GetStores().SequenceRepo, types.DocumentTypeSale))
}

func (s *ReconciliationServiceSuite) TestReconcileTenantsCollectsFailures() {
	ctxA := testutil.WithTenant(s.GetContext(), "tenant_a")
	seedDocument(ctxA, s.GetStores().DocumentRepo, types.DocumentTypeClient, "C0012")
	s.GetStores().SequenceRepo.FailUpdates(ierr.NewError("disk full").Mark(ierr.ErrDatabase))
	defer s.GetStores().SequenceRepo.FailUpdates(nil)

	resp, err := s.service.ReconcileTenants(s.GetContext())
	s.Require().NoError(err)
	s.Require().Len(resp.Failures, 1)
	s.Equal("tenant_a", resp.Failures[0].TenantID)
	s.Equal(types.DocumentTypeClient, resp.Failures[0].DocumentType)
}

func sequenceNumber(prefix string, n int) string {
	return sequence.Format(prefix, int64(n), sequence.DefaultPadding)
}
