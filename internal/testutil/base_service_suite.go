package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/vircom/folio/internal/cache"
	"github.com/vircom/folio/internal/config"
	"github.com/vircom/folio/internal/logger"
	"github.com/vircom/folio/internal/types"
	"github.com/vircom/folio/internal/validator"
)

// Stores holds the in-memory repositories shared by service tests
type Stores struct {
	SequenceRepo *InMemorySequenceStore
	DocumentRepo *InMemoryDocumentStore
	LineItemRepo *InMemoryLineItemStore
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores Stores
	db     *InMemoryTxClient
	cache  cache.Cache
	logger *logger.Logger
	config *config.Configuration
	now    time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	// Initialize validator
	validator.NewValidator()

	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelInfo
	// keep contention tests fast
	cfg.Sequence.LockTimeout = 200 * time.Millisecond
	cfg.Sequence.MaxRetries = 2
	cfg.Sequence.RetryInitialInterval = 5 * time.Millisecond
	cfg.Sequence.RetryMaxElapsedTime = time.Second
	cfg.Reconciliation.BatchSize = 3
	cfg.Reconciliation.SampleSize = 5

	var err error
	s.config = cfg
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.setupStores()
	s.cache = cache.NewInMemoryCache(s.config, nil)
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		SequenceRepo: NewInMemorySequenceStore(),
		DocumentRepo: NewInMemoryDocumentStore(),
		LineItemRepo: NewInMemoryLineItemStore(),
	}
	s.db = NewInMemoryTxClient(
		s.config.Sequence.LockTimeout,
		s.stores.SequenceRepo,
		s.stores.DocumentRepo,
		s.stores.LineItemRepo,
	)
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.SequenceRepo.Clear()
	s.stores.DocumentRepo.Clear()
	s.stores.LineItemRepo.Clear()
}

// GetContext returns the tenant-scoped test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetStores returns the in-memory repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetDB returns the in-memory transactional client
func (s *BaseServiceTestSuite) GetDB() *InMemoryTxClient {
	return s.db
}

func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
