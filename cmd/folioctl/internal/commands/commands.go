package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/vircom/folio/internal/cache"
	"github.com/vircom/folio/internal/config"
	"github.com/vircom/folio/internal/database"
	"github.com/vircom/folio/internal/logger"
	"github.com/vircom/folio/internal/repository"
	"github.com/vircom/folio/internal/service"
	"github.com/vircom/folio/internal/types"
	"github.com/vircom/folio/internal/validator"
)

type Globals struct {
	Debug   bool
	Version string
}

// TenantFlags scope a command to one tenant
type TenantFlags struct {
	Tenant string `help:"Tenant ID" required:"" env:"FOLIO_TENANT_ID"`
}

// runtime holds the services a command works with
type runtime struct {
	db     *database.DB
	log    *logger.Logger
	params service.ServiceParams
}

func newRuntime(globals *Globals) (*runtime, error) {
	validator.NewValidator()

	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if globals.Debug {
		cfg.Logging.Level = types.LogLevelDebug
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.NewDB(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	params := service.NewServiceParams(
		log,
		cfg,
		db,
		cache.NewInMemoryCache(cfg, log),
		repository.NewSequenceRepository(db, log, cfg),
		repository.NewDocumentRepository(db, log),
		repository.NewLineItemRepository(db, log),
	)
	return &runtime{db: db, log: log, params: params}, nil
}

func (r *runtime) Close() {
	r.db.Close()
	_ = r.log.Sync()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
