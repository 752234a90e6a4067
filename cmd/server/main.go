package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vircom/folio/internal/api"
	"github.com/vircom/folio/internal/api/cron"
	v1 "github.com/vircom/folio/internal/api/v1"
	"github.com/vircom/folio/internal/cache"
	"github.com/vircom/folio/internal/config"
	"github.com/vircom/folio/internal/database"
	"github.com/vircom/folio/internal/logger"
	"github.com/vircom/folio/internal/repository"
	"github.com/vircom/folio/internal/service"
	"github.com/vircom/folio/internal/types"
	"github.com/vircom/folio/internal/validator"
	"go.uber.org/fx"
)

// @title Folio API
// @version 1.0
// @description Document numbering service
// @BasePath /v1
// @schemes http https

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	// Initialize Fx application
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Cache
			cache.NewInMemoryCache,

			// Database
			database.NewDB,
			provideDBClient,

			// Repositories
			repository.NewSequenceRepository,
			repository.NewDocumentRepository,
			repository.NewLineItemRepository,
		),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,

			service.NewSequenceService,
			service.NewReconciliationService,
			service.NewDocumentService,
		),
	)

	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideDBClient(db *database.DB) database.IClient {
	return db
}

func provideHandlers(
	db *database.DB,
	logger *logger.Logger,
	sequenceService service.SequenceService,
	reconciliationService service.ReconciliationService,
	documentService service.DocumentService,
) api.Handlers {
	return api.Handlers{
		Health:       v1.NewHealthHandler(db, logger),
		Sequence:     v1.NewSequenceHandler(sequenceService, reconciliationService, logger),
		Document:     v1.NewDocumentHandler(documentService, logger),
		SequenceCron: cron.NewSequenceCronHandler(reconciliationService, logger),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	return api.NewRouter(handlers, cfg, logger)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	db *database.DB,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal, types.ModeAPI:
		startAPIServer(lc, r, db, cfg, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	db *database.DB,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	log.Info("Registering API server start hook")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("Starting API server...", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			err := srv.Shutdown(ctx)
			db.Close()
			_ = log.Sync()
			return err
		},
	})
}
