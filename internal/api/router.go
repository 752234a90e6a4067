package api

import (
	"github.com/gin-gonic/gin"
	"github.com/vircom/folio/internal/api/cron"
	v1 "github.com/vircom/folio/internal/api/v1"
	"github.com/vircom/folio/internal/config"
	"github.com/vircom/folio/internal/logger"
	"github.com/vircom/folio/internal/rest/middleware"
	"github.com/vircom/folio/internal/types"
)

type Handlers struct {
	Health       *v1.HealthHandler
	Sequence     *v1.SequenceHandler
	Document     *v1.DocumentHandler
	SequenceCron *cron.SequenceCronHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, log *logger.Logger) *gin.Engine {
	if cfg.Deployment.Mode != types.ModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.CORSMiddleware,
		middleware.RequestIDMiddleware,
		middleware.ErrorHandler(log),
	)

	router.GET("/health", handlers.Health.Health)

	// v1 routes
	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers, middleware.NewTenantRateLimiter(cfg.Reconciliation.RateLimitPerMinute))

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers, repairLimiter *middleware.TenantRateLimiter) {
	tenant := router.Group("", middleware.TenantMiddleware)

	sequences := tenant.Group("/sequences")
	{
		sequences.GET("", handlers.Sequence.ListConfigs)
		sequences.POST("/repair", middleware.RateLimitMiddleware(repairLimiter), handlers.Sequence.RepairAll)
		sequences.GET("/:type", handlers.Sequence.GetConfig)
		sequences.PUT("/:type", handlers.Sequence.UpdateConfig)
		sequences.GET("/:type/preview", handlers.Sequence.PreviewNext)
		sequences.POST("/:type/allocate", handlers.Sequence.Allocate)
		sequences.POST("/:type/repair", middleware.RateLimitMiddleware(repairLimiter), handlers.Sequence.Repair)
	}

	documents := tenant.Group("/documents")
	{
		documents.POST("", handlers.Document.CreateDocument)
		documents.GET("", handlers.Document.ListDocuments)
		documents.POST("/import", handlers.Document.ImportDocuments)
		documents.POST("/backfill/:type", handlers.Document.BackfillNumbers)
		documents.GET("/:id", handlers.Document.GetDocument)
		documents.POST("/:id/duplicate", handlers.Document.DuplicateDocument)
	}

	cronGroup := router.Group("/cron", middleware.SystemContextMiddleware)
	{
		cronGroup.POST("/sequences/reconcile", handlers.SequenceCron.ReconcileSequences)
	}
}
