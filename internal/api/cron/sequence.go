package cron

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vircom/folio/internal/logger"
	"github.com/vircom/folio/internal/service"
)

type SequenceCronHandler struct {
	reconciliationService service.ReconciliationService
	log                   *logger.Logger
}

func NewSequenceCronHandler(reconciliationService service.ReconciliationService, log *logger.Logger) *SequenceCronHandler {
	return &SequenceCronHandler{
		reconciliationService: reconciliationService,
		log:                   log,
	}
}

// ReconcileSequences repairs the counters of every tenant
func (h *SequenceCronHandler) ReconcileSequences(c *gin.Context) {
	h.log.Infow("starting sequence reconciliation cron job", "time", time.Now().UTC().Format(time.RFC3339))

	resp, err := h.reconciliationService.ReconcileTenants(c.Request.Context())
	if err != nil {
		h.log.Errorw("sequence reconciliation cron job failed", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
