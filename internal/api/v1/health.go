package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vircom/folio/internal/database"
	ierr "github.com/vircom/folio/internal/errors"
	"github.com/vircom/folio/internal/logger"
)

type HealthHandler struct {
	db     *database.DB
	logger *logger.Logger
}

func NewHealthHandler(db *database.DB, logger *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: logger,
	}
}

// @Summary Health check
// @Description Reports whether the database is reachable
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 500 {object} ierr.ErrorResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		h.logger.Errorw("database ping failed", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Database unavailable").
			Mark(ierr.ErrDatabase))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
