package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vircom/folio/internal/api/dto"
	ierr "github.com/vircom/folio/internal/errors"
	"github.com/vircom/folio/internal/logger"
	"github.com/vircom/folio/internal/service"
	"github.com/vircom/folio/internal/types"
)

type SequenceHandler struct {
	sequenceService       service.SequenceService
	reconciliationService service.ReconciliationService
	log                   *logger.Logger
}

func NewSequenceHandler(
	sequenceService service.SequenceService,
	reconciliationService service.ReconciliationService,
	log *logger.Logger,
) *SequenceHandler {
	return &SequenceHandler{
		sequenceService:       sequenceService,
		reconciliationService: reconciliationService,
		log:                   log,
	}
}

func documentTypeParam(c *gin.Context) types.DocumentType {
	return types.DocumentType(c.Param("type"))
}

// @Summary List sequence configs
// @Description List the numbering config of every document type, synthesizing defaults for unused types
// @Tags Sequences
// @Produce json
// @Success 200 {object} dto.ListSequenceConfigsResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /sequences [get]
func (h *SequenceHandler) ListConfigs(c *gin.Context) {
	resp, err := h.sequenceService.ListConfigs(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Get a sequence config
// @Tags Sequences
// @Produce json
// @Param type path string true "Document type"
// @Success 200 {object} dto.SequenceConfigResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /sequences/{type} [get]
func (h *SequenceHandler) GetConfig(c *gin.Context) {
	resp, err := h.sequenceService.GetConfig(c.Request.Context(), documentTypeParam(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Update a sequence config
// @Description Change the prefix or padding used for future numbers. Existing numbers are not rewritten.
// @Tags Sequences
// @Accept json
// @Produce json
// @Param type path string true "Document type"
// @Param config body dto.UpdateSequenceConfigRequest true "Sequence format"
// @Success 200 {object} dto.UpdateSequenceConfigResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /sequences/{type} [put]
func (h *SequenceHandler) UpdateConfig(c *gin.Context) {
	var req dto.UpdateSequenceConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.sequenceService.UpdateConfig(c.Request.Context(), documentTypeParam(c), req)
	if err != nil {
		h.log.Errorw("failed to update sequence config", "document_type", c.Param("type"), "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Preview the next number
// @Description Returns the number the next allocation would produce. Nothing is reserved.
// @Tags Sequences
// @Produce json
// @Param type path string true "Document type"
// @Success 200 {object} dto.PreviewNumberResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /sequences/{type}/preview [get]
func (h *SequenceHandler) PreviewNext(c *gin.Context) {
	resp, err := h.sequenceService.PreviewNext(c.Request.Context(), documentTypeParam(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Allocate a number
// @Tags Sequences
// @Produce json
// @Param type path string true "Document type"
// @Success 201 {object} dto.AllocateNumberResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /sequences/{type}/allocate [post]
func (h *SequenceHandler) Allocate(c *gin.Context) {
	resp, err := h.sequenceService.Allocate(c.Request.Context(), documentTypeParam(c))
	if err != nil {
		h.log.Errorw("failed to allocate document number", "document_type", c.Param("type"), "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// @Summary Repair a sequence
// @Description Scan the documents of the type and raise the counter to the highest number in use
// @Tags Sequences
// @Produce json
// @Param type path string true "Document type"
// @Success 200 {object} dto.RepairReport
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 429 {object} ierr.ErrorResponse
// @Router /sequences/{type}/repair [post]
func (h *SequenceHandler) Repair(c *gin.Context) {
	resp, err := h.reconciliationService.AnalyzeAndRepair(c.Request.Context(), documentTypeParam(c))
	if err != nil {
		h.log.Errorw("failed to repair sequence", "document_type", c.Param("type"), "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Repair every sequence of the tenant
// @Tags Sequences
// @Produce json
// @Success 200 {object} dto.ReconcileAllResponse
// @Failure 429 {object} ierr.ErrorResponse
// @Router /sequences/repair [post]
func (h *SequenceHandler) RepairAll(c *gin.Context) {
	resp, err := h.reconciliationService.ReconcileAll(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
