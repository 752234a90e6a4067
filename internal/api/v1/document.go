package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/vircom/folio/internal/api/dto"
	ierr "github.com/vircom/folio/internal/errors"
	"github.com/vircom/folio/internal/logger"
	"github.com/vircom/folio/internal/service"
	"github.com/vircom/folio/internal/types"
)

type DocumentHandler struct {
	service service.DocumentService
	log     *logger.Logger
}

func NewDocumentHandler(service service.DocumentService, log *logger.Logger) *DocumentHandler {
	return &DocumentHandler{service: service, log: log}
}

// @Summary Create a document
// @Description Create a document with its line items and a freshly allocated number
// @Tags Documents
// @Accept json
// @Produce json
// @Param document body dto.CreateDocumentRequest true "Document"
// @Success 201 {object} dto.DocumentResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /documents [post]
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	var req dto.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateDocument(c.Request.Context(), req)
	if err != nil {
		h.log.Errorw("failed to create document", "document_type", req.DocumentType, "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// @Summary Get a document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} dto.DocumentResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /documents/{id} [get]
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	resp, err := h.service.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary List documents
// @Tags Documents
// @Produce json
// @Param filter query types.DocumentFilter false "Filter"
// @Success 200 {object} dto.ListDocumentsResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /documents [get]
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	var filter types.DocumentFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	if filter.Limit == nil {
		filter.Limit = lo.ToPtr(types.FILTER_DEFAULT_LIMIT)
	}

	resp, err := h.service.ListDocuments(c.Request.Context(), &filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Duplicate a document
// @Description Clone a document and its line items under a new number
// @Tags Documents
// @Produce json
// @Param id path string true "Source document ID"
// @Success 201 {object} dto.DocumentResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /documents/{id}/duplicate [post]
func (h *DocumentHandler) DuplicateDocument(c *gin.Context) {
	resp, err := h.service.DuplicateDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.log.Errorw("failed to duplicate document", "source_document_id", c.Param("id"), "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// @Summary Import legacy documents
// @Description Store documents that already carry numbers. Re-running an import skips rows already stored.
// @Tags Documents
// @Accept json
// @Produce json
// @Param import body dto.ImportDocumentsRequest true "Documents"
// @Success 200 {object} dto.ImportDocumentsResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /documents/import [post]
func (h *DocumentHandler) ImportDocuments(c *gin.Context) {
	var req dto.ImportDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ImportDocuments(c.Request.Context(), req)
	if err != nil {
		h.log.Errorw("failed to import documents", "document_type", req.DocumentType, "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Backfill document numbers
// @Description Number every unnumbered document of the type, oldest first
// @Tags Documents
// @Produce json
// @Param type path string true "Document type"
// @Success 200 {object} dto.BackfillNumbersResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /documents/backfill/{type} [post]
func (h *DocumentHandler) BackfillNumbers(c *gin.Context) {
	resp, err := h.service.BackfillNumbers(c.Request.Context(), types.DocumentType(c.Param("type")))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
