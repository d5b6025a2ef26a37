package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/askdocs/docqa-api/internal/dto"
	"github.com/askdocs/docqa-api/internal/middleware"
	"github.com/askdocs/docqa-api/internal/service"
	appErrors "github.com/askdocs/docqa-api/pkg/errors"
	"github.com/askdocs/docqa-api/pkg/response"
)

// QaHandler wires HTTP endpoints to the QA and export services.
type QaHandler struct {
	qa     *service.QaService
	export *service.ExportService
}

// NewQaHandler creates a new handler.
func NewQaHandler(qa *service.QaService, export *service.ExportService) *QaHandler {
	return &QaHandler{qa: qa, export: export}
}

// Ask godoc
// @Summary Ask a question
// @Description Answer a question against one processed document, using cached answers when available
// @Tags QA
// @Accept json
// @Produce json
// @Param payload body dto.QueryRequest true "Query payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /qa/ask [post]
func (h *QaHandler) Ask(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query payload"))
		return
	}

	answer, err := h.qa.Ask(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, answer, nil)
}

// History godoc
// @Summary Get QA history
// @Description List the authenticated user's past interactions for one document in chronological order
// @Tags QA
// @Produce json
// @Param documentId path int true "Document id"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /qa/history/{documentId} [get]
func (h *QaHandler) History(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	documentID, err := strconv.ParseInt(c.Param("documentId"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid document id"))
		return
	}

	items, err := h.qa.History(c.Request.Context(), documentID, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, nil)
}

// ExportHistory godoc
// @Summary Export QA history
// @Description Download the QA history for one document as CSV or PDF
// @Tags QA
// @Produce text/csv
// @Produce application/pdf
// @Param documentId path int true "Document id"
// @Param format query string false "Export format (csv or pdf)" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /qa/history/{documentId}/export [get]
func (h *QaHandler) ExportHistory(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	documentID, err := strconv.ParseInt(c.Param("documentId"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid document id"))
		return
	}

	format := service.ExportFormat(c.DefaultQuery("format", string(service.FormatCSV)))
	file, err := h.export.ExportHistory(c.Request.Context(), documentID, format, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
