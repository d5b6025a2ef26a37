package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/askdocs/docqa-api/internal/dto"
	"github.com/askdocs/docqa-api/internal/middleware"
	"github.com/askdocs/docqa-api/internal/models"
	"github.com/askdocs/docqa-api/internal/service"
	appErrors "github.com/askdocs/docqa-api/pkg/errors"
	"github.com/askdocs/docqa-api/pkg/response"
)

// DocumentHandler wires HTTP endpoints to the document service.
type DocumentHandler struct {
	service *service.DocumentService
}

// NewDocumentHandler creates a new handler.
func NewDocumentHandler(svc *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{service: svc}
}

// Upload godoc
// @Summary Upload document
// @Description Stage a document and enqueue it for asynchronous processing
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document file"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /documents/upload [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "could not read uploaded file"))
		return
	}
	defer file.Close()

	doc, err := h.service.Upload(c.Request.Context(), service.DocumentUpload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Content:     file,
	}, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Accepted(c, dto.NewDocumentMetadata(doc))
}

// List godoc
// @Summary List documents
// @Description List the authenticated user's documents, newest first
// @Tags Documents
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	docs, err := h.service.List(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.DocumentMetadata, 0, len(docs))
	for i := range docs {
		items = append(items, dto.NewDocumentMetadata(&docs[i]))
	}

	response.JSON(c, http.StatusOK, items, nil)
}

// Delete godoc
// @Summary Delete document
// @Description Delete a document, its QA history, its engine copy and any staged file
// @Tags Documents
// @Produce json
// @Param id path int true "Document id"
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid document id"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, claims); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// StatusCallback godoc
// @Summary Report processing status
// @Description Endpoint the processing worker calls to report the outcome of a document job
// @Tags Documents
// @Accept json
// @Produce json
// @Param payload body dto.StatusCallbackRequest true "Status update"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /documents/callback/status [post]
func (h *DocumentHandler) StatusCallback(c *gin.Context) {
	var req dto.StatusCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status callback payload"))
		return
	}

	update := models.StatusUpdate{
		DocumentID:   req.DocumentID,
		Status:       req.Status,
		ExternalID:   req.PythonDocumentID,
		ErrorMessage: req.ErrorMessage,
	}
	if err := h.service.UpdateStatus(c.Request.Context(), update); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"message": "status updated"}, nil)
}
