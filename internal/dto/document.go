package dto

import (
	"time"

	"github.com/askdocs/docqa-api/internal/models"
)

// DocumentMetadata is the caller-facing projection of a document record.
type DocumentMetadata struct {
	ID               int64                 `json:"id"`
	FileName         string                `json:"fileName"`
	ContentType      string                `json:"contentType,omitempty"`
	SizeBytes        int64                 `json:"sizeBytes,omitempty"`
	Status           models.DocumentStatus `json:"status"`
	UploadDate       time.Time             `json:"uploadDate"`
	PythonDocumentID *string               `json:"pythonDocumentId,omitempty"`
}

// NewDocumentMetadata maps a document row onto its DTO.
func NewDocumentMetadata(doc *models.Document) DocumentMetadata {
	return DocumentMetadata{
		ID:               doc.ID,
		FileName:         doc.FileName,
		ContentType:      doc.ContentType,
		SizeBytes:        doc.SizeBytes,
		Status:           doc.Status,
		UploadDate:       doc.UploadDate,
		PythonDocumentID: doc.ExternalID,
	}
}

// StatusCallbackRequest is the payload the processing engine posts back
// once it has finished (or failed) processing a document.
type StatusCallbackRequest struct {
	DocumentID       int64                 `json:"documentId" binding:"required"`
	Status           models.DocumentStatus `json:"status" binding:"required"`
	PythonDocumentID *string               `json:"pythonDocumentId"`
	ErrorMessage     *string               `json:"errorMessage"`
}

// QueryRequest asks a question against one processed document.
type QueryRequest struct {
	DocumentID int64  `json:"documentId" binding:"required"`
	Question   string `json:"question" binding:"required"`
}
