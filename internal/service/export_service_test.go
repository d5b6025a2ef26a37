package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdocs/docqa-api/internal/models"
	appErrors "github.com/askdocs/docqa-api/pkg/errors"
)

func TestExportHistoryCSV(t *testing.T) {
	docs := newDocStoreStub()
	doc := &models.Document{UserID: "u1", FileName: "report.pdf", Status: models.StatusCompleted}
	require.NoError(t, docs.Create(context.Background(), doc))

	history := &qaStoreStub{}
	require.NoError(t, history.Create(context.Background(), &models.QaInteraction{
		UserID: "u1", DocumentID: doc.ID,
		Question: "What is the refund policy?",
		Answer:   "Refunds are issued within 30 days.",
	}))

	svc := NewExportService(history, docs, nil)
	file, err := svc.ExportHistory(context.Background(), doc.ID, FormatCSV, testActor())
	require.NoError(t, err)

	assert.Equal(t, "report-qa-history.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)
	content := string(file.Data)
	assert.Contains(t, content, "Question,Answer,Timestamp")
	assert.Contains(t, content, "What is the refund policy?")
	assert.Contains(t, content, "Refunds are issued within 30 days.")
}

func TestExportHistoryPDF(t *testing.T) {
	docs := newDocStoreStub()
	doc := &models.Document{UserID: "u1", FileName: "report.pdf", Status: models.StatusCompleted}
	require.NoError(t, docs.Create(context.Background(), doc))

	history := &qaStoreStub{}
	require.NoError(t, history.Create(context.Background(), &models.QaInteraction{
		UserID: "u1", DocumentID: doc.ID, Question: "q", Answer: "a",
	}))

	svc := NewExportService(history, docs, nil)
	file, err := svc.ExportHistory(context.Background(), doc.ID, FormatPDF, testActor())
	require.NoError(t, err)

	assert.Equal(t, "report-qa-history.pdf", file.Filename)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF"))
}

func TestExportHistoryForbidden(t *testing.T) {
	docs := newDocStoreStub()
	doc := &models.Document{UserID: "owner", FileName: "report.pdf"}
	require.NoError(t, docs.Create(context.Background(), doc))

	svc := NewExportService(&qaStoreStub{}, docs, nil)
	_, err := svc.ExportHistory(context.Background(), doc.ID, FormatCSV, testActor())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExportHistoryUnsupportedFormat(t *testing.T) {
	docs := newDocStoreStub()
	doc := &models.Document{UserID: "u1", FileName: "report.pdf"}
	require.NoError(t, docs.Create(context.Background(), doc))

	svc := NewExportService(&qaStoreStub{}, docs, nil)
	_, err := svc.ExportHistory(context.Background(), doc.ID, ExportFormat("xml"), testActor())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
