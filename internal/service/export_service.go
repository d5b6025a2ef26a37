package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/askdocs/docqa-api/internal/models"
	appErrors "github.com/askdocs/docqa-api/pkg/errors"
	"github.com/askdocs/docqa-api/pkg/export"
)

// ExportFormat selects the rendering for a history export.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportFile bundles rendered bytes with download metadata.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders a document's QA history as a downloadable file.
type ExportService struct {
	history qaStore
	docs    documentGetter
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(history qaStore, docs documentGetter, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		history: history,
		docs:    docs,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

// ExportHistory renders the actor's interactions for one owned document.
func (s *ExportService) ExportHistory(ctx context.Context, documentID int64, format ExportFormat, actor *models.JWTClaims) (*ExportFile, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("document %d not found", documentID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if doc.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you do not have permission to export this document's history")
	}

	interactions, err := s.history.ListByDocumentAndUser(ctx, documentID, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load qa history")
	}

	dataset := export.Dataset{
		Headers: []string{"Question", "Answer", "Timestamp"},
		Rows:    make([][]string, 0, len(interactions)),
	}
	for _, interaction := range interactions {
		dataset.Rows = append(dataset.Rows, []string{
			interaction.Question,
			interaction.Answer,
			interaction.Timestamp.UTC().Format(time.RFC3339),
		})
	}

	base := strings.TrimSuffix(doc.FileName, "."+strings.ToLower(fileExt(doc.FileName)))
	switch format {
	case FormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("%s-qa-history.csv", base),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case FormatPDF:
		data, err := s.pdf.Render(dataset, fmt.Sprintf("Q&A History: %s", doc.FileName))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("%s-qa-history.pdf", base),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func fileExt(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return name[idx+1:]
}
