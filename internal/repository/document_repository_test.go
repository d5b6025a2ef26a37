package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdocs/docqa-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestDocumentCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectQuery("INSERT INTO documents").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	doc := &models.Document{
		UserID:          "u1",
		FileName:        "report.pdf",
		StorageFileName: "abc_report.pdf",
		Status:          models.StatusProcessing,
	}
	err := repo.Create(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, int64(42), doc.ID)
	assert.False(t, doc.UploadDate.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentGetByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	now := time.Now()
	externalID := "py-doc-1"
	rows := sqlmock.NewRows([]string{"id", "user_id", "file_name", "storage_file_name", "content_type", "size_bytes", "status", "external_id", "error_message", "upload_date"}).
		AddRow(int64(7), "u1", "report.pdf", "abc_report.pdf", "application/pdf", int64(1024), string(models.StatusCompleted), externalID, nil, now)
	mock.ExpectQuery("SELECT .+ FROM documents WHERE id = \\$1").
		WithArgs(int64(7)).
		WillReturnRows(rows)

	doc, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, doc.Status)
	require.NotNil(t, doc.ExternalID)
	assert.Equal(t, "py-doc-1", *doc.ExternalID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentListByUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "file_name", "storage_file_name", "content_type", "size_bytes", "status", "external_id", "error_message", "upload_date"}).
		AddRow(int64(2), "u1", "b.pdf", "x_b.pdf", "application/pdf", int64(10), string(models.StatusProcessing), nil, nil, now).
		AddRow(int64(1), "u1", "a.pdf", "y_a.pdf", "application/pdf", int64(20), string(models.StatusCompleted), "py-1", nil, now.Add(-time.Hour))
	mock.ExpectQuery("SELECT .+ FROM documents WHERE user_id = \\$1 ORDER BY upload_date DESC").
		WithArgs("u1").
		WillReturnRows(rows)

	docs, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Equal(t, int64(2), docs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentUpdateStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	externalID := "py-doc-1"
	mock.ExpectExec("UPDATE documents SET").
		WithArgs(int64(7), string(models.StatusCompleted), &externalID, (*string)(nil)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), 7, models.StatusCompleted, &externalID, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentUpdateStatusNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectExec("UPDATE documents SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), 99, models.StatusFailed, nil, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentDeleteWithHistory(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM qa_interactions WHERE document_id = $1")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.DeleteWithHistory(context.Background(), 7)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentDeleteWithHistoryNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM qa_interactions WHERE document_id = $1")).
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents WHERE id = $1")).
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.DeleteWithHistory(context.Background(), 99)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
