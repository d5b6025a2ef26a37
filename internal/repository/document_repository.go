package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/askdocs/docqa-api/internal/models"
)

// DocumentRepository handles document row persistence.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a new document row and fills in the generated id.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.UploadDate.IsZero() {
		doc.UploadDate = time.Now().UTC()
	}
	const query = `INSERT INTO documents
	(user_id, file_name, storage_file_name, content_type, size_bytes, status, external_id, error_message, upload_date)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		doc.UserID, doc.FileName, doc.StorageFileName, doc.ContentType,
		doc.SizeBytes, doc.Status, doc.ExternalID, doc.ErrorMessage, doc.UploadDate,
	).Scan(&doc.ID); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// GetByID retrieves one document row.
func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*models.Document, error) {
	const query = `SELECT id, user_id, file_name, storage_file_name, content_type, size_bytes,
       status, external_id, error_message, upload_date
	FROM documents WHERE id = $1`
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListByUser returns all documents owned by a user, newest first.
func (r *DocumentRepository) ListByUser(ctx context.Context, userID string) ([]models.Document, error) {
	const query = `SELECT id, user_id, file_name, storage_file_name, content_type, size_bytes,
       status, external_id, error_message, upload_date
	FROM documents WHERE user_id = $1 ORDER BY upload_date DESC`
	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, query, userID); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// UpdateStatus persists a status transition. External id and error message
// are only written when provided, so a FAILED update does not clear a
// previously assigned external id.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id int64, status models.DocumentStatus, externalID, errorMessage *string) error {
	const query = `UPDATE documents SET
	status = $2,
	external_id = COALESCE($3, external_id),
	error_message = COALESCE($4, error_message)
	WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, externalID, errorMessage)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check document update rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteWithHistory removes a document and its QA history inside one
// transaction. The two deletes succeed or fail together.
func (r *DocumentRepository) DeleteWithHistory(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM qa_interactions WHERE document_id = $1`, id); err != nil {
		return fmt.Errorf("delete qa history: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check document delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete transaction: %w", err)
	}
	return nil
}
