package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/askdocs/docqa-api/internal/models"
)

// QaRepository handles question/answer history persistence.
type QaRepository struct {
	db *sqlx.DB
}

// NewQaRepository constructs the repository.
func NewQaRepository(db *sqlx.DB) *QaRepository {
	return &QaRepository{db: db}
}

// Create appends one interaction record.
func (r *QaRepository) Create(ctx context.Context, interaction *models.QaInteraction) error {
	if interaction.Timestamp.IsZero() {
		interaction.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO qa_interactions (user_id, document_id, question, answer, timestamp)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		interaction.UserID, interaction.DocumentID, interaction.Question,
		interaction.Answer, interaction.Timestamp,
	).Scan(&interaction.ID); err != nil {
		return fmt.Errorf("create qa interaction: %w", err)
	}
	return nil
}

// ListByDocumentAndUser returns a user's interactions for one document in
// chronological order.
func (r *QaRepository) ListByDocumentAndUser(ctx context.Context, documentID int64, userID string) ([]models.QaInteraction, error) {
	const query = `SELECT id, user_id, document_id, question, answer, timestamp
	FROM qa_interactions
	WHERE document_id = $1 AND user_id = $2
	ORDER BY timestamp ASC`
	var interactions []models.QaInteraction
	if err := r.db.SelectContext(ctx, &interactions, query, documentID, userID); err != nil {
		return nil, fmt.Errorf("list qa interactions: %w", err)
	}
	return interactions, nil
}
