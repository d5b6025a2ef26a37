package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdocs/docqa-api/internal/models"
)

func TestQaCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQaRepository(db)

	mock.ExpectQuery("INSERT INTO qa_interactions").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))

	interaction := &models.QaInteraction{
		UserID:     "u1",
		DocumentID: 7,
		Question:   "What is the refund policy?",
		Answer:     "Refunds are issued within 30 days.",
	}
	err := repo.Create(context.Background(), interaction)
	require.NoError(t, err)
	assert.Equal(t, int64(5), interaction.ID)
	assert.False(t, interaction.Timestamp.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQaListByDocumentAndUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQaRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "document_id", "question", "answer", "timestamp"}).
		AddRow(int64(1), "u1", int64(7), "q1", "a1", now.Add(-time.Minute)).
		AddRow(int64(2), "u1", int64(7), "q2", "a2", now)
	mock.ExpectQuery("SELECT .+ FROM qa_interactions").
		WithArgs(int64(7), "u1").
		WillReturnRows(rows)

	interactions, err := repo.ListByDocumentAndUser(context.Background(), 7, "u1")
	require.NoError(t, err)
	require.Len(t, interactions, 2)
	assert.Equal(t, "q1", interactions[0].Question)
	assert.True(t, interactions[0].Timestamp.Before(interactions[1].Timestamp))
	assert.NoError(t, mock.ExpectationsWereMet())
}
