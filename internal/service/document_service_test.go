package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdocs/docqa-api/internal/models"
	"github.com/askdocs/docqa-api/internal/queue"
	appErrors "github.com/askdocs/docqa-api/pkg/errors"
)

type docStoreStub struct {
	docs      map[int64]*models.Document
	nextID    int64
	createErr error
	updates   []models.StatusUpdate
	deleted   []int64
	deleteErr error
}

func newDocStoreStub() *docStoreStub {
	return &docStoreStub{docs: make(map[int64]*models.Document), nextID: 1}
}

func (s *docStoreStub) Create(ctx context.Context, doc *models.Document) error {
	if s.createErr != nil {
		return s.createErr
	}
	doc.ID = s.nextID
	s.nextID++
	copy := *doc
	s.docs[doc.ID] = &copy
	return nil
}

func (s *docStoreStub) GetByID(ctx context.Context, id int64) (*models.Document, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *doc
	return &copy, nil
}

func (s *docStoreStub) ListByUser(ctx context.Context, userID string) ([]models.Document, error) {
	result := make([]models.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		if doc.UserID == userID {
			result = append(result, *doc)
		}
	}
	return result, nil
}

func (s *docStoreStub) UpdateStatus(ctx context.Context, id int64, status models.DocumentStatus, externalID, errorMessage *string) error {
	doc, ok := s.docs[id]
	if !ok {
		return sql.ErrNoRows
	}
	doc.Status = status
	if externalID != nil {
		doc.ExternalID = externalID
	}
	if errorMessage != nil {
		doc.ErrorMessage = errorMessage
	}
	s.updates = append(s.updates, models.StatusUpdate{DocumentID: id, Status: status, ExternalID: externalID, ErrorMessage: errorMessage})
	return nil
}

func (s *docStoreStub) DeleteWithHistory(ctx context.Context, id int64) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.docs[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.docs, id)
	s.deleted = append(s.deleted, id)
	return nil
}

type queueStub struct {
	jobs []queue.ProcessingJob
	err  error
}

func (q *queueStub) Enqueue(ctx context.Context, job queue.ProcessingJob) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type uploadStorageStub struct {
	saved   map[string][]byte
	deleted []string
	saveErr error
}

func newUploadStorageStub() *uploadStorageStub {
	return &uploadStorageStub{saved: make(map[string][]byte)}
}

func (s *uploadStorageStub) SaveStream(filename string, r io.Reader) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.saved[filename] = data
	return "/staged/" + filename, nil
}

func (s *uploadStorageStub) Delete(filename string) error {
	delete(s.saved, filename)
	s.deleted = append(s.deleted, filename)
	return nil
}

type engineDeleterStub struct {
	deleted []string
	err     error
}

func (e *engineDeleterStub) Delete(ctx context.Context, externalID string) error {
	e.deleted = append(e.deleted, externalID)
	return e.err
}

type cacheInvalidatorStub struct {
	patterns []string
	err      error
}

func (c *cacheInvalidatorStub) DeleteByPattern(ctx context.Context, pattern string) error {
	c.patterns = append(c.patterns, pattern)
	return c.err
}

func newTestDocumentService(store *docStoreStub, q *queueStub, storage *uploadStorageStub, engine *engineDeleterStub, cache *cacheInvalidatorStub) *DocumentService {
	return NewDocumentService(store, q, storage, engine, cache, nil, nil, DocumentServiceConfig{MaxFileSize: 1024})
}

func testActor() *models.JWTClaims {
	return &models.JWTClaims{UserID: "u1", Email: "user@example.com"}
}

func TestUploadEnqueuesJob(t *testing.T) {
	store := newDocStoreStub()
	q := &queueStub{}
	storage := newUploadStorageStub()
	svc := newTestDocumentService(store, q, storage, &engineDeleterStub{}, &cacheInvalidatorStub{})

	doc, err := svc.Upload(context.Background(), DocumentUpload{
		Filename:    "report.pdf",
		ContentType: "application/pdf",
		Size:        11,
		Content:     strings.NewReader("hello world"),
	}, testActor())
	require.NoError(t, err)

	assert.Equal(t, models.StatusProcessing, doc.Status)
	assert.Equal(t, "report.pdf", doc.FileName)
	assert.NotEqual(t, "report.pdf", doc.StorageFileName)
	assert.Len(t, storage.saved, 1)

	require.Len(t, q.jobs, 1)
	assert.Equal(t, doc.ID, q.jobs[0].DocumentID)
	assert.Equal(t, "/staged/"+doc.StorageFileName, q.jobs[0].FilePath)
}

func TestUploadEnqueueFailureRollsBack(t *testing.T) {
	store := newDocStoreStub()
	q := &queueStub{err: errors.New("redis down")}
	storage := newUploadStorageStub()
	svc := newTestDocumentService(store, q, storage, &engineDeleterStub{}, &cacheInvalidatorStub{})

	_, err := svc.Upload(context.Background(), DocumentUpload{
		Filename: "report.pdf",
		Size:     11,
		Content:  strings.NewReader("hello world"),
	}, testActor())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInfrastructure.Code, appErrors.FromError(err).Code)

	// The record survives in FAILED so the caller can see what happened,
	// but the staged file is gone.
	require.Len(t, store.updates, 1)
	assert.Equal(t, models.StatusFailed, store.updates[0].Status)
	assert.Empty(t, storage.saved)
	assert.Len(t, storage.deleted, 1)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	svc := newTestDocumentService(newDocStoreStub(), &queueStub{}, newUploadStorageStub(), &engineDeleterStub{}, &cacheInvalidatorStub{})

	_, err := svc.Upload(context.Background(), DocumentUpload{
		Filename: "big.pdf",
		Size:     2048,
		Content:  strings.NewReader("x"),
	}, testActor())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateStatusLifecycle(t *testing.T) {
	store := newDocStoreStub()
	svc := newTestDocumentService(store, &queueStub{}, newUploadStorageStub(), &engineDeleterStub{}, &cacheInvalidatorStub{})

	doc := &models.Document{UserID: "u1", Status: models.StatusProcessing}
	require.NoError(t, store.Create(context.Background(), doc))

	externalID := "py-doc-1"
	update := models.StatusUpdate{DocumentID: doc.ID, Status: models.StatusCompleted, ExternalID: &externalID}
	require.NoError(t, svc.UpdateStatus(context.Background(), update))

	stored, err := store.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	require.NotNil(t, stored.ExternalID)
	assert.Equal(t, externalID, *stored.ExternalID)

	// Redelivering the identical callback is a no-op.
	require.NoError(t, svc.UpdateStatus(context.Background(), update))
	assert.Len(t, store.updates, 1)

	// Any other transition out of the terminal state is rejected.
	err = svc.UpdateStatus(context.Background(), models.StatusUpdate{DocumentID: doc.ID, Status: models.StatusFailed})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestUpdateStatusUnknownDocument(t *testing.T) {
	svc := newTestDocumentService(newDocStoreStub(), &queueStub{}, newUploadStorageStub(), &engineDeleterStub{}, &cacheInvalidatorStub{})

	err := svc.UpdateStatus(context.Background(), models.StatusUpdate{DocumentID: 99, Status: models.StatusCompleted})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUpdateStatusRejectsExternalIDChange(t *testing.T) {
	store := newDocStoreStub()
	svc := newTestDocumentService(store, &queueStub{}, newUploadStorageStub(), &engineDeleterStub{}, &cacheInvalidatorStub{})

	assigned := "py-doc-1"
	doc := &models.Document{UserID: "u1", Status: models.StatusProcessing, ExternalID: &assigned}
	require.NoError(t, store.Create(context.Background(), doc))

	other := "py-doc-2"
	err := svc.UpdateStatus(context.Background(), models.StatusUpdate{DocumentID: doc.ID, Status: models.StatusCompleted, ExternalID: &other})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc := newTestDocumentService(newDocStoreStub(), &queueStub{}, newUploadStorageStub(), &engineDeleterStub{}, &cacheInvalidatorStub{})

	err := svc.UpdateStatus(context.Background(), models.StatusUpdate{DocumentID: 1, Status: "BOGUS"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDeleteForbiddenForOtherUsers(t *testing.T) {
	store := newDocStoreStub()
	svc := newTestDocumentService(store, &queueStub{}, newUploadStorageStub(), &engineDeleterStub{}, &cacheInvalidatorStub{})

	doc := &models.Document{UserID: "owner", Status: models.StatusCompleted}
	require.NoError(t, store.Create(context.Background(), doc))

	err := svc.Delete(context.Background(), doc.ID, testActor())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.deleted)
}

func TestDeleteCleansUpBestEffort(t *testing.T) {
	store := newDocStoreStub()
	engine := &engineDeleterStub{err: errors.New("engine unreachable")}
	storage := newUploadStorageStub()
	cache := &cacheInvalidatorStub{}
	svc := newTestDocumentService(store, &queueStub{}, storage, engine, cache)

	externalID := "py-doc-1"
	doc := &models.Document{UserID: "u1", Status: models.StatusCompleted, StorageFileName: "abc_report.pdf", ExternalID: &externalID}
	require.NoError(t, store.Create(context.Background(), doc))

	// Engine failure is logged, not surfaced.
	require.NoError(t, svc.Delete(context.Background(), doc.ID, testActor()))

	assert.Equal(t, []int64{doc.ID}, store.deleted)
	assert.Equal(t, []string{externalID}, engine.deleted)
	assert.Equal(t, []string{"abc_report.pdf"}, storage.deleted)
	require.Len(t, cache.patterns, 1)
	assert.Equal(t, fmt.Sprintf("qa_query:%d:*", doc.ID), cache.patterns[0])
}

func TestListScopedToActor(t *testing.T) {
	store := newDocStoreStub()
	svc := newTestDocumentService(store, &queueStub{}, newUploadStorageStub(), &engineDeleterStub{}, &cacheInvalidatorStub{})

	require.NoError(t, store.Create(context.Background(), &models.Document{UserID: "u1", FileName: "mine.pdf", UploadDate: time.Now()}))
	require.NoError(t, store.Create(context.Background(), &models.Document{UserID: "u2", FileName: "other.pdf", UploadDate: time.Now()}))

	docs, err := svc.List(context.Background(), testActor())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "mine.pdf", docs[0].FileName)
}
