package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/askdocs/docqa-api/internal/models"
	"github.com/askdocs/docqa-api/internal/queue"
	appErrors "github.com/askdocs/docqa-api/pkg/errors"
)

type documentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id int64) (*models.Document, error)
	ListByUser(ctx context.Context, userID string) ([]models.Document, error)
	UpdateStatus(ctx context.Context, id int64, status models.DocumentStatus, externalID, errorMessage *string) error
	DeleteWithHistory(ctx context.Context, id int64) error
}

type jobEnqueuer interface {
	Enqueue(ctx context.Context, job queue.ProcessingJob) error
}

type uploadStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Delete(filename string) error
}

type engineDeleter interface {
	Delete(ctx context.Context, externalID string) error
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

type documentMetrics interface {
	JobEnqueued()
	ObserveEngineCall(operation string, duration time.Duration, err error)
}

// DocumentUpload carries the incoming file stream and its metadata.
type DocumentUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// DocumentServiceConfig holds upload validation parameters.
type DocumentServiceConfig struct {
	MaxFileSize int64
}

// DocumentService owns the document lifecycle: staging uploads, creating
// records, enqueueing processing jobs, applying status callbacks and
// orchestrating deletion across stores.
type DocumentService struct {
	repo    documentStore
	queue   jobEnqueuer
	storage uploadStorage
	engine  engineDeleter
	cache   cacheInvalidator
	metrics documentMetrics
	logger  *zap.Logger
	cfg     DocumentServiceConfig
}

// NewDocumentService constructs the service.
func NewDocumentService(repo documentStore, q jobEnqueuer, storage uploadStorage, engine engineDeleter, cache cacheInvalidator, metrics documentMetrics, logger *zap.Logger, cfg DocumentServiceConfig) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 25 * 1024 * 1024
	}
	return &DocumentService{
		repo:    repo,
		queue:   q,
		storage: storage,
		engine:  engine,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// Upload stages the file, creates the document record in PROCESSING status
// and enqueues a job for the engine. It returns without waiting for
// processing. An enqueue failure rolls the upload back: the record ends in
// FAILED, the staged file is removed and the caller gets an
// infrastructure error.
func (s *DocumentService) Upload(ctx context.Context, upload DocumentUpload, actor *models.JWTClaims) (*models.Document, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if upload.Content == nil || upload.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file must not be empty")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}

	// The storage name never trusts the user-supplied filename beyond its
	// base component; the random prefix makes collisions a non-issue.
	storageName := uuid.NewString() + "_" + filepath.Base(upload.Filename)
	stagedPath, err := s.storage.SaveStream(storageName, upload.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stage uploaded file")
	}

	doc := &models.Document{
		UserID:          actor.UserID,
		FileName:        filepath.Base(upload.Filename),
		StorageFileName: storageName,
		ContentType:     upload.ContentType,
		SizeBytes:       upload.Size,
		Status:          models.StatusProcessing,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		_ = s.storage.Delete(storageName)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create document record")
	}

	job := queue.ProcessingJob{DocumentID: doc.ID, FilePath: stagedPath}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.logger.Error("failed to enqueue processing job",
			zap.Int64("document_id", doc.ID), zap.Error(err))
		reason := "could not enqueue document for processing"
		if updateErr := s.repo.UpdateStatus(ctx, doc.ID, models.StatusFailed, nil, &reason); updateErr != nil {
			s.logger.Error("failed to mark document as failed after enqueue error",
				zap.Int64("document_id", doc.ID), zap.Error(updateErr))
		}
		if removeErr := s.storage.Delete(storageName); removeErr != nil {
			s.logger.Warn("failed to remove staged file after enqueue error",
				zap.String("file", storageName), zap.Error(removeErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInfrastructure.Code, appErrors.ErrInfrastructure.Status, reason)
	}
	if s.metrics != nil {
		s.metrics.JobEnqueued()
	}
	s.logger.Info("enqueued document for processing",
		zap.Int64("document_id", doc.ID), zap.String("file", doc.FileName))

	return doc, nil
}

// List returns the actor's documents, newest first.
func (s *DocumentService) List(ctx context.Context, actor *models.JWTClaims) ([]models.Document, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	docs, err := s.repo.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	return docs, nil
}

// UpdateStatus applies a state-machine transition reported by the engine.
// Redelivered callbacks are tolerated: repeating the exact update already
// applied is a no-op. Any other transition out of a terminal state is
// rejected.
func (s *DocumentService) UpdateStatus(ctx context.Context, update models.StatusUpdate) error {
	if !update.Status.IsValid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", update.Status))
	}

	doc, err := s.repo.GetByID(ctx, update.DocumentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("document %d not found", update.DocumentID))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}

	if doc.Status == update.Status && externalIDMatches(doc.ExternalID, update.ExternalID) {
		s.logger.Debug("ignoring redelivered status update",
			zap.Int64("document_id", doc.ID), zap.String("status", string(update.Status)))
		return nil
	}
	if doc.Status.IsTerminal() {
		return appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("document %d already in terminal status %s", doc.ID, doc.Status))
	}
	if !doc.Status.CanTransitionTo(update.Status) {
		return appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("cannot transition document %d from %s to %s", doc.ID, doc.Status, update.Status))
	}
	if doc.ExternalID != nil && update.ExternalID != nil && *doc.ExternalID != *update.ExternalID {
		return appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("document %d already has an engine document id", doc.ID))
	}

	if err := s.repo.UpdateStatus(ctx, doc.ID, update.Status, update.ExternalID, update.ErrorMessage); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update document status")
	}
	s.logger.Info("updated document status",
		zap.Int64("document_id", doc.ID), zap.String("status", string(update.Status)))
	return nil
}

// Delete removes a document and all dependent state. History and the
// record itself go together transactionally; the engine copy, the staged
// file and cached answers are cleaned up best-effort afterwards and never
// fail the operation.
func (s *DocumentService) Delete(ctx context.Context, id int64, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}

	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("document %d not found", id))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if doc.UserID != actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "you do not have permission to delete this document")
	}

	if err := s.repo.DeleteWithHistory(ctx, doc.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete document record")
	}

	if s.engine != nil && doc.ExternalID != nil && *doc.ExternalID != "" {
		start := time.Now()
		err := s.engine.Delete(ctx, *doc.ExternalID)
		if s.metrics != nil {
			s.metrics.ObserveEngineCall("delete", time.Since(start), err)
		}
		if err != nil {
			// Declared non-fatal; the engine copy may need manual cleanup.
			s.logger.Error("failed to delete document from engine",
				zap.Int64("document_id", doc.ID), zap.String("external_id", *doc.ExternalID), zap.Error(err))
		}
	}

	if err := s.storage.Delete(doc.StorageFileName); err != nil {
		s.logger.Warn("failed to delete staged file",
			zap.Int64("document_id", doc.ID), zap.String("file", doc.StorageFileName), zap.Error(err))
	}

	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, fmt.Sprintf("qa_query:%d:*", doc.ID)); err != nil {
			s.logger.Warn("failed to invalidate cached answers",
				zap.Int64("document_id", doc.ID), zap.Error(err))
		}
	}

	s.logger.Info("deleted document", zap.Int64("document_id", doc.ID))
	return nil
}

func externalIDMatches(current, incoming *string) bool {
	if incoming == nil {
		return true
	}
	return current != nil && *current == *incoming
}
