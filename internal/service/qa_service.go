package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/askdocs/docqa-api/internal/dto"
	"github.com/askdocs/docqa-api/internal/models"
	appErrors "github.com/askdocs/docqa-api/pkg/errors"
)

// cacheNamespace prefixes every query-cache key so QA entries cannot
// collide with other cache uses on the same Redis database.
const cacheNamespace = "qa_query"

type qaStore interface {
	Create(ctx context.Context, interaction *models.QaInteraction) error
	ListByDocumentAndUser(ctx context.Context, documentID int64, userID string) ([]models.QaInteraction, error)
}

type documentGetter interface {
	GetByID(ctx context.Context, id int64) (*models.Document, error)
}

type answerCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type engineQuerier interface {
	Ask(ctx context.Context, externalID, question string) (*models.QueryResponse, error)
}

type qaMetrics interface {
	CacheHit()
	CacheMiss()
	ObserveEngineCall(operation string, duration time.Duration, err error)
}

// QaServiceConfig tunes the answer cache.
type QaServiceConfig struct {
	CacheTTL time.Duration
}

// QaService answers questions against processed documents, caching engine
// responses and recording interaction history.
type QaService struct {
	history qaStore
	docs    documentGetter
	cache   answerCache
	engine  engineQuerier
	metrics qaMetrics
	logger  *zap.Logger
	cfg     QaServiceConfig
}

// NewQaService constructs the service.
func NewQaService(history qaStore, docs documentGetter, cache answerCache, engine engineQuerier, metrics qaMetrics, logger *zap.Logger, cfg QaServiceConfig) *QaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &QaService{
		history: history,
		docs:    docs,
		cache:   cache,
		engine:  engine,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// CacheKey derives the deterministic cache fingerprint for a
// (document, question) pair. The question is hashed so keys stay bounded;
// the document id stays in the clear so per-document invalidation works.
func CacheKey(documentID int64, question string) string {
	digest := sha256.Sum256([]byte(question))
	return fmt.Sprintf("%s:%d:%s", cacheNamespace, documentID, hex.EncodeToString(digest[:]))
}

// Ask resolves a (document, question) pair to an answer. Cached answers
// short-circuit the engine entirely; cache faults of any kind degrade to a
// direct engine call. Only COMPLETED documents may be queried.
func (s *QaService) Ask(ctx context.Context, req dto.QueryRequest, actor *models.JWTClaims) (*models.QueryResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "question is required")
	}

	key := CacheKey(req.DocumentID, question)
	if s.cache != nil {
		var cached models.QueryResponse
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			if s.metrics != nil {
				s.metrics.CacheHit()
			}
			s.logger.Info("query cache hit", zap.String("key", key))
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("query cache unavailable, falling through to engine", zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.CacheMiss()
		}
	}

	doc, err := s.docs.GetByID(ctx, req.DocumentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("document %d not found", req.DocumentID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if doc.Status != models.StatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("document is not yet processed, current status: %s", doc.Status))
	}
	if doc.ExternalID == nil || *doc.ExternalID == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "document has no engine document id")
	}

	// The engine call survives caller disconnects so its result can still
	// be cached for the next caller. Its own timeout still applies.
	engineCtx := context.WithoutCancel(ctx)
	start := time.Now()
	answer, err := s.engine.Ask(engineCtx, *doc.ExternalID, question)
	if s.metrics != nil {
		s.metrics.ObserveEngineCall("ask", time.Since(start), err)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "processing engine query failed")
	}

	if s.cache != nil {
		if err := s.cache.Set(engineCtx, key, answer, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("failed to cache query response", zap.String("key", key), zap.Error(err))
		}
	}

	interaction := &models.QaInteraction{
		UserID:     actor.UserID,
		DocumentID: doc.ID,
		Question:   question,
		Answer:     answer.Answer,
	}
	if err := s.history.Create(ctx, interaction); err != nil {
		s.logger.Warn("failed to record qa interaction",
			zap.Int64("document_id", doc.ID), zap.Error(err))
	}

	return answer, nil
}

// History returns the actor's interactions for one document in
// chronological order.
func (s *QaService) History(ctx context.Context, documentID int64, actor *models.JWTClaims) ([]dto.QaHistoryItem, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	interactions, err := s.history.ListByDocumentAndUser(ctx, documentID, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load qa history")
	}
	items := make([]dto.QaHistoryItem, 0, len(interactions))
	for _, interaction := range interactions {
		items = append(items, dto.QaHistoryItem{
			Question:  interaction.Question,
			Answer:    interaction.Answer,
			Timestamp: interaction.Timestamp,
		})
	}
	return items, nil
}
