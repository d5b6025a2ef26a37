package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/askdocs/docqa-api/internal/engine"
	"github.com/askdocs/docqa-api/internal/models"
	"github.com/askdocs/docqa-api/internal/queue"
	"github.com/askdocs/docqa-api/pkg/cache"
	"github.com/askdocs/docqa-api/pkg/config"
	"github.com/askdocs/docqa-api/pkg/logger"
)

// statusReport is the payload posted back to the API once a job finishes.
type statusReport struct {
	DocumentID       int64                 `json:"documentId"`
	Status           models.DocumentStatus `json:"status"`
	PythonDocumentID *string               `json:"pythonDocumentId,omitempty"`
	ErrorMessage     *string               `json:"errorMessage,omitempty"`
}

type worker struct {
	queue       *queue.RedisQueue
	engine      *engine.Client
	httpClient  *http.Client
	callbackURL string
	popTimeout  time.Duration
	retryDelay  time.Duration
	logger      *zap.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	engineClient, err := engine.NewClient(cfg.Engine)
	if err != nil {
		logr.Sugar().Fatalw("failed to init engine client", "error", err)
	}

	w := &worker{
		queue:       queue.NewRedisQueue(redisClient, cfg.Queue.Name),
		engine:      engineClient,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		callbackURL: cfg.Worker.CallbackURL,
		popTimeout:  cfg.Queue.PopTimeout,
		retryDelay:  cfg.Worker.RetryDelay,
		logger:      logr,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logr.Sugar().Infow("worker starting", "queue", w.queue.Name(), "callback", w.callbackURL)
	w.run(ctx)
	logr.Info("worker stopped")
}

// run consumes jobs until the context is cancelled. Queue errors back off
// for the retry delay instead of crashing the loop.
func (w *worker) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		job, ok, err := w.queue.Dequeue(ctx, w.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("failed to dequeue job, backing off", zap.Error(err))
			select {
			case <-time.After(w.retryDelay):
			case <-ctx.Done():
				return
			}
			continue
		}
		if !ok {
			continue
		}

		w.process(ctx, job)
	}
}

// process runs one job end to end: feed the staged file to the engine,
// report the outcome, then drop the staged file. The file is kept when
// processing fails so the job can be replayed by hand.
func (w *worker) process(ctx context.Context, job queue.ProcessingJob) {
	w.logger.Info("processing job",
		zap.Int64("document_id", job.DocumentID), zap.String("file", job.FilePath))

	file, err := os.Open(job.FilePath)
	if err != nil {
		w.report(ctx, failureReport(job.DocumentID, fmt.Sprintf("staged file unavailable: %v", err)))
		return
	}

	uploaded, err := w.engine.Upload(ctx, filepath.Base(job.FilePath), file)
	file.Close() //nolint:errcheck,gosec
	if err != nil {
		w.logger.Error("engine upload failed",
			zap.Int64("document_id", job.DocumentID), zap.Error(err))
		w.report(ctx, failureReport(job.DocumentID, err.Error()))
		return
	}
	if !uploaded.Success || uploaded.DocumentID == "" {
		reason := uploaded.Message
		if reason == "" {
			reason = "engine rejected the document"
		}
		w.report(ctx, failureReport(job.DocumentID, reason))
		return
	}

	w.report(ctx, statusReport{
		DocumentID:       job.DocumentID,
		Status:           models.StatusCompleted,
		PythonDocumentID: &uploaded.DocumentID,
	})

	if err := os.Remove(job.FilePath); err != nil {
		w.logger.Warn("failed to remove staged file",
			zap.String("file", job.FilePath), zap.Error(err))
	}

	w.logger.Info("job completed",
		zap.Int64("document_id", job.DocumentID),
		zap.String("external_id", uploaded.DocumentID),
		zap.Int("chunks", uploaded.ChunksProcessed))
}

// report posts the job outcome to the API's status callback endpoint.
func (w *worker) report(ctx context.Context, update statusReport) {
	body, err := json.Marshal(update)
	if err != nil {
		w.logger.Error("failed to encode status report", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.callbackURL, bytes.NewReader(body))
	if err != nil {
		w.logger.Error("failed to build callback request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		w.logger.Error("status callback failed",
			zap.Int64("document_id", update.DocumentID), zap.Error(err))
		return
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		w.logger.Error("status callback rejected",
			zap.Int64("document_id", update.DocumentID), zap.Int("status", resp.StatusCode))
	}
}

func failureReport(documentID int64, reason string) statusReport {
	return statusReport{
		DocumentID:   documentID,
		Status:       models.StatusFailed,
		ErrorMessage: &reason,
	}
}
