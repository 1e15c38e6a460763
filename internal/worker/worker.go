// Package worker runs background ingestion tasks from the task queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/archivist-labs/ragcore/internal/core/domain"
	"github.com/archivist-labs/ragcore/internal/core/ports/driven"
	"github.com/archivist-labs/ragcore/internal/core/ports/driving"
	"github.com/archivist-labs/ragcore/internal/metrics"
)

// Worker processes tasks from the task queue.
type Worker struct {
	taskQueue driven.TaskQueue
	ingest    driving.IngestService
	logger    zerolog.Logger
	metrics   *metrics.Metrics // optional

	// Configuration
	concurrency    int
	dequeueTimeout int // seconds

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Config holds configuration for the worker
type Config struct {
	TaskQueue      driven.TaskQueue
	Ingest         driving.IngestService
	Logger         zerolog.Logger
	Metrics        *metrics.Metrics // optional
	Concurrency    int // Number of concurrent task processors
	DequeueTimeout int // Seconds to wait for a task before checking again
}

// New creates a new task worker
func New(cfg Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5
	}

	return &Worker{
		taskQueue:      cfg.TaskQueue,
		ingest:         cfg.Ingest,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
		concurrency:    concurrency,
		dequeueTimeout: dequeueTimeout,
	}
}

// Start begins the worker loop.
// It runs until Stop is called or context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info().
		Int("concurrency", w.concurrency).
		Int("dequeue_timeout", w.dequeueTimeout).
		Msg("worker starting")

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(ctx, workerID)
		}(i)
	}

	go func() {
		wg.Wait()
		close(w.doneCh)
	}()

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	// Wait for workers to finish
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info().Msg("worker stopped")
}

// Wait blocks until the worker stops
func (w *Worker) Wait() {
	<-w.doneCh
}

// processLoop is the main processing loop for a worker goroutine
func (w *Worker) processLoop(ctx context.Context, workerID int) {
	logger := w.logger.With().Int("worker_id", workerID).Logger()
	logger.Info().Msg("worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("worker context cancelled")
			return
		case <-w.stopCh:
			logger.Info().Msg("worker stop signal received")
			return
		default:
		}

		task, err := w.taskQueue.DequeueWithTimeout(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error().Err(err).Msg("failed to dequeue task")
			time.Sleep(time.Second) // Back off on error
			continue
		}

		if task == nil {
			// No task available, continue
			continue
		}

		w.processTask(ctx, task, logger)
	}
}

// processTask processes a single task
func (w *Worker) processTask(ctx context.Context, task *domain.Task, logger zerolog.Logger) {
	logger = logger.With().
		Str("task_id", task.ID).
		Str("task_type", string(task.Type)).
		Logger()
	logger.Info().Msg("processing task")

	startTime := time.Now()
	var err error

	switch task.Type {
	case domain.TaskTypeIngestFile:
		err = w.handleIngestFile(ctx, task)
	case domain.TaskTypeDeleteDocument:
		err = w.handleDeleteDocument(ctx, task)
	default:
		err = fmt.Errorf("unknown task type: %s", task.Type)
	}

	duration := time.Since(startTime)

	if err != nil {
		logger.Error().
			Dur("duration", duration).
			Err(err).
			Msg("task failed")

		// Nack the task so it can be retried
		if nackErr := w.taskQueue.Nack(ctx, task.ID, err.Error()); nackErr != nil {
			logger.Error().Err(nackErr).Msg("failed to nack task")
		}
		w.observeTask(task, "failed")
		return
	}

	logger.Info().Dur("duration", duration).Msg("task completed")

	if ackErr := w.taskQueue.Ack(ctx, task.ID); ackErr != nil {
		logger.Error().Err(ackErr).Msg("failed to ack task")
	}
	w.observeTask(task, "completed")
}

func (w *Worker) observeTask(task *domain.Task, status string) {
	if w.metrics != nil {
		w.metrics.TasksProcessedTotal.WithLabelValues(string(task.Type), status).Inc()
	}
}

// handleIngestFile reads a file from shared storage and ingests it
func (w *Worker) handleIngestFile(ctx context.Context, task *domain.Task) error {
	path := task.Payload["path"]
	if path == "" {
		return fmt.Errorf("path not found in task payload")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file %s: %w", path, err)
	}

	source := task.Payload["source"]

	result, err := w.ingest.IngestFile(ctx, driving.FileUpload{
		Filename: filepath.Base(path),
		Content:  content,
		Source:   source,
	})
	if err != nil {
		return err
	}

	w.logger.Info().
		Str("document_id", result.Document.ID).
		Int("chunks", result.ChunkCount).
		Msg("file ingested")

	return nil
}

// handleDeleteDocument removes a document and all of its chunks
func (w *Worker) handleDeleteDocument(ctx context.Context, task *domain.Task) error {
	documentID := task.Payload["document_id"]
	if documentID == "" {
		return fmt.Errorf("document_id not found in task payload")
	}

	deleted, err := w.ingest.DeleteDocuments(ctx, []string{documentID})
	if err != nil {
		return err
	}
	if !deleted {
		w.logger.Warn().Str("document_id", documentID).Msg("document not found")
	}

	return nil
}

// Health returns health status of the worker
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

// Health returns the health status of the worker
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{
		Running: running,
	}

	if err := w.taskQueue.Ping(ctx); err != nil {
		health.QueueHealth = false
		health.Error = err.Error()
	} else {
		health.QueueHealth = true
	}

	return health
}
