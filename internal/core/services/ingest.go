package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/archivist-labs/ragcore/internal/core/domain"
	"github.com/archivist-labs/ragcore/internal/core/ports/driven"
	"github.com/archivist-labs/ragcore/internal/core/ports/driving"
)

// Ensure ingestService implements IngestService
var _ driving.IngestService = (*ingestService)(nil)

// ingestService orchestrates the upload pipeline: process, register,
// index. The document store is a registry of ingest attempts; the
// vector index stays the source of truth for what is searchable.
type ingestService struct {
	processor     *Processor
	indexer       *Indexer
	documentStore driven.DocumentStore
	taskQueue     driven.TaskQueue // nil when no queue backend is configured
	logger        zerolog.Logger
}

// NewIngestService creates a new IngestService
func NewIngestService(
	processor *Processor,
	indexer *Indexer,
	documentStore driven.DocumentStore,
	taskQueue driven.TaskQueue,
	logger zerolog.Logger,
) driving.IngestService {
	return &ingestService{
		processor:     processor,
		indexer:       indexer,
		documentStore: documentStore,
		taskQueue:     taskQueue,
		logger:        logger.With().Str("component", "ingest").Logger(),
	}
}

// IngestFile processes and indexes a single file. Failed attempts are
// recorded in the registry with their error message.
func (s *ingestService) IngestFile(ctx context.Context, upload driving.FileUpload) (*domain.IngestResult, error) {
	doc, chunks, err := s.processor.Process(upload.Filename, upload.Content, upload.Source)
	if err != nil {
		s.recordFailedUpload(ctx, upload, err)
		return nil, err
	}

	if err := s.documentStore.Save(ctx, doc); err != nil {
		return nil, domain.WithCategory(domain.CategoryDatabase,
			fmt.Errorf("register document %s: %w", doc.Filename, err))
	}

	if err := s.indexer.AddChunks(ctx, chunks); err != nil {
		s.updateStatus(ctx, doc.ID, domain.StatusFailed, err.Error())
		return nil, err
	}

	s.updateStatus(ctx, doc.ID, domain.StatusCompleted, "")
	doc.Status = domain.StatusCompleted

	s.logger.Info().
		Str("document_id", doc.ID).
		Str("filename", doc.Filename).
		Int("chunks", len(chunks)).
		Msg("file ingested")

	return &domain.IngestResult{
		Document:   doc,
		ChunkCount: len(chunks),
	}, nil
}

// IngestBatch processes files sequentially. A failing file is reported
// in its result and does not abort the remaining files.
func (s *ingestService) IngestBatch(ctx context.Context, uploads []driving.FileUpload) []*domain.IngestResult {
	results := make([]*domain.IngestResult, 0, len(uploads))
	for _, upload := range uploads {
		result, err := s.IngestFile(ctx, upload)
		if err != nil {
			s.logger.Warn().Err(err).Str("filename", upload.Filename).Msg("file failed in batch")
			result = &domain.IngestResult{
				Document: &domain.Document{
					Filename: upload.Filename,
					Source:   upload.Source,
					Status:   domain.StatusFailed,
					Error:    err.Error(),
				},
				Err: err,
			}
		}
		results = append(results, result)
	}
	return results
}

// EnqueueFile schedules a file on shared storage for background ingestion
func (s *ingestService) EnqueueFile(ctx context.Context, path, source string) (string, error) {
	if s.taskQueue == nil {
		return "", domain.ErrServiceUnavailable
	}
	if path == "" {
		return "", fmt.Errorf("%w: path is required", domain.ErrInvalidInput)
	}

	task := domain.NewTask(uuid.New().String(), domain.TaskTypeIngestFile, map[string]string{
		"path":   path,
		"source": source,
	})
	if err := s.taskQueue.Enqueue(ctx, task); err != nil {
		return "", domain.WithCategory(domain.CategoryDatabase,
			fmt.Errorf("enqueue ingest task: %w", err))
	}

	s.logger.Info().Str("task_id", task.ID).Str("path", path).Msg("ingest task enqueued")
	return task.ID, nil
}

// DeleteDocuments removes documents and all of their chunks by ID
func (s *ingestService) DeleteDocuments(ctx context.Context, documentIDs []string) (bool, error) {
	deleted, err := s.indexer.DeleteByDocumentIDs(ctx, documentIDs)
	if err != nil {
		return deleted, err
	}

	for _, id := range documentIDs {
		if err := s.documentStore.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn().Err(err).Str("document_id", id).Msg("registry delete failed")
		}
	}
	return deleted, nil
}

// DeleteDocumentByFilename removes every document whose filename matches
func (s *ingestService) DeleteDocumentByFilename(ctx context.Context, filename string) (bool, error) {
	if filename == "" {
		return false, fmt.Errorf("%w: filename is required", domain.ErrInvalidInput)
	}

	deleted, err := s.indexer.DeleteByFilename(ctx, filename)
	if err != nil {
		return false, err
	}

	if doc, err := s.documentStore.GetByFilename(ctx, filename); err == nil && doc != nil {
		if err := s.documentStore.Delete(ctx, doc.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn().Err(err).Str("filename", filename).Msg("registry delete failed")
		}
	}
	return deleted, nil
}

// ListDocuments returns per-document summaries from stored chunk metadata
func (s *ingestService) ListDocuments(ctx context.Context) ([]*domain.DocumentSummary, error) {
	return s.indexer.ListDocuments(ctx)
}

// DocumentCount returns the number of distinct indexed documents
func (s *ingestService) DocumentCount(ctx context.Context) (int, error) {
	return s.indexer.DocumentCount(ctx)
}

// recordFailedUpload registers a failed ingest attempt so rejected
// uploads remain visible. Best effort; registry errors only log.
func (s *ingestService) recordFailedUpload(ctx context.Context, upload driving.FileUpload, cause error) {
	fileType, _ := domain.FileTypeFromFilename(upload.Filename)
	source := upload.Source
	if source == "" {
		source = upload.Filename
	}

	doc := &domain.Document{
		ID:         uuid.New().String(),
		Filename:   upload.Filename,
		FileType:   fileType,
		SizeBytes:  int64(len(upload.Content)),
		Source:     source,
		Status:     domain.StatusFailed,
		Error:      cause.Error(),
		UploadedAt: time.Now().UTC(),
	}
	if err := s.documentStore.Save(ctx, doc); err != nil {
		s.logger.Warn().Err(err).Str("filename", upload.Filename).Msg("failed to record rejected upload")
	}
}

func (s *ingestService) updateStatus(ctx context.Context, id string, status domain.ProcessingStatus, errMsg string) {
	if err := s.documentStore.UpdateStatus(ctx, id, status, errMsg); err != nil {
		s.logger.Warn().Err(err).Str("document_id", id).Msg("status update failed")
	}
}
