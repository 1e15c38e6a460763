package driving

import (
	"context"

	"github.com/archivist-labs/ragcore/internal/core/domain"
)

// FileUpload is one raw file accepted for ingestion
type FileUpload struct {
	Filename string
	Content  []byte
	Source   string // display label; defaults to Filename when empty
}

// IngestService turns uploaded files into indexed, searchable documents
type IngestService interface {
	// IngestFile processes and indexes a single file
	IngestFile(ctx context.Context, upload FileUpload) (*domain.IngestResult, error)

	// IngestBatch processes files sequentially. A failing file is
	// reported in its result and does not abort the remaining files.
	IngestBatch(ctx context.Context, uploads []FileUpload) []*domain.IngestResult

	// EnqueueFile schedules a file on shared storage for background ingestion
	EnqueueFile(ctx context.Context, path, source string) (taskID string, err error)

	// DeleteDocuments removes documents and all of their chunks by ID.
	// Returns true if anything was deleted.
	DeleteDocuments(ctx context.Context, documentIDs []string) (bool, error)

	// DeleteDocumentByFilename removes every document whose filename matches
	DeleteDocumentByFilename(ctx context.Context, filename string) (bool, error)

	// ListDocuments returns per-document summaries from stored chunk metadata
	ListDocuments(ctx context.Context) ([]*domain.DocumentSummary, error)

	// DocumentCount returns the number of distinct indexed documents
	DocumentCount(ctx context.Context) (int, error)
}
