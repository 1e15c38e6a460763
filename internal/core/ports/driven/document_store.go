package driven

import (
	"context"

	"github.com/archivist-labs/ragcore/internal/core/domain"
)

// DocumentStore persists upload records and their processing status
// (PostgreSQL). The vector index remains the source of truth for chunk
// existence; this registry tracks ingest attempts, including failed ones.
type DocumentStore interface {
	// Save creates or updates a document record
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*domain.Document, error)

	// GetByFilename retrieves the most recent record for a filename
	GetByFilename(ctx context.Context, filename string) (*domain.Document, error)

	// List retrieves documents with pagination, newest first
	List(ctx context.Context, limit, offset int) ([]*domain.Document, error)

	// UpdateStatus transitions a document's processing status
	UpdateStatus(ctx context.Context, id string, status domain.ProcessingStatus, errMsg string) error

	// Delete removes a document record
	Delete(ctx context.Context, id string) error

	// Count returns the total document record count
	Count(ctx context.Context) (int, error)
}
