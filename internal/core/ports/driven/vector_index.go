package driven

import (
	"context"
)

// VectorRecord is one stored chunk record: id, embedding, text, metadata
type VectorRecord struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  map[string]string
}

// VectorMatch is one nearest-neighbor hit with its raw distance.
// Distance is metric-dependent; similarity conversion happens in the
// indexer service so the [0,1] score invariant lives in one place.
type VectorMatch struct {
	ID       string
	Content  string
	Metadata map[string]string
	Distance float64
}

// VectorIndex handles vector persistence and k-nearest-neighbor queries.
// Implementations: Chroma (HTTP), Qdrant (gRPC), pgvector (PostgreSQL).
type VectorIndex interface {
	// EnsureCollection idempotently opens or creates the collection.
	// Safe to call repeatedly.
	EnsureCollection(ctx context.Context) error

	// Upsert inserts or replaces records by ID
	Upsert(ctx context.Context, records []VectorRecord) error

	// Query performs a k-nearest-neighbor search, optionally restricted
	// by exact-match metadata filter. Results are ordered nearest first.
	// An empty collection yields an empty result, not an error.
	Query(ctx context.Context, embedding []float32, k int, filter map[string]string) ([]VectorMatch, error)

	// Delete removes records by ID
	Delete(ctx context.Context, ids []string) error

	// DeleteByFilter removes all records whose metadata matches the filter.
	// Returns the number of records removed.
	DeleteByFilter(ctx context.Context, filter map[string]string) (int, error)

	// ListMetadata returns the metadata of every stored record,
	// for grouping chunks back into per-document summaries.
	ListMetadata(ctx context.Context) ([]map[string]string, error)

	// Count returns the total number of stored records
	Count(ctx context.Context) (int, error)

	// HealthCheck verifies the backing store is reachable
	HealthCheck(ctx context.Context) error
}
