package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/archivist-labs/ragcore/internal/core/domain"
	"github.com/archivist-labs/ragcore/internal/core/ports/driven"
	"github.com/archivist-labs/ragcore/internal/retry"
	"github.com/archivist-labs/ragcore/internal/runtime"
)

// Embedding calls are retried with a short fixed backoff before the
// whole ingest is failed.
const (
	embedBatchSize   = 64
	embedMaxAttempts = 3
	embedRetryDelay  = 500 * time.Millisecond
)

// Indexer sits between the document pipeline and the vector index: it
// embeds chunk text, writes records, and turns raw index distances into
// [0,1] similarity scores. All similarity math lives here so the
// backends only ever report distances.
type Indexer struct {
	index    driven.VectorIndex
	services *runtime.Services // Dynamic AI services
}

// NewIndexer creates an Indexer on top of a vector index backend
func NewIndexer(index driven.VectorIndex, services *runtime.Services) *Indexer {
	return &Indexer{
		index:    index,
		services: services,
	}
}

// Initialize idempotently opens or creates the vector collection
func (ix *Indexer) Initialize(ctx context.Context) error {
	if err := ix.index.EnsureCollection(ctx); err != nil {
		return domain.WithCategory(domain.CategoryDatabase,
			fmt.Errorf("ensure collection: %w", err))
	}
	return nil
}

// AddChunks embeds chunk content in batches and upserts the records.
// Embedding happens before any write, so a failed embedding leaves the
// index untouched.
func (ix *Indexer) AddChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("%w: no chunks to index", domain.ErrInvalidInput)
	}

	embeddingService := ix.services.EmbeddingService()
	if embeddingService == nil {
		return domain.ErrServiceUnavailable
	}

	embeddings := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Content)
		}

		var batch [][]float32
		err := retry.Do(ctx, embedMaxAttempts, retry.Fixed(embedRetryDelay), func(ctx context.Context) error {
			var embedErr error
			batch, embedErr = embeddingService.Embed(ctx, texts)
			return embedErr
		})
		if err != nil {
			return domain.WithCategory(domain.CategoryUpstream,
				fmt.Errorf("embed batch at %d: %w", start, err))
		}
		if len(batch) != len(texts) {
			return domain.WithCategory(domain.CategoryUpstream,
				fmt.Errorf("embed batch at %d: got %d vectors for %d texts", start, len(batch), len(texts)))
		}
		embeddings = append(embeddings, batch...)
	}

	records := make([]driven.VectorRecord, 0, len(chunks))
	for i, c := range chunks {
		records = append(records, driven.VectorRecord{
			ID:        c.ID,
			Content:   c.Content,
			Embedding: embeddings[i],
			Metadata:  c.Metadata,
		})
	}

	if err := ix.index.Upsert(ctx, records); err != nil {
		return domain.WithCategory(domain.CategoryDatabase,
			fmt.Errorf("upsert %d records: %w", len(records), err))
	}
	return nil
}

// Search embeds the query and returns the nearest chunks at or above
// the score threshold, nearest first. Similarity is max(0, 1-distance),
// clamped into [0,1]. A non-nil filter restricts matches by metadata.
// An empty index yields an empty slice, not an error.
func (ix *Indexer) Search(ctx context.Context, query string, k int, threshold float64, filter map[string]string) ([]domain.ScoredChunk, error) {
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}

	embeddingService := ix.services.EmbeddingService()
	if embeddingService == nil {
		return nil, domain.ErrServiceUnavailable
	}

	embedding, err := embeddingService.EmbedQuery(ctx, query)
	if err != nil {
		return nil, domain.WithCategory(domain.CategoryUpstream,
			fmt.Errorf("embed query: %w", err))
	}

	matches, err := ix.index.Query(ctx, embedding, k, filter)
	if err != nil {
		return nil, domain.WithCategory(domain.CategoryDatabase,
			fmt.Errorf("vector query: %w", err))
	}

	scored := make([]domain.ScoredChunk, 0, len(matches))
	for _, m := range matches {
		score := similarityFromDistance(m.Distance)
		if score < threshold {
			continue
		}
		scored = append(scored, domain.ScoredChunk{
			Chunk: chunkFromMatch(m),
			Score: score,
		})
	}
	return scored, nil
}

// DeleteByDocumentIDs removes every chunk of the given documents.
// Returns true if any records were removed.
func (ix *Indexer) DeleteByDocumentIDs(ctx context.Context, documentIDs []string) (bool, error) {
	deleted := 0
	for _, id := range documentIDs {
		n, err := ix.index.DeleteByFilter(ctx, map[string]string{domain.MetaDocumentID: id})
		if err != nil {
			return deleted > 0, domain.WithCategory(domain.CategoryDatabase,
				fmt.Errorf("delete document %s: %w", id, err))
		}
		deleted += n
	}
	return deleted > 0, nil
}

// DeleteByFilename removes every chunk whose filename metadata matches
func (ix *Indexer) DeleteByFilename(ctx context.Context, filename string) (bool, error) {
	n, err := ix.index.DeleteByFilter(ctx, map[string]string{domain.MetaFilename: filename})
	if err != nil {
		return false, domain.WithCategory(domain.CategoryDatabase,
			fmt.Errorf("delete by filename %s: %w", filename, err))
	}
	return n > 0, nil
}

// ListDocuments groups stored chunk metadata back into per-document
// summaries, newest upload first.
func (ix *Indexer) ListDocuments(ctx context.Context) ([]*domain.DocumentSummary, error) {
	metas, err := ix.index.ListMetadata(ctx)
	if err != nil {
		return nil, domain.WithCategory(domain.CategoryDatabase,
			fmt.Errorf("list metadata: %w", err))
	}

	byDoc := make(map[string]*domain.DocumentSummary)
	for _, meta := range metas {
		docID := meta[domain.MetaDocumentID]
		if docID == "" {
			continue
		}
		summary, ok := byDoc[docID]
		if !ok {
			summary = &domain.DocumentSummary{
				DocumentID: docID,
				Filename:   meta[domain.MetaFilename],
				FileType:   domain.FileType(meta[domain.MetaFileType]),
				Source:     meta[domain.MetaSource],
			}
			if ts, err := time.Parse(time.RFC3339, meta[domain.MetaUploadTimestamp]); err == nil {
				summary.UploadedAt = ts
			}
			byDoc[docID] = summary
		}
		summary.ChunkCount++
	}

	summaries := make([]*domain.DocumentSummary, 0, len(byDoc))
	for _, s := range byDoc {
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].UploadedAt.Equal(summaries[j].UploadedAt) {
			return summaries[i].UploadedAt.After(summaries[j].UploadedAt)
		}
		return summaries[i].DocumentID < summaries[j].DocumentID
	})
	return summaries, nil
}

// DocumentCount returns the number of distinct indexed documents
func (ix *Indexer) DocumentCount(ctx context.Context) (int, error) {
	summaries, err := ix.ListDocuments(ctx)
	if err != nil {
		return 0, err
	}
	return len(summaries), nil
}

// ChunkCount returns the total number of stored chunk records
func (ix *Indexer) ChunkCount(ctx context.Context) (int, error) {
	n, err := ix.index.Count(ctx)
	if err != nil {
		return 0, domain.WithCategory(domain.CategoryDatabase,
			fmt.Errorf("count records: %w", err))
	}
	return n, nil
}

// HealthCheck verifies the vector index is reachable
func (ix *Indexer) HealthCheck(ctx context.Context) error {
	if err := ix.index.HealthCheck(ctx); err != nil {
		return domain.WithCategory(domain.CategoryDatabase, err)
	}
	return nil
}

// similarityFromDistance maps a raw index distance into [0,1], with
// 1.0 meaning an exact match. Negative values clamp to zero.
func similarityFromDistance(distance float64) float64 {
	score := 1.0 - distance
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// chunkFromMatch rebuilds a domain chunk from a stored record
func chunkFromMatch(m driven.VectorMatch) *domain.Chunk {
	index := 0
	if v, err := strconv.Atoi(m.Metadata[domain.MetaChunkIndex]); err == nil {
		index = v
	}
	return &domain.Chunk{
		ID:         m.ID,
		DocumentID: m.Metadata[domain.MetaDocumentID],
		Content:    m.Content,
		Index:      index,
		Source:     m.Metadata[domain.MetaSource],
		Metadata:   m.Metadata,
	}
}
