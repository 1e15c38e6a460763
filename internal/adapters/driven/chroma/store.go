// Package chroma implements the vector index against a Chroma server's
// REST API.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/archivist-labs/ragcore/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorIndex = (*Store)(nil)

// Store implements driven.VectorIndex using Chroma
type Store struct {
	baseURL    string
	collection string
	httpClient *http.Client

	mu           sync.Mutex
	collectionID string // resolved by EnsureCollection
}

// Config holds Chroma connection configuration
type Config struct {
	// BaseURL is the Chroma endpoint (e.g., http://localhost:8000)
	BaseURL string

	// Collection is the collection name to store chunks under
	Collection string

	// Timeout for HTTP requests
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:    baseURL,
		Collection: "documents",
		Timeout:    30 * time.Second,
	}
}

// NewStore creates a new Chroma-backed vector index
func NewStore(cfg Config) *Store {
	collection := cfg.Collection
	if collection == "" {
		collection = "documents"
	}
	return &Store{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		collection: collection,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// EnsureCollection idempotently opens or creates the collection
func (s *Store) EnsureCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collectionID != "" {
		return nil
	}

	var resp struct {
		ID string `json:"id"`
	}
	err := s.doJSON(ctx, http.MethodPost, "/api/v1/collections", map[string]any{
		"name":          s.collection,
		"get_or_create": true,
		"metadata":      map[string]string{"hnsw:space": "cosine"},
	}, &resp)
	if err != nil {
		return fmt.Errorf("get or create collection %s: %w", s.collection, err)
	}
	if resp.ID == "" {
		return fmt.Errorf("chroma returned no collection id for %s", s.collection)
	}

	s.collectionID = resp.ID
	return nil
}

// Upsert inserts or replaces records by ID
func (s *Store) Upsert(ctx context.Context, records []driven.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	collectionID, err := s.resolveCollection(ctx)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(records))
	embeddings := make([][]float32, 0, len(records))
	documents := make([]string, 0, len(records))
	metadatas := make([]map[string]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
		embeddings = append(embeddings, r.Embedding)
		documents = append(documents, r.Content)
		metadatas = append(metadatas, r.Metadata)
	}

	path := fmt.Sprintf("/api/v1/collections/%s/upsert", collectionID)
	err = s.doJSON(ctx, http.MethodPost, path, map[string]any{
		"ids":        ids,
		"embeddings": embeddings,
		"documents":  documents,
		"metadatas":  metadatas,
	}, nil)
	if err != nil {
		return fmt.Errorf("upsert %d records: %w", len(records), err)
	}
	return nil
}

// queryResponse is Chroma's nested per-query result shape
type queryResponse struct {
	IDs       [][]string            `json:"ids"`
	Documents [][]string            `json:"documents"`
	Metadatas [][]map[string]string `json:"metadatas"`
	Distances [][]float64           `json:"distances"`
}

// Query performs a k-nearest-neighbor search
func (s *Store) Query(ctx context.Context, embedding []float32, k int, filter map[string]string) ([]driven.VectorMatch, error) {
	collectionID, err := s.resolveCollection(ctx)
	if err != nil {
		return nil, err
	}

	req := map[string]any{
		"query_embeddings": [][]float32{embedding},
		"n_results":        k,
		"include":          []string{"documents", "metadatas", "distances"},
	}
	if where := whereClause(filter); where != nil {
		req["where"] = where
	}

	var resp queryResponse
	path := fmt.Sprintf("/api/v1/collections/%s/query", collectionID)
	if err := s.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	if len(resp.IDs) == 0 {
		return nil, nil
	}

	matches := make([]driven.VectorMatch, 0, len(resp.IDs[0]))
	for i, id := range resp.IDs[0] {
		match := driven.VectorMatch{ID: id}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
			match.Content = resp.Documents[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			match.Metadata = resp.Metadatas[0][i]
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			match.Distance = resp.Distances[0][i]
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// Delete removes records by ID
func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	collectionID, err := s.resolveCollection(ctx)
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/api/v1/collections/%s/delete", collectionID)
	if err := s.doJSON(ctx, http.MethodPost, path, map[string]any{"ids": ids}, nil); err != nil {
		return fmt.Errorf("delete %d records: %w", len(ids), err)
	}
	return nil
}

// DeleteByFilter removes all records whose metadata matches the filter.
// Chroma returns the deleted IDs, which gives us the count.
func (s *Store) DeleteByFilter(ctx context.Context, filter map[string]string) (int, error) {
	collectionID, err := s.resolveCollection(ctx)
	if err != nil {
		return 0, err
	}

	where := whereClause(filter)
	if where == nil {
		return 0, fmt.Errorf("delete by filter requires a non-empty filter")
	}

	var deletedIDs []string
	path := fmt.Sprintf("/api/v1/collections/%s/delete", collectionID)
	if err := s.doJSON(ctx, http.MethodPost, path, map[string]any{"where": where}, &deletedIDs); err != nil {
		return 0, fmt.Errorf("delete by filter: %w", err)
	}
	return len(deletedIDs), nil
}

// ListMetadata returns the metadata of every stored record
func (s *Store) ListMetadata(ctx context.Context) ([]map[string]string, error) {
	collectionID, err := s.resolveCollection(ctx)
	if err != nil {
		return nil, err
	}

	var resp struct {
		IDs       []string            `json:"ids"`
		Metadatas []map[string]string `json:"metadatas"`
	}
	path := fmt.Sprintf("/api/v1/collections/%s/get", collectionID)
	err = s.doJSON(ctx, http.MethodPost, path, map[string]any{
		"include": []string{"metadatas"},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("get metadata: %w", err)
	}
	return resp.Metadatas, nil
}

// Count returns the total number of stored records
func (s *Store) Count(ctx context.Context) (int, error) {
	collectionID, err := s.resolveCollection(ctx)
	if err != nil {
		return 0, err
	}

	var count int
	path := fmt.Sprintf("/api/v1/collections/%s/count", collectionID)
	if err := s.doJSON(ctx, http.MethodGet, path, nil, &count); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return count, nil
}

// HealthCheck verifies the Chroma server is reachable
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.doJSON(ctx, http.MethodGet, "/api/v1/heartbeat", nil, nil)
}

// resolveCollection returns the collection ID, creating the collection
// on first use.
func (s *Store) resolveCollection(ctx context.Context) (string, error) {
	s.mu.Lock()
	id := s.collectionID
	s.mu.Unlock()
	if id != "" {
		return id, nil
	}

	if err := s.EnsureCollection(ctx); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collectionID, nil
}

// whereClause builds Chroma's filter document: a single equality match
// directly, multiple conditions under $and.
func whereClause(filter map[string]string) map[string]any {
	if len(filter) == 0 {
		return nil
	}
	if len(filter) == 1 {
		for k, v := range filter {
			return map[string]any{k: v}
		}
	}
	conditions := make([]map[string]any, 0, len(filter))
	for k, v := range filter {
		conditions = append(conditions, map[string]any{k: v})
	}
	return map[string]any{"$and": conditions}
}

// doJSON performs one JSON request against the Chroma API
func (s *Store) doJSON(ctx context.Context, method, path string, reqBody, out any) error {
	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("chroma returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}
