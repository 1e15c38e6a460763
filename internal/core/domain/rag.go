package domain

import "fmt"

// RAGQuery is a retrieval request. Transient, constructed per request.
type RAGQuery struct {
	Query          string  `json:"query"`
	TopK           int     `json:"top_k"`
	ScoreThreshold float64 `json:"score_threshold"`
	IncludeSources bool    `json:"include_sources"`
}

// DefaultRAGQuery returns a query with sensible defaults for the given text.
func DefaultRAGQuery(query string) RAGQuery {
	return RAGQuery{
		Query:          query,
		TopK:           5,
		ScoreThreshold: 0.3,
		IncludeSources: true,
	}
}

// Validate checks the query against its invariants.
func (q RAGQuery) Validate() error {
	if q.Query == "" {
		return ErrEmptyQuery
	}
	if q.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidInput, q.TopK)
	}
	if q.ScoreThreshold < 0.0 || q.ScoreThreshold > 1.0 {
		return fmt.Errorf("%w: score_threshold must be in [0,1], got %g", ErrInvalidInput, q.ScoreThreshold)
	}
	return nil
}

// ScoredChunk pairs a retrieved chunk with its similarity score.
// Score is in [0,1], computed as max(0, 1-distance); 1.0 is an exact match.
type ScoredChunk struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
}

// TokenUsage is token-usage accounting from a chat-completion call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// RAGResponse is the answer to a RAGQuery. Transient, produced once per query.
type RAGResponse struct {
	Answer          string        `json:"answer"`
	Sources         []string      `json:"sources"`
	RetrievedChunks []ScoredChunk `json:"retrieved_chunks"`
	ConfidenceScore float64       `json:"confidence_score"`
	Usage           TokenUsage    `json:"usage"`
}

// ConfidenceFromScores is the arithmetic mean of the similarity scores
// of the chunks used to answer, or 0.0 when nothing was retrieved.
func ConfidenceFromScores(chunks []ScoredChunk) float64 {
	if len(chunks) == 0 {
		return 0.0
	}
	var sum float64
	for _, sc := range chunks {
		sum += sc.Score
	}
	return sum / float64(len(chunks))
}

// SourcesFromChunks returns the deduplicated, order-preserving list
// of chunk source labels.
func SourcesFromChunks(chunks []ScoredChunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	sources := make([]string, 0, len(chunks))
	for _, sc := range chunks {
		if sc.Chunk == nil || sc.Chunk.Source == "" {
			continue
		}
		if _, ok := seen[sc.Chunk.Source]; ok {
			continue
		}
		seen[sc.Chunk.Source] = struct{}{}
		sources = append(sources, sc.Chunk.Source)
	}
	return sources
}
