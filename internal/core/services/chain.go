package services

import (
	"context"
	"fmt"

	"github.com/archivist-labs/ragcore/internal/core/domain"
	"github.com/archivist-labs/ragcore/internal/core/ports/driven"
)

// QAChain is the original one-shot question-answering entry point,
// kept for callers that want errors propagated instead of the graceful
// degradation RAGService.Answer provides.
type QAChain struct {
	indexer *Indexer
	chat    driven.ChatService
}

// NewQAChain creates a QAChain over an indexer and a chat service
func NewQAChain(indexer *Indexer, chat driven.ChatService) *QAChain {
	return &QAChain{
		indexer: indexer,
		chat:    chat,
	}
}

// Ask answers a question against the index with citation sources.
// Retrieval and completion errors propagate to the caller.
func (c *QAChain) Ask(ctx context.Context, question string) (*domain.RAGResponse, error) {
	query := domain.DefaultRAGQuery(question)
	if err := query.Validate(); err != nil {
		return nil, err
	}

	chunks, err := c.indexer.Search(ctx, query.Query, query.TopK, query.ScoreThreshold, nil)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	if len(chunks) == 0 {
		return &domain.RAGResponse{
			Answer:          answerNoDocuments,
			Sources:         []string{},
			RetrievedChunks: []domain.ScoredChunk{},
			ConfidenceScore: 0.0,
		}, nil
	}

	result, err := c.chat.Complete(ctx, driven.ChatRequest{
		Messages: []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: systemPrompt},
			{Role: domain.RoleUser, Content: buildPrompt(query.Query, chunks)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("complete answer: %w", err)
	}

	return &domain.RAGResponse{
		Answer:          result.Content,
		Sources:         domain.SourcesFromChunks(chunks),
		RetrievedChunks: chunks,
		ConfidenceScore: domain.ConfidenceFromScores(chunks),
		Usage:           result.Usage,
	}, nil
}
