package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/archivist-labs/ragcore/internal/core/domain"
	"github.com/archivist-labs/ragcore/internal/core/ports/driven"
	"github.com/archivist-labs/ragcore/internal/core/ports/driving"
	"github.com/archivist-labs/ragcore/internal/runtime"
)

// User-facing answers for the degraded paths. The service never
// surfaces raw errors to callers.
const (
	answerNoDocuments = "I couldn't find any relevant information in the knowledge base to answer your question. Try uploading documents related to your query, or rephrase the question."

	answerNotConfigured = "The assistant is not fully configured yet: no AI provider is set up. Configure an embedding and chat provider, then try again."

	answerStoreTrouble = "I'm having trouble accessing the document store right now. Please try again in a moment."

	answerModelTrouble = "I'm having trouble reaching the language model right now. Please try again in a moment."

	answerGenericTrouble = "Something went wrong while answering your question. Please try again."
)

const systemPrompt = "You are a helpful assistant that answers questions using only the provided context. If the context does not contain the answer, say that you don't know rather than guessing."

// Ensure ragService implements RAGService
var _ driving.RAGService = (*ragService)(nil)

// ragService implements retrieval-augmented answering: embed the
// question, fetch nearest chunks, assemble a grounded prompt, and call
// the chat model.
type ragService struct {
	indexer  *Indexer
	services *runtime.Services // Dynamic AI services
	logger   zerolog.Logger
}

// NewRAGService creates a new RAGService
func NewRAGService(indexer *Indexer, services *runtime.Services, logger zerolog.Logger) driving.RAGService {
	return &ragService{
		indexer:  indexer,
		services: services,
		logger:   logger.With().Str("component", "rag").Logger(),
	}
}

// Answer turns a query into a grounded response. It never returns an
// error: every failure degrades into a user-facing answer with
// confidence 0.0.
func (s *ragService) Answer(ctx context.Context, query domain.RAGQuery) *domain.RAGResponse {
	if err := query.Validate(); err != nil {
		return &domain.RAGResponse{
			Answer:          fmt.Sprintf("I couldn't process that question: %v.", err),
			Sources:         []string{},
			RetrievedChunks: []domain.ScoredChunk{},
			ConfidenceScore: 0.0,
		}
	}

	if !s.services.Config().CanAnswer() {
		return degraded(answerNotConfigured)
	}

	chunks, err := s.indexer.Search(ctx, query.Query, query.TopK, query.ScoreThreshold, nil)
	if err != nil {
		s.logger.Error().Err(err).Str("query", query.Query).Msg("retrieval failed")
		return degraded(answerForError(err))
	}

	// No relevant context: answer directly without calling the model.
	if len(chunks) == 0 {
		return &domain.RAGResponse{
			Answer:          answerNoDocuments,
			Sources:         []string{},
			RetrievedChunks: []domain.ScoredChunk{},
			ConfidenceScore: 0.0,
		}
	}

	chatService := s.services.ChatService()
	if chatService == nil {
		return degraded(answerNotConfigured)
	}

	result, err := chatService.Complete(ctx, driven.ChatRequest{
		Messages: []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: systemPrompt},
			{Role: domain.RoleUser, Content: buildPrompt(query.Query, chunks)},
		},
	})
	if err != nil {
		s.logger.Error().Err(err).Str("query", query.Query).Msg("chat completion failed")
		return degraded(answerForError(domain.WithCategory(domain.CategoryUpstream, err)))
	}

	response := &domain.RAGResponse{
		Answer:          result.Content,
		Sources:         []string{},
		RetrievedChunks: chunks,
		ConfidenceScore: domain.ConfidenceFromScores(chunks),
		Usage:           result.Usage,
	}
	if query.IncludeSources {
		response.Sources = domain.SourcesFromChunks(chunks)
	}

	s.logger.Debug().
		Int("chunks", len(chunks)).
		Float64("confidence", response.ConfidenceScore).
		Int("total_tokens", result.Usage.TotalTokens).
		Msg("answered query")

	return response
}

// HealthCheck reports whether the document index is reachable and how
// many documents it holds.
func (s *ragService) HealthCheck(ctx context.Context) *driving.HealthStatus {
	if err := s.indexer.HealthCheck(ctx); err != nil {
		return &driving.HealthStatus{Healthy: false, Error: err.Error()}
	}
	count, err := s.indexer.DocumentCount(ctx)
	if err != nil {
		return &driving.HealthStatus{Healthy: false, Error: err.Error()}
	}
	return &driving.HealthStatus{Healthy: true, DocumentCount: count}
}

// degraded is the zero-confidence response shape for failure paths
func degraded(answer string) *domain.RAGResponse {
	return &domain.RAGResponse{
		Answer:          answer,
		Sources:         []string{},
		RetrievedChunks: []domain.ScoredChunk{},
		ConfidenceScore: 0.0,
	}
}

// answerForError maps a failure category onto a user-facing message
func answerForError(err error) string {
	switch domain.CategoryOf(err) {
	case domain.CategoryDatabase:
		return answerStoreTrouble
	case domain.CategoryUpstream:
		return answerModelTrouble
	default:
		return answerGenericTrouble
	}
}

// buildPrompt assembles the grounded user prompt: numbered context
// blocks labelled with their source, then the question.
func buildPrompt(question string, chunks []domain.ScoredChunk) string {
	var sb strings.Builder
	sb.WriteString("Context:\n\n")
	for i, sc := range chunks {
		fmt.Fprintf(&sb, "[%d] (source: %s)\n%s\n\n", i+1, sc.Chunk.Source, sc.Chunk.Content)
	}
	sb.WriteString("Question: ")
	sb.WriteString(question)
	return sb.String()
}
