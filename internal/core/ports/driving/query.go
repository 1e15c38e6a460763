package driving

import (
	"context"

	"github.com/archivist-labs/ragcore/internal/core/domain"
)

// RAGService answers questions against the indexed document set
type RAGService interface {
	// Answer turns a RAGQuery into a RAGResponse. It never returns an
	// error: failures are converted into a degraded user-facing answer
	// with confidence 0.0, categorized by failure type.
	Answer(ctx context.Context, query domain.RAGQuery) *domain.RAGResponse

	// HealthCheck reports whether retrieval and generation are available
	HealthCheck(ctx context.Context) *HealthStatus
}

// HealthStatus reports subsystem health for readiness checks
type HealthStatus struct {
	Healthy       bool   `json:"healthy"`
	DocumentCount int    `json:"document_count"`
	Error         string `json:"error,omitempty"`
}
