package driven

import (
	"github.com/archivist-labs/ragcore/internal/core/domain"
)

// AIServiceFactory creates AI services based on configuration
type AIServiceFactory interface {
	// CreateEmbeddingService creates an embedding service from settings.
	// Returns nil, nil if settings are not configured.
	CreateEmbeddingService(settings *domain.EmbeddingSettings) (EmbeddingService, error)

	// CreateChatService creates a chat-completion service from settings.
	// Returns nil, nil if settings are not configured.
	CreateChatService(settings *domain.ChatSettings) (ChatService, error)
}
