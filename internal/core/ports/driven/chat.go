package driven

import (
	"context"

	"github.com/archivist-labs/ragcore/internal/core/domain"
)

// ChatRequest is one chat-completion call
type ChatRequest struct {
	Messages    []domain.ChatMessage
	Tools       []domain.ToolDescriptor // optional function-calling tools
	MaxTokens   int
	Temperature float64
}

// ChatService provides chat-completion capabilities
type ChatService interface {
	// Complete issues a single chat-completion call.
	// When the model requests tool invocations they are returned in
	// the result's ToolCalls; the caller runs the tool loop.
	Complete(ctx context.Context, req ChatRequest) (*domain.ChatResult, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the chat service is available
	Ping(ctx context.Context) error

	// Close releases resources held by the chat service
	Close() error
}
