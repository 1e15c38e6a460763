package driving

import (
	"context"

	"github.com/archivist-labs/ragcore/internal/core/domain"
)

// ToolService exposes function-calling tools to chat conversations
type ToolService interface {
	// ListTools returns descriptors for every registered tool
	ListTools() []domain.ToolDescriptor

	// Chat runs a conversation turn with tool support: the model may
	// request tool invocations, which are executed and fed back until
	// the model produces a final answer or the round budget is exhausted.
	Chat(ctx context.Context, messages []domain.ChatMessage) (*domain.ChatResult, error)
}
