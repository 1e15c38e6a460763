package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/archivist-labs/ragcore/internal/core/domain"
	"github.com/archivist-labs/ragcore/internal/core/ports/driven"
	"github.com/archivist-labs/ragcore/internal/core/ports/driving"
	"github.com/archivist-labs/ragcore/internal/runtime"
)

// maxToolRounds bounds the tool-call loop so a model that keeps
// requesting tools cannot spin forever.
const maxToolRounds = 5

// Ensure toolService implements ToolService
var _ driving.ToolService = (*toolService)(nil)

// toolService runs chat turns with function calling: tool requests from
// the model are executed against the registry and fed back until the
// model produces a final answer.
type toolService struct {
	registry driven.ToolRegistry
	services *runtime.Services // Dynamic AI services
	logger   zerolog.Logger
}

// NewToolService creates a new ToolService
func NewToolService(registry driven.ToolRegistry, services *runtime.Services, logger zerolog.Logger) driving.ToolService {
	return &toolService{
		registry: registry,
		services: services,
		logger:   logger.With().Str("component", "tools").Logger(),
	}
}

// ListTools returns descriptors for every registered tool
func (s *toolService) ListTools() []domain.ToolDescriptor {
	return s.registry.Descriptors()
}

// Chat runs one conversation turn with tool support
func (s *toolService) Chat(ctx context.Context, messages []domain.ChatMessage) (*domain.ChatResult, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("%w: at least one message is required", domain.ErrInvalidInput)
	}

	chatService := s.services.ChatService()
	if chatService == nil {
		return nil, domain.ErrServiceUnavailable
	}

	tools := s.registry.Descriptors()
	conversation := make([]domain.ChatMessage, len(messages))
	copy(conversation, messages)

	var usage domain.TokenUsage
	for round := 0; round < maxToolRounds; round++ {
		result, err := chatService.Complete(ctx, driven.ChatRequest{
			Messages: conversation,
			Tools:    tools,
		})
		if err != nil {
			return nil, domain.WithCategory(domain.CategoryUpstream,
				fmt.Errorf("chat completion: %w", err))
		}

		usage.PromptTokens += result.Usage.PromptTokens
		usage.CompletionTokens += result.Usage.CompletionTokens
		usage.TotalTokens += result.Usage.TotalTokens

		if len(result.ToolCalls) == 0 {
			result.Usage = usage
			return result, nil
		}

		conversation = append(conversation, domain.ChatMessage{
			Role:      domain.RoleAssistant,
			Content:   result.Content,
			ToolCalls: result.ToolCalls,
		})
		for _, call := range result.ToolCalls {
			conversation = append(conversation, domain.ChatMessage{
				Role:       domain.RoleTool,
				Content:    s.executeTool(ctx, call),
				ToolCallID: call.ID,
			})
		}
	}

	return nil, fmt.Errorf("tool loop exceeded %d rounds without a final answer", maxToolRounds)
}

// executeTool runs one requested tool call. Failures are reported back
// to the model as the tool result rather than aborting the turn.
func (s *toolService) executeTool(ctx context.Context, call domain.ToolCall) string {
	tool := s.registry.Get(call.Name)
	if tool == nil {
		s.logger.Warn().Str("tool", call.Name).Msg("model requested unknown tool")
		return fmt.Sprintf("error: unknown tool %q", call.Name)
	}

	result, err := tool.Execute(ctx, call.Arguments)
	if err != nil {
		s.logger.Warn().Err(err).Str("tool", call.Name).Msg("tool execution failed")
		return fmt.Sprintf("error: %v", err)
	}

	s.logger.Debug().Str("tool", call.Name).Msg("tool executed")
	return result
}
