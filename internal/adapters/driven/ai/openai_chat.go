package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/archivist-labs/ragcore/internal/core/domain"
	"github.com/archivist-labs/ragcore/internal/core/ports/driven"
)

// Ensure OpenAIChat implements ChatService
var _ driven.ChatService = (*OpenAIChat)(nil)

// OpenAIChat implements ChatService using OpenAI's chat completions API
type OpenAIChat struct {
	client      *openAIClient
	model       string
	maxTokens   int
	temperature float64
}

// NewOpenAIChat creates a new OpenAI chat service
func NewOpenAIChat(apiKey, model, baseURL string, maxTokens int, temperature float64) (driven.ChatService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAIChat{
		client:      newOpenAIClient(apiKey, baseURL),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}, nil
}

// Wire types for the chat completions endpoint

type chatCompletionMessage struct {
	Role       string               `json:"role"`
	Content    string               `json:"content"`
	ToolCallID string               `json:"tool_call_id,omitempty"`
	ToolCalls  []chatCompletionCall `json:"tool_calls,omitempty"`
}

type chatCompletionCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatCompletionTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Parameters  json.RawMessage `json:"parameters"`
	} `json:"function"`
}

type chatCompletionRequest struct {
	Model       string                  `json:"model"`
	Messages    []chatCompletionMessage `json:"messages"`
	Tools       []chatCompletionTool    `json:"tools,omitempty"`
	MaxTokens   int                     `json:"max_tokens,omitempty"`
	Temperature float64                 `json:"temperature,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      chatCompletionMessage `json:"message"`
		FinishReason string                `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete issues a single chat-completion call
func (c *OpenAIChat) Complete(ctx context.Context, req driven.ChatRequest) (*domain.ChatResult, error) {
	wireReq := chatCompletionRequest{
		Model:       c.model,
		Messages:    toWireMessages(req.Messages),
		Tools:       toWireTools(req.Tools),
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	if req.MaxTokens > 0 {
		wireReq.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		wireReq.Temperature = req.Temperature
	}

	var resp chatCompletionResponse
	if err := c.client.postJSON(ctx, "/chat/completions", wireReq, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	choice := resp.Choices[0]
	result := &domain.ChatResult{
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage: domain.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	for _, call := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, domain.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: json.RawMessage(call.Function.Arguments),
		})
	}
	return result, nil
}

// Model returns the model name being used
func (c *OpenAIChat) Model() string {
	return c.model
}

// Ping verifies the chat service is available
func (c *OpenAIChat) Ping(ctx context.Context) error {
	_, err := c.Complete(ctx, driven.ChatRequest{
		Messages:  []domain.ChatMessage{{Role: domain.RoleUser, Content: "ping"}},
		MaxTokens: 1,
	})
	return err
}

// Close releases resources held by the chat service
func (c *OpenAIChat) Close() error {
	c.client.close()
	return nil
}

func toWireMessages(messages []domain.ChatMessage) []chatCompletionMessage {
	wire := make([]chatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		wm := chatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, call := range m.ToolCalls {
			wc := chatCompletionCall{ID: call.ID, Type: "function"}
			wc.Function.Name = call.Name
			wc.Function.Arguments = string(call.Arguments)
			wm.ToolCalls = append(wm.ToolCalls, wc)
		}
		wire = append(wire, wm)
	}
	return wire
}

func toWireTools(tools []domain.ToolDescriptor) []chatCompletionTool {
	if len(tools) == 0 {
		return nil
	}
	wire := make([]chatCompletionTool, 0, len(tools))
	for _, t := range tools {
		wt := chatCompletionTool{Type: "function"}
		wt.Function.Name = t.Name
		wt.Function.Description = t.Description
		wt.Function.Parameters = t.Parameters
		wire = append(wire, wt)
	}
	return wire
}
