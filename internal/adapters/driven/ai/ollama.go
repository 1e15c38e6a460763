package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/archivist-labs/ragcore/internal/core/domain"
	"github.com/archivist-labs/ragcore/internal/core/ports/driven"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// Verify interface compliance
var (
	_ driven.EmbeddingService = (*OllamaEmbedding)(nil)
	_ driven.ChatService      = (*OllamaChat)(nil)
)

// Embedding dimensions for common Ollama embedding models
var ollamaModelDimensions = map[string]int{
	"nomic-embed-text":  768,
	"mxbai-embed-large": 1024,
	"all-minilm":        384,
	"snowflake-arctic-embed": 1024,
}

func newOllamaAPIClient(baseURL string) (*api.Client, error) {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url %q: %w", baseURL, err)
	}
	return api.NewClient(u, &http.Client{Timeout: 5 * time.Minute}), nil
}

// OllamaEmbedding implements EmbeddingService against a local Ollama server
type OllamaEmbedding struct {
	client     *api.Client
	model      string
	dimensions int
}

// NewOllamaEmbedding creates a new Ollama embedding service
func NewOllamaEmbedding(baseURL, model string) (driven.EmbeddingService, error) {
	if model == "" {
		model = "nomic-embed-text"
	}
	client, err := newOllamaAPIClient(baseURL)
	if err != nil {
		return nil, err
	}

	dimensions, ok := ollamaModelDimensions[model]
	if !ok {
		dimensions = 768
	}

	return &OllamaEmbedding{
		client:     client,
		model:      model,
		dimensions: dimensions,
	}, nil
}

// Embed generates embeddings for multiple texts in one batched call
func (e *OllamaEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d vectors for %d texts", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}

// EmbedQuery generates an embedding for a retrieval query
func (e *OllamaEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := e.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}
	return embeddings[0], nil
}

// Dimensions returns the embedding dimension size
func (e *OllamaEmbedding) Dimensions() int {
	return e.dimensions
}

// Model returns the model name being used
func (e *OllamaEmbedding) Model() string {
	return e.model
}

// HealthCheck verifies the Ollama server is reachable
func (e *OllamaEmbedding) HealthCheck(ctx context.Context) error {
	return e.client.Heartbeat(ctx)
}

// Close releases resources held by the embedding service
func (e *OllamaEmbedding) Close() error {
	return nil
}

// OllamaChat implements ChatService against a local Ollama server
type OllamaChat struct {
	client      *api.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewOllamaChat creates a new Ollama chat service
func NewOllamaChat(baseURL, model string, maxTokens int, temperature float64) (driven.ChatService, error) {
	if model == "" {
		model = "llama3.1"
	}
	client, err := newOllamaAPIClient(baseURL)
	if err != nil {
		return nil, err
	}

	return &OllamaChat{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}, nil
}

// Complete issues a single chat-completion call
func (c *OllamaChat) Complete(ctx context.Context, req driven.ChatRequest) (*domain.ChatResult, error) {
	messages := make([]api.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, api.Message{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	tools, err := toOllamaTools(req.Tools)
	if err != nil {
		return nil, err
	}

	options := map[string]any{}
	if c.temperature > 0 {
		options["temperature"] = c.temperature
	}
	if maxTokens := firstPositive(req.MaxTokens, c.maxTokens); maxTokens > 0 {
		options["num_predict"] = maxTokens
	}
	if req.Temperature > 0 {
		options["temperature"] = req.Temperature
	}

	stream := false
	var final api.ChatResponse
	err = c.client.Chat(ctx, &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
		Stream:   &stream,
		Options:  options,
	}, func(resp api.ChatResponse) error {
		final = resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}

	result := &domain.ChatResult{
		Content:      final.Message.Content,
		FinishReason: final.DoneReason,
		Usage: domain.TokenUsage{
			PromptTokens:     final.Metrics.PromptEvalCount,
			CompletionTokens: final.Metrics.EvalCount,
			TotalTokens:      final.Metrics.PromptEvalCount + final.Metrics.EvalCount,
		},
	}
	for i, call := range final.Message.ToolCalls {
		args, err := json.Marshal(call.Function.Arguments)
		if err != nil {
			return nil, fmt.Errorf("ollama tool arguments: %w", err)
		}
		result.ToolCalls = append(result.ToolCalls, domain.ToolCall{
			ID:        fmt.Sprintf("call_%d", i),
			Name:      call.Function.Name,
			Arguments: args,
		})
	}
	return result, nil
}

// Model returns the model name being used
func (c *OllamaChat) Model() string {
	return c.model
}

// Ping verifies the Ollama server is reachable
func (c *OllamaChat) Ping(ctx context.Context) error {
	return c.client.Heartbeat(ctx)
}

// Close releases resources held by the chat service
func (c *OllamaChat) Close() error {
	return nil
}

// toOllamaTools converts tool descriptors into the typed Ollama schema
func toOllamaTools(descriptors []domain.ToolDescriptor) ([]api.Tool, error) {
	if len(descriptors) == 0 {
		return nil, nil
	}
	tools := make([]api.Tool, 0, len(descriptors))
	for _, d := range descriptors {
		tool := api.Tool{Type: "function"}
		tool.Function.Name = d.Name
		tool.Function.Description = d.Description
		if len(d.Parameters) > 0 {
			if err := json.Unmarshal(d.Parameters, &tool.Function.Parameters); err != nil {
				return nil, fmt.Errorf("tool %s schema: %w", d.Name, err)
			}
		}
		tools = append(tools, tool)
	}
	return tools, nil
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
