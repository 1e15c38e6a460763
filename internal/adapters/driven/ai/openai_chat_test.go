package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivist-labs/ragcore/internal/core/domain"
	"github.com/archivist-labs/ragcore/internal/core/ports/driven"
)

func TestOpenAIChat_Complete(t *testing.T) {
	var captured chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message":       map[string]any{"role": "assistant", "content": "Paris."},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15},
		})
	}))
	defer srv.Close()

	svc, err := NewOpenAIChat("test-key", "gpt-4o-mini", srv.URL, 256, 0.2)
	require.NoError(t, err)
	defer svc.Close()

	result, err := svc.Complete(context.Background(), driven.ChatRequest{
		Messages: []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: "answer briefly"},
			{Role: domain.RoleUser, Content: "capital of France?"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Paris.", result.Content)
	assert.Equal(t, "stop", result.FinishReason)
	assert.Equal(t, 15, result.Usage.TotalTokens)
	assert.Empty(t, result.ToolCalls)

	assert.Equal(t, "gpt-4o-mini", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, 256, captured.MaxTokens)
	assert.InDelta(t, 0.2, captured.Temperature, 1e-9)
}

func TestOpenAIChat_Complete_ToolCalls(t *testing.T) {
	var captured chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{
					"role": "assistant",
					"tool_calls": []map[string]any{{
						"id":   "call_abc",
						"type": "function",
						"function": map[string]string{
							"name":      "get_restaurant_rating",
							"arguments": `{"name":"Roma"}`,
						},
					}},
				},
				"finish_reason": "tool_calls",
			}},
			"usage": map[string]int{"prompt_tokens": 30, "completion_tokens": 10, "total_tokens": 40},
		})
	}))
	defer srv.Close()

	svc, err := NewOpenAIChat("test-key", "", srv.URL, 0, 0)
	require.NoError(t, err)

	result, err := svc.Complete(context.Background(), driven.ChatRequest{
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "rate Roma"}},
		Tools: []domain.ToolDescriptor{{
			Name:        "get_restaurant_rating",
			Description: "rating lookup",
			Parameters:  json.RawMessage(`{"type":"object"}`),
		}},
	})
	require.NoError(t, err)

	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, "call_abc", result.ToolCalls[0].ID)
	assert.Equal(t, "get_restaurant_rating", result.ToolCalls[0].Name)
	assert.JSONEq(t, `{"name":"Roma"}`, string(result.ToolCalls[0].Arguments))
	assert.Equal(t, "tool_calls", result.FinishReason)

	require.Len(t, captured.Tools, 1)
	assert.Equal(t, "function", captured.Tools[0].Type)
	assert.Equal(t, "get_restaurant_rating", captured.Tools[0].Function.Name)
}

func TestOpenAIChat_Complete_RoundTripsToolResults(t *testing.T) {
	var captured chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message":       map[string]any{"role": "assistant", "content": "done"},
				"finish_reason": "stop",
			}},
		})
	}))
	defer srv.Close()

	svc, err := NewOpenAIChat("test-key", "", srv.URL, 0, 0)
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), driven.ChatRequest{
		Messages: []domain.ChatMessage{
			{Role: domain.RoleUser, Content: "rate Roma"},
			{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCall{{
				ID: "call_abc", Name: "get_restaurant_rating", Arguments: json.RawMessage(`{"name":"Roma"}`),
			}}},
			{Role: domain.RoleTool, Content: "4.5 stars", ToolCallID: "call_abc"},
		},
	})
	require.NoError(t, err)

	require.Len(t, captured.Messages, 3)
	assert.Equal(t, "call_abc", captured.Messages[1].ToolCalls[0].ID)
	assert.Equal(t, "tool", captured.Messages[2].Role)
	assert.Equal(t, "call_abc", captured.Messages[2].ToolCallID)
}

func TestOpenAIChat_Complete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	svc, err := NewOpenAIChat("test-key", "", srv.URL, 0, 0)
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), driven.ChatRequest{
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestNewOpenAIChat_Validation(t *testing.T) {
	_, err := NewOpenAIChat("", "model", "", 0, 0)
	require.Error(t, err)
}
