package mocks

import (
	"context"

	"github.com/archivist-labs/ragcore/internal/core/domain"
	"github.com/archivist-labs/ragcore/internal/core/ports/driven"
)

// MockChatService is a mock implementation of ChatService for testing
type MockChatService struct {
	// CompleteCalls counts Complete invocations, for asserting the
	// model is not called on the no-retrieval path
	CompleteCalls int

	// Responses are returned in order; the last one repeats
	Responses []*domain.ChatResult

	// LastRequest captures the most recent request for inspection
	LastRequest *driven.ChatRequest

	failNext    bool
	failNextErr error

	closed bool
}

// NewMockChatService creates a MockChatService with a canned answer
func NewMockChatService() *MockChatService {
	return &MockChatService{
		Responses: []*domain.ChatResult{
			{
				Content: "mock answer",
				Usage:   domain.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
			},
		},
	}
}

func (m *MockChatService) Complete(ctx context.Context, req driven.ChatRequest) (*domain.ChatResult, error) {
	m.CompleteCalls++
	m.LastRequest = &req

	if m.failNext {
		m.failNext = false
		return nil, m.failNextErr
	}

	idx := m.CompleteCalls - 1
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return m.Responses[idx], nil
}

func (m *MockChatService) Model() string {
	return "mock-chat-model"
}

func (m *MockChatService) Ping(ctx context.Context) error {
	if m.failNext {
		m.failNext = false
		return m.failNextErr
	}
	return nil
}

func (m *MockChatService) Close() error {
	m.closed = true
	return nil
}

// Closed reports whether Close has been called
func (m *MockChatService) Closed() bool {
	return m.closed
}

// SetFailNext makes the next Complete call fail with the given error
func (m *MockChatService) SetFailNext(err error) {
	m.failNext = true
	m.failNextErr = err
}
