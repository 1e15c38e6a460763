package mocks

import (
	"context"
	"encoding/json"
)

// MockTool is a configurable Tool for testing
type MockTool struct {
	ToolName        string
	ToolDescription string
	ToolSchema      json.RawMessage
	Result          string
	Err             error

	ExecuteCalls int
	LastArgs     json.RawMessage
}

// NewMockTool creates a MockTool with the given name and canned result
func NewMockTool(name, result string) *MockTool {
	return &MockTool{
		ToolName:        name,
		ToolDescription: "mock tool " + name,
		ToolSchema:      json.RawMessage(`{"type":"object","properties":{}}`),
		Result:          result,
	}
}

func (m *MockTool) Name() string {
	return m.ToolName
}

func (m *MockTool) Description() string {
	return m.ToolDescription
}

func (m *MockTool) Schema() json.RawMessage {
	return m.ToolSchema
}

func (m *MockTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	m.ExecuteCalls++
	m.LastArgs = args
	if m.Err != nil {
		return "", m.Err
	}
	return m.Result, nil
}
