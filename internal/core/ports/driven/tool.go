package driven

import (
	"context"
	"encoding/json"

	"github.com/archivist-labs/ragcore/internal/core/domain"
)

// Tool is a callable function the chat model can invoke during a
// conversation. Implementations are closed over their own dependencies
// (HTTP clients, caches) and must be safe for concurrent use.
type Tool interface {
	// Name is the function name advertised to the model
	Name() string

	// Description tells the model when to call this tool
	Description() string

	// Schema is the JSON schema of the tool's arguments
	Schema() json.RawMessage

	// Execute runs the tool with the model-supplied arguments and
	// returns a result string to feed back into the conversation
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// ToolRegistry holds the tools available to the chat model
type ToolRegistry interface {
	// Register adds a tool. Later registrations win on name collision.
	Register(tool Tool)

	// Get retrieves a tool by name, or nil if not registered
	Get(name string) Tool

	// Descriptors returns descriptors for every registered tool,
	// sorted by name for stable prompt assembly
	Descriptors() []domain.ToolDescriptor
}
