// Package tools holds the function-calling tools exposed to the chat model.
package tools

import (
	"sort"
	"sync"

	"github.com/archivist-labs/ragcore/internal/core/domain"
	"github.com/archivist-labs/ragcore/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ToolRegistry = (*Registry)(nil)

// Registry implements ToolRegistry keyed by tool name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]driven.Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]driven.Tool),
	}
}

// Register adds a tool. Later registrations win on name collision.
func (r *Registry) Register(tool driven.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tools[tool.Name()] = tool
}

// Get retrieves a tool by name, or nil if not registered.
func (r *Registry) Get(name string) driven.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.tools[name]
}

// Descriptors returns descriptors for every registered tool, sorted by
// name for stable prompt assembly.
func (r *Registry) Descriptors() []domain.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptors := make([]domain.ToolDescriptor, 0, len(r.tools))
	for _, tool := range r.tools {
		descriptors = append(descriptors, domain.ToolDescriptor{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Schema(),
		})
	}
	sort.Slice(descriptors, func(i, j int) bool { return descriptors[i].Name < descriptors[j].Name })
	return descriptors
}
