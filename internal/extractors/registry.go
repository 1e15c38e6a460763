// Package extractors converts uploaded file bytes into plain text.
package extractors

import (
	"sort"
	"sync"

	"github.com/archivist-labs/ragcore/internal/core/domain"
	"github.com/archivist-labs/ragcore/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry implements ExtractorRegistry keyed by file type.
type Registry struct {
	mu         sync.RWMutex
	extractors map[domain.FileType]driven.Extractor
}

// NewRegistry creates an empty extractor registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[domain.FileType]driven.Extractor),
	}
}

// Register registers an extractor. Later registrations win per file type.
func (r *Registry) Register(extractor driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.extractors[extractor.FileType()] = extractor
}

// Get retrieves the extractor for a file type.
// Returns nil if no extractor is registered for the type.
func (r *Registry) Get(fileType domain.FileType) driven.Extractor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.extractors[fileType]
}

// List returns all registered file types, sorted for stable output.
func (r *Registry) List() []domain.FileType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]domain.FileType, 0, len(r.extractors))
	for t := range r.extractors {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// DefaultRegistry creates a registry with the built-in extractors.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&TextExtractor{})
	r.Register(&PDFExtractor{})
	r.Register(&DOCXExtractor{})
	return r
}
