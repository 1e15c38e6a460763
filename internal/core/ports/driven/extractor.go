package driven

import (
	"github.com/archivist-labs/ragcore/internal/core/domain"
)

// Extractor converts raw file bytes into plain text for one file type
type Extractor interface {
	// Extract returns the plain text content of the file
	Extract(content []byte) (string, error)

	// FileType is the document format this extractor handles
	FileType() domain.FileType
}

// ExtractorRegistry resolves the extractor for a file type
type ExtractorRegistry interface {
	// Register adds an extractor. Later registrations win per file type.
	Register(extractor Extractor)

	// Get retrieves the extractor for a file type, or nil if none registered
	Get(fileType domain.FileType) Extractor

	// List returns the supported file types
	List() []domain.FileType
}
