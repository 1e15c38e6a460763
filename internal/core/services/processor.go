package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/archivist-labs/ragcore/internal/core/domain"
	"github.com/archivist-labs/ragcore/internal/core/ports/driven"
)

// Default processing limits
const (
	DefaultMaxFileSizeBytes = 10 * 1024 * 1024
	DefaultChunkSize        = 1000
	DefaultChunkOverlap     = 200
)

// ProcessorConfig holds document processing limits
type ProcessorConfig struct {
	MaxFileSizeBytes int64
	ChunkSize        int
	ChunkOverlap     int
}

// DefaultProcessorConfig returns the standard processing limits
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		MaxFileSizeBytes: DefaultMaxFileSizeBytes,
		ChunkSize:        DefaultChunkSize,
		ChunkOverlap:     DefaultChunkOverlap,
	}
}

// Processor validates uploads, extracts their text, and splits it into
// overlapping chunks ready for embedding. Stateless apart from its
// configuration; safe for concurrent use.
type Processor struct {
	config     ProcessorConfig
	extractors driven.ExtractorRegistry
}

// NewProcessor creates a Processor with the given limits
func NewProcessor(config ProcessorConfig, extractors driven.ExtractorRegistry) *Processor {
	if config.MaxFileSizeBytes <= 0 {
		config.MaxFileSizeBytes = DefaultMaxFileSizeBytes
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if config.ChunkOverlap < 0 {
		config.ChunkOverlap = 0
	}
	return &Processor{
		config:     config,
		extractors: extractors,
	}
}

// Validate checks an upload against size, content, and file-type limits
// without processing it.
func (p *Processor) Validate(filename string, content []byte) (domain.FileType, error) {
	if filename == "" {
		return "", fmt.Errorf("%w: filename is required", domain.ErrInvalidInput)
	}
	if len(content) == 0 {
		return "", domain.ErrEmptyContent
	}
	if int64(len(content)) > p.config.MaxFileSizeBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds limit of %d",
			domain.ErrFileTooLarge, len(content), p.config.MaxFileSizeBytes)
	}

	fileType, err := domain.FileTypeFromFilename(filename)
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, filename)
	}
	if p.extractors.Get(fileType) == nil {
		return "", fmt.Errorf("%w: no extractor for %s", domain.ErrUnsupportedFileType, fileType)
	}
	return fileType, nil
}

// Process runs the full pipeline for one upload: validate, extract,
// chunk. Returns the document record and its chunks; nothing is
// persisted here.
func (p *Processor) Process(filename string, content []byte, source string) (*domain.Document, []domain.Chunk, error) {
	fileType, err := p.Validate(filename, content)
	if err != nil {
		return nil, nil, err
	}

	text, err := p.extractors.Get(fileType).Extract(content)
	if err != nil {
		return nil, nil, domain.WithCategory(domain.CategoryProcessing,
			fmt.Errorf("extract %s: %w", filename, err))
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil, fmt.Errorf("%w: %s has no extractable text", domain.ErrEmptyContent, filename)
	}

	if source == "" {
		source = filename
	}

	doc := &domain.Document{
		ID:         uuid.New().String(),
		Filename:   filename,
		FileType:   fileType,
		SizeBytes:  int64(len(content)),
		Source:     source,
		Status:     domain.StatusPending,
		UploadedAt: time.Now().UTC(),
	}

	pieces := p.ChunkText(text)
	chunks := make([]domain.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, domain.Chunk{
			ID:         fmt.Sprintf("%s_%d", doc.ID, i),
			DocumentID: doc.ID,
			Content:    piece,
			Index:      i,
			Source:     source,
			Metadata: map[string]string{
				domain.MetaDocumentID:      doc.ID,
				domain.MetaFilename:        filename,
				domain.MetaFileType:        string(fileType),
				domain.MetaChunkIndex:      fmt.Sprintf("%d", i),
				domain.MetaSource:          source,
				domain.MetaUploadTimestamp: doc.UploadedAt.Format(time.RFC3339),
			},
		})
	}

	return doc, chunks, nil
}

// ChunkText splits text into a sliding window of at most ChunkSize
// characters per chunk, with ChunkOverlap characters shared between
// consecutive chunks. Windows are measured in runes so multi-byte
// characters are never split. The window always advances by at least
// one character, so an overlap >= chunk size cannot stall.
func (p *Processor) ChunkText(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= p.config.ChunkSize {
		return []string{text}
	}

	step := p.config.ChunkSize - p.config.ChunkOverlap
	if step < 1 {
		step = 1
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + p.config.ChunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
