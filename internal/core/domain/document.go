package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// FileType identifies the format of an uploaded document
type FileType string

const (
	FileTypeText FileType = "text"
	FileTypePDF  FileType = "pdf"
	FileTypeDOCX FileType = "docx"
)

// ProcessingStatus tracks a document through the ingest pipeline
type ProcessingStatus string

const (
	StatusPending   ProcessingStatus = "pending"
	StatusCompleted ProcessingStatus = "completed"
	StatusFailed    ProcessingStatus = "failed"
)

// Document represents one uploaded source file.
// Immutable after creation except for Status transitions.
type Document struct {
	ID         string           `json:"id"`
	Filename   string           `json:"filename"`
	FileType   FileType         `json:"file_type"`
	SizeBytes  int64            `json:"size_bytes"`
	Source     string           `json:"source"`
	Status     ProcessingStatus `json:"status"`
	Error      string           `json:"error,omitempty"`
	UploadedAt time.Time        `json:"uploaded_at"`
}

// Chunk is a contiguous slice of a document's extracted text,
// the unit of embedding and retrieval.
type Chunk struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"document_id"`
	Content    string            `json:"content"`
	Index      int               `json:"index"` // zero-based position within the document
	Source     string            `json:"source"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// DocumentSummary aggregates stored chunk metadata back into a
// per-document view.
type DocumentSummary struct {
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	FileType   FileType  `json:"file_type"`
	Source     string    `json:"source"`
	ChunkCount int       `json:"chunk_count"`
	SizeChars  int       `json:"size_chars"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Metadata keys written to the vector collection for every chunk.
const (
	MetaDocumentID      = "document_id"
	MetaFilename        = "filename"
	MetaFileType        = "file_type"
	MetaChunkIndex      = "chunk_index"
	MetaSource          = "source"
	MetaUploadTimestamp = "upload_timestamp"
)

// IngestResult reports the outcome of processing one file in a batch.
type IngestResult struct {
	Document   *Document `json:"document"`
	ChunkCount int       `json:"chunk_count"`
	Err        error     `json:"-"`
}

// FileTypeFromFilename infers the file type from the filename extension.
// Returns ErrUnsupportedFileType for anything other than text, pdf, or docx.
func FileTypeFromFilename(filename string) (FileType, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".text", ".md":
		return FileTypeText, nil
	case ".pdf":
		return FileTypePDF, nil
	case ".docx":
		return FileTypeDOCX, nil
	default:
		return "", ErrUnsupportedFileType
	}
}
