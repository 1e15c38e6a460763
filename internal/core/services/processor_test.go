package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivist-labs/ragcore/internal/core/domain"
	"github.com/archivist-labs/ragcore/internal/extractors"
)

func newTestProcessor() *Processor {
	return NewProcessor(ProcessorConfig{
		MaxFileSizeBytes: 1024,
		ChunkSize:        1000,
		ChunkOverlap:     200,
	}, extractors.DefaultRegistry())
}

func TestProcessor_Validate(t *testing.T) {
	p := newTestProcessor()

	tests := []struct {
		name     string
		filename string
		content  []byte
		wantType domain.FileType
		wantErr  error
	}{
		{
			name:     "valid text file",
			filename: "notes.txt",
			content:  []byte("hello"),
			wantType: domain.FileTypeText,
		},
		{
			name:     "valid markdown",
			filename: "README.md",
			content:  []byte("# Title"),
			wantType: domain.FileTypeText,
		},
		{
			name:     "missing filename",
			filename: "",
			content:  []byte("hello"),
			wantErr:  domain.ErrInvalidInput,
		},
		{
			name:     "empty content",
			filename: "notes.txt",
			content:  []byte{},
			wantErr:  domain.ErrEmptyContent,
		},
		{
			name:     "oversized file",
			filename: "notes.txt",
			content:  []byte(strings.Repeat("x", 2048)),
			wantErr:  domain.ErrFileTooLarge,
		},
		{
			name:     "unsupported extension",
			filename: "image.png",
			content:  []byte{0x89, 0x50},
			wantErr:  domain.ErrUnsupportedFileType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fileType, err := p.Validate(tt.filename, tt.content)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, fileType)
		})
	}
}

func TestProcessor_Process(t *testing.T) {
	p := newTestProcessor()

	doc, chunks, err := p.Process("notes.txt", []byte("some short document"), "upload:notes.txt")
	require.NoError(t, err)

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "notes.txt", doc.Filename)
	assert.Equal(t, domain.FileTypeText, doc.FileType)
	assert.Equal(t, int64(19), doc.SizeBytes)
	assert.Equal(t, "upload:notes.txt", doc.Source)
	assert.Equal(t, domain.StatusPending, doc.Status)
	assert.False(t, doc.UploadedAt.IsZero())

	require.Len(t, chunks, 1)
	c := chunks[0]
	assert.Equal(t, doc.ID+"_0", c.ID)
	assert.Equal(t, doc.ID, c.DocumentID)
	assert.Equal(t, "some short document", c.Content)
	assert.Equal(t, 0, c.Index)
	assert.Equal(t, "upload:notes.txt", c.Source)
	assert.Equal(t, doc.ID, c.Metadata[domain.MetaDocumentID])
	assert.Equal(t, "notes.txt", c.Metadata[domain.MetaFilename])
	assert.Equal(t, "text", c.Metadata[domain.MetaFileType])
	assert.Equal(t, "0", c.Metadata[domain.MetaChunkIndex])
	assert.NotEmpty(t, c.Metadata[domain.MetaUploadTimestamp])
}

func TestProcessor_Process_DefaultSource(t *testing.T) {
	p := newTestProcessor()

	doc, chunks, err := p.Process("notes.txt", []byte("content"), "")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", doc.Source)
	require.Len(t, chunks, 1)
	assert.Equal(t, "notes.txt", chunks[0].Source)
}

func TestProcessor_Process_WhitespaceOnly(t *testing.T) {
	p := newTestProcessor()

	_, _, err := p.Process("blank.txt", []byte("   \n\t  "), "")
	require.ErrorIs(t, err, domain.ErrEmptyContent)
}

func TestProcessor_ChunkText(t *testing.T) {
	p := NewProcessor(ProcessorConfig{
		MaxFileSizeBytes: DefaultMaxFileSizeBytes,
		ChunkSize:        1000,
		ChunkOverlap:     200,
	}, extractors.DefaultRegistry())

	t.Run("short text is one chunk", func(t *testing.T) {
		chunks := p.ChunkText("short")
		assert.Equal(t, []string{"short"}, chunks)
	})

	t.Run("text exactly chunk size is one chunk", func(t *testing.T) {
		text := strings.Repeat("a", 1000)
		chunks := p.ChunkText(text)
		require.Len(t, chunks, 1)
		assert.Equal(t, text, chunks[0])
	})

	t.Run("3000 chars yields 4 chunks", func(t *testing.T) {
		text := strings.Repeat("a", 3000)
		chunks := p.ChunkText(text)
		require.Len(t, chunks, 4)
		assert.Len(t, chunks[0], 1000)
		assert.Len(t, chunks[1], 1000)
		assert.Len(t, chunks[2], 1000)
		assert.Len(t, chunks[3], 600)
	})

	t.Run("consecutive chunks share the overlap", func(t *testing.T) {
		var sb strings.Builder
		for i := 0; i < 3000; i++ {
			sb.WriteByte(byte('a' + i%26))
		}
		chunks := p.ChunkText(sb.String())
		require.True(t, len(chunks) >= 2)
		for i := 1; i < len(chunks); i++ {
			prev := chunks[i-1]
			tail := prev[len(prev)-200:]
			assert.True(t, strings.HasPrefix(chunks[i], tail),
				"chunk %d does not start with the previous chunk's overlap", i)
		}
	})

	t.Run("empty text yields no chunks", func(t *testing.T) {
		assert.Empty(t, p.ChunkText(""))
	})

	t.Run("multi-byte runes are not split", func(t *testing.T) {
		small := NewProcessor(ProcessorConfig{ChunkSize: 4, ChunkOverlap: 1, MaxFileSizeBytes: 1024}, extractors.DefaultRegistry())
		chunks := small.ChunkText("日本語のテキストです")
		for _, c := range chunks {
			assert.True(t, len([]rune(c)) <= 4)
			for _, r := range c {
				assert.NotEqual(t, '�', r)
			}
		}
	})

	t.Run("overlap larger than chunk size still advances", func(t *testing.T) {
		stuck := NewProcessor(ProcessorConfig{ChunkSize: 10, ChunkOverlap: 50, MaxFileSizeBytes: 1024}, extractors.DefaultRegistry())
		chunks := stuck.ChunkText(strings.Repeat("a", 30))
		// step clamps to 1, so chunking terminates
		assert.NotEmpty(t, chunks)
		assert.LessOrEqual(t, len(chunks), 30)
	})
}
