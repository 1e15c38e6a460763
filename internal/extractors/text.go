package extractors

import (
	"bytes"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/archivist-labs/ragcore/internal/core/domain"
	"github.com/archivist-labs/ragcore/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Extractor = (*TextExtractor)(nil)

// TextExtractor decodes plain-text files. Encoding is detected from the
// byte-order mark and UTF-8 validity; undecodable input falls back to
// Latin-1, which never fails.
type TextExtractor struct{}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

func (e *TextExtractor) FileType() domain.FileType {
	return domain.FileTypeText
}

func (e *TextExtractor) Extract(content []byte) (string, error) {
	switch {
	case bytes.HasPrefix(content, bomUTF8):
		return string(content[len(bomUTF8):]), nil
	case bytes.HasPrefix(content, bomUTF16LE):
		return decodeUTF16(content[2:], false), nil
	case bytes.HasPrefix(content, bomUTF16BE):
		return decodeUTF16(content[2:], true), nil
	case utf8.Valid(content):
		return string(content), nil
	default:
		return decodeLatin1(content), nil
	}
}

func decodeUTF16(b []byte, bigEndian bool) string {
	if len(b)%2 == 1 {
		b = b[:len(b)-1]
	}
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		if bigEndian {
			units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
		} else {
			units = append(units, uint16(b[i+1])<<8|uint16(b[i]))
		}
	}
	return string(utf16.Decode(units))
}

func decodeLatin1(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		sb.WriteRune(rune(c))
	}
	return sb.String()
}
