package extractors

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/archivist-labs/ragcore/internal/core/domain"
	"github.com/archivist-labs/ragcore/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Extractor = (*DOCXExtractor)(nil)

// DOCXExtractor extracts paragraph text from DOCX files.
// A .docx is a zip archive; the body lives in word/document.xml.
type DOCXExtractor struct{}

func (e *DOCXExtractor) FileType() domain.FileType {
	return domain.FileTypeDOCX
}

func (e *DOCXExtractor) Extract(content []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", domain.WithCategory(domain.CategoryProcessing,
			fmt.Errorf("open docx archive: %w", err))
	}

	var docFile *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", domain.WithCategory(domain.CategoryProcessing,
			fmt.Errorf("docx missing word/document.xml"))
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", domain.WithCategory(domain.CategoryProcessing,
			fmt.Errorf("open document.xml: %w", err))
	}
	defer rc.Close()

	paragraphs, err := parseDocumentXML(rc)
	if err != nil {
		return "", domain.WithCategory(domain.CategoryProcessing,
			fmt.Errorf("parse document.xml: %w", err))
	}

	return strings.Join(paragraphs, "\n"), nil
}

// parseDocumentXML walks the WordprocessingML token stream collecting
// text runs (w:t) grouped into paragraphs (w:p).
func parseDocumentXML(r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)

	var paragraphs []string
	var current strings.Builder
	inParagraph := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				current.Reset()
			case "t":
				if inParagraph {
					var text string
					if err := decoder.DecodeElement(&text, &t); err != nil {
						return nil, err
					}
					current.WriteString(text)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "p" && inParagraph {
				inParagraph = false
				if s := current.String(); strings.TrimSpace(s) != "" {
					paragraphs = append(paragraphs, s)
				}
			}
		}
	}

	return paragraphs, nil
}
