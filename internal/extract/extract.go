package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Page is one page of extracted text. PageNumber is 1-based for paginated
// formats and 0 when the source has no page structure.
type Page struct {
	PageNumber int
	Text       string
}

// Extractor turns a binary document stream into page-numbered plain text.
type Extractor interface {
	ExtractPages(r io.Reader) ([]Page, error)
}

// PDFExtractor extracts per-page plain text from a PDF stream.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) ExtractPages(r io.Reader) ([]Page, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf stream: %w", err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("empty pdf stream")
	}

	reader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []Page
	for i := 1; i <= reader.NumPage(); i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}
		pages = append(pages, Page{PageNumber: i, Text: content})
	}
	return pages, nil
}

// PlainTextExtractor treats the whole stream as a single unpaginated page.
// Used for .txt and .md uploads.
type PlainTextExtractor struct{}

func NewPlainTextExtractor() *PlainTextExtractor {
	return &PlainTextExtractor{}
}

func (e *PlainTextExtractor) ExtractPages(r io.Reader) ([]Page, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read text stream: %w", err)
	}
	return []Page{{PageNumber: 0, Text: string(b)}}, nil
}

// ForContentType picks the extractor matching an upload's content type.
func ForContentType(contentType string) Extractor {
	if strings.HasPrefix(contentType, "application/pdf") {
		return NewPDFExtractor()
	}
	return NewPlainTextExtractor()
}
