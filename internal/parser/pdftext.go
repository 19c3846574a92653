package parser

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDFTextExtractor is a PageExtractor backed by a pure-Go PDF reader. It
// extracts per-page plain text; table detection needs layout analysis the
// reader does not perform, so Tables is always empty and table elements only
// appear when a richer extractor is configured.
type PDFTextExtractor struct{}

// NewPDFTextExtractor constructs a PDFTextExtractor.
func NewPDFTextExtractor() *PDFTextExtractor {
	return &PDFTextExtractor{}
}

// ExtractPages reads the PDF at path and returns one entry per page.
func (e *PDFTextExtractor) ExtractPages(_ context.Context, path string) ([]ExtractedPage, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("parser: open pdf %s: %w", path, err)
	}
	defer f.Close()

	total := reader.NumPage()
	pages := make([]ExtractedPage, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, ExtractedPage{})
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("parser: extract text from page %d of %s: %w", i, path, err)
		}
		pages = append(pages, ExtractedPage{Text: text})
	}
	return pages, nil
}
