package parser

import (
	"context"
	"strings"
)

// Table is one extracted table: a header row followed by data rows.
type Table struct {
	// Rows holds the table cells, first row is the header.
	Rows [][]string
}

// Cols returns the header width.
func (t Table) Cols() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows[0])
}

// DataRows returns the number of rows below the header.
func (t Table) DataRows() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows) - 1
}

// Markdown renders the table as pipe-delimited table markup.
func (t Table) Markdown() string {
	if len(t.Rows) == 0 {
		return ""
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for _, cell := range cells {
			b.WriteString(" ")
			b.WriteString(strings.ReplaceAll(cell, "\n", " "))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(t.Rows[0])
	b.WriteString("|")
	for range t.Rows[0] {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range t.Rows[1:] {
		writeRow(row)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ExtractedPage is the per-page output of a PageExtractor.
type ExtractedPage struct {
	// Tables are the tables found on the page, in reading order.
	Tables []Table

	// Text is the page's plain text, empty when nothing was extractable.
	Text string
}

// PageExtractor extracts physical pages (tables and plain text) from a file.
// It is an external capability: implementations wrap a PDF plumber or an
// extraction service.
type PageExtractor interface {
	// ExtractPages returns one entry per physical page, in page order.
	ExtractPages(ctx context.Context, path string) ([]ExtractedPage, error)
}

// Strategy selects the accuracy mode of a structural extraction pass.
type Strategy string

const (
	// StrategyHiRes requests table-structure inference and title grouping.
	StrategyHiRes Strategy = "hi_res"
	// StrategyFast is the lower-accuracy fallback with the same grouping.
	StrategyFast Strategy = "fast"
)

// Element is one structural unit returned by a StructuralExtractor.
type Element struct {
	// Type is the element category in lower case (title, table, text, ...).
	Type string

	// Text is the element content (table elements carry table markup).
	Text string

	// Page is the 1-based page the element was found on.
	Page int

	// Meta holds extractor-specific extras.
	Meta map[string]any
}

// StructuralExtractor partitions a file into typed elements with title-based
// grouping. Implementations wrap a heavyweight extraction capability.
type StructuralExtractor interface {
	Partition(ctx context.Context, path string, strategy Strategy) ([]Element, error)
}

// modelOrNetworkMarkers are the message fragments that identify a hi_res
// failure caused by a missing local model artifact or no network
// connectivity. Substring matching is fragile and kept only because the
// extraction capability does not expose structured error codes; replace when
// it does.
var modelOrNetworkMarkers = []string{
	"locate the file on the Hub",
	"Internet connection",
	"connection refused",
	"no such host",
	"model artifact",
}

// isModelOrNetworkError classifies a hi_res failure as retriable with the
// fast strategy.
func isModelOrNetworkError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range modelOrNetworkMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
