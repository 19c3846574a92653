package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/finrag/finrag-go/internal/document"
	"github.com/finrag/finrag-go/internal/parser"
)

// NewParseCmd constructs the `finrag parse` command, which extracts
// structured content from a document and prints it as JSON.
func NewParseCmd() *cobra.Command {
	var method string
	var output string

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse a document into structured content elements",
		Long: `Parse a document into ordered content elements using the selected strategy.

Page-map strategies (all_text, by_pages, by_titles) work on the extracted
page text. text_and_tables additionally extracts tables in reading order.
hi_res delegates to the Unstructured partition service when
UNSTRUCTURED_ENDPOINT is configured, falling back to fast extraction when
the service is unavailable.

Examples:
  finrag parse report.pdf
  finrag parse report.pdf --method by_titles
  finrag parse report.pdf --method text_and_tables -o report.parsed.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]

			svc := newParser()

			req := parser.Request{
				Method:   parser.Method(method),
				FilePath: path,
				Metadata: document.Metadata{Filename: filepath.Base(path)},
			}

			// Page-map strategies need the extracted pages up front.
			switch parser.Method(method) {
			case parser.TextAndTables, parser.HiRes:
			default:
				pages, err := loadPages(ctx, path)
				if err != nil {
					return fmt.Errorf("parse: %w", err)
				}
				req.Pages = pages
			}

			parsed, err := svc.Parse(ctx, req)
			if err != nil {
				return fmt.Errorf("parse: %w", err)
			}

			return writeJSONOutput(output, parsed)
		},
	}

	cmd.Flags().StringVarP(&method, "method", "m", "all_text", "Parsing strategy (all_text, by_pages, by_titles, text_and_tables, hi_res)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write result JSON to this file instead of stdout")

	return cmd
}

// loadPages extracts per-page text from a document as a 1-based PageMap.
func loadPages(ctx context.Context, path string) (document.PageMap, error) {
	extracted, err := parser.NewPDFTextExtractor().ExtractPages(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract pages from %s: %w", path, err)
	}

	pages := make(document.PageMap, 0, len(extracted))
	for i, page := range extracted {
		pages = append(pages, document.PageEntry{Page: i + 1, Text: page.Text})
	}
	return pages, nil
}

// writeJSONOutput writes v as indented JSON to the given path, or stdout
// when path is empty.
func writeJSONOutput(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	if path == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
