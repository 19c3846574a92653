package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finrag/finrag-go/internal/chunker"
	"github.com/finrag/finrag-go/internal/document"
)

// NewChunkCmd constructs the `finrag chunk` command, which splits a document
// into retrieval-sized chunks and prints the result as JSON.
func NewChunkCmd() *cobra.Command {
	var method string
	var size int
	var overlap int
	var output string

	cmd := &cobra.Command{
		Use:   "chunk [file]",
		Short: "Split a document into retrieval-sized chunks",
		Long: `Split a document into chunks using the selected strategy.

PDF input is extracted page by page; the markdown strategy instead reads
the file as raw text and splits on headers. Chunk IDs are 1-based and
strictly increasing in emission order.

Examples:
  finrag chunk report.pdf
  finrag chunk report.pdf --method by_sentences
  finrag chunk report.pdf --method token --size 500 --overlap 50
  finrag chunk notes.md --method markdown`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]

			m, err := chunker.ParseMethod(method)
			if err != nil {
				return fmt.Errorf("chunk: %w", err)
			}

			req := chunker.Request{
				Method:       m,
				ChunkSize:    size,
				ChunkOverlap: overlap,
				Metadata: document.Metadata{
					Filename:      filepath.Base(path),
					LoadingMethod: "pdf",
				},
			}

			if m == chunker.Markdown {
				raw, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("chunk: failed to read %s: %w", path, err)
				}
				req.Text = string(raw)
				req.Metadata.LoadingMethod = "markdown"
			} else if strings.EqualFold(filepath.Ext(path), ".pdf") {
				pages, err := loadPages(ctx, path)
				if err != nil {
					return fmt.Errorf("chunk: %w", err)
				}
				req.Pages = pages
			} else {
				raw, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("chunk: failed to read %s: %w", path, err)
				}
				req.Pages = document.PageMap{{Page: 1, Text: string(raw)}}
				req.Metadata.LoadingMethod = "text"
			}

			chunked, err := chunker.New().Chunk(req)
			if err != nil {
				return fmt.Errorf("chunk: %w", err)
			}

			return writeJSONOutput(output, chunked)
		},
	}

	cmd.Flags().StringVarP(&method, "method", "m", string(chunker.ByPages), "Chunking strategy (by_pages, fixed_size, by_paragraphs, by_sentences, recursive, markdown, token)")
	cmd.Flags().IntVar(&size, "size", chunker.DefaultChunkSize, "Maximum chunk size in characters (tokens for the token strategy)")
	cmd.Flags().IntVar(&overlap, "overlap", chunker.DefaultChunkOverlap, "Overlap between consecutive chunks")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write result JSON to this file instead of stdout")

	return cmd
}
