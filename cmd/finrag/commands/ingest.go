package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/finrag/finrag-go/internal/chunker"
	"github.com/finrag/finrag-go/internal/logging"
	"github.com/finrag/finrag-go/internal/parser"
	"github.com/finrag/finrag-go/internal/pipeline"
	"github.com/finrag/finrag-go/internal/vectorstore"
)

// NewIngestCmd constructs the `finrag ingest` command, which runs the full
// document pipeline: extract pages, chunk, embed, and index.
func NewIngestCmd() *cobra.Command {
	var method string
	var size int
	var overlap int
	var indexMode string
	var output string
	var skipIndex bool

	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Parse, chunk, embed, and index a document end to end",
		Long: `Run the full ingestion pipeline over one document.

The document is extracted page by page, chunked with the selected strategy,
embedded in batches, written to an embedding file next to the source, and
indexed into a fresh vector store collection named after the document.

Environment variables select the embedding provider (EMBEDDING_*) and the
vector store (VECTOR_STORE_PROVIDER, MILVUS_*, CHROMA_URL, QDRANT_*).

Examples:
  finrag ingest report.pdf
  finrag ingest report.pdf --method recursive --size 800 --overlap 100
  finrag ingest report.pdf --index-mode hnsw
  finrag ingest report.pdf --skip-index -o report.embeddings.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			chunkMethod, err := chunker.ParseMethod(method)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			mode, err := vectorstore.ParseIndexMode(indexMode)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			emb, err := newEmbedder(log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			cfg := pipeline.Config{
				Pages:    parser.NewPDFTextExtractor(),
				Chunker:  chunker.New(),
				Embedder: emb,
			}

			var closeCat func()
			if !skipIndex {
				idx, cleanup, idxErr := newIndexer(log)
				if idxErr != nil {
					return fmt.Errorf("ingest: %w", idxErr)
				}
				cfg.Indexer = idx
				closeCat = cleanup
			}
			if closeCat != nil {
				defer closeCat()
			}

			p, err := pipeline.New(cfg)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			result, err := p.Run(ctx, pipeline.Options{
				FilePath:     args[0],
				ChunkMethod:  chunkMethod,
				ChunkSize:    size,
				ChunkOverlap: overlap,
				IndexMode:    mode,
				OutputPath:   output,
				SkipIndex:    skipIndex,
			})
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			log.Info("ingestion complete",
				slog.Int("pages", result.Pages),
				slog.Int("chunks", result.Chunks),
				slog.String("embedding_file", result.EmbeddingFile),
			)

			fmt.Printf("pages: %d\nchunks: %d\nembedding file: %s\n",
				result.Pages, result.Chunks, result.EmbeddingFile)
			if result.Index != nil {
				fmt.Printf("collection: %s\nvectors: %d\nindexing time: %s\n",
					result.Index.CollectionName, result.Index.TotalVectors, result.Index.ProcessingTime)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&method, "method", "m", string(chunker.ByPages), "Chunking strategy")
	cmd.Flags().IntVar(&size, "size", chunker.DefaultChunkSize, "Maximum chunk size")
	cmd.Flags().IntVar(&overlap, "overlap", chunker.DefaultChunkOverlap, "Overlap between consecutive chunks")
	cmd.Flags().StringVar(&indexMode, "index-mode", string(vectorstore.Flat), "Similarity index (flat, ivf_flat, ivf_sq8, hnsw)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Embedding file path (default: next to the source)")
	cmd.Flags().BoolVar(&skipIndex, "skip-index", false, "Stop after writing the embedding file")

	return cmd
}
