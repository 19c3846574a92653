package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finrag/finrag-go/internal/document"
	"github.com/finrag/finrag-go/internal/logging"
	"github.com/finrag/finrag-go/internal/vectorstore"
)

// NewIndexCmd constructs the `finrag index` command, which indexes a
// previously written embedding file into a fresh collection.
func NewIndexCmd() *cobra.Command {
	var indexMode string

	cmd := &cobra.Command{
		Use:   "index [embedding-file]",
		Short: "Index an embedding file into a new vector store collection",
		Long: `Index an embedding file into the configured vector store.

The collection name is derived from the embedded document's filename and
embedding provider, suffixed with the indexing timestamp. A malformed
embedding file fails before any store connection is opened; indexing has no
partial-success reporting.

Examples:
  finrag index report.embeddings.json
  finrag index report.embeddings.json --index-mode ivf_sq8`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			mode, err := vectorstore.ParseIndexMode(indexMode)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			file, err := document.LoadEmbeddingFile(args[0])
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			idx, closeCat, err := newIndexer(log)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}
			defer closeCat()

			result, err := idx.Index(ctx, file, mode)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			fmt.Printf("collection: %s\nvectors: %d\nindex size: %d\nprocessing time: %s\n",
				result.CollectionName, result.TotalVectors, result.IndexSize, result.ProcessingTime)
			return nil
		},
	}

	cmd.Flags().StringVar(&indexMode, "index-mode", string(vectorstore.Flat), "Similarity index (flat, ivf_flat, ivf_sq8, hnsw)")

	return cmd
}
