package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finrag/finrag-go/internal/logging"
	"github.com/finrag/finrag-go/internal/terms"
	"github.com/finrag/finrag-go/internal/vectorstore"
)

// NewImportTermsCmd constructs the `finrag import-terms` command, which
// loads a terminology CSV into the financial term collection.
func NewImportTermsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-terms [csv-file]",
		Short: "Import a financial terminology CSV into the term collection",
		Long: `Import terms from a CSV file into the shared financial term collection.

The CSV carries one term per row: term in the first column, an optional
category in the second. A header row starting with "term" is skipped.
Terms are embedded and inserted in batches; a failed batch is logged and
skipped, the rest of the import continues.

The term collection lives in Milvus regardless of the document store
provider.

Examples:
  finrag import-terms financial_terms.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			imported, err := terms.ReadCSVFile(args[0])
			if err != nil {
				return fmt.Errorf("import-terms: %w", err)
			}
			fmt.Printf("read %d terms from %s\n", len(imported), args[0])

			emb, err := newEmbedder(log)
			if err != nil {
				return fmt.Errorf("import-terms: %w", err)
			}

			storeCfg, err := newStoreConfig()
			if err != nil {
				return fmt.Errorf("import-terms: %w", err)
			}
			store, err := vectorstore.NewMilvusStore(ctx, &storeCfg.Milvus)
			if err != nil {
				return fmt.Errorf("import-terms: %w", err)
			}
			defer store.Close()

			result, err := terms.NewImporter(store, emb).Import(ctx, imported)
			if err != nil {
				return fmt.Errorf("import-terms: %w", err)
			}

			fmt.Printf("imported: %d\nfailed: %d\n", result.Imported, result.Failed)
			return nil
		},
	}

	return cmd
}
