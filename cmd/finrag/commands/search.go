package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/finrag/finrag-go/internal/logging"
	"github.com/finrag/finrag-go/internal/retrieval"
)

// NewSearchCmd constructs the `finrag search` command, which finds the
// closest known terms for a query.
func NewSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Find the closest known financial terms for a query",
		Long: `Embed the query and rank the financial term collection by similarity.

Search is best-effort: when the embedder or the store is unavailable the
result is empty rather than an error.

Examples:
  finrag search "market cap"
  finrag search --limit 10 "净资产收益率"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			emb, err := newEmbedder(log)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			storeCfg, err := newStoreConfig()
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			candidates := retrieval.New(storeCfg, emb, nil).Search(ctx, args[0], limit)
			if len(candidates) == 0 {
				fmt.Println("no related terms found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TERM\tCATEGORY\tSCORE")
			for _, c := range candidates {
				fmt.Fprintf(w, "%s\t%s\t%.4f\n", c.Term, c.Category, c.Distance)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Maximum number of candidates to return")

	return cmd
}
