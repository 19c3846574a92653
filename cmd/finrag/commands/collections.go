package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/finrag/finrag-go/internal/catalog"
	"github.com/finrag/finrag-go/internal/logging"
)

// NewCollectionsCmd constructs the `finrag collections` command group for
// vector store collection management.
func NewCollectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "List, describe, and delete vector store collections",
	}

	cmd.AddCommand(
		newCollectionsListCmd(),
		newCollectionsDescribeCmd(),
		newCollectionsDeleteCmd(),
		newCollectionsHistoryCmd(),
	)

	return cmd
}

func newCollectionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all collections in the configured vector store",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			idx, closeCat, err := newIndexer(log)
			if err != nil {
				return fmt.Errorf("collections: %w", err)
			}
			defer closeCat()

			names, err := idx.ListCollections(cmd.Context())
			if err != nil {
				return fmt.Errorf("collections: %w", err)
			}
			if len(names) == 0 {
				fmt.Println("no collections")
				return nil
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func newCollectionsDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe [name]",
		Short: "Describe a collection: entity count, dimension, and schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			idx, closeCat, err := newIndexer(log)
			if err != nil {
				return fmt.Errorf("collections: %w", err)
			}
			defer closeCat()

			info, err := idx.DescribeCollection(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("collections: %w", err)
			}

			fmt.Printf("name: %s\nentities: %d\n", info.Name, info.NumEntities)
			if info.VectorDimension > 0 {
				fmt.Printf("vector dimension: %d\n", info.VectorDimension)
			}
			if len(info.Schema) > 0 {
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "FIELD\tTYPE\tPRIMARY")
				for _, f := range info.Schema {
					fmt.Fprintf(w, "%s\t%s\t%v\n", f.Name, f.Type, f.PrimaryKey)
				}
				w.Flush()
			}
			return nil
		},
	}
}

func newCollectionsDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a collection from the configured vector store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !yes {
				fmt.Printf("delete collection %q? [y/N]: ", name)
				var answer string
				fmt.Scanln(&answer)
				if answer != "y" && answer != "Y" {
					fmt.Println("aborted")
					return nil
				}
			}

			log := logging.New()
			idx, closeCat, err := newIndexer(log)
			if err != nil {
				return fmt.Errorf("collections: %w", err)
			}
			defer closeCat()

			if err := idx.DeleteCollection(cmd.Context(), name); err != nil {
				return fmt.Errorf("collections: %w", err)
			}
			fmt.Printf("deleted %s\n", name)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func newCollectionsHistoryCmd() *cobra.Command {
	var limit int
	var collection string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent indexing runs from the local catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			cat, closeCat := openCatalog(log)
			if cat == nil {
				return fmt.Errorf("collections: catalog is disabled or unavailable")
			}
			defer closeCat()

			var runs []catalog.Run
			var err error
			if collection != "" {
				runs, err = cat.ByCollection(cmd.Context(), collection)
			} else {
				runs, err = cat.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return fmt.Errorf("collections: %w", err)
			}
			if len(runs) == 0 {
				fmt.Println("no indexing runs recorded")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CREATED\tCOLLECTION\tDOCUMENT\tSTORE\tEMBEDDER\tMODE\tVECTORS\tDURATION")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
					run.CreatedAt.Format(time.RFC3339),
					run.Collection,
					run.Document,
					run.StoreProvider,
					run.EmbeddingProvider,
					run.IndexMode,
					run.TotalVectors,
					run.Duration,
				)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Show runs for one collection only")

	return cmd
}
