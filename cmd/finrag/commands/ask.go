package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/finrag/finrag-go/internal/logging"
	"github.com/finrag/finrag-go/internal/retrieval"
)

// NewAskCmd constructs the `finrag ask` command, which generates an
// explanation of a financial term grounded in the term collection.
func NewAskCmd() *cobra.Command {
	var stream bool

	cmd := &cobra.Command{
		Use:   "ask [query]",
		Short: "Explain a financial term using retrieved context",
		Long: `Ask for an explanation of a financial term or phrase.

The query is first matched against the financial term collection; the
closest terms are fed to the LLM as context for the explanation. With
--stream the explanation is printed as it is generated.

Examples:
  finrag ask "EBITDA"
  finrag ask --stream "资产负债率"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			emb, err := newEmbedder(log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			storeCfg, err := newStoreConfig()
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			chat, err := newLLM()
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			retriever := retrieval.New(storeCfg, emb, chat)

			if !stream {
				result, err := retriever.Explain(ctx, args[0])
				if err != nil {
					return fmt.Errorf("ask: %w", err)
				}
				printCandidates(result.Candidates)
				fmt.Println(result.Explanation)
				return nil
			}

			for ev := range retriever.ExplainStream(ctx, args[0]) {
				switch ev.Type {
				case retrieval.EventCandidates:
					printCandidates(ev.Candidates)
				case retrieval.EventFragment:
					fmt.Print(ev.Fragment)
				case retrieval.EventError:
					fmt.Println()
					return fmt.Errorf("ask: %s", ev.Message)
				}
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().BoolVar(&stream, "stream", false, "Print the explanation as it is generated")

	return cmd
}

// printCandidates writes the retrieved term context to stderr so piped
// stdout carries only the explanation text.
func printCandidates(candidates []retrieval.Candidate) {
	if len(candidates) == 0 {
		fmt.Fprintln(os.Stderr, "(no related terms found)")
		return
	}
	fmt.Fprintln(os.Stderr, "related terms:")
	for _, c := range candidates {
		fmt.Fprintf(os.Stderr, "  - %s (%s)\n", c.Term, c.Category)
	}
}
