package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/finrag/finrag-go/internal/ner"
)

// NewNERCmd constructs the `finrag ner` command group for entity recognition
// and term standardization.
func NewNERCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ner",
		Short: "Recognize and standardize financial entities via the LLM",
	}

	cmd.AddCommand(
		newNERRecognizeCmd(),
		newNERStandardizeCmd(),
	)

	return cmd
}

func newNERRecognizeCmd() *cobra.Command {
	var categories []string

	cmd := &cobra.Command{
		Use:   "recognize [text]",
		Short: "Extract named financial entities from text",
		Long: `Extract named financial entities from a piece of text.

With no --category flags the default category set is used: company,
financial_metric, currency, regulation, instrument.

Examples:
  finrag ner recognize "Apple's EBITDA rose 12% under SEC rule 10b-5"
  finrag ner recognize --category company --category currency "BYD raised USD 2bn"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chat, err := newLLM()
			if err != nil {
				return fmt.Errorf("ner: %w", err)
			}

			entities, err := ner.New(chat).Recognize(cmd.Context(), args[0], categories)
			if err != nil {
				return fmt.Errorf("ner: %w", err)
			}
			if len(entities) == 0 {
				fmt.Fprintln(os.Stderr, "no entities found")
				return nil
			}

			return writeJSONOutput("", entities)
		},
	}

	cmd.Flags().StringArrayVarP(&categories, "category", "c", nil, "Entity category to extract (repeatable)")

	return cmd
}

func newNERStandardizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "standardize [term]",
		Short: "Map a colloquial financial term to its standard form",
		Long: `Ask the LLM for the standard form of a colloquial or abbreviated term.

Examples:
  finrag ner standardize "P/E"
  finrag ner standardize "市盈率"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chat, err := newLLM()
			if err != nil {
				return fmt.Errorf("ner: %w", err)
			}

			std, err := ner.New(chat).Standardize(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("ner: %w", err)
			}

			return writeJSONOutput("", std)
		},
	}
}
