// Package commands defines all Cobra CLI commands for the finrag binary.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/finrag/finrag-go/internal/audit"
	"github.com/finrag/finrag-go/internal/config"
	"github.com/finrag/finrag-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "finrag",
		Short: "finrag — financial document RAG pipeline and term explainer",
		Long: `finrag ingests financial documents into a vector store and answers
terminology questions against the indexed corpus.

The pipeline parses PDFs, chunks the text, embeds the chunks, and indexes
them into Milvus, Chroma, or Qdrant. A curated financial-term collection
backs similarity search and LLM-generated explanations, available both on
the command line and over HTTP ('finrag serve').

Providers are selected via environment variables or a YAML config file
(~/.finrag/config.yaml). See 'finrag --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// A local .env is a convenience for development; absence is fine.
			_ = godotenv.Load()

			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.finrag/config.yaml)")

	root.AddCommand(
		NewParseCmd(),
		NewChunkCmd(),
		NewIngestCmd(),
		NewIndexCmd(),
		NewCollectionsCmd(),
		NewImportTermsCmd(),
		NewSearchCmd(),
		NewAskCmd(),
		NewNERCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
