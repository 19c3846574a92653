// Command finrag is the entry point for the financial-document RAG pipeline.
// It provides a CLI interface (via Cobra) for parsing, chunking, embedding,
// and indexing documents, plus an HTTP server for retrieval and explanation.
package main

import (
	"fmt"
	"os"

	"github.com/finrag/finrag-go/cmd/finrag/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
