package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/finrag/finrag-go/internal/catalog"
	"github.com/finrag/finrag-go/internal/config"
	"github.com/finrag/finrag-go/internal/embedder"
	"github.com/finrag/finrag-go/internal/indexer"
	"github.com/finrag/finrag-go/internal/llm"
	"github.com/finrag/finrag-go/internal/parser"
	"github.com/finrag/finrag-go/internal/vectorstore"
)

// newEmbedder constructs the embedding client from the environment and warns
// when the configured model looks like a chat model rather than an embedding
// model.
func newEmbedder(log *slog.Logger) (embedder.Embedder, error) {
	cfg := config.EmbeddingFromEnv()
	embedder.WarnIfChatModel(log, cfg.Model)

	emb, err := embedder.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	log.Info("embedder initialised",
		slog.String("provider", emb.Provider()),
		slog.String("model", emb.Model()),
		slog.Int("dimensions", emb.Dimensions()),
	)
	return emb, nil
}

// newLLM constructs the chat-completion client from the environment.
func newLLM() (*llm.Client, error) {
	client, err := llm.New(config.LLMFromEnv())
	if err != nil {
		return nil, fmt.Errorf("failed to initialise llm client: %w", err)
	}
	return client, nil
}

// newStoreConfig resolves the vector store provider selection from the
// environment.
func newStoreConfig() (*vectorstore.Config, error) {
	cfg, err := config.StoreFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vector store config: %w", err)
	}
	return cfg, nil
}

// openCatalog opens the indexing-run catalog. FINRAG_CATALOG_DB overrides
// the default path (~/.finrag/catalog.db); "disabled" turns recording off.
// A catalog that fails to open is downgraded to a warning — indexing history
// is a convenience, never a prerequisite.
func openCatalog(log *slog.Logger) (catalog.Catalog, func()) {
	dbPath := os.Getenv("FINRAG_CATALOG_DB")
	if dbPath == "disabled" {
		log.Info("catalog: disabled via FINRAG_CATALOG_DB=disabled")
		return nil, func() {}
	}
	if dbPath == "" {
		var err error
		dbPath, err = catalog.DefaultDBPath()
		if err != nil {
			log.Warn("catalog: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil, func() {}
		}
	}

	cat, err := catalog.Open(dbPath)
	if err != nil {
		log.Warn("catalog: failed to open, disabling", slog.Any("error", err))
		return nil, func() {}
	}
	log.Info("catalog: opened", slog.String("path", dbPath))
	return cat, func() { _ = cat.Close() }
}

// newIndexer builds an Indexer wired to the configured store and catalog.
// The returned cleanup closes the catalog.
func newIndexer(log *slog.Logger) (*indexer.Indexer, func(), error) {
	storeCfg, err := newStoreConfig()
	if err != nil {
		return nil, nil, err
	}

	cat, closeCat := openCatalog(log)
	idx := indexer.New(indexer.Config{Store: storeCfg, Catalog: cat})
	return idx, closeCat, nil
}

// newParser builds the parsing service. The PDF text extractor is always
// available; the structural extractor is wired only when an Unstructured
// endpoint is configured.
func newParser() *parser.Service {
	cfg := &parser.Config{Pages: parser.NewPDFTextExtractor()}
	if endpoint := os.Getenv("UNSTRUCTURED_ENDPOINT"); endpoint != "" {
		cfg.Structural = parser.NewUnstructuredExtractor(&parser.UnstructuredConfig{
			BaseURL: endpoint,
			APIKey:  os.Getenv("UNSTRUCTURED_API_KEY"),
		})
	}
	return parser.New(cfg)
}
