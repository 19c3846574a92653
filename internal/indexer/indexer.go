// Package indexer turns embedding files into indexed vector store
// collections. Each operation acquires its own store connection and
// releases it on every exit path; nothing is pooled across calls.
package indexer

import (
	"context"
	"log/slog"
	"time"

	"github.com/finrag/finrag-go/internal/catalog"
	"github.com/finrag/finrag-go/internal/document"
	"github.com/finrag/finrag-go/internal/logging"
	"github.com/finrag/finrag-go/internal/vectorstore"
)

// Result summarizes one completed indexing run.
type Result struct {
	// CollectionName is the derived name of the created collection.
	CollectionName string `json:"collection_name"`
	// TotalVectors is the number of vectors inserted.
	TotalVectors int `json:"total_vectors"`
	// IndexSize is the entity count the store reports after the build.
	IndexSize int64 `json:"index_size"`
	// ProcessingTime is the wall-clock duration of the run.
	ProcessingTime time.Duration `json:"processing_time"`
}

// Config holds the indexer's collaborators.
type Config struct {
	// Store selects and configures the vector store provider.
	Store *vectorstore.Config
	// Catalog, when non-nil, records completed runs. Recording failures
	// are logged, never fatal.
	Catalog catalog.Catalog
}

// Indexer creates, populates, and manages vector store collections.
type Indexer struct {
	cfg     *vectorstore.Config
	catalog catalog.Catalog

	// open and now are swapped out in tests.
	open func(ctx context.Context, cfg *vectorstore.Config) (vectorstore.Store, error)
	now  func() time.Time
}

// New constructs an Indexer from the given config.
func New(cfg Config) *Indexer {
	return &Indexer{
		cfg:     cfg.Store,
		catalog: cfg.Catalog,
		open:    vectorstore.Open,
		now:     time.Now,
	}
}

// Index validates the embedding file, derives the collection name, then
// runs the three ordered store steps: create the collection, bulk-insert
// the records, and build the similarity index. There is no partial-success
// state; a failure at any step fails the whole run and leaves whatever the
// store holds at that point in place.
func (i *Indexer) Index(ctx context.Context, file *document.EmbeddingFile, mode vectorstore.IndexMode) (*Result, error) {
	log := logging.FromContext(ctx)

	// Format problems fail here, before any store connection is opened.
	if err := file.Validate(); err != nil {
		return nil, err
	}

	started := i.now()
	name := vectorstore.CollectionName(file.Filename, file.EmbeddingProvider, started)
	desc := vectorstore.Descriptor{
		Name:            name,
		Provider:        i.cfg.Provider,
		IndexMode:       mode,
		VectorDimension: file.VectorDimension,
	}

	store, err := i.open(ctx, i.cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if err := store.CreateCollection(ctx, desc); err != nil {
		return nil, err
	}
	log.Info("collection created",
		slog.String("collection", name),
		slog.Int("dimension", file.VectorDimension),
	)

	inserted, err := store.Insert(ctx, name, records(file))
	if err != nil {
		return nil, err
	}

	if err := store.BuildIndex(ctx, name, mode); err != nil {
		return nil, err
	}

	indexSize := int64(inserted)
	if info, err := store.DescribeCollection(ctx, name); err == nil {
		indexSize = info.NumEntities
	}

	result := &Result{
		CollectionName: name,
		TotalVectors:   inserted,
		IndexSize:      indexSize,
		ProcessingTime: i.now().Sub(started),
	}
	log.Info("indexing complete",
		slog.String("collection", name),
		slog.Int("total_vectors", result.TotalVectors),
		slog.Duration("processing_time", result.ProcessingTime),
	)

	if i.catalog != nil {
		run := catalog.Run{
			Collection:        name,
			Document:          file.Filename,
			StoreProvider:     string(i.cfg.Provider),
			EmbeddingProvider: file.EmbeddingProvider,
			EmbeddingModel:    file.EmbeddingModel,
			IndexMode:         string(mode),
			VectorDimension:   file.VectorDimension,
			TotalVectors:      result.TotalVectors,
			Duration:          result.ProcessingTime,
			CreatedAt:         started,
		}
		if err := i.catalog.Record(ctx, run); err != nil {
			log.Warn("catalog record failed", slog.String("error", err.Error()))
		}
	}

	return result, nil
}

// records converts the embedding file into store records. Chunk metadata
// travels with every vector so search results are self-describing.
func records(file *document.EmbeddingFile) []vectorstore.Record {
	recs := make([]vectorstore.Record, 0, len(file.Embeddings))
	for _, e := range file.Embeddings {
		recs = append(recs, vectorstore.Record{
			Content:            e.Metadata.Content,
			DocumentName:       file.Filename,
			ChunkID:            int64(e.Metadata.ChunkID),
			TotalChunks:        int64(e.Metadata.TotalChunks),
			WordCount:          int64(e.Metadata.WordCount),
			PageNumber:         e.Metadata.PageNumber,
			PageRange:          e.Metadata.PageRange,
			EmbeddingProvider:  file.EmbeddingProvider,
			EmbeddingModel:     file.EmbeddingModel,
			EmbeddingTimestamp: e.Metadata.EmbeddingTimestamp,
			Vector:             e.Embedding,
		})
	}
	return recs
}

// ListCollections returns all collection names in the configured store.
func (i *Indexer) ListCollections(ctx context.Context) ([]string, error) {
	store, err := i.open(ctx, i.cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.ListCollections(ctx)
}

// DeleteCollection drops the named collection.
func (i *Indexer) DeleteCollection(ctx context.Context, name string) error {
	store, err := i.open(ctx, i.cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.DeleteCollection(ctx, name)
}

// DescribeCollection reports the named collection's entity count and schema.
func (i *Indexer) DescribeCollection(ctx context.Context, name string) (*vectorstore.CollectionInfo, error) {
	store, err := i.open(ctx, i.cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.DescribeCollection(ctx, name)
}
