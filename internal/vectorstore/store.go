// Package vectorstore defines the provider-polymorphic contract for
// persisting and querying embedding collections, the collection naming
// scheme, and the concrete Milvus, Chroma, and Qdrant providers.
//
// Store handles are explicitly constructed and closed by the caller; they are
// acquired and released around each indexing or listing operation rather than
// cached process-wide.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/finrag/finrag-go/internal/fault"
)

// Provider identifies a vector database backend.
type Provider string

const (
	// Milvus is a remote Milvus instance over gRPC.
	Milvus Provider = "milvus"
	// Chroma is a Chroma server over its REST API.
	Chroma Provider = "chroma"
	// Qdrant is a Qdrant instance over gRPC.
	Qdrant Provider = "qdrant"
)

// ParseProvider validates a provider key at the boundary.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(s); p {
	case Milvus, Chroma, Qdrant:
		return p, nil
	default:
		return "", fault.New(fault.UnsupportedMethod, "unsupported vector database provider: %q", s)
	}
}

// Descriptor describes one collection to be created: its derived name, the
// backend, the index mode, and the vector dimension. A descriptor is built
// once per indexing call and the collection is never renamed.
type Descriptor struct {
	// Name is the collection name derived by CollectionName.
	Name string

	// Provider selects the backend.
	Provider Provider

	// IndexMode selects the similarity index built over the vector field.
	IndexMode IndexMode

	// VectorDimension is the length of every vector in the collection.
	VectorDimension int
}

// Record is one row of the fixed collection schema. The numeric primary id
// is auto-generated by the store and not part of the record.
type Record struct {
	Content            string
	DocumentName       string
	ChunkID            int64
	TotalChunks        int64
	WordCount          int64
	PageNumber         string
	PageRange          string
	EmbeddingProvider  string
	EmbeddingModel     string
	EmbeddingTimestamp string
	Vector             []float32
}

// Bounded string field lengths of the collection schema.
const (
	maxContentLen = 5000
	maxNameLen    = 255
	maxPageLen    = 10
	maxLabelLen   = 50
)

// FieldInfo describes one schema field of an existing collection.
type FieldInfo struct {
	// Name is the field name.
	Name string `json:"name"`
	// Type is the provider-native field type label.
	Type string `json:"type"`
	// PrimaryKey marks the collection's primary field.
	PrimaryKey bool `json:"is_primary,omitempty"`
}

// CollectionInfo is the result of describing a collection.
type CollectionInfo struct {
	// Name is the collection name.
	Name string `json:"name"`
	// NumEntities is the persisted row count.
	NumEntities int64 `json:"num_entities"`
	// VectorDimension is the declared vector field dimension, when the
	// provider exposes it (0 otherwise).
	VectorDimension int `json:"vector_dimension,omitempty"`
	// Schema lists the collection's fields.
	Schema []FieldInfo `json:"schema"`
}

// SearchHit is one similarity-search result, ranked by the store's native
// distance metric.
type SearchHit struct {
	// Fields holds the requested output fields as strings.
	Fields map[string]string
	// Distance is the store-native similarity score for the hit.
	Distance float32
}

// Store is the provider-polymorphic capability set every backend exposes.
// Implementations differ in how the float-vector field is declared and in
// whether a standalone index-build step is required, but honor the same
// contract.
type Store interface {
	// CreateCollection creates the collection with the fixed chunk schema.
	CreateCollection(ctx context.Context, desc Descriptor) error

	// Insert bulk-inserts the record batch and returns the inserted count.
	Insert(ctx context.Context, collection string, records []Record) (int, error)

	// BuildIndex builds the similarity index over the vector field and
	// marks the collection ready for queries. Providers that index
	// implicitly treat this as marking-ready only.
	BuildIndex(ctx context.Context, collection string, mode IndexMode) error

	// ListCollections returns all collection names.
	ListCollections(ctx context.Context) ([]string, error)

	// DeleteCollection removes the named collection.
	DeleteCollection(ctx context.Context, name string) error

	// DescribeCollection reports the collection's entity count and schema.
	DescribeCollection(ctx context.Context, name string) (*CollectionInfo, error)

	// Search runs a top-limit similarity query returning the requested
	// output fields.
	Search(ctx context.Context, collection string, vector []float32, limit int, outputFields []string) ([]SearchHit, error)

	// Close releases the underlying connection.
	Close() error
}

// Config selects and configures a backend for Open.
type Config struct {
	// Provider selects the backend.
	Provider Provider
	// Milvus holds the Milvus connection settings.
	Milvus MilvusConfig
	// Chroma holds the Chroma connection settings.
	Chroma ChromaConfig
	// Qdrant holds the Qdrant connection settings.
	Qdrant QdrantConfig
}

// Open constructs a connected Store for the configured provider. The caller
// owns the handle and must Close it.
func Open(ctx context.Context, cfg *Config) (Store, error) {
	switch cfg.Provider {
	case Milvus:
		return NewMilvusStore(ctx, &cfg.Milvus)
	case Chroma:
		return NewChromaStore(&cfg.Chroma), nil
	case Qdrant:
		return NewQdrantStore(&cfg.Qdrant)
	default:
		return nil, fault.New(fault.UnsupportedMethod, "unsupported vector database provider: %q", string(cfg.Provider))
	}
}

// fieldNames is the fixed output field order of the chunk schema, shared by
// the providers when declaring or describing collections.
var fieldNames = []string{
	"content", "document_name", "chunk_id", "total_chunks", "word_count",
	"page_number", "page_range", "embedding_provider", "embedding_model",
	"embedding_timestamp",
}

// vectorFieldName is the float-vector field of the chunk schema.
const vectorFieldName = "vector"

// validateDescriptor rejects descriptors the providers cannot act on.
func validateDescriptor(desc Descriptor) error {
	if desc.Name == "" {
		return fault.New(fault.Validation, "collection name must not be empty")
	}
	if desc.VectorDimension <= 0 {
		return fmt.Errorf("vectorstore: collection %s: vector dimension must be positive, got %d",
			desc.Name, desc.VectorDimension)
	}
	return nil
}
