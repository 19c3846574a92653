package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/finrag/finrag-go/internal/fault"
)

// QdrantConfig holds connection parameters for a Qdrant instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements Store backed by a Qdrant instance. Qdrant builds
// its HNSW graph incrementally, so BuildIndex is a no-op; hnsw construction
// parameters are applied at collection-creation time.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client
}

// NewQdrantStore connects to Qdrant and returns a ready-to-use Store.
func NewQdrantStore(cfg *QdrantConfig) (*QdrantStore, error) {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fault.Wrap(fault.External, err, "qdrant: create client")
	}
	return &QdrantStore{client: client}, nil
}

// CreateCollection creates the named collection with cosine distance. For
// hnsw, the configured graph-construction parameters are passed through;
// other modes use the server defaults.
func (s *QdrantStore) CreateCollection(ctx context.Context, desc Descriptor) error {
	if err := validateDescriptor(desc); err != nil {
		return err
	}

	create := &qdrant.CreateCollection{
		CollectionName: desc.Name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(desc.VectorDimension),
			Distance: qdrant.Distance_Cosine,
		}),
	}
	if desc.IndexMode == HNSW {
		params := desc.IndexMode.Params()
		m := uint64(params["M"])
		ef := uint64(params["efConstruction"])
		create.HnswConfig = &qdrant.HnswConfigDiff{
			M:           &m,
			EfConstruct: &ef,
		}
	}

	if err := s.client.CreateCollection(ctx, create); err != nil {
		return fault.Wrap(fault.External, err, "qdrant: create collection %s", desc.Name)
	}
	return nil
}

// Insert upserts the record batch as points with generated UUID ids and
// the chunk metadata carried in each point's payload.
func (s *QdrantStore) Insert(ctx context.Context, collection string, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, rec := range records {
		payload := map[string]any{
			"content":             rec.Content,
			"document_name":       rec.DocumentName,
			"chunk_id":            rec.ChunkID,
			"total_chunks":        rec.TotalChunks,
			"word_count":          rec.WordCount,
			"page_number":         rec.PageNumber,
			"page_range":          rec.PageRange,
			"embedding_provider":  rec.EmbeddingProvider,
			"embedding_model":     rec.EmbeddingModel,
			"embedding_timestamp": rec.EmbeddingTimestamp,
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.NewString()),
			Vectors: qdrant.NewVectors(rec.Vector...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	}); err != nil {
		return 0, fault.Wrap(fault.External, err, "qdrant: upsert into %s", collection)
	}
	return len(records), nil
}

// BuildIndex is a no-op: Qdrant maintains its HNSW graph on upsert.
func (s *QdrantStore) BuildIndex(ctx context.Context, collection string, mode IndexMode) error {
	return nil
}

// ListCollections returns all collection names.
func (s *QdrantStore) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fault.Wrap(fault.External, err, "qdrant: list collections")
	}
	return names, nil
}

// DeleteCollection drops the named collection.
func (s *QdrantStore) DeleteCollection(ctx context.Context, name string) error {
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return fault.Wrap(fault.External, err, "qdrant: delete collection %s", name)
	}
	return nil
}

// DescribeCollection reports the collection's point count and vector size.
func (s *QdrantStore) DescribeCollection(ctx context.Context, name string) (*CollectionInfo, error) {
	info, err := s.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return nil, fault.Wrap(fault.External, err, "qdrant: collection info for %s", name)
	}

	result := &CollectionInfo{Name: name}
	if info.PointsCount != nil {
		result.NumEntities = int64(*info.PointsCount)
	}
	if cfg := info.GetConfig().GetParams().GetVectorsConfig().GetParams(); cfg != nil {
		result.VectorDimension = int(cfg.Size)
	}
	return result, nil
}

// Search performs a cosine similarity query returning the requested
// payload fields.
func (s *QdrantStore) Search(ctx context.Context, collection string, vector []float32, limit int, outputFields []string) ([]SearchHit, error) {
	lim := uint64(limit)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &lim,
		WithPayload:    qdrant.NewWithPayloadInclude(outputFields...),
	})
	if err != nil {
		return nil, fault.Wrap(fault.External, err, "qdrant: search %s", collection)
	}

	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		fields := make(map[string]string, len(r.Payload))
		for k, v := range r.Payload {
			switch kind := v.GetKind().(type) {
			case *qdrant.Value_StringValue:
				fields[k] = kind.StringValue
			case *qdrant.Value_IntegerValue:
				fields[k] = fmt.Sprint(kind.IntegerValue)
			default:
				fields[k] = v.String()
			}
		}
		hits = append(hits, SearchHit{Fields: fields, Distance: r.Score})
	}
	return hits, nil
}

// Close closes the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}
