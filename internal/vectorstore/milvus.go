package vectorstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/finrag/finrag-go/internal/fault"
)

// MilvusConfig holds connection parameters for a Milvus instance.
type MilvusConfig struct {
	// Address is the Milvus gRPC address (default: localhost:19530).
	Address string

	// Username and Password are optional credentials.
	Username string
	Password string
}

// MilvusStore implements Store backed by a Milvus instance. Milvus is the
// one provider that requires an explicit index-build step before a
// collection is queryable.
type MilvusStore struct {
	// client is the underlying Milvus gRPC client.
	client client.Client
}

// NewMilvusStore connects to Milvus and returns a ready-to-use Store.
func NewMilvusStore(ctx context.Context, cfg *MilvusConfig) (*MilvusStore, error) {
	address := cfg.Address
	if address == "" {
		address = "localhost:19530"
	}

	c, err := client.NewClient(ctx, client.Config{
		Address:  address,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, fault.Wrap(fault.External, err, "milvus: connect to %s", address)
	}
	return &MilvusStore{client: c}, nil
}

// CreateCollection creates the collection with the fixed chunk schema: an
// auto-generated numeric primary id, the bounded string and integer metadata
// fields, and a fixed-dimension float vector field.
func (s *MilvusStore) CreateCollection(ctx context.Context, desc Descriptor) error {
	if err := validateDescriptor(desc); err != nil {
		return err
	}

	varchar := func(name string, maxLen int) *entity.Field {
		return &entity.Field{
			Name:     name,
			DataType: entity.FieldTypeVarChar,
			TypeParams: map[string]string{
				entity.TypeParamMaxLength: strconv.Itoa(maxLen),
			},
		}
	}

	schema := &entity.Schema{
		CollectionName: desc.Name,
		Description:    fmt.Sprintf("Collection for %s", desc.Name),
		Fields: []*entity.Field{
			{Name: "id", DataType: entity.FieldTypeInt64, PrimaryKey: true, AutoID: true},
			varchar("content", maxContentLen),
			varchar("document_name", maxNameLen),
			{Name: "chunk_id", DataType: entity.FieldTypeInt64},
			{Name: "total_chunks", DataType: entity.FieldTypeInt64},
			{Name: "word_count", DataType: entity.FieldTypeInt64},
			varchar("page_number", maxPageLen),
			varchar("page_range", maxPageLen),
			varchar("embedding_provider", maxLabelLen),
			varchar("embedding_model", maxLabelLen),
			varchar("embedding_timestamp", maxLabelLen),
			{
				Name:     vectorFieldName,
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					entity.TypeParamDim: strconv.Itoa(desc.VectorDimension),
				},
			},
		},
	}

	if err := s.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fault.Wrap(fault.External, err, "milvus: create collection %s", desc.Name)
	}
	return nil
}

// Insert bulk-inserts the record batch in one operation and flushes it so
// the rows are sealed before the index build.
func (s *MilvusStore) Insert(ctx context.Context, collection string, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	n := len(records)
	contents := make([]string, n)
	docNames := make([]string, n)
	chunkIDs := make([]int64, n)
	totals := make([]int64, n)
	wordCounts := make([]int64, n)
	pageNumbers := make([]string, n)
	pageRanges := make([]string, n)
	providers := make([]string, n)
	models := make([]string, n)
	timestamps := make([]string, n)
	vectors := make([][]float32, n)

	for i, rec := range records {
		contents[i] = truncate(rec.Content, maxContentLen)
		docNames[i] = truncate(rec.DocumentName, maxNameLen)
		chunkIDs[i] = rec.ChunkID
		totals[i] = rec.TotalChunks
		wordCounts[i] = rec.WordCount
		pageNumbers[i] = truncate(rec.PageNumber, maxPageLen)
		pageRanges[i] = truncate(rec.PageRange, maxPageLen)
		providers[i] = truncate(rec.EmbeddingProvider, maxLabelLen)
		models[i] = truncate(rec.EmbeddingModel, maxLabelLen)
		timestamps[i] = truncate(rec.EmbeddingTimestamp, maxLabelLen)
		vectors[i] = rec.Vector
	}

	dim := len(records[0].Vector)
	cols := []entity.Column{
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnVarChar("document_name", docNames),
		entity.NewColumnInt64("chunk_id", chunkIDs),
		entity.NewColumnInt64("total_chunks", totals),
		entity.NewColumnInt64("word_count", wordCounts),
		entity.NewColumnVarChar("page_number", pageNumbers),
		entity.NewColumnVarChar("page_range", pageRanges),
		entity.NewColumnVarChar("embedding_provider", providers),
		entity.NewColumnVarChar("embedding_model", models),
		entity.NewColumnVarChar("embedding_timestamp", timestamps),
		entity.NewColumnFloatVector(vectorFieldName, dim, vectors),
	}

	if _, err := s.client.Insert(ctx, collection, "", cols...); err != nil {
		return 0, fault.Wrap(fault.External, err, "milvus: insert into %s", collection)
	}
	if err := s.client.Flush(ctx, collection, false); err != nil {
		return 0, fault.Wrap(fault.External, err, "milvus: flush %s", collection)
	}
	return n, nil
}

// BuildIndex builds the similarity index selected by mode over the vector
// field, then loads the collection so it is ready for queries.
func (s *MilvusStore) BuildIndex(ctx context.Context, collection string, mode IndexMode) error {
	idx, err := milvusIndex(mode)
	if err != nil {
		return err
	}

	if err := s.client.CreateIndex(ctx, collection, vectorFieldName, idx, false); err != nil {
		return fault.Wrap(fault.External, err, "milvus: create %s index on %s", string(mode), collection)
	}
	if err := s.client.LoadCollection(ctx, collection, false); err != nil {
		return fault.Wrap(fault.External, err, "milvus: load collection %s", collection)
	}
	return nil
}

// milvusIndex maps an IndexMode to the provider-native index with the
// configured build parameters.
func milvusIndex(mode IndexMode) (entity.Index, error) {
	params := mode.Params()
	switch mode {
	case Flat:
		return entity.NewIndexFlat(entity.COSINE)
	case IVFFlat:
		return entity.NewIndexIvfFlat(entity.COSINE, params["nlist"])
	case IVFSQ8:
		return entity.NewIndexIvfSQ8(entity.COSINE, params["nlist"])
	case HNSW:
		return entity.NewIndexHNSW(entity.COSINE, params["M"], params["efConstruction"])
	default:
		return nil, fault.New(fault.UnsupportedMethod, "unsupported index mode: %q", string(mode))
	}
}

// ListCollections returns all collection names.
func (s *MilvusStore) ListCollections(ctx context.Context) ([]string, error) {
	colls, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fault.Wrap(fault.External, err, "milvus: list collections")
	}
	names := make([]string, 0, len(colls))
	for _, c := range colls {
		names = append(names, c.Name)
	}
	return names, nil
}

// DeleteCollection drops the named collection.
func (s *MilvusStore) DeleteCollection(ctx context.Context, name string) error {
	if err := s.client.DropCollection(ctx, name); err != nil {
		return fault.Wrap(fault.External, err, "milvus: drop collection %s", name)
	}
	return nil
}

// DescribeCollection reports the collection's entity count and schema.
func (s *MilvusStore) DescribeCollection(ctx context.Context, name string) (*CollectionInfo, error) {
	coll, err := s.client.DescribeCollection(ctx, name)
	if err != nil {
		return nil, fault.Wrap(fault.External, err, "milvus: describe collection %s", name)
	}

	stats, err := s.client.GetCollectionStatistics(ctx, name)
	if err != nil {
		return nil, fault.Wrap(fault.External, err, "milvus: collection statistics for %s", name)
	}
	var numEntities int64
	if rows, ok := stats["row_count"]; ok {
		numEntities, _ = strconv.ParseInt(rows, 10, 64)
	}

	info := &CollectionInfo{Name: name, NumEntities: numEntities}
	if coll.Schema != nil {
		for _, field := range coll.Schema.Fields {
			info.Schema = append(info.Schema, FieldInfo{
				Name:       field.Name,
				Type:       fmt.Sprint(field.DataType),
				PrimaryKey: field.PrimaryKey,
			})
			if field.DataType == entity.FieldTypeFloatVector {
				if dim, ok := field.TypeParams[entity.TypeParamDim]; ok {
					d, _ := strconv.Atoi(dim)
					info.VectorDimension = d
				}
			}
		}
	}
	return info, nil
}

// Search runs a top-limit cosine similarity query returning the requested
// output fields.
func (s *MilvusStore) Search(ctx context.Context, collection string, vector []float32, limit int, outputFields []string) ([]SearchHit, error) {
	sp, err := entity.NewIndexAUTOINDEXSearchParam(1)
	if err != nil {
		return nil, fault.Wrap(fault.External, err, "milvus: build search params")
	}

	results, err := s.client.Search(ctx, collection, nil, "", outputFields,
		[]entity.Vector{entity.FloatVector(vector)}, vectorFieldName,
		entity.COSINE, limit, sp)
	if err != nil {
		return nil, fault.Wrap(fault.External, err, "milvus: search %s", collection)
	}

	var hits []SearchHit
	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			fields := make(map[string]string, len(result.Fields))
			for _, col := range result.Fields {
				val, err := col.Get(i)
				if err != nil {
					continue
				}
				fields[col.Name()] = fmt.Sprint(val)
			}
			hits = append(hits, SearchHit{Fields: fields, Distance: result.Scores[i]})
		}
	}
	return hits, nil
}

// Close closes the underlying gRPC connection.
func (s *MilvusStore) Close() error {
	return s.client.Close()
}

// truncate bounds s to max bytes, matching the schema's VarChar limits.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
