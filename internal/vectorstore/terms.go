package vectorstore

import (
	"context"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/finrag/finrag-go/internal/fault"
)

// TermCollection is the canonical financial-terms collection. Retrieval
// consults it for standardized terminology alongside document search.
const TermCollection = "financial_terms"

const (
	maxTermLen     = 512
	maxCategoryLen = 128
)

// TermRecord is one canonical term with its category and embedding.
type TermRecord struct {
	Term     string
	Category string
	Vector   []float32
}

// EnsureTermCollection creates the terms collection if it does not exist
// yet, with an AUTOINDEX built up front so inserts are immediately
// queryable.
func (s *MilvusStore) EnsureTermCollection(ctx context.Context, dimension int) error {
	exists, err := s.client.HasCollection(ctx, TermCollection)
	if err != nil {
		return fault.Wrap(fault.External, err, "milvus: check collection %s", TermCollection)
	}
	if exists {
		return nil
	}

	schema := &entity.Schema{
		CollectionName: TermCollection,
		Description:    "Canonical financial terminology",
		Fields: []*entity.Field{
			{Name: "id", DataType: entity.FieldTypeInt64, PrimaryKey: true, AutoID: true},
			{
				Name:     "term",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					entity.TypeParamMaxLength: strconv.Itoa(maxTermLen),
				},
			},
			{
				Name:     "category",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					entity.TypeParamMaxLength: strconv.Itoa(maxCategoryLen),
				},
			},
			{
				Name:     vectorFieldName,
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					entity.TypeParamDim: strconv.Itoa(dimension),
				},
			},
		},
	}
	if err := s.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fault.Wrap(fault.External, err, "milvus: create collection %s", TermCollection)
	}

	idx, err := entity.NewIndexAUTOINDEX(entity.COSINE)
	if err != nil {
		return fault.Wrap(fault.External, err, "milvus: build terms index")
	}
	if err := s.client.CreateIndex(ctx, TermCollection, vectorFieldName, idx, false); err != nil {
		return fault.Wrap(fault.External, err, "milvus: index collection %s", TermCollection)
	}
	if err := s.client.LoadCollection(ctx, TermCollection, false); err != nil {
		return fault.Wrap(fault.External, err, "milvus: load collection %s", TermCollection)
	}
	return nil
}

// InsertTerms appends one batch of term records and flushes them.
func (s *MilvusStore) InsertTerms(ctx context.Context, records []TermRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	n := len(records)
	terms := make([]string, n)
	categories := make([]string, n)
	vectors := make([][]float32, n)
	for i, rec := range records {
		terms[i] = truncate(rec.Term, maxTermLen)
		categories[i] = truncate(rec.Category, maxCategoryLen)
		vectors[i] = rec.Vector
	}

	cols := []entity.Column{
		entity.NewColumnVarChar("term", terms),
		entity.NewColumnVarChar("category", categories),
		entity.NewColumnFloatVector(vectorFieldName, len(records[0].Vector), vectors),
	}
	if _, err := s.client.Insert(ctx, TermCollection, "", cols...); err != nil {
		return 0, fault.Wrap(fault.External, err, "milvus: insert terms")
	}
	if err := s.client.Flush(ctx, TermCollection, false); err != nil {
		return 0, fault.Wrap(fault.External, err, "milvus: flush terms")
	}
	return n, nil
}
