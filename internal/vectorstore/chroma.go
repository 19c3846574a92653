package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/finrag/finrag-go/internal/fault"
)

// ChromaConfig holds connection parameters for a Chroma instance.
type ChromaConfig struct {
	// BaseURL is the Chroma server root (default: http://localhost:8000).
	BaseURL string
}

// ChromaStore implements Store against the Chroma REST API via plain HTTP.
// Chroma indexes vectors on insert, so BuildIndex is a no-op; the index
// preference is recorded as collection metadata at creation time.
type ChromaStore struct {
	// baseURL is the server root without trailing slash.
	baseURL string
	// client is the shared HTTP client with a sensible timeout.
	client *http.Client
}

// NewChromaStore constructs a ChromaStore from the given config.
func NewChromaStore(cfg *ChromaConfig) *ChromaStore {
	base := cfg.BaseURL
	if base == "" {
		base = "http://localhost:8000"
	}
	return &ChromaStore{
		baseURL: base,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// chromaCollection is the JSON shape of a collection resource.
type chromaCollection struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata"`
}

// chromaError is the JSON error envelope returned on failures.
type chromaError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// do sends a JSON request and decodes the response body into out (when
// out is non-nil). Non-2xx responses become External errors.
func (s *ChromaStore) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fault.Wrap(fault.External, err, "chroma: marshal request")
		}
		body = bytes.NewReader(payload)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fault.Wrap(fault.External, err, "chroma: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fault.Wrap(fault.External, err, "chroma: %s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ce chromaError
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if json.NewDecoder(resp.Body).Decode(&ce) == nil {
			if ce.Message != "" {
				msg = ce.Message
			} else if ce.Error != "" {
				msg = ce.Error
			}
		}
		return fault.New(fault.External, "chroma: %s %s: %s", method, path, msg)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fault.Wrap(fault.External, err, "chroma: decode response")
		}
	}
	return nil
}

// collectionByName resolves a collection name to its server-side resource.
// The data-plane endpoints are keyed by collection id, not name.
func (s *ChromaStore) collectionByName(ctx context.Context, name string) (*chromaCollection, error) {
	var coll chromaCollection
	if err := s.do(ctx, http.MethodGet, "/api/v1/collections/"+name, nil, &coll); err != nil {
		return nil, err
	}
	return &coll, nil
}

// CreateCollection creates the named collection. The descriptor's index
// mode and dimension are stored as metadata; hnsw additionally sets the
// native hnsw:* construction parameters.
func (s *ChromaStore) CreateCollection(ctx context.Context, desc Descriptor) error {
	if err := validateDescriptor(desc); err != nil {
		return err
	}

	metadata := map[string]any{
		"hnsw:space":       "cosine",
		"index_mode":       string(desc.IndexMode),
		"vector_dimension": desc.VectorDimension,
	}
	if desc.IndexMode == HNSW {
		params := desc.IndexMode.Params()
		metadata["hnsw:M"] = params["M"]
		metadata["hnsw:construction_ef"] = params["efConstruction"]
	}

	body := map[string]any{
		"name":     desc.Name,
		"metadata": metadata,
	}
	return s.do(ctx, http.MethodPost, "/api/v1/collections", body, nil)
}

// Insert adds the record batch; ids are the chunk ids rendered as strings.
func (s *ChromaStore) Insert(ctx context.Context, collection string, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	coll, err := s.collectionByName(ctx, collection)
	if err != nil {
		return 0, err
	}

	n := len(records)
	ids := make([]string, n)
	embeddings := make([][]float32, n)
	documents := make([]string, n)
	metadatas := make([]map[string]any, n)
	for i, rec := range records {
		ids[i] = strconv.FormatInt(rec.ChunkID, 10)
		embeddings[i] = rec.Vector
		documents[i] = rec.Content
		metadatas[i] = map[string]any{
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
	}

	body := map[string]any{
		"ids":        ids,
		"embeddings": embeddings,
		"metadatas":  metadatas,
		"documents":  documents,
	}
	if err := s.do(ctx, http.MethodPost, "/api/v1/collections/"+coll.ID+"/add", body, nil); err != nil {
		return 0, err
	}
	return n, nil
}

// BuildIndex is a no-op: Chroma maintains its index incrementally on add.
func (s *ChromaStore) BuildIndex(ctx context.Context, collection string, mode IndexMode) error {
	return nil
}

// ListCollections returns all collection names.
func (s *ChromaStore) ListCollections(ctx context.Context) ([]string, error) {
	var colls []chromaCollection
	if err := s.do(ctx, http.MethodGet, "/api/v1/collections", nil, &colls); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(colls))
	for _, c := range colls {
		names = append(names, c.Name)
	}
	return names, nil
}

// DeleteCollection drops the named collection.
func (s *ChromaStore) DeleteCollection(ctx context.Context, name string) error {
	return s.do(ctx, http.MethodDelete, "/api/v1/collections/"+name, nil, nil)
}

// DescribeCollection reports the collection's entity count and the
// dimension recorded in its metadata.
func (s *ChromaStore) DescribeCollection(ctx context.Context, name string) (*CollectionInfo, error) {
	coll, err := s.collectionByName(ctx, name)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.do(ctx, http.MethodGet, "/api/v1/collections/"+coll.ID+"/count", nil, &count); err != nil {
		return nil, err
	}

	info := &CollectionInfo{Name: name, NumEntities: count}
	if dim, ok := coll.Metadata["vector_dimension"].(float64); ok {
		info.VectorDimension = int(dim)
	}
	return info, nil
}

// chromaQueryResponse is the JSON shape of a query result. Chroma returns
// one inner slice per query embedding.
type chromaQueryResponse struct {
	IDs       [][]string         `json:"ids"`
	Documents [][]string         `json:"documents"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Distances [][]float32        `json:"distances"`
}

// Search runs a top-limit similarity query over the collection.
func (s *ChromaStore) Search(ctx context.Context, collection string, vector []float32, limit int, outputFields []string) ([]SearchHit, error) {
	coll, err := s.collectionByName(ctx, collection)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"query_embeddings": [][]float32{vector},
		"n_results":        limit,
		"include":          []string{"documents", "metadatas", "distances"},
	}
	var result chromaQueryResponse
	if err := s.do(ctx, http.MethodPost, "/api/v1/collections/"+coll.ID+"/query", body, &result); err != nil {
		return nil, err
	}
	if len(result.IDs) == 0 {
		return nil, nil
	}

	wanted := make(map[string]bool, len(outputFields))
	for _, f := range outputFields {
		wanted[f] = true
	}

	var hits []SearchHit
	for i := range result.IDs[0] {
		fields := make(map[string]string)
		if wanted["content"] && i < len(result.Documents[0]) {
			fields["content"] = result.Documents[0][i]
		}
		if i < len(result.Metadatas[0]) {
			for k, v := range result.Metadatas[0][i] {
				if wanted[k] {
					fields[k] = fmt.Sprint(v)
				}
			}
		}
		var distance float32
		if i < len(result.Distances[0]) {
			distance = result.Distances[0][i]
		}
		hits = append(hits, SearchHit{Fields: fields, Distance: distance})
	}
	return hits, nil
}

// Close is a no-op for the stateless HTTP client.
func (s *ChromaStore) Close() error {
	return nil
}
