package document

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/finrag/finrag-go/internal/fault"
)

// EmbeddingMetadata is the per-record metadata stored next to each vector.
// It is the chunk metadata extended with the chunk content itself plus the
// document-level chunk total and the embedding timestamp.
type EmbeddingMetadata struct {
	// Content is the chunk text the vector was computed from.
	Content string `json:"content"`

	// ChunkID is the 1-based position of the chunk within its document.
	ChunkID int `json:"chunk_id"`

	// TotalChunks is the chunk count of the source document.
	TotalChunks int `json:"total_chunks"`

	// WordCount is the whitespace-token count of Content.
	WordCount int `json:"word_count"`

	// PageNumber and PageRange locate the chunk in the source document.
	PageNumber string `json:"page_number"`
	PageRange  string `json:"page_range"`

	// EmbeddingTimestamp is when the vector was computed.
	EmbeddingTimestamp string `json:"embedding_timestamp"`
}

// EmbeddingRecord pairs one vector with its metadata.
type EmbeddingRecord struct {
	Embedding []float32         `json:"embedding"`
	Metadata  EmbeddingMetadata `json:"metadata"`
}

// EmbeddingFile is the JSON artifact produced by the embedding stage and
// consumed by the indexer. Every record's vector length must equal
// VectorDimension.
type EmbeddingFile struct {
	// Filename is the source document file name.
	Filename string `json:"filename"`

	// EmbeddingProvider and EmbeddingModel identify the embedding backend.
	EmbeddingProvider string `json:"embedding_provider"`
	EmbeddingModel    string `json:"embedding_model"`

	// VectorDimension is the length of every vector in Embeddings.
	VectorDimension int `json:"vector_dimension"`

	// Embeddings is the record batch.
	Embeddings []EmbeddingRecord `json:"embeddings"`
}

// embeddingFileRaw mirrors EmbeddingFile but keeps the embeddings key as raw
// JSON so a missing key can be told apart from an empty array.
type embeddingFileRaw struct {
	Filename          string          `json:"filename"`
	EmbeddingProvider string          `json:"embedding_provider"`
	EmbeddingModel    string          `json:"embedding_model"`
	VectorDimension   int             `json:"vector_dimension"`
	Embeddings        json.RawMessage `json:"embeddings"`
}

// DecodeEmbeddingFile reads one embedding file from r. A document without an
// "embeddings" key, or one that is not valid JSON, is a format fault.
func DecodeEmbeddingFile(r io.Reader) (*EmbeddingFile, error) {
	var raw embeddingFileRaw
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fault.Wrap(fault.Format, err, "decode embedding file")
	}
	if raw.Embeddings == nil {
		return nil, fault.New(fault.Format, "invalid embedding file: missing 'embeddings' key")
	}

	var records []EmbeddingRecord
	if err := json.Unmarshal(raw.Embeddings, &records); err != nil {
		return nil, fault.Wrap(fault.Format, err, "decode embedding records")
	}

	return &EmbeddingFile{
		Filename:          raw.Filename,
		EmbeddingProvider: raw.EmbeddingProvider,
		EmbeddingModel:    raw.EmbeddingModel,
		VectorDimension:   raw.VectorDimension,
		Embeddings:        records,
	}, nil
}

// LoadEmbeddingFile reads the embedding file at path.
func LoadEmbeddingFile(path string) (*EmbeddingFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("document: open embedding file %s: %w", path, err)
	}
	defer f.Close()
	return DecodeEmbeddingFile(f)
}

// Validate checks the invariants the indexer relies on: a positive vector
// dimension and every record vector matching it.
func (f *EmbeddingFile) Validate() error {
	if f.VectorDimension <= 0 {
		return fault.New(fault.Format, "missing vector_dimension in embedding file")
	}
	for i, rec := range f.Embeddings {
		if len(rec.Embedding) != f.VectorDimension {
			return fault.New(fault.Format,
				"embedding %d has dimension %d, file declares %d",
				i, len(rec.Embedding), f.VectorDimension)
		}
	}
	return nil
}
