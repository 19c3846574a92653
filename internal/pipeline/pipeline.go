// Package pipeline orchestrates the document ingestion flow: extract pages
// from the source file, chunk the text, embed each chunk, write the
// embedding file, and index it into the vector store. Stages run
// sequentially with no fan-out; each stage's output is the next stage's
// input. This pipeline is invoked by the `finrag ingest` CLI command.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/finrag/finrag-go/internal/chunker"
	"github.com/finrag/finrag-go/internal/document"
	"github.com/finrag/finrag-go/internal/embedder"
	"github.com/finrag/finrag-go/internal/fault"
	"github.com/finrag/finrag-go/internal/indexer"
	"github.com/finrag/finrag-go/internal/logging"
	"github.com/finrag/finrag-go/internal/parser"
	"github.com/finrag/finrag-go/internal/vectorstore"
)

// defaultEmbedBatch is how many chunk texts are sent per embedding request.
const defaultEmbedBatch = 32

// timestampLayout is the embedding_timestamp format stored with each record.
const timestampLayout = "2006-01-02 15:04:05"

// Config holds the pipeline's collaborators.
type Config struct {
	// Pages extracts page text from source files.
	Pages parser.PageExtractor
	// Chunker splits extracted text into retrieval chunks.
	Chunker *chunker.Service
	// Embedder converts chunk text into vectors.
	Embedder embedder.Embedder
	// Indexer writes embedding files into the vector store. Optional; when
	// nil, Run stops after writing the embedding file.
	Indexer *indexer.Indexer
	// EmbedBatch is the embedding request batch size (default 32).
	EmbedBatch int
}

// Options control one pipeline run.
type Options struct {
	// FilePath is the source document path.
	FilePath string
	// ChunkMethod selects the chunking strategy.
	ChunkMethod chunker.Method
	// ChunkSize and ChunkOverlap are the splitter parameters.
	ChunkSize    int
	ChunkOverlap int
	// IndexMode selects the similarity index built over the collection.
	IndexMode vectorstore.IndexMode
	// OutputPath is where the embedding file is written. Empty means next
	// to the source file, with an .embeddings.json suffix.
	OutputPath string
	// SkipIndex stops the run after the embedding file is written.
	SkipIndex bool
}

// Result summarizes one pipeline run.
type Result struct {
	// Pages is the extracted page count.
	Pages int
	// Chunks is the emitted chunk count.
	Chunks int
	// EmbeddingFile is the path the embedding file was written to.
	EmbeddingFile string
	// Index is the indexing summary, nil when indexing was skipped.
	Index *indexer.Result
}

// Pipeline runs the ingestion flow end to end.
type Pipeline struct {
	pages    parser.PageExtractor
	chunks   *chunker.Service
	embed    embedder.Embedder
	index    *indexer.Indexer
	batchLen int
	now      func() time.Time
}

// New constructs a Pipeline from the given config.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Pages == nil {
		return nil, fault.New(fault.Validation, "pipeline: page extractor must not be nil")
	}
	if cfg.Chunker == nil {
		return nil, fault.New(fault.Validation, "pipeline: chunker must not be nil")
	}
	if cfg.Embedder == nil {
		return nil, fault.New(fault.Validation, "pipeline: embedder must not be nil")
	}
	batchLen := cfg.EmbedBatch
	if batchLen <= 0 {
		batchLen = defaultEmbedBatch
	}
	return &Pipeline{
		pages:    cfg.Pages,
		chunks:   cfg.Chunker,
		embed:    cfg.Embedder,
		index:    cfg.Indexer,
		batchLen: batchLen,
		now:      time.Now,
	}, nil
}

// Run processes one document end to end.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	log := logging.FromContext(ctx)

	pages, err := p.extractPages(ctx, opts.FilePath)
	if err != nil {
		return nil, err
	}
	log.Info("pages extracted",
		slog.String("file", opts.FilePath),
		slog.Int("pages", len(pages)),
	)

	filename := filepath.Base(opts.FilePath)
	chunked, err := p.chunks.Chunk(chunker.Request{
		Method:       opts.ChunkMethod,
		Pages:        pages,
		ChunkSize:    opts.ChunkSize,
		ChunkOverlap: opts.ChunkOverlap,
		Metadata: document.Metadata{
			Filename:      filename,
			LoadingMethod: "pdf",
		},
	})
	if err != nil {
		return nil, err
	}
	log.Info("document chunked",
		slog.String("method", string(opts.ChunkMethod)),
		slog.Int("chunks", chunked.TotalChunks),
	)

	file, err := p.Embed(ctx, chunked)
	if err != nil {
		return nil, err
	}

	outputPath := opts.OutputPath
	if outputPath == "" {
		outputPath = defaultOutputPath(opts.FilePath)
	}
	if err := WriteEmbeddingFile(outputPath, file); err != nil {
		return nil, err
	}
	log.Info("embedding file written",
		slog.String("path", outputPath),
		slog.Int("vectors", len(file.Embeddings)),
	)

	result := &Result{
		Pages:         len(pages),
		Chunks:        chunked.TotalChunks,
		EmbeddingFile: outputPath,
	}
	if opts.SkipIndex || p.index == nil {
		return result, nil
	}

	indexResult, err := p.index.Index(ctx, file, opts.IndexMode)
	if err != nil {
		return nil, err
	}
	result.Index = indexResult
	return result, nil
}

// extractPages builds a PageMap from the source file.
func (p *Pipeline) extractPages(ctx context.Context, path string) (document.PageMap, error) {
	extracted, err := p.pages.ExtractPages(ctx, path)
	if err != nil {
		return nil, fault.Wrap(fault.External, err, "pipeline: extract pages from %s", path)
	}

	pages := make(document.PageMap, 0, len(extracted))
	for i, page := range extracted {
		pages = append(pages, document.PageEntry{
			Page: i + 1,
			Text: page.Text,
		})
	}
	return pages, nil
}

// Embed converts a chunked document into an embedding file, batching the
// embedding requests.
func (p *Pipeline) Embed(ctx context.Context, chunked *document.ChunkedDocument) (*document.EmbeddingFile, error) {
	timestamp := p.now().Format(timestampLayout)

	file := &document.EmbeddingFile{
		Filename:          chunked.Filename,
		EmbeddingProvider: p.embed.Provider(),
		EmbeddingModel:    p.embed.Model(),
		VectorDimension:   p.embed.Dimensions(),
		Embeddings:        make([]document.EmbeddingRecord, 0, len(chunked.Chunks)),
	}

	for start := 0; start < len(chunked.Chunks); start += p.batchLen {
		end := min(start+p.batchLen, len(chunked.Chunks))
		batch := chunked.Chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Content
		}
		vectors, err := p.embed.Embed(ctx, texts)
		if err != nil {
			return nil, err
		}

		for i, chunk := range batch {
			file.Embeddings = append(file.Embeddings, document.EmbeddingRecord{
				Embedding: vectors[i],
				Metadata: document.EmbeddingMetadata{
					Content:            chunk.Content,
					ChunkID:            chunk.Metadata.ChunkID,
					TotalChunks:        chunked.TotalChunks,
					WordCount:          chunk.Metadata.WordCount,
					PageNumber:         strconv.Itoa(chunk.Metadata.PageNumber),
					PageRange:          chunk.Metadata.PageRange,
					EmbeddingTimestamp: timestamp,
				},
			})
		}
	}

	// First real vector wins over the configured default when they differ.
	if len(file.Embeddings) > 0 && len(file.Embeddings[0].Embedding) > 0 {
		file.VectorDimension = len(file.Embeddings[0].Embedding)
	}
	return file, nil
}

// defaultOutputPath derives the embedding file path from the source path.
func defaultOutputPath(sourcePath string) string {
	ext := filepath.Ext(sourcePath)
	return sourcePath[:len(sourcePath)-len(ext)] + ".embeddings.json"
}

// WriteEmbeddingFile marshals the embedding file as indented JSON at path.
func WriteEmbeddingFile(path string, file *document.EmbeddingFile) error {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("pipeline: marshal embedding file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("pipeline: write %s: %w", path, err)
	}
	return nil
}
