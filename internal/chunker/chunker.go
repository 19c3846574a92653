// Package chunker splits parsed document text into bounded, metadata-tagged
// retrieval units. Each strategy is dispatched by a closed method key; every
// method except markdown operates on a PageMap and preserves the source page
// number on each chunk.
package chunker

import (
	"strconv"
	"strings"
	"time"

	"github.com/finrag/finrag-go/internal/document"
	"github.com/finrag/finrag-go/internal/fault"
)

// Method is a chunking strategy key.
type Method string

const (
	// ByPages emits one chunk per PageMap entry, content unchanged.
	ByPages Method = "by_pages"
	// FixedSize packs whitespace-separated words into segments of at most
	// chunk_size characters with trailing overlap context.
	FixedSize Method = "fixed_size"
	// ByParagraphs splits each page on blank-line separators.
	ByParagraphs Method = "by_paragraphs"
	// BySentences splits preferring sentence-terminal punctuation, then
	// newlines.
	BySentences Method = "by_sentences"
	// Recursive is the general-purpose splitter with the generic separator
	// preference order (paragraph, line, word, character).
	Recursive Method = "recursive"
	// Markdown splits raw document text on heading markers, ignoring the
	// PageMap entirely.
	Markdown Method = "markdown"
	// Token is the recursive splitter measured in model-token counts.
	Token Method = "token"
)

// ParseMethod validates a strategy key at the boundary.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case ByPages, FixedSize, ByParagraphs, BySentences, Recursive, Markdown, Token:
		return m, nil
	default:
		return "", fault.New(fault.UnsupportedMethod, "unsupported chunking method: %q", s)
	}
}

// Default splitter parameters, matching the upstream pipeline contract.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Request carries one chunking call.
type Request struct {
	// Text is the raw document text; consumed only by the markdown method.
	Text string

	// Method selects the strategy.
	Method Method

	// Metadata identifies the source document.
	Metadata document.Metadata

	// Pages is required for every method except markdown.
	Pages document.PageMap

	// ChunkSize and ChunkOverlap configure the splitter. Zero values take
	// the defaults (1000 / 200).
	ChunkSize    int
	ChunkOverlap int
}

// Service dispatches chunking requests to the strategy implementations.
// The zero value is not usable; construct with New.
type Service struct {
	tokenizer tokenCounter
}

// New constructs a chunking Service.
func New() *Service {
	return &Service{}
}

// Chunk splits the request's text into a ChunkedDocument. Chunk IDs are
// 1-based and strictly increasing in emission order within this one call, and
// total_chunks always equals the emitted chunk count.
func (s *Service) Chunk(req Request) (*document.ChunkedDocument, error) {
	size := req.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	overlap := req.ChunkOverlap
	if overlap < 0 {
		overlap = 0
	}

	if len(req.Pages) == 0 && req.Method != Markdown {
		return nil, fault.New(fault.Validation, "page map is required for non-markdown chunking")
	}

	var (
		chunks []document.Chunk
		err    error
	)

	switch req.Method {
	case ByPages:
		chunks = s.chunkByPages(req.Pages)
	case FixedSize:
		chunks = s.perPage(req.Pages, func(text string) []string {
			return packWords(text, size, overlap)
		})
	case ByParagraphs:
		chunks = s.perPage(req.Pages, func(text string) []string {
			return strings.Split(text, "\n\n")
		})
	case BySentences:
		chunks = s.perPage(req.Pages, func(text string) []string {
			return splitRecursive(text, size, overlap, sentenceSeparators, runeCount)
		})
	case Recursive:
		chunks = s.perPage(req.Pages, func(text string) []string {
			return splitRecursive(text, size, overlap, genericSeparators, runeCount)
		})
	case Markdown:
		chunks, err = s.chunkMarkdown(req.Text)
	case Token:
		chunks, err = s.chunkTokens(req.Pages, size, overlap)
	default:
		return nil, fault.New(fault.UnsupportedMethod, "unsupported chunking method: %q", string(req.Method))
	}
	if err != nil {
		return nil, err
	}

	return &document.ChunkedDocument{
		Filename:       req.Metadata.Filename,
		TotalChunks:    len(chunks),
		TotalPages:     len(req.Pages),
		LoadingMethod:  req.Metadata.LoadingMethod,
		ChunkingMethod: string(req.Method),
		ChunkSize:      size,
		ChunkOverlap:   overlap,
		Timestamp:      time.Now().Format(time.RFC3339),
		Chunks:         chunks,
	}, nil
}

// chunkByPages emits one chunk per page with content byte-identical to the
// source page text.
func (s *Service) chunkByPages(pages document.PageMap) []document.Chunk {
	chunks := make([]document.Chunk, 0, len(pages))
	for _, page := range pages {
		chunks = append(chunks, document.Chunk{
			Content: page.Text,
			Metadata: document.ChunkMetadata{
				ChunkID:    len(chunks) + 1,
				PageNumber: page.Page,
				PageRange:  strconv.Itoa(page.Page),
				WordCount:  document.WordCount(page.Text),
			},
		})
	}
	return chunks
}

// perPage applies split to each page's text and emits one chunk per non-empty
// trimmed piece, tagged with the source page number.
func (s *Service) perPage(pages document.PageMap, split func(string) []string) []document.Chunk {
	var chunks []document.Chunk
	for _, page := range pages {
		for _, piece := range split(page.Text) {
			piece = strings.TrimSpace(piece)
			if piece == "" {
				continue
			}
			chunks = append(chunks, document.Chunk{
				Content: piece,
				Metadata: document.ChunkMetadata{
					ChunkID:    len(chunks) + 1,
					PageNumber: page.Page,
					PageRange:  strconv.Itoa(page.Page),
					WordCount:  document.WordCount(piece),
				},
			})
		}
	}
	return chunks
}
