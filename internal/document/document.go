// Package document defines the record types handed between the FinRAG
// pipeline stages: raw documents with page maps, parsed elements, chunked
// documents, and embedding files. Each stage produces an immutable record
// consumed by the next; nothing is mutated after a stage hands it forward.
package document

import (
	"strings"
)

// Metadata identifies a source document and how it was loaded.
type Metadata struct {
	// Filename is the original file name, including extension.
	Filename string `json:"filename"`

	// LoadingMethod records which loader produced the raw text.
	LoadingMethod string `json:"loading_method"`
}

// PageEntry is one page-numbered block of text inside a PageMap.
type PageEntry struct {
	// Page is the caller-assigned page number. Contiguity is not validated.
	Page int `json:"page"`

	// Text is the raw text of the page.
	Text string `json:"text"`

	// Meta holds loader-specific extras for this page.
	Meta map[string]any `json:"metadata,omitempty"`
}

// PageMap is an ordered sequence of page-numbered text blocks, the common
// input shape for page-aware parsing and chunking strategies.
type PageMap []PageEntry

// ParsedElement is one structured content unit produced by the parser.
type ParsedElement struct {
	// Type tags the element kind: text, page, section, table, title, ...
	Type string `json:"type"`

	// Title is the section heading, set only by title-based segmentation.
	Title string `json:"title,omitempty"`

	// Content is the element text (table elements carry table markup).
	Content string `json:"content"`

	// Page is the page number the element was extracted from.
	Page int `json:"page"`

	// Meta holds strategy-specific extras (e.g. rows/cols for tables).
	Meta map[string]any `json:"metadata,omitempty"`
}

// ParsedMetadata is the document-level header of a parse result.
type ParsedMetadata struct {
	// Filename is the source document file name.
	Filename string `json:"filename"`

	// TotalPages is the PageMap length at parse time (0 without a PageMap).
	TotalPages int `json:"total_pages"`

	// ParsingMethod is the strategy key the parse was dispatched on.
	ParsingMethod string `json:"parsing_method"`

	// Timestamp is the RFC 3339 time the parse completed.
	Timestamp string `json:"timestamp"`
}

// ParsedDocument is the parser's output: document metadata plus the ordered
// content units.
type ParsedDocument struct {
	Metadata ParsedMetadata  `json:"metadata"`
	Content  []ParsedElement `json:"content"`
}

// ChunkMetadata is the retrieval metadata attached to every chunk.
type ChunkMetadata struct {
	// ChunkID is 1-based and strictly increasing in emission order within
	// one chunking call.
	ChunkID int `json:"chunk_id"`

	// PageNumber is the source page. Zero for the markdown strategy, where
	// page numbers are not meaningful.
	PageNumber int `json:"page_number,omitempty"`

	// PageRange is the page number rendered as a string.
	PageRange string `json:"page_range,omitempty"`

	// WordCount is the whitespace-token count of the final chunk content,
	// independent of whatever size metric the splitter used.
	WordCount int `json:"word_count"`

	// Header1..Header3 carry the active heading hierarchy, set only by the
	// markdown strategy.
	Header1 string `json:"Header 1,omitempty"`
	Header2 string `json:"Header 2,omitempty"`
	Header3 string `json:"Header 3,omitempty"`
}

// Chunk is the atomic retrieval unit: bounded content plus metadata.
type Chunk struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// ChunkedDocument is the chunker's output for one document.
type ChunkedDocument struct {
	// Filename is the source document file name.
	Filename string `json:"filename"`

	// TotalChunks always equals len(Chunks).
	TotalChunks int `json:"total_chunks"`

	// TotalPages is the PageMap length (0 for the markdown strategy).
	TotalPages int `json:"total_pages"`

	// LoadingMethod is carried through from the document metadata.
	LoadingMethod string `json:"loading_method"`

	// ChunkingMethod is the strategy key the chunking was dispatched on.
	ChunkingMethod string `json:"chunking_method"`

	// ChunkSize and ChunkOverlap are the splitter parameters used.
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`

	// Timestamp is the RFC 3339 time the chunking completed.
	Timestamp string `json:"timestamp"`

	// Chunks is the ordered chunk sequence.
	Chunks []Chunk `json:"chunks"`
}

// WordCount returns the whitespace-token count of s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
