package chunker

import (
	"strconv"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/finrag/finrag-go/internal/document"
	"github.com/finrag/finrag-go/internal/fault"
)

// tokenEncoding is the tokenizer used for token-measured chunking. cl100k_base
// matches the embedding models the pipeline targets.
const tokenEncoding = "cl100k_base"

// tokenCounter wraps the tiktoken codec so the encoding is loaded once per
// Service and only when the token method is actually used.
type tokenCounter struct {
	enc *tiktoken.Tiktoken
}

// init loads the encoding on first use.
func (t *tokenCounter) init() error {
	if t.enc != nil {
		return nil
	}
	enc, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		return fault.Wrap(fault.External, err, "load %s token encoding", tokenEncoding)
	}
	t.enc = enc
	return nil
}

// count measures text in model tokens.
func (t *tokenCounter) count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// window cuts text into token windows of at most size, stepping size-overlap.
func (t *tokenCounter) window(text string, size, overlap int) []string {
	ids := t.enc.Encode(text, nil, nil)
	if len(ids) == 0 {
		return nil
	}
	step := size - overlap
	if step <= 0 {
		step = size
	}

	var out []string
	for start := 0; start < len(ids); start += step {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, t.enc.Decode(ids[start:end]))
		if end == len(ids) {
			break
		}
	}
	return out
}

// chunkTokens runs the recursive splitter with sizes measured in model-token
// counts rather than characters.
func (s *Service) chunkTokens(pages document.PageMap, size, overlap int) ([]document.Chunk, error) {
	if err := s.tokenizer.init(); err != nil {
		return nil, err
	}

	var chunks []document.Chunk
	for _, page := range pages {
		pieces := splitTokens(page.Text, size, overlap, genericSeparators, &s.tokenizer)
		for _, piece := range pieces {
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
	return chunks, nil
}

// splitTokens mirrors splitRecursive with a token measure and a token-window
// hard split.
func splitTokens(text string, size, overlap int, separators []string, tc *tokenCounter) []string {
	if len(separators) == 0 {
		return tc.window(text, size, overlap)
	}

	sep := separators[0]
	if sep == "" || !strings.Contains(text, sep) {
		if sep == "" || len(separators) == 1 {
			if tc.count(text) <= size {
				return []string{text}
			}
			return tc.window(text, size, overlap)
		}
		return splitTokens(text, size, overlap, separators[1:], tc)
	}

	parts := strings.Split(text, sep)
	keep := strings.TrimRight(sep, " \n")
	for i := 0; i < len(parts)-1; i++ {
		parts[i] += keep
	}

	var out []string
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		if tc.count(part) <= size {
			out = append(out, part)
			continue
		}
		out = append(out, splitTokens(part, size, overlap, separators[1:], tc)...)
	}
	return out
}
