package chunker

import (
	"strings"
	"testing"

	"github.com/finrag/finrag-go/internal/document"
	"github.com/finrag/finrag-go/internal/fault"
)

func twoPages() document.PageMap {
	return document.PageMap{
		{Page: 1, Text: "First page body with a handful of words."},
		{Page: 2, Text: "Second page body, also short."},
	}
}

// assertSequentialIDs checks the chunk_id contract: ids are exactly 1..N in
// emission order and total_chunks equals N.
func assertSequentialIDs(t *testing.T, doc *document.ChunkedDocument) {
	t.Helper()
	if doc.TotalChunks != len(doc.Chunks) {
		t.Errorf("total_chunks=%d, want %d", doc.TotalChunks, len(doc.Chunks))
	}
	for i, c := range doc.Chunks {
		if c.Metadata.ChunkID != i+1 {
			t.Errorf("chunk %d: chunk_id=%d, want %d", i, c.Metadata.ChunkID, i+1)
		}
	}
}

func TestChunk_ByPages_OneChunkPerPage(t *testing.T) {
	t.Parallel()

	pages := twoPages()
	doc, err := New().Chunk(Request{
		Method:   ByPages,
		Pages:    pages,
		Metadata: document.Metadata{Filename: "report.pdf"},
	})
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}

	if len(doc.Chunks) != len(pages) {
		t.Fatalf("got %d chunks, want %d", len(doc.Chunks), len(pages))
	}
	assertSequentialIDs(t, doc)

	for i, c := range doc.Chunks {
		if c.Content != pages[i].Text {
			t.Errorf("chunk %d: content %q, want page text %q", i, c.Content, pages[i].Text)
		}
		if c.Metadata.PageNumber != pages[i].Page {
			t.Errorf("chunk %d: page_number=%d, want %d", i, c.Metadata.PageNumber, pages[i].Page)
		}
	}
	if doc.TotalPages != 2 {
		t.Errorf("total_pages=%d, want 2", doc.TotalPages)
	}
	if doc.Filename != "report.pdf" {
		t.Errorf("filename=%q, want report.pdf", doc.Filename)
	}
}

func TestChunk_BySentences_TerminalPunctuationKept(t *testing.T) {
	t.Parallel()

	doc, err := New().Chunk(Request{
		Method:       BySentences,
		Pages:        document.PageMap{{Page: 1, Text: "A. B. C."}},
		ChunkSize:    50,
		ChunkOverlap: 0,
	})
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}

	want := []string{"A.", "B.", "C."}
	if len(doc.Chunks) != len(want) {
		t.Fatalf("got %d chunks %v, want %d", len(doc.Chunks), doc.Chunks, len(want))
	}
	for i, c := range doc.Chunks {
		if c.Content != want[i] {
			t.Errorf("chunk %d: content %q, want %q", i, c.Content, want[i])
		}
		if c.Metadata.PageNumber != 1 {
			t.Errorf("chunk %d: page_number=%d, want 1", i, c.Metadata.PageNumber)
		}
		if c.Metadata.ChunkID != i+1 {
			t.Errorf("chunk %d: chunk_id=%d, want %d", i, c.Metadata.ChunkID, i+1)
		}
	}
}

func TestChunk_FixedSize_RespectsSizeBound(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("word ", 200)
	doc, err := New().Chunk(Request{
		Method:       FixedSize,
		Pages:        document.PageMap{{Page: 1, Text: text}},
		ChunkSize:    50,
		ChunkOverlap: 10,
	})
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(doc.Chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(doc.Chunks))
	}
	assertSequentialIDs(t, doc)

	for i, c := range doc.Chunks {
		if len(c.Content) > 50 {
			t.Errorf("chunk %d: %d chars exceeds size 50", i, len(c.Content))
		}
	}
}

func TestChunk_FixedSize_OverlapSharedBetweenChunks(t *testing.T) {
	t.Parallel()

	doc, err := New().Chunk(Request{
		Method:       FixedSize,
		Pages:        document.PageMap{{Page: 1, Text: "aa bb cc dd ee ff gg hh"}},
		ChunkSize:    10,
		ChunkOverlap: 5,
	})
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(doc.Chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(doc.Chunks))
	}

	// Each chunk's leading words (everything before the newly packed last
	// word) must be the trailing overlap region of the previous chunk.
	for i := 1; i < len(doc.Chunks); i++ {
		prev := doc.Chunks[i-1].Content
		cur := doc.Chunks[i].Content
		carried := cur[:strings.LastIndex(cur, " ")]
		if !strings.HasSuffix(prev, carried) {
			t.Errorf("chunk %d: carried prefix %q is not a suffix of previous chunk %q", i, carried, prev)
		}
	}
}

func TestChunk_ByParagraphs(t *testing.T) {
	t.Parallel()

	doc, err := New().Chunk(Request{
		Method: ByParagraphs,
		Pages: document.PageMap{
			{Page: 1, Text: "First paragraph.\n\nSecond paragraph.\n\n\n"},
			{Page: 2, Text: "Third paragraph."},
		},
	})
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}

	want := []struct {
		content string
		page    int
	}{
		{"First paragraph.", 1},
		{"Second paragraph.", 1},
		{"Third paragraph.", 2},
	}
	if len(doc.Chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(doc.Chunks), len(want))
	}
	for i, c := range doc.Chunks {
		if c.Content != want[i].content || c.Metadata.PageNumber != want[i].page {
			t.Errorf("chunk %d: got (%q, page %d), want (%q, page %d)",
				i, c.Content, c.Metadata.PageNumber, want[i].content, want[i].page)
		}
	}
}

func TestChunk_Recursive_SplitsLongPage(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("one line of text\n", 40)
	doc, err := New().Chunk(Request{
		Method:       Recursive,
		Pages:        document.PageMap{{Page: 1, Text: text}},
		ChunkSize:    100,
		ChunkOverlap: 0,
	})
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(doc.Chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(doc.Chunks))
	}
	assertSequentialIDs(t, doc)
	for i, c := range doc.Chunks {
		if n := len([]rune(c.Content)); n > 100 {
			t.Errorf("chunk %d: %d runes exceeds size 100", i, n)
		}
	}
}

func TestChunk_Markdown_HeaderHierarchy(t *testing.T) {
	t.Parallel()

	text := "intro text\n\n# Revenue\n\nrevenue body\n\n## Q1\n\nq1 body\n\n# Costs\n\ncosts body\n"
	doc, err := New().Chunk(Request{Method: Markdown, Text: text})
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}

	want := []struct {
		content string
		h1, h2  string
	}{
		{"intro text", "", ""},
		{"revenue body", "Revenue", ""},
		{"q1 body", "Revenue", "Q1"},
		{"costs body", "Costs", ""},
	}
	if len(doc.Chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d: %+v", len(doc.Chunks), len(want), doc.Chunks)
	}
	for i, c := range doc.Chunks {
		if c.Content != want[i].content {
			t.Errorf("chunk %d: content %q, want %q", i, c.Content, want[i].content)
		}
		if c.Metadata.Header1 != want[i].h1 || c.Metadata.Header2 != want[i].h2 {
			t.Errorf("chunk %d: headers (%q, %q), want (%q, %q)",
				i, c.Metadata.Header1, c.Metadata.Header2, want[i].h1, want[i].h2)
		}
		if c.Metadata.PageNumber != 0 {
			t.Errorf("chunk %d: markdown chunks carry no page number, got %d", i, c.Metadata.PageNumber)
		}
	}
}

func TestChunk_MissingPageMap(t *testing.T) {
	t.Parallel()

	_, err := New().Chunk(Request{Method: ByPages})
	if !fault.IsKind(err, fault.Validation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestChunk_UnsupportedMethod(t *testing.T) {
	t.Parallel()

	_, err := New().Chunk(Request{
		Method: Method("by_vibes"),
		Pages:  twoPages(),
	})
	if !fault.IsKind(err, fault.UnsupportedMethod) {
		t.Errorf("expected unsupported-method error, got %v", err)
	}
}

func TestParseMethod(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		wantErr bool
	}{
		{"by_pages", false},
		{"fixed_size", false},
		{"by_paragraphs", false},
		{"by_sentences", false},
		{"recursive", false},
		{"markdown", false},
		{"token", false},
		{"", true},
		{"by_page", true},
		{"BY_PAGES", true},
	}

	for _, tc := range cases {
		got, err := ParseMethod(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseMethod(%q): expected error", tc.in)
			}
			if !fault.IsKind(err, fault.UnsupportedMethod) {
				t.Errorf("ParseMethod(%q): expected unsupported-method kind, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMethod(%q): %v", tc.in, err)
		}
		if string(got) != tc.in {
			t.Errorf("ParseMethod(%q) = %q", tc.in, got)
		}
	}
}
