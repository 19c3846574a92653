package parser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/finrag/finrag-go/internal/document"
	"github.com/finrag/finrag-go/internal/fault"
)

// ---------------------------------------------------------------------------
// Fakes for file-path strategies
// ---------------------------------------------------------------------------

// fakePageExtractor implements PageExtractor with canned pages.
type fakePageExtractor struct {
	pages []ExtractedPage
	err   error
}

func (f *fakePageExtractor) ExtractPages(_ context.Context, _ string) ([]ExtractedPage, error) {
	return f.pages, f.err
}

// fakeStructural implements StructuralExtractor, recording the strategies
// requested so tests can observe the hi_res fallback.
type fakeStructural struct {
	elements   []Element
	hiResErr   error
	fastErr    error
	strategies []Strategy
}

func (f *fakeStructural) Partition(_ context.Context, _ string, strategy Strategy) ([]Element, error) {
	f.strategies = append(f.strategies, strategy)
	if strategy == StrategyHiRes && f.hiResErr != nil {
		return nil, f.hiResErr
	}
	if strategy == StrategyFast && f.fastErr != nil {
		return nil, f.fastErr
	}
	return f.elements, nil
}

func pageMap() document.PageMap {
	return document.PageMap{
		{Page: 1, Text: "REVENUE\nrevenue grew this year\nacross all segments"},
		{Page: 2, Text: "2. COSTS\ncosts were flat"},
	}
}

// ---------------------------------------------------------------------------
// Page-map strategies
// ---------------------------------------------------------------------------

func TestParse_AllText(t *testing.T) {
	t.Parallel()

	parsed, err := New(nil).Parse(t.Context(), Request{
		Method:   AllText,
		Pages:    pageMap(),
		Metadata: document.Metadata{Filename: "report.pdf"},
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if parsed.Metadata.Filename != "report.pdf" {
		t.Errorf("filename=%q, want report.pdf", parsed.Metadata.Filename)
	}
	if parsed.Metadata.TotalPages != 2 {
		t.Errorf("total_pages=%d, want 2", parsed.Metadata.TotalPages)
	}
	if parsed.Metadata.ParsingMethod != "all_text" {
		t.Errorf("parsing_method=%q, want all_text", parsed.Metadata.ParsingMethod)
	}
	if len(parsed.Content) != 2 {
		t.Fatalf("got %d elements, want 2", len(parsed.Content))
	}
	for i, elem := range parsed.Content {
		if elem.Type != "text" {
			t.Errorf("element %d: type=%q, want text", i, elem.Type)
		}
		if elem.Page != i+1 {
			t.Errorf("element %d: page=%d, want %d", i, elem.Page, i+1)
		}
	}
}

func TestParse_ByTitles_SectionsAndHeuristic(t *testing.T) {
	t.Parallel()

	parsed, err := New(nil).Parse(t.Context(), Request{Method: ByTitles, Pages: pageMap()})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := []struct {
		title   string
		content string
	}{
		{"REVENUE", "revenue grew this year\nacross all segments"},
		{"2. COSTS", "costs were flat"},
	}
	if len(parsed.Content) != len(want) {
		t.Fatalf("got %d sections, want %d: %+v", len(parsed.Content), len(want), parsed.Content)
	}
	for i, elem := range parsed.Content {
		if elem.Type != "section" {
			t.Errorf("section %d: type=%q, want section", i, elem.Type)
		}
		if elem.Title != want[i].title {
			t.Errorf("section %d: title=%q, want %q", i, elem.Title, want[i].title)
		}
		if elem.Content != want[i].content {
			t.Errorf("section %d: content=%q, want %q", i, elem.Content, want[i].content)
		}
	}
}

func TestIsTitleLine(t *testing.T) {
	t.Parallel()

	cases := []struct {
		line string
		want bool
	}{
		{"REVENUE", true},
		{"2. Costs and expenses", true},
		{"plain body line", false},
		{"Mixed Case Heading", false},
		{"...", false},
		{strings.Repeat("A", 120), false},
	}

	for _, tc := range cases {
		if got := isTitleLine(tc.line); got != tc.want {
			t.Errorf("isTitleLine(%q) = %v, want %v", tc.line, got, tc.want)
		}
	}
}

func TestParse_UnknownMethodFallsBackToByPages(t *testing.T) {
	t.Parallel()

	parsed, err := New(nil).Parse(t.Context(), Request{
		Method: Method("exotic"),
		Pages:  pageMap(),
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed.Content) != 2 {
		t.Fatalf("got %d elements, want 2", len(parsed.Content))
	}
	for i, elem := range parsed.Content {
		if elem.Type != "page" {
			t.Errorf("element %d: type=%q, want page", i, elem.Type)
		}
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func TestParse_Validation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		req  Request
		kind fault.Kind
	}{
		{"page method without page map", Request{Method: AllText}, fault.Validation},
		{"file method without path", Request{Method: TextAndTables}, fault.Validation},
		{"hi_res without path", Request{Method: HiRes}, fault.Validation},
		{"unknown method without page map", Request{Method: Method("exotic")}, fault.UnsupportedMethod},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(nil).Parse(t.Context(), tc.req)
			if !fault.IsKind(err, tc.kind) {
				t.Errorf("expected %v error, got %v", tc.kind, err)
			}
		})
	}
}

func TestParse_TextAndTablesWithoutExtractor(t *testing.T) {
	t.Parallel()

	_, err := New(nil).Parse(t.Context(), Request{Method: TextAndTables, FilePath: "report.pdf"})
	if !fault.IsKind(err, fault.Validation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// text_and_tables
// ---------------------------------------------------------------------------

func TestParse_TextAndTables_TablesBeforeTextPerPage(t *testing.T) {
	t.Parallel()

	svc := New(&Config{
		Pages: &fakePageExtractor{pages: []ExtractedPage{
			{
				Tables: []Table{{Rows: [][]string{{"metric", "value"}, {"revenue", "100"}}}},
				Text:   "one paragraph of prose",
			},
		}},
	})

	parsed, err := svc.Parse(t.Context(), Request{Method: TextAndTables, FilePath: "report.pdf"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(parsed.Content) != 2 {
		t.Fatalf("got %d elements, want 2: %+v", len(parsed.Content), parsed.Content)
	}
	if parsed.Content[0].Type != "table" || parsed.Content[1].Type != "text" {
		t.Errorf("element order = (%s, %s), want (table, text)",
			parsed.Content[0].Type, parsed.Content[1].Type)
	}
	if !strings.Contains(parsed.Content[0].Content, "| metric | value |") {
		t.Errorf("table content is not markup: %q", parsed.Content[0].Content)
	}
	if parsed.Content[0].Meta["rows"] != 1 || parsed.Content[0].Meta["cols"] != 2 {
		t.Errorf("table meta = %v, want rows:1 cols:2", parsed.Content[0].Meta)
	}
}

func TestParse_TextAndTables_ExtractionFailureYieldsEmpty(t *testing.T) {
	t.Parallel()

	svc := New(&Config{
		Pages: &fakePageExtractor{err: errors.New("cannot open file")},
	})

	parsed, err := svc.Parse(t.Context(), Request{Method: TextAndTables, FilePath: "broken.pdf"})
	if err != nil {
		t.Fatalf("extraction failures are swallowed, got error: %v", err)
	}
	if len(parsed.Content) != 0 {
		t.Errorf("expected empty content, got %+v", parsed.Content)
	}
}

// ---------------------------------------------------------------------------
// hi_res fallback
// ---------------------------------------------------------------------------

func TestParse_HiRes_FallsBackToFastOnModelError(t *testing.T) {
	t.Parallel()

	fs := &fakeStructural{
		elements: []Element{{Type: "title", Text: "REVENUE", Page: 1}},
		hiResErr: errors.New("could not locate the file on the Hub"),
	}
	svc := New(&Config{Structural: fs})

	parsed, err := svc.Parse(t.Context(), Request{Method: HiRes, FilePath: "report.pdf"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	wantStrategies := []Strategy{StrategyHiRes, StrategyFast}
	if len(fs.strategies) != 2 || fs.strategies[0] != wantStrategies[0] || fs.strategies[1] != wantStrategies[1] {
		t.Errorf("strategies = %v, want %v", fs.strategies, wantStrategies)
	}
	if len(parsed.Content) != 1 || parsed.Content[0].Type != "title" {
		t.Errorf("unexpected content: %+v", parsed.Content)
	}
}

func TestParse_HiRes_OtherErrorYieldsEmptyWithoutRetry(t *testing.T) {
	t.Parallel()

	fs := &fakeStructural{hiResErr: errors.New("document is encrypted")}
	svc := New(&Config{Structural: fs})

	parsed, err := svc.Parse(t.Context(), Request{Method: HiRes, FilePath: "report.pdf"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(fs.strategies) != 1 {
		t.Errorf("expected a single hi_res attempt, got %v", fs.strategies)
	}
	if len(parsed.Content) != 0 {
		t.Errorf("expected empty content, got %+v", parsed.Content)
	}
}

func TestIsModelOrNetworkError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("could not locate the file on the Hub"), true},
		{errors.New("check your Internet connection"), true},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("lookup host: no such host"), true},
		{errors.New("document is encrypted"), false},
	}

	for _, tc := range cases {
		if got := isModelOrNetworkError(tc.err); got != tc.want {
			t.Errorf("isModelOrNetworkError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Table markup
// ---------------------------------------------------------------------------

func TestTableMarkdown(t *testing.T) {
	t.Parallel()

	table := Table{Rows: [][]string{
		{"metric", "value"},
		{"revenue", "100"},
		{"costs\nnet", "80"},
	}}

	got := table.Markdown()
	want := "| metric | value |\n| --- | --- |\n| revenue | 100 |\n| costs net | 80 |"
	if got != want {
		t.Errorf("markdown:\n%s\nwant:\n%s", got, want)
	}

	if (Table{}).Markdown() != "" {
		t.Error("empty table should render empty markup")
	}
}
