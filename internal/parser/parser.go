// Package parser extracts structured content units from raw documents.
// Strategies are dispatched by a method key; page-map strategies work on
// loader output alone, while file-path strategies delegate extraction to the
// PageExtractor / StructuralExtractor capabilities.
package parser

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/finrag/finrag-go/internal/document"
	"github.com/finrag/finrag-go/internal/fault"
	"github.com/finrag/finrag-go/internal/logging"
)

// Method is a parsing strategy key.
type Method string

const (
	// AllText emits one text element per page, content unchanged.
	AllText Method = "all_text"
	// ByPages emits one page-tagged element per page; it is also the
	// fallback for unknown methods when a PageMap is available.
	ByPages Method = "by_pages"
	// ByTitles segments pages into titled sections with a single-pass
	// heuristic.
	ByTitles Method = "by_titles"
	// TextAndTables extracts per-page tables then plain text from the file.
	TextAndTables Method = "text_and_tables"
	// HiRes delegates to the high-accuracy structural extractor, falling
	// back to the fast strategy on model/network failures.
	HiRes Method = "hi_res"
)

// Request carries one parsing call.
type Request struct {
	// Text is the raw document text (unused by file-path strategies).
	Text string

	// Method selects the strategy. Unknown keys fall back to by_pages when
	// Pages is non-empty and fail otherwise.
	Method Method

	// Metadata identifies the source document.
	Metadata document.Metadata

	// Pages is required by all_text, by_pages, and by_titles.
	Pages document.PageMap

	// FilePath is required by text_and_tables and hi_res.
	FilePath string
}

// Config holds the parser's extraction capabilities.
type Config struct {
	// Pages extracts per-page tables and text for text_and_tables.
	Pages PageExtractor

	// Structural is the hi_res partitioning capability.
	Structural StructuralExtractor
}

// Service dispatches parsing requests to the strategy implementations.
type Service struct {
	pages      PageExtractor
	structural StructuralExtractor
}

// New constructs a parsing Service. Either capability may be nil; the
// strategies that need a missing one fail with a validation error.
func New(cfg *Config) *Service {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Service{pages: cfg.Pages, structural: cfg.Structural}
}

// Parse extracts structured content units from the request's document.
// Validation failures (missing PageMap or file path for the chosen method)
// are reported before any strategy executes.
func (s *Service) Parse(ctx context.Context, req Request) (*document.ParsedDocument, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	var content []document.ParsedElement

	switch req.Method {
	case AllText:
		content = parseAllText(req.Pages)
	case ByPages:
		content = parseByPages(req.Pages)
	case ByTitles:
		content = parseByTitles(req.Pages)
	case TextAndTables:
		content = s.parseTextAndTables(ctx, req.FilePath)
	case HiRes:
		content = s.parseHiRes(ctx, req.FilePath)
	default:
		// Unknown method with a PageMap available: fall back to by_pages.
		content = parseByPages(req.Pages)
	}

	return &document.ParsedDocument{
		Metadata: document.ParsedMetadata{
			Filename:      req.Metadata.Filename,
			TotalPages:    len(req.Pages),
			ParsingMethod: string(req.Method),
			Timestamp:     time.Now().Format(time.RFC3339),
		},
		Content: content,
	}, nil
}

// validate enforces the per-strategy input preconditions.
func (s *Service) validate(req Request) error {
	switch req.Method {
	case TextAndTables, HiRes:
		if req.FilePath == "" {
			return fault.New(fault.Validation, "parsing method %q requires a file path", string(req.Method))
		}
		if req.Method == TextAndTables && s.pages == nil {
			return fault.New(fault.Validation, "parsing method %q requires a page extractor", string(req.Method))
		}
		if req.Method == HiRes && s.structural == nil {
			return fault.New(fault.Validation, "parsing method %q requires a structural extractor", string(req.Method))
		}
	case AllText, ByPages, ByTitles:
		if len(req.Pages) == 0 {
			return fault.New(fault.Validation, "parsing method %q requires a page map", string(req.Method))
		}
	default:
		if len(req.Pages) == 0 {
			return fault.New(fault.UnsupportedMethod, "unsupported parsing method: %q", string(req.Method))
		}
	}
	return nil
}

// parseAllText emits one text element per page with content unchanged.
func parseAllText(pages document.PageMap) []document.ParsedElement {
	out := make([]document.ParsedElement, 0, len(pages))
	for _, page := range pages {
		out = append(out, document.ParsedElement{
			Type:    "text",
			Content: page.Text,
			Page:    page.Page,
			Meta:    page.Meta,
		})
	}
	return out
}

// parseByPages emits the same shape as parseAllText with an explicit page tag.
func parseByPages(pages document.PageMap) []document.ParsedElement {
	out := make([]document.ParsedElement, 0, len(pages))
	for _, page := range pages {
		out = append(out, document.ParsedElement{
			Type:    "page",
			Content: page.Text,
			Page:    page.Page,
			Meta:    page.Meta,
		})
	}
	return out
}

// maxTitleLen bounds the line length for the title heuristic.
const maxTitleLen = 100

// parseByTitles segments pages into titled sections. A line is a title when
// it is shorter than maxTitleLen and either fully upper-case or starting with
// a digit. A title closes the previous section (emitted only if it has body
// lines) and opens a new one; trailing body lines flush as a final section
// tagged with the last page's number.
func parseByTitles(pages document.PageMap) []document.ParsedElement {
	var out []document.ParsedElement

	currentTitle := "Introduction"
	var body []string

	for _, page := range pages {
		for _, line := range strings.Split(page.Text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if isTitleLine(line) {
				if len(body) > 0 {
					out = append(out, document.ParsedElement{
						Type:    "section",
						Title:   currentTitle,
						Content: strings.Join(body, "\n"),
						Page:    page.Page,
					})
				}
				currentTitle = line
				body = body[:0]
				continue
			}
			body = append(body, line)
		}
	}

	if len(body) > 0 {
		lastPage := 0
		if len(pages) > 0 {
			lastPage = pages[len(pages)-1].Page
		}
		out = append(out, document.ParsedElement{
			Type:    "section",
			Title:   currentTitle,
			Content: strings.Join(body, "\n"),
			Page:    lastPage,
		})
	}

	return out
}

// isTitleLine applies the title heuristic: short, and either fully
// upper-case (at least one cased rune, none lower) or digit-led.
func isTitleLine(line string) bool {
	runes := []rune(line)
	if len(runes) >= maxTitleLen {
		return false
	}
	if unicode.IsDigit(runes[0]) {
		return true
	}

	cased := false
	for _, r := range runes {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

// parseTextAndTables extracts per-page tables then plain text from the file.
// Extraction failure yields an empty result, not an error: a document that
// cannot be plumbed should not abort a multi-document run.
func (s *Service) parseTextAndTables(ctx context.Context, path string) []document.ParsedElement {
	log := logging.FromContext(ctx)

	extracted, err := s.pages.ExtractPages(ctx, path)
	if err != nil {
		log.Warn("table/text extraction failed", slog.String("path", path), slog.Any("error", err))
		return []document.ParsedElement{}
	}

	var out []document.ParsedElement
	for i, page := range extracted {
		pageNo := i + 1
		for _, table := range page.Tables {
			if len(table.Rows) == 0 {
				continue
			}
			out = append(out, document.ParsedElement{
				Type:    "table",
				Content: table.Markdown(),
				Page:    pageNo,
				Meta: map[string]any{
					"rows": table.DataRows(),
					"cols": table.Cols(),
				},
			})
		}
		if page.Text != "" {
			out = append(out, document.ParsedElement{
				Type:    "text",
				Content: page.Text,
				Page:    pageNo,
			})
		}
	}
	return out
}

// parseHiRes delegates to the high-accuracy structural extractor. A failure
// classified as a missing-model or no-network condition retries with the
// fast strategy; any other failure yields an empty result.
func (s *Service) parseHiRes(ctx context.Context, path string) []document.ParsedElement {
	log := logging.FromContext(ctx)

	elements, err := s.structural.Partition(ctx, path, StrategyHiRes)
	if err != nil {
		if !isModelOrNetworkError(err) {
			log.Warn("hi_res extraction failed", slog.String("path", path), slog.Any("error", err))
			return []document.ParsedElement{}
		}
		log.Warn("hi_res extraction unavailable, falling back to fast strategy",
			slog.String("path", path), slog.Any("error", err))
		elements, err = s.structural.Partition(ctx, path, StrategyFast)
		if err != nil {
			log.Warn("fast extraction failed", slog.String("path", path), slog.Any("error", err))
			return []document.ParsedElement{}
		}
	}

	out := make([]document.ParsedElement, 0, len(elements))
	for _, elem := range elements {
		out = append(out, document.ParsedElement{
			Type:    elem.Type,
			Content: elem.Text,
			Page:    elem.Page,
			Meta:    elem.Meta,
		})
	}
	return out
}
