package chunker

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmparser "github.com/yuin/goldmark/parser"
	gmtext "github.com/yuin/goldmark/text"

	"github.com/finrag/finrag-go/internal/document"
)

// markdownMaxDepth bounds the heading levels that open a new chunk. Deeper
// headings stay inside the body of the active section.
const markdownMaxDepth = 3

// mdHeading is one chunk-opening heading with its byte span in the source.
type mdHeading struct {
	level int
	title string
	// start is the byte offset of the heading text line; stop is the offset
	// just past it. Section bodies run from one heading's stop to the next
	// heading's start.
	start, stop int
}

// chunkMarkdown splits the raw document text on #/##/### heading markers.
// Heading text becomes metadata, not content: every chunk carries the active
// heading hierarchy, and content is the body between its heading and the
// next. Page numbers are not meaningful for this strategy.
func (s *Service) chunkMarkdown(text string) ([]document.Chunk, error) {
	source := []byte(text)

	md := goldmark.New(goldmark.WithParserOptions(gmparser.WithAutoHeadingID()))
	root := md.Parser().Parse(gmtext.NewReader(source))

	var heads []mdHeading
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindHeading {
			return ast.WalkContinue, nil
		}
		h := n.(*ast.Heading)
		if h.Level > markdownMaxDepth || h.Lines().Len() == 0 {
			return ast.WalkContinue, nil
		}
		seg := h.Lines().At(0)
		heads = append(heads, mdHeading{
			level: h.Level,
			title: strings.TrimSpace(string(seg.Value(source))),
			start: seg.Start,
			stop:  seg.Stop,
		})
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	var chunks []document.Chunk

	emit := func(body string, active [markdownMaxDepth]string) {
		body = strings.TrimSpace(body)
		if body == "" {
			return
		}
		chunks = append(chunks, document.Chunk{
			Content: body,
			Metadata: document.ChunkMetadata{
				ChunkID:   len(chunks) + 1,
				WordCount: document.WordCount(body),
				Header1:   active[0],
				Header2:   active[1],
				Header3:   active[2],
			},
		})
	}

	var active [markdownMaxDepth]string

	// Body before the first heading, if any.
	if len(heads) == 0 {
		emit(text, active)
		return chunks, nil
	}
	emit(string(source[:markerStart(source, heads[0].start)]), active)

	for i, h := range heads {
		active[h.level-1] = h.title
		for d := h.level; d < markdownMaxDepth; d++ {
			active[d] = ""
		}

		end := len(source)
		if i+1 < len(heads) {
			end = markerStart(source, heads[i+1].start)
		}
		emit(string(source[h.stop:end]), active)
	}

	return chunks, nil
}

// markerStart walks back from the heading-text offset over the "#" marker
// prefix of the same line, so section bodies never include the next
// heading's marker characters.
func markerStart(source []byte, textStart int) int {
	i := textStart
	for i > 0 && source[i-1] != '\n' {
		i--
	}
	return i
}
