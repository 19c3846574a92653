// Package terms imports canonical financial terminology from CSV into the
// vector store collection consulted during retrieval.
package terms

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/finrag/finrag-go/internal/embedder"
	"github.com/finrag/finrag-go/internal/fault"
	"github.com/finrag/finrag-go/internal/logging"
	"github.com/finrag/finrag-go/internal/vectorstore"
)

// defaultBatchSize is how many terms are embedded and inserted per batch.
const defaultBatchSize = 1000

// Term is one vocabulary entry read from the CSV source.
type Term struct {
	// Term is the canonical term text.
	Term string
	// Category groups related terms (e.g. "accounting", "derivatives").
	Category string
}

// Result summarizes one import run.
type Result struct {
	// Imported is the number of terms successfully inserted.
	Imported int
	// Failed is the number of terms in batches that could not be inserted.
	Failed int
}

// TermStore is the slice of store capability the importer needs. It is
// satisfied by *vectorstore.MilvusStore.
type TermStore interface {
	EnsureTermCollection(ctx context.Context, dimension int) error
	InsertTerms(ctx context.Context, records []vectorstore.TermRecord) (int, error)
}

// Importer embeds terms and writes them to the terms collection.
type Importer struct {
	store    TermStore
	embed    embedder.Embedder
	batchLen int
}

// NewImporter constructs an Importer over the given store and embedder.
func NewImporter(store TermStore, embed embedder.Embedder) *Importer {
	return &Importer{store: store, embed: embed, batchLen: defaultBatchSize}
}

// ReadCSV parses terms from r. The expected columns are term, category; a
// header row containing "term" is skipped. Rows with an empty term are
// dropped.
func ReadCSV(r io.Reader) ([]Term, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var terms []Term
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fault.Wrap(fault.Format, err, "terms: read csv")
		}
		if len(record) == 0 {
			continue
		}

		term := strings.TrimSpace(record[0])
		if first {
			first = false
			if strings.EqualFold(term, "term") {
				continue
			}
		}
		if term == "" {
			continue
		}

		category := ""
		if len(record) > 1 {
			category = strings.TrimSpace(record[1])
		}
		terms = append(terms, Term{Term: term, Category: category})
	}
	return terms, nil
}

// ReadCSVFile parses terms from the file at path.
func ReadCSVFile(path string) ([]Term, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fault.Wrap(fault.Validation, err, "terms: open %s", path)
	}
	defer f.Close()
	return ReadCSV(f)
}

// Import embeds and inserts the terms in batches. A failed batch is logged
// and skipped; the run continues with the next batch so one bad batch does
// not abandon the rest of the vocabulary.
func (i *Importer) Import(ctx context.Context, terms []Term) (*Result, error) {
	log := logging.FromContext(ctx)

	if len(terms) == 0 {
		return &Result{}, nil
	}
	if err := i.store.EnsureTermCollection(ctx, i.embed.Dimensions()); err != nil {
		return nil, err
	}

	result := &Result{}
	for start := 0; start < len(terms); start += i.batchLen {
		end := min(start+i.batchLen, len(terms))
		batch := terms[start:end]

		if err := i.importBatch(ctx, batch); err != nil {
			log.Warn("term batch failed",
				slog.Int("offset", start),
				slog.Int("size", len(batch)),
				slog.String("error", err.Error()),
			)
			result.Failed += len(batch)
			continue
		}
		result.Imported += len(batch)
	}

	log.Info("term import complete",
		slog.Int("imported", result.Imported),
		slog.Int("failed", result.Failed),
	)
	return result, nil
}

// importBatch embeds one batch and inserts it.
func (i *Importer) importBatch(ctx context.Context, batch []Term) error {
	texts := make([]string, len(batch))
	for j, term := range batch {
		texts[j] = term.Term
	}

	vectors, err := i.embed.Embed(ctx, texts)
	if err != nil {
		return err
	}

	records := make([]vectorstore.TermRecord, len(batch))
	for j, term := range batch {
		records[j] = vectorstore.TermRecord{
			Term:     term.Term,
			Category: term.Category,
			Vector:   vectors[j],
		}
	}
	_, err = i.store.InsertTerms(ctx, records)
	return err
}
