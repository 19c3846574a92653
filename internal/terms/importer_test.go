package terms

import (
	"context"
	"strings"
	"testing"

	"github.com/finrag/finrag-go/internal/fault"
	"github.com/finrag/finrag-go/internal/vectorstore"
)

func Test_ReadCSV(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []Term
	}{
		{
			name:  "header skipped",
			input: "term,category\nEBITDA,accounting\nhedge,derivatives\n",
			want: []Term{
				{Term: "EBITDA", Category: "accounting"},
				{Term: "hedge", Category: "derivatives"},
			},
		},
		{
			name:  "no header",
			input: "goodwill,accounting\n",
			want:  []Term{{Term: "goodwill", Category: "accounting"}},
		},
		{
			name:  "missing category",
			input: "term,category\namortization\n",
			want:  []Term{{Term: "amortization", Category: ""}},
		},
		{
			name:  "blank terms dropped",
			input: "term,category\n,orphan\nliquidity,markets\n",
			want:  []Term{{Term: "liquidity", Category: "markets"}},
		},
		{
			name:  "whitespace trimmed",
			input: " swap , derivatives \n",
			want:  []Term{{Term: "swap", Category: "derivatives"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ReadCSV(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ReadCSV: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("want %d terms, got %d: %v", len(tt.want), len(got), got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("terms[%d]: want %+v, got %+v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

// fakeTermStore records inserts and optionally fails selected batches.
type fakeTermStore struct {
	ensured  bool
	dim      int
	inserted [][]vectorstore.TermRecord
	failAt   map[int]bool
	calls    int
}

func (f *fakeTermStore) EnsureTermCollection(ctx context.Context, dimension int) error {
	f.ensured = true
	f.dim = dimension
	return nil
}

func (f *fakeTermStore) InsertTerms(ctx context.Context, records []vectorstore.TermRecord) (int, error) {
	call := f.calls
	f.calls++
	if f.failAt[call] {
		return 0, fault.New(fault.External, "insert refused")
	}
	f.inserted = append(f.inserted, records)
	return len(records), nil
}

// fakeEmbedder returns a constant unit vector per input text.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (fakeEmbedder) Provider() string { return "openai" }
func (fakeEmbedder) Model() string    { return "test-embed" }
func (fakeEmbedder) Dimensions() int  { return 2 }

func Test_Import_Batches(t *testing.T) {
	t.Parallel()

	store := &fakeTermStore{}
	imp := NewImporter(store, fakeEmbedder{})
	imp.batchLen = 2

	terms := []Term{
		{Term: "a"}, {Term: "b"}, {Term: "c"}, {Term: "d"}, {Term: "e"},
	}
	result, err := imp.Import(context.Background(), terms)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if !store.ensured || store.dim != 2 {
		t.Errorf("collection not ensured with dimension 2 (dim=%d)", store.dim)
	}
	if result.Imported != 5 || result.Failed != 0 {
		t.Errorf("want 5 imported, got %+v", result)
	}
	if len(store.inserted) != 3 {
		t.Errorf("want 3 batches, got %d", len(store.inserted))
	}
}

func Test_Import_ContinuesPastFailedBatch(t *testing.T) {
	t.Parallel()

	store := &fakeTermStore{failAt: map[int]bool{1: true}}
	imp := NewImporter(store, fakeEmbedder{})
	imp.batchLen = 2

	terms := []Term{
		{Term: "a"}, {Term: "b"}, {Term: "c"}, {Term: "d"}, {Term: "e"},
	}
	result, err := imp.Import(context.Background(), terms)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if result.Imported != 3 {
		t.Errorf("imported: want 3, got %d", result.Imported)
	}
	if result.Failed != 2 {
		t.Errorf("failed: want 2, got %d", result.Failed)
	}
}

func Test_Import_EmptyInput(t *testing.T) {
	t.Parallel()

	store := &fakeTermStore{}
	imp := NewImporter(store, fakeEmbedder{})

	result, err := imp.Import(context.Background(), nil)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Imported != 0 || result.Failed != 0 {
		t.Errorf("want empty result, got %+v", result)
	}
	if store.ensured {
		t.Error("collection ensured for empty input")
	}
}
