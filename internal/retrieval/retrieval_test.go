package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/finrag/finrag-go/internal/fault"
	"github.com/finrag/finrag-go/internal/vectorstore"
)

// fakeEmbedder returns a constant vector, or fails when broken.
type fakeEmbedder struct {
	broken bool
}

func (f fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.broken {
		return nil, fault.New(fault.External, "embedder down")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (fakeEmbedder) Provider() string { return "openai" }
func (fakeEmbedder) Model() string    { return "test-embed" }
func (fakeEmbedder) Dimensions() int  { return 2 }

// fakeSearchStore serves canned hits for the terms collection.
type fakeSearchStore struct {
	hits   []vectorstore.SearchHit
	failed bool
	closed bool
}

func (f *fakeSearchStore) CreateCollection(ctx context.Context, desc vectorstore.Descriptor) error {
	return nil
}

func (f *fakeSearchStore) Insert(ctx context.Context, collection string, records []vectorstore.Record) (int, error) {
	return 0, nil
}

func (f *fakeSearchStore) BuildIndex(ctx context.Context, collection string, mode vectorstore.IndexMode) error {
	return nil
}

func (f *fakeSearchStore) ListCollections(ctx context.Context) ([]string, error) { return nil, nil }

func (f *fakeSearchStore) DeleteCollection(ctx context.Context, name string) error { return nil }

func (f *fakeSearchStore) DescribeCollection(ctx context.Context, name string) (*vectorstore.CollectionInfo, error) {
	return nil, nil
}

func (f *fakeSearchStore) Search(ctx context.Context, collection string, vector []float32, limit int, outputFields []string) ([]vectorstore.SearchHit, error) {
	if f.failed {
		return nil, fault.New(fault.External, "store down")
	}
	return f.hits, nil
}

func (f *fakeSearchStore) Close() error {
	f.closed = true
	return nil
}

// fakeChat serves a canned completion, or streams canned fragments.
type fakeChat struct {
	reply      string
	fragments  []string
	failStream bool
	lastPrompt string
}

func (f *fakeChat) Complete(ctx context.Context, system, user string) (string, error) {
	f.lastPrompt = user
	return f.reply, nil
}

func (f *fakeChat) Stream(ctx context.Context, system, user string, fn func(string) error) error {
	f.lastPrompt = user
	for _, frag := range f.fragments {
		if err := fn(frag); err != nil {
			return err
		}
	}
	if f.failStream {
		return fault.New(fault.External, "generation interrupted")
	}
	return nil
}

func newTestRetriever(store *fakeSearchStore, embed fakeEmbedder, chat *fakeChat) *Retriever {
	r := New(&vectorstore.Config{Provider: vectorstore.Milvus}, embed, chat)
	r.open = func(ctx context.Context, cfg *vectorstore.Config) (vectorstore.Store, error) {
		return store, nil
	}
	return r
}

func termHits() []vectorstore.SearchHit {
	return []vectorstore.SearchHit{
		{Fields: map[string]string{"term": "EBITDA", "category": "accounting"}, Distance: 0.95},
		{Fields: map[string]string{"term": "operating income", "category": "accounting"}, Distance: 0.87},
	}
}

func Test_Search_ReturnsCandidates(t *testing.T) {
	t.Parallel()
	store := &fakeSearchStore{hits: termHits()}
	r := newTestRetriever(store, fakeEmbedder{}, &fakeChat{})

	candidates := r.Search(context.Background(), "ebitda", 5)
	if len(candidates) != 2 {
		t.Fatalf("want 2 candidates, got %d", len(candidates))
	}
	if candidates[0].Term != "EBITDA" || candidates[0].Category != "accounting" {
		t.Errorf("candidate[0]: got %+v", candidates[0])
	}
	if !store.closed {
		t.Error("store not released after search")
	}
}

func Test_Search_EmbedderFailureDegradesToEmpty(t *testing.T) {
	t.Parallel()
	store := &fakeSearchStore{hits: termHits()}
	r := newTestRetriever(store, fakeEmbedder{broken: true}, &fakeChat{})

	if got := r.Search(context.Background(), "ebitda", 5); len(got) != 0 {
		t.Errorf("want empty candidates, got %v", got)
	}
}

func Test_Search_StoreFailureDegradesToEmpty(t *testing.T) {
	t.Parallel()
	store := &fakeSearchStore{failed: true}
	r := newTestRetriever(store, fakeEmbedder{}, &fakeChat{})

	if got := r.Search(context.Background(), "ebitda", 5); len(got) != 0 {
		t.Errorf("want empty candidates, got %v", got)
	}
}

func Test_Explain_CandidatesInPrompt(t *testing.T) {
	t.Parallel()
	store := &fakeSearchStore{hits: termHits()}
	chat := &fakeChat{reply: "EBITDA measures operating profitability."}
	r := newTestRetriever(store, fakeEmbedder{}, chat)

	result, err := r.Explain(context.Background(), "ebitda")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if result.Explanation != "EBITDA measures operating profitability." {
		t.Errorf("explanation: got %q", result.Explanation)
	}
	if len(result.Candidates) != 2 {
		t.Errorf("want 2 candidates, got %d", len(result.Candidates))
	}
	if !strings.Contains(chat.lastPrompt, "- EBITDA (accounting)") {
		t.Errorf("prompt missing candidate bullet:\n%s", chat.lastPrompt)
	}
}

func Test_Explain_NoCandidatesNote(t *testing.T) {
	t.Parallel()
	store := &fakeSearchStore{}
	chat := &fakeChat{reply: "answer"}
	r := newTestRetriever(store, fakeEmbedder{}, chat)

	if _, err := r.Explain(context.Background(), "obscure term"); err != nil {
		t.Fatalf("explain: %v", err)
	}
	if !strings.Contains(chat.lastPrompt, "no related terms found") {
		t.Errorf("prompt missing empty-candidates note:\n%s", chat.lastPrompt)
	}
}

func Test_ExplainStream_CandidatesFirst(t *testing.T) {
	t.Parallel()
	store := &fakeSearchStore{hits: termHits()}
	chat := &fakeChat{fragments: []string{"EBITDA ", "measures ", "profitability."}}
	r := newTestRetriever(store, fakeEmbedder{}, chat)

	var events []Event
	for ev := range r.ExplainStream(context.Background(), "ebitda") {
		events = append(events, ev)
	}

	if len(events) != 4 {
		t.Fatalf("want 4 events, got %d: %v", len(events), events)
	}
	if events[0].Type != EventCandidates {
		t.Fatalf("first event: want candidates, got %s", events[0].Type)
	}
	if len(events[0].Candidates) != 2 {
		t.Errorf("candidates: want 2, got %d", len(events[0].Candidates))
	}
	var text strings.Builder
	for _, ev := range events[1:] {
		if ev.Type != EventFragment {
			t.Fatalf("event type: want fragment, got %s", ev.Type)
		}
		text.WriteString(ev.Fragment)
	}
	if text.String() != "EBITDA measures profitability." {
		t.Errorf("assembled text: got %q", text.String())
	}
}

func Test_ExplainStream_EmptyCandidatesStillFirst(t *testing.T) {
	t.Parallel()
	store := &fakeSearchStore{}
	chat := &fakeChat{fragments: []string{"answer"}}
	r := newTestRetriever(store, fakeEmbedder{broken: true}, chat)

	events := make([]Event, 0, 2)
	for ev := range r.ExplainStream(context.Background(), "term") {
		events = append(events, ev)
	}
	if events[0].Type != EventCandidates {
		t.Fatalf("first event: want candidates, got %s", events[0].Type)
	}
	if events[0].Candidates == nil || len(events[0].Candidates) != 0 {
		t.Errorf("want empty non-nil candidate list, got %v", events[0].Candidates)
	}
}

func Test_ExplainStream_ErrorTerminates(t *testing.T) {
	t.Parallel()
	store := &fakeSearchStore{}
	chat := &fakeChat{fragments: []string{"partial "}, failStream: true}
	r := newTestRetriever(store, fakeEmbedder{}, chat)

	var events []Event
	for ev := range r.ExplainStream(context.Background(), "term") {
		events = append(events, ev)
	}

	last := events[len(events)-1]
	if last.Type != EventError {
		t.Fatalf("last event: want error, got %s", last.Type)
	}
	if !strings.Contains(last.Message, "generation interrupted") {
		t.Errorf("error message: got %q", last.Message)
	}
	// The partial fragment before the failure is kept.
	if events[1].Type != EventFragment || events[1].Fragment != "partial " {
		t.Errorf("partial fragment lost: %v", events[1])
	}
}

func Test_LooksLikeLoanword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query string
		want  bool
	}{
		{"EBITDA", true},
		{"hedge fund", true},
		{"财务报告", false},
		{"商誉 goodwill", false},
		{"123", false},
	}
	for _, tt := range tests {
		if got := looksLikeLoanword(tt.query); got != tt.want {
			t.Errorf("looksLikeLoanword(%q): want %v, got %v", tt.query, tt.want, got)
		}
	}
}
