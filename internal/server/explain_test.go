package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/finrag/finrag-go/internal/retrieval"
	"github.com/finrag/finrag-go/internal/vectorstore"
)

// ---------------------------------------------------------------------------
// Fakes for handler tests
// ---------------------------------------------------------------------------

// fakeRetriever implements the explainer interface for tests.
type fakeRetriever struct {
	// candidates is returned by Search and emitted as the first stream event.
	candidates []retrieval.Candidate
	// fragments are emitted one per fragment event.
	fragments []string
	// streamErr, when non-empty, terminates the stream with an error event
	// after the fragments.
	streamErr string
}

func (f *fakeRetriever) Search(_ context.Context, _ string, _ int) []retrieval.Candidate {
	return f.candidates
}

func (f *fakeRetriever) ExplainStream(_ context.Context, _ string) <-chan retrieval.Event {
	events := make(chan retrieval.Event)
	go func() {
		defer close(events)
		candidates := f.candidates
		if candidates == nil {
			candidates = []retrieval.Candidate{}
		}
		events <- retrieval.Event{Type: retrieval.EventCandidates, Candidates: candidates}
		for _, fr := range f.fragments {
			events <- retrieval.Event{Type: retrieval.EventFragment, Fragment: fr}
		}
		if f.streamErr != "" {
			events <- retrieval.Event{Type: retrieval.EventError, Message: f.streamErr}
		}
	}()
	return events
}

// fakeCollections implements the collections interface for tests.
type fakeCollections struct {
	names   []string
	info    *vectorstore.CollectionInfo
	deleted []string
	err     error
}

func (f *fakeCollections) ListCollections(_ context.Context) ([]string, error) {
	return f.names, f.err
}

func (f *fakeCollections) DeleteCollection(_ context.Context, name string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, name)
	return nil
}

func (f *fakeCollections) DescribeCollection(_ context.Context, _ string) (*vectorstore.CollectionInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

// newTestServer builds a *Server with fake dependencies and a fresh metrics
// registry so tests never pollute prometheus.DefaultRegisterer.
func newTestServer() *Server {
	return &Server{
		retriever:   &fakeRetriever{},
		collections: &fakeCollections{},
		cfg:         &Config{Port: 8080},
		log:         slog.Default(),
		metrics:     newServerMetrics(prometheus.NewRegistry()),
	}
}

// ---------------------------------------------------------------------------
// POST /api/explain — validation error paths
// ---------------------------------------------------------------------------

func TestHandleExplain_MissingQuery(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/explain",
		strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleExplain(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleExplain_InvalidJSON(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/explain",
		strings.NewReader(`not-json`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleExplain(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// POST /api/explain — streaming protocol
// ---------------------------------------------------------------------------

// TestHandleExplain_CandidatesLineFirst verifies that the response opens with
// exactly one DATA: candidates line before any generated text.
// httptest.ResponseRecorder implements http.Flusher so the handler's flusher
// check passes without a real connection.
func TestHandleExplain_CandidatesLineFirst(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	s.retriever = &fakeRetriever{
		candidates: []retrieval.Candidate{
			{Term: "EBITDA", Category: "financial_metric", Distance: 0.92},
		},
		fragments: []string{"EBITDA measures ", "operating performance."},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/explain",
		strings.NewReader(`{"query":"EBITDA"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleExplain(w, req)

	body := w.Body.String()
	if !strings.HasPrefix(body, "DATA: ") {
		t.Fatalf("expected body to start with DATA: line, got: %s", body)
	}

	header, rest, found := strings.Cut(body, "\n\n")
	if !found {
		t.Fatalf("expected blank line after DATA: line, got: %s", body)
	}

	var payload struct {
		Candidates []retrieval.Candidate `json:"candidates"`
	}
	if err := json.Unmarshal([]byte(strings.TrimPrefix(header, "DATA: ")), &payload); err != nil {
		t.Fatalf("DATA: line is not valid JSON: %v", err)
	}
	if len(payload.Candidates) != 1 || payload.Candidates[0].Term != "EBITDA" {
		t.Errorf("unexpected candidates payload: %+v", payload.Candidates)
	}

	if rest != "EBITDA measures operating performance." {
		t.Errorf("unexpected streamed text: %q", rest)
	}
}

// TestHandleExplain_EmptyCandidatesStillEmitted verifies that an empty
// candidate list still produces a DATA: line with an empty array, not null.
func TestHandleExplain_EmptyCandidatesStillEmitted(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	s.retriever = &fakeRetriever{fragments: []string{"no match"}}

	req := httptest.NewRequest(http.MethodPost, "/api/explain",
		strings.NewReader(`{"query":"unknown term"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleExplain(w, req)

	body := w.Body.String()
	if !strings.HasPrefix(body, `DATA: {"candidates":[]}`) {
		t.Errorf("expected empty candidates array in DATA: line, got: %s", body)
	}
}

// TestHandleExplain_ErrorLine verifies that a generation failure is delivered
// in-band as an ERROR: line, with any text streamed before it preserved.
func TestHandleExplain_ErrorLine(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	s.retriever = &fakeRetriever{
		fragments: []string{"partial "},
		streamErr: "llm unavailable",
	}

	req := httptest.NewRequest(http.MethodPost, "/api/explain",
		strings.NewReader(`{"query":"EBITDA"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleExplain(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("stream errors are in-band, expected 200, got %d", w.Code)
	}

	body := w.Body.String()
	if !strings.Contains(body, "partial ") {
		t.Errorf("expected partial text before error, got: %s", body)
	}
	if !strings.Contains(body, "ERROR: llm unavailable") {
		t.Errorf("expected ERROR: line in body, got: %s", body)
	}
}

// ---------------------------------------------------------------------------
// POST /api/search
// ---------------------------------------------------------------------------

func TestHandleSearch_ReturnsCandidates(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	s.retriever = &fakeRetriever{
		candidates: []retrieval.Candidate{
			{Term: "market capitalisation", Category: "financial_metric", Distance: 0.88},
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/search",
		strings.NewReader(`{"query":"market cap"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleSearch(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}

	var resp searchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Query != "market cap" {
		t.Errorf("query echo: expected %q, got %q", "market cap", resp.Query)
	}
	if len(resp.Candidates) != 1 || resp.Candidates[0].Term != "market capitalisation" {
		t.Errorf("unexpected candidates: %+v", resp.Candidates)
	}
}

// TestHandleSearch_EmptyResultIsArray verifies that a query with no matches
// returns candidates as [] rather than null.
func TestHandleSearch_EmptyResultIsArray(t *testing.T) {
	t.Parallel()

	s := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/search",
		strings.NewReader(`{"query":"no such term"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleSearch(w, req)

	if !strings.Contains(w.Body.String(), `"candidates":[]`) {
		t.Errorf("expected empty candidates array, got: %s", w.Body.String())
	}
}

func TestHandleSearch_MissingQuery(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/search",
		strings.NewReader(`{"limit":3}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleSearch(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Collection management endpoints
// ---------------------------------------------------------------------------

func TestHandleCollectionsList(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	s.collections = &fakeCollections{
		names: []string{"report_openai_20240101120000", "financial_terms"},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/collections", nil)
	w := httptest.NewRecorder()

	s.handleCollectionsList(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp collectionsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Collections) != 2 {
		t.Errorf("expected 2 collections, got %d", len(resp.Collections))
	}
}

func TestHandleCollectionsList_StoreError(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	s.collections = &fakeCollections{err: fmt.Errorf("store unreachable")}

	req := httptest.NewRequest(http.MethodGet, "/api/collections", nil)
	w := httptest.NewRecorder()

	s.handleCollectionsList(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}

func TestHandleCollectionDelete(t *testing.T) {
	t.Parallel()

	fc := &fakeCollections{}
	s := newTestServer()
	s.collections = fc

	req := httptest.NewRequest(http.MethodDelete, "/api/collections/report_openai_20240101120000", nil)
	req.SetPathValue("name", "report_openai_20240101120000")
	w := httptest.NewRecorder()

	s.handleCollectionDelete(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if len(fc.deleted) != 1 || fc.deleted[0] != "report_openai_20240101120000" {
		t.Errorf("expected delete of named collection, got: %v", fc.deleted)
	}
}

func TestHandleCollectionDescribe(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	s.collections = &fakeCollections{
		info: &vectorstore.CollectionInfo{
			Name:            "report_openai_20240101120000",
			NumEntities:     42,
			VectorDimension: 1536,
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/collections/report_openai_20240101120000", nil)
	req.SetPathValue("name", "report_openai_20240101120000")
	w := httptest.NewRecorder()

	s.handleCollectionDescribe(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var info vectorstore.CollectionInfo
	if err := json.NewDecoder(w.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.NumEntities != 42 || info.VectorDimension != 1536 {
		t.Errorf("unexpected describe response: %+v", info)
	}
}

func TestHandleCollectionDescribe_NotFound(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	s.collections = &fakeCollections{err: fmt.Errorf("collection missing")}

	req := httptest.NewRequest(http.MethodGet, "/api/collections/missing", nil)
	req.SetPathValue("name", "missing")
	w := httptest.NewRecorder()

	s.handleCollectionDescribe(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
