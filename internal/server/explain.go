package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/finrag/finrag-go/internal/logging"
	"github.com/finrag/finrag-go/internal/retrieval"
)

// handleExplain handles POST /api/explain. It streams the explanation over
// chunked HTTP: one "DATA: {\"candidates\": [...]}" line first, then the raw
// generated text fragments as they arrive, and an "ERROR: <message>" line if
// generation fails mid-stream. Partial text written before an error stands.
func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req explainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	s.metrics.explainActiveStreams.Inc()
	defer s.metrics.explainActiveStreams.Dec()
	start := time.Now()
	outcome := "ok"

	for ev := range s.retriever.ExplainStream(r.Context(), req.Query) {
		switch ev.Type {
		case retrieval.EventCandidates:
			payload, err := json.Marshal(struct {
				Candidates []retrieval.Candidate `json:"candidates"`
			}{Candidates: ev.Candidates})
			if err != nil {
				log.Error("explain: candidates encode error", slog.Any("error", err))
				outcome = "error"
				fmt.Fprintf(w, "ERROR: %s", err.Error())
				flusher.Flush()
				s.finishExplain(outcome, start)
				return
			}
			fmt.Fprintf(w, "DATA: %s\n\n", payload)
		case retrieval.EventFragment:
			fmt.Fprint(w, ev.Fragment)
		case retrieval.EventError:
			log.Warn("explain: stream error",
				slog.String("query", req.Query),
				slog.String("error", ev.Message),
			)
			outcome = "error"
			fmt.Fprintf(w, "ERROR: %s", ev.Message)
		}
		flusher.Flush()
	}

	s.finishExplain(outcome, start)
}

// finishExplain records the outcome metrics for one explain request.
func (s *Server) finishExplain(outcome string, start time.Time) {
	s.metrics.explainRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.explainDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
