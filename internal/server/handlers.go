package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/finrag/finrag-go/internal/logging"
	"github.com/finrag/finrag-go/internal/retrieval"
)

// defaultSearchLimit caps /api/search results when the request omits a limit.
const defaultSearchLimit = 5

// maxSearchLimit bounds the per-request candidate count so a single call
// cannot drag an arbitrarily large scan out of the store.
const maxSearchLimit = 100

// handleSearch handles POST /api/search. It returns the ranked candidate
// terms for a query. An empty candidate list is a valid 200 response.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}
	if req.Limit <= 0 {
		req.Limit = defaultSearchLimit
	}
	if req.Limit > maxSearchLimit {
		req.Limit = maxSearchLimit
	}

	candidates := s.retriever.Search(r.Context(), req.Query, req.Limit)
	if candidates == nil {
		candidates = []retrieval.Candidate{}
	}

	writeJSON(w, http.StatusOK, searchResponse{Query: req.Query, Candidates: candidates})
}

// handleCollectionsList handles GET /api/collections.
func (s *Server) handleCollectionsList(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	names, err := s.collections.ListCollections(r.Context())
	if err != nil {
		log.Error("collections: list failed", slog.Any("error", err))
		http.Error(w, "failed to list collections", http.StatusBadGateway)
		return
	}
	if names == nil {
		names = []string{}
	}

	writeJSON(w, http.StatusOK, collectionsResponse{Collections: names})
}

// handleCollectionDescribe handles GET /api/collections/{name}.
func (s *Server) handleCollectionDescribe(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	name := r.PathValue("name")
	info, err := s.collections.DescribeCollection(r.Context(), name)
	if err != nil {
		log.Warn("collections: describe failed",
			slog.String("collection", name),
			slog.Any("error", err),
		)
		http.Error(w, "collection not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// handleCollectionDelete handles DELETE /api/collections/{name}.
func (s *Server) handleCollectionDelete(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	name := r.PathValue("name")
	if err := s.collections.DeleteCollection(r.Context(), name); err != nil {
		log.Error("collections: delete failed",
			slog.String("collection", name),
			slog.Any("error", err),
		)
		http.Error(w, "failed to delete collection", http.StatusBadGateway)
		return
	}

	log.Info("collection deleted", slog.String("collection", name))
	w.WriteHeader(http.StatusNoContent)
}

// writeJSON encodes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
