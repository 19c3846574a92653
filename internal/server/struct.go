package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/finrag/finrag-go/internal/retrieval"
	"github.com/finrag/finrag-go/internal/vectorstore"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives all server metric registrations. If nil, a
	// fresh registry is created; tests inject their own to stay hermetic.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs the GET /metrics endpoint. Must wrap the same
	// registry as MetricsRegistry.
	MetricsGatherer prometheus.Gatherer
}

// explainer is the interface the explanation handlers call.
// *retrieval.Retriever satisfies it; tests inject a fake.
type explainer interface {
	// Search resolves a query to its nearest term candidates.
	Search(ctx context.Context, query string, limit int) []retrieval.Candidate
	// ExplainStream streams a generated explanation, candidates first.
	ExplainStream(ctx context.Context, query string) <-chan retrieval.Event
}

// collections is the interface the collection-management handlers call.
// *indexer.Indexer satisfies it; tests inject a fake.
type collections interface {
	ListCollections(ctx context.Context) ([]string, error)
	DeleteCollection(ctx context.Context, name string) error
	DescribeCollection(ctx context.Context, name string) (*vectorstore.CollectionInfo, error)
}

// Server is the HTTP server that exposes retrieval and collection management.
type Server struct {
	// retriever answers search and explanation requests.
	retriever explainer
	// collections manages vector-store collections.
	collections collections
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments registered by this instance.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// explainRequest is the JSON body for POST /api/explain.
type explainRequest struct {
	// Query is the financial term or phrase to explain.
	Query string `json:"query"`
}

// searchRequest is the JSON body for POST /api/search.
type searchRequest struct {
	// Query is the text to embed and match against the term collection.
	Query string `json:"query"`
	// Limit caps the number of candidates returned. Defaults to 5.
	Limit int `json:"limit"`
}

// searchResponse is the JSON response for POST /api/search.
type searchResponse struct {
	// Query echoes the request query.
	Query string `json:"query"`
	// Candidates is the ranked candidate list, empty (not null) when no
	// related terms were found.
	Candidates []retrieval.Candidate `json:"candidates"`
}

// collectionsResponse is the JSON response for GET /api/collections.
type collectionsResponse struct {
	// Collections is the list of collection names in the configured store.
	Collections []string `json:"collections"`
}
