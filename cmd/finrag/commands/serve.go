package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/finrag/finrag-go/internal/logging"
	"github.com/finrag/finrag-go/internal/retrieval"
	"github.com/finrag/finrag-go/internal/server"
)

// NewServeCmd constructs the `finrag serve` command, which starts the HTTP
// API for retrieval, explanation, and collection management.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the finrag HTTP API server",
		Long: `Start the finrag HTTP server on localhost.

Endpoints:
  POST /api/explain          streaming term explanation
  POST /api/search           term similarity search
  GET  /api/collections      list collections
  GET  /api/collections/{n}  describe a collection
  DELETE /api/collections/{n} delete a collection
  GET  /api/health           liveness
  GET  /api/ready            readiness (store and embedder probes)
  GET  /metrics              Prometheus metrics

Set FINRAG_API_KEY to require Bearer authentication on /api/* routes.

Examples:
  finrag serve
  finrag serve --port 9090
  FINRAG_API_KEY=secret finrag serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			emb, err := newEmbedder(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			storeCfg, err := newStoreConfig()
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			chat, err := newLLM()
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			log.Info("backends initialised",
				slog.String("store", string(storeCfg.Provider)),
				slog.String("embedder", emb.Provider()),
				slog.String("llm", chat.Model()),
			)

			retriever := retrieval.New(storeCfg, emb, chat)

			idx, closeCat, err := newIndexer(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer closeCat()

			pingers := []server.Pinger{
				server.NewStorePinger(storeCfg),
				server.NewEmbedderPinger(emb),
			}

			if host == "" {
				host = os.Getenv("SERVER_HOST")
			}
			if port == 0 {
				if p, perr := strconv.Atoi(os.Getenv("SERVER_PORT")); perr == nil {
					port = p
				}
			}

			srv, err := server.New(retriever, idx, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("FINRAG_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Host address to bind to (default: 127.0.0.1)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "TCP port to listen on (default: 8080)")

	return cmd
}
