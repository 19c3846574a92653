package server

import (
	"context"
	"fmt"

	"github.com/finrag/finrag-go/internal/embedder"
	"github.com/finrag/finrag-go/internal/vectorstore"
)

// StorePinger probes the configured vector store by opening a connection and
// listing collections. It satisfies the Pinger interface and is used by
// GET /api/ready.
type StorePinger struct {
	// cfg selects the provider to probe.
	cfg *vectorstore.Config
}

// NewStorePinger constructs a StorePinger for the given store config.
func NewStorePinger(cfg *vectorstore.Config) *StorePinger {
	return &StorePinger{cfg: cfg}
}

// Name returns the provider label used in readiness responses.
func (p *StorePinger) Name() string { return string(p.cfg.Provider) }

// Ping opens a store handle, lists collections, and closes the handle.
// Returns nil if the store is reachable, or a descriptive error otherwise.
func (p *StorePinger) Ping(ctx context.Context) error {
	store, err := vectorstore.Open(ctx, p.cfg)
	if err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}
	defer store.Close()

	if _, err := store.ListCollections(ctx); err != nil {
		return fmt.Errorf("list collections failed: %w", err)
	}
	return nil
}

// EmbedderPinger probes an embedding backend by embedding a single short
// string. The call is cheap but not free; /api/ready should not be polled
// at high frequency against paid providers.
type EmbedderPinger struct {
	// embed is the embedder to probe.
	embed embedder.Embedder
}

// NewEmbedderPinger constructs an EmbedderPinger for the given embedder.
func NewEmbedderPinger(embed embedder.Embedder) *EmbedderPinger {
	return &EmbedderPinger{embed: embed}
}

// Name returns the embedding provider label used in readiness responses.
func (p *EmbedderPinger) Name() string { return p.embed.Provider() }

// Ping embeds a one-word probe string.
func (p *EmbedderPinger) Ping(ctx context.Context) error {
	if _, err := p.embed.Embed(ctx, []string{"ping"}); err != nil {
		return fmt.Errorf("embed probe failed: %w", err)
	}
	return nil
}

// completionPinger probes the generative backend with a one-token request.
type completionPinger struct {
	chat interface {
		Complete(ctx context.Context, system, user string) (string, error)
	}
	name string
}

// NewCompletionPinger constructs a Pinger that issues a minimal completion
// against the chat backend. Each probe consumes a token, so the same caveat
// as EmbedderPinger applies.
func NewCompletionPinger(chat interface {
	Complete(ctx context.Context, system, user string) (string, error)
}, name string) Pinger {
	return &completionPinger{chat: chat, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *completionPinger) Name() string { return p.name }

// Ping issues a minimal completion request.
func (p *completionPinger) Ping(ctx context.Context) error {
	if _, err := p.chat.Complete(ctx, "", "ping"); err != nil {
		return fmt.Errorf("completion probe failed: %w", err)
	}
	return nil
}
