// Package embedder converts text into dense vector embeddings. Each
// implementation talks to a different backend (OpenAI, Azure OpenAI, Ollama)
// via plain HTTP — no additional SDK dependencies are required.
package embedder

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Embedder converts batches of text into embedding vectors. Implementations
// are safe for concurrent use.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Provider is the backend name ("openai", "azure", "ollama"). It is
	// recorded in chunk metadata and in derived collection names.
	Provider() string

	// Model is the embedding model name.
	Model() string

	// Dimensions is the expected output vector length (0 = model default).
	Dimensions() int
}

// retryableError marks a transient failure (rate limit, server error) that
// should be retried with backoff.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// retryableStatus reports whether an HTTP status is worth retrying.
func retryableStatus(code int) bool {
	return code == 429 || code >= 500
}

// embedWithRetry runs op with exponential backoff. Only errors wrapped in
// retryableError are retried; everything else fails immediately.
func embedWithRetry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxElapsedTime = 2 * time.Minute

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		var re *retryableError
		if errors.As(err, &re) {
			return re.err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(b, ctx))
}
