package embedder

import (
	"log/slog"
	"strings"

	"github.com/finrag/finrag-go/internal/fault"
)

// Default embedding models per backend.
const (
	defaultOllamaModel = "nomic-embed-text"
	defaultOpenAIModel = "text-embedding-3-small"

	// defaultOllamaDimensions is the output dimension of nomic-embed-text.
	// Other Ollama models may differ — override with Dimensions.
	defaultOllamaDimensions = 768
	// defaultOpenAIDimensions is the output dimension of text-embedding-3-small.
	defaultOpenAIDimensions = 1536
)

// DefaultDimensions returns the default embedding vector size for the given
// backend name. Callers that pre-create a vector store collection should use
// this rather than hardcoding a value.
func DefaultDimensions(provider string) int {
	switch provider {
	case "ollama":
		return defaultOllamaDimensions
	default:
		return defaultOpenAIDimensions
	}
}

// Config holds resolved embedding settings, independent of where they came
// from (config file or environment).
type Config struct {
	// Provider selects the backend: "openai", "azure", or "ollama".
	Provider string
	// Model is the embedding model name (empty = backend default).
	Model string
	// APIKey authenticates to OpenAI or Azure OpenAI.
	APIKey string
	// Endpoint overrides the backend base URL.
	Endpoint string
	// APIVersion is the Azure OpenAI API version (ignored elsewhere).
	APIVersion string
	// Dimensions is the desired vector length (0 = backend default).
	Dimensions int
}

// New constructs an Embedder for the configured backend. Missing required
// credentials fail here, before any network call is made.
func New(cfg *Config) (Embedder, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = "ollama"
	}

	switch provider {
	case "ollama":
		host := cfg.Endpoint
		if host == "" {
			host = "http://localhost:11434"
		}
		model := cfg.Model
		if model == "" {
			model = defaultOllamaModel
		}
		dims := cfg.Dimensions
		if dims == 0 {
			dims = defaultOllamaDimensions
		}
		return NewOllamaEmbedder(&OllamaConfig{Host: host, Model: model, Dimensions: dims}), nil

	case "openai":
		if cfg.APIKey == "" {
			return nil, fault.New(fault.Validation, "embedder: openai requires an API key")
		}
		baseURL := cfg.Endpoint
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		model := cfg.Model
		if model == "" {
			model = defaultOpenAIModel
		}
		dims := cfg.Dimensions
		if dims == 0 {
			dims = defaultOpenAIDimensions
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    baseURL,
			APIKey:     cfg.APIKey,
			Model:      model,
			Dimensions: dims,
		}), nil

	case "azure":
		if cfg.APIKey == "" {
			return nil, fault.New(fault.Validation, "embedder: azure requires an API key")
		}
		if cfg.Endpoint == "" {
			return nil, fault.New(fault.Validation, "embedder: azure requires an endpoint")
		}
		apiVersion := cfg.APIVersion
		if apiVersion == "" {
			apiVersion = "2025-04-01-preview"
		}
		model := cfg.Model
		if model == "" {
			model = defaultOpenAIModel
		}
		dims := cfg.Dimensions
		if dims == 0 {
			dims = defaultOpenAIDimensions
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    cfg.Endpoint + "/openai",
			APIKey:     cfg.APIKey,
			Model:      model,
			Dimensions: dims,
			Azure:      true,
			APIVersion: apiVersion,
		}), nil

	default:
		return nil, fault.New(fault.UnsupportedMethod, "unsupported embedding provider: %q", provider)
	}
}

// knownChatModelPrefixes contains name fragments that identify chat models
// which are not suitable for embedding.
var knownChatModelPrefixes = []string{
	"gpt-4",
	"gpt-3.5",
	"o1",
	"o3",
	"llama",
	"mistral",
	"mixtral",
	"gemma",
	"phi-",
	"claude",
	"deepseek",
	"qwen",
}

// WarnIfChatModel logs a warning when the model name resembles a chat model
// rather than a dedicated embedding model, which would produce poor or
// broken embeddings.
func WarnIfChatModel(log *slog.Logger, model string) {
	if model == "" {
		return
	}
	lower := strings.ToLower(model)
	for _, prefix := range knownChatModelPrefixes {
		if strings.Contains(lower, prefix) {
			log.Warn("embedding model looks like a chat model",
				slog.String("model", model),
				slog.String("hint", "use a dedicated embedding model e.g. nomic-embed-text, text-embedding-3-small"),
			)
			return
		}
	}
}
