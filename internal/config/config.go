// Package config provides YAML-based configuration for finrag.
// Configuration is loaded with a layered precedence: defaults → YAML file → env vars.
// Environment variables always win, so existing workflows are unaffected.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. FINRAG_CONFIG environment variable
//  3. ~/.finrag/config.yaml
//  4. ./finrag.yaml
//
// If no file is found the system runs entirely from env vars (backwards compatible).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/finrag/finrag-go/internal/embedder"
	"github.com/finrag/finrag-go/internal/llm"
	"github.com/finrag/finrag-go/internal/vectorstore"
)

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming (lowercase, underscored).
type Config struct {
	// Embedding configures the embedding provider.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// LLM configures the chat-completion backend.
	LLM LLMConfig `yaml:"llm"`

	// VectorStore selects and configures the vector store provider.
	VectorStore VectorStoreConfig `yaml:"vector_store"`

	// Unstructured configures the document partition service used by the
	// high-resolution parsing strategies.
	Unstructured UnstructuredConfig `yaml:"unstructured"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Catalog configures indexing-run history persistence.
	Catalog CatalogConfig `yaml:"catalog"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider selects the backend: openai, azure, ollama.
	Provider string `yaml:"provider"`
	// Model is the embedding model name.
	Model string `yaml:"model"`
	// Dimensions overrides the embedding vector size.
	Dimensions int `yaml:"dimensions"`
	// APIKey is the embedding API key. Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key"`
	// Endpoint is the embedding API endpoint.
	Endpoint string `yaml:"endpoint"`
	// APIVersion is the Azure OpenAI API version (ignored elsewhere).
	APIVersion string `yaml:"api_version"`
}

// LLMConfig holds chat-completion backend settings.
type LLMConfig struct {
	// APIKey authenticates to the backend. Prefer env var LLM_API_KEY.
	APIKey string `yaml:"api_key"`
	// BaseURL overrides the API base (default: DeepSeek).
	BaseURL string `yaml:"base_url"`
	// Model is the chat model name.
	Model string `yaml:"model"`
	// Temperature controls response randomness (0.0–1.0).
	Temperature float64 `yaml:"temperature"`
	// MaxTokens bounds the completion length.
	MaxTokens int `yaml:"max_tokens"`
}

// VectorStoreConfig holds vector store provider selection and per-provider
// connection settings.
type VectorStoreConfig struct {
	// Provider selects the backend: milvus, chroma, qdrant.
	Provider string `yaml:"provider"`
	// Milvus holds Milvus connection settings.
	Milvus MilvusConfig `yaml:"milvus"`
	// Chroma holds Chroma connection settings.
	Chroma ChromaConfig `yaml:"chroma"`
	// Qdrant holds Qdrant connection settings.
	Qdrant QdrantConfig `yaml:"qdrant"`
}

// MilvusConfig holds Milvus connection settings.
type MilvusConfig struct {
	// Address is the Milvus gRPC address.
	Address string `yaml:"address"`
	// Username is the optional Milvus username.
	Username string `yaml:"username"`
	// Password is the Milvus password. Prefer env var MILVUS_PASSWORD.
	Password string `yaml:"password"`
}

// ChromaConfig holds Chroma connection settings.
type ChromaConfig struct {
	// URL is the Chroma server root.
	URL string `yaml:"url"`
}

// QdrantConfig holds Qdrant connection settings.
type QdrantConfig struct {
	// Host is the Qdrant server hostname.
	Host string `yaml:"host"`
	// Port is the Qdrant gRPC port.
	Port int `yaml:"port"`
	// APIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key"`
	// TLS enables TLS for the Qdrant connection.
	TLS bool `yaml:"tls"`
}

// UnstructuredConfig holds the document partition service settings.
type UnstructuredConfig struct {
	// Endpoint is the partition service base URL.
	Endpoint string `yaml:"endpoint"`
	// APIKey is the partition service API key. Prefer env var UNSTRUCTURED_API_KEY.
	APIKey string `yaml:"api_key"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// APIKey is the Bearer token for API authentication. Prefer env var FINRAG_API_KEY.
	APIKey string `yaml:"api_key"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// CatalogConfig holds indexing-run history settings.
type CatalogConfig struct {
	// DBPath is the SQLite database path. Set to "disabled" to disable.
	DBPath string `yaml:"db_path"`
}

// envMapping maps YAML config fields to their corresponding env var names.
// Only non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{"EMBEDDING_API_VERSION", func(c *Config) string { return c.Embedding.APIVersion }},
	{"LLM_API_KEY", func(c *Config) string { return c.LLM.APIKey }},
	{"LLM_BASE_URL", func(c *Config) string { return c.LLM.BaseURL }},
	{"LLM_MODEL", func(c *Config) string { return c.LLM.Model }},
	{"LLM_TEMPERATURE", func(c *Config) string { return floatStr(c.LLM.Temperature) }},
	{"LLM_MAX_TOKENS", func(c *Config) string { return intStr(c.LLM.MaxTokens) }},
	{"VECTOR_STORE_PROVIDER", func(c *Config) string { return c.VectorStore.Provider }},
	{"MILVUS_ADDRESS", func(c *Config) string { return c.VectorStore.Milvus.Address }},
	{"MILVUS_USERNAME", func(c *Config) string { return c.VectorStore.Milvus.Username }},
	{"MILVUS_PASSWORD", func(c *Config) string { return c.VectorStore.Milvus.Password }},
	{"CHROMA_URL", func(c *Config) string { return c.VectorStore.Chroma.URL }},
	{"QDRANT_HOST", func(c *Config) string { return c.VectorStore.Qdrant.Host }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.VectorStore.Qdrant.Port) }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.VectorStore.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.VectorStore.Qdrant.TLS) }},
	{"UNSTRUCTURED_ENDPOINT", func(c *Config) string { return c.Unstructured.Endpoint }},
	{"UNSTRUCTURED_API_KEY", func(c *Config) string { return c.Unstructured.APIKey }},
	{"SERVER_HOST", func(c *Config) string { return c.Server.Host }},
	{"SERVER_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"FINRAG_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
	{"FINRAG_CATALOG_DB", func(c *Config) string { return c.Catalog.DBPath }},
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		yamlVal := m.value(&cfg)
		if yamlVal == "" || yamlVal == "0" || yamlVal == "false" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env var already set — do not override
		}
		os.Setenv(m.envKey, yamlVal)
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("FINRAG_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".finrag", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("finrag.yaml"); err == nil {
		return "finrag.yaml"
	}

	return ""
}

// EmbeddingFromEnv resolves the embedding settings from the environment
// after Load has applied the YAML layer.
func EmbeddingFromEnv() *embedder.Config {
	return &embedder.Config{
		Provider:   os.Getenv("EMBEDDING_PROVIDER"),
		Model:      os.Getenv("EMBEDDING_MODEL"),
		APIKey:     envFirst("EMBEDDING_API_KEY", "OPENAI_API_KEY", "AZURE_OPENAI_API_KEY"),
		Endpoint:   os.Getenv("EMBEDDING_ENDPOINT"),
		APIVersion: os.Getenv("EMBEDDING_API_VERSION"),
		Dimensions: envInt("EMBEDDING_DIMENSIONS"),
	}
}

// LLMFromEnv resolves the chat backend settings from the environment.
func LLMFromEnv() *llm.Config {
	temperature, _ := strconv.ParseFloat(os.Getenv("LLM_TEMPERATURE"), 64)
	return &llm.Config{
		APIKey:      envFirst("LLM_API_KEY", "DEEPSEEK_API_KEY"),
		BaseURL:     os.Getenv("LLM_BASE_URL"),
		Model:       os.Getenv("LLM_MODEL"),
		Temperature: temperature,
		MaxTokens:   envInt("LLM_MAX_TOKENS"),
	}
}

// StoreFromEnv resolves the vector store settings from the environment.
// The provider defaults to milvus when unset.
func StoreFromEnv() (*vectorstore.Config, error) {
	raw := os.Getenv("VECTOR_STORE_PROVIDER")
	if raw == "" {
		raw = string(vectorstore.Milvus)
	}
	provider, err := vectorstore.ParseProvider(raw)
	if err != nil {
		return nil, err
	}

	return &vectorstore.Config{
		Provider: provider,
		Milvus: vectorstore.MilvusConfig{
			Address:  os.Getenv("MILVUS_ADDRESS"),
			Username: os.Getenv("MILVUS_USERNAME"),
			Password: os.Getenv("MILVUS_PASSWORD"),
		},
		Chroma: vectorstore.ChromaConfig{
			BaseURL: os.Getenv("CHROMA_URL"),
		},
		Qdrant: vectorstore.QdrantConfig{
			Host:   os.Getenv("QDRANT_HOST"),
			Port:   envInt("QDRANT_PORT"),
			APIKey: os.Getenv("QDRANT_API_KEY"),
			UseTLS: os.Getenv("QDRANT_TLS") == "true",
		},
	}, nil
}

// envFirst returns the first non-empty value among the named env vars.
func envFirst(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// envInt returns the integer value of the named env var, or 0.
func envInt(key string) int {
	v, _ := strconv.Atoi(os.Getenv(key))
	return v
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

// floatStr converts a float64 to string, returning "" for zero values.
func floatStr(v float64) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}

// boolStr converts a bool to string, returning "" for false.
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}
