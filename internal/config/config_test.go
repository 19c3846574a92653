package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/finrag/finrag-go/internal/vectorstore"
)

func TestLoad_NoFile(t *testing.T) {
	t.Parallel()

	log := slog.Default()
	path, err := Load("/nonexistent/path/config.yaml", log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
embedding:
  provider: ollama
  model: nomic-embed-text
llm:
  base_url: https://api.deepseek.com
  model: deepseek-chat
  temperature: 0.3
  max_tokens: 8192
vector_store:
  provider: milvus
  milvus:
    address: milvus.internal:19530
  qdrant:
    host: qdrant.internal
    port: 6334
logging:
  level: debug
  format: text
`)

	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Clear env vars that the YAML should set.
	envKeys := []string{
		"EMBEDDING_PROVIDER", "EMBEDDING_MODEL",
		"LLM_BASE_URL", "LLM_MODEL", "LLM_TEMPERATURE", "LLM_MAX_TOKENS",
		"VECTOR_STORE_PROVIDER", "MILVUS_ADDRESS",
		"QDRANT_HOST", "QDRANT_PORT",
		"LOG_LEVEL", "LOG_FORMAT",
	}
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	log := slog.Default()
	loaded, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}

	checks := map[string]string{
		"EMBEDDING_PROVIDER":    "ollama",
		"EMBEDDING_MODEL":       "nomic-embed-text",
		"LLM_BASE_URL":          "https://api.deepseek.com",
		"LLM_MODEL":             "deepseek-chat",
		"LLM_TEMPERATURE":       "0.3",
		"LLM_MAX_TOKENS":        "8192",
		"VECTOR_STORE_PROVIDER": "milvus",
		"MILVUS_ADDRESS":        "milvus.internal:19530",
		"QDRANT_HOST":           "qdrant.internal",
		"QDRANT_PORT":           "6334",
		"LOG_LEVEL":             "debug",
		"LOG_FORMAT":            "text",
	}
	for k, want := range checks {
		got := os.Getenv(k)
		if got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
embedding:
  provider: ollama
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Set env var BEFORE loading — it should NOT be overwritten.
	t.Setenv("EMBEDDING_PROVIDER", "azure")

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := os.Getenv("EMBEDDING_PROVIDER"); got != "azure" {
		t.Errorf("EMBEDDING_PROVIDER: expected env override %q, got %q", "azure", got)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestStoreFromEnv_DefaultProvider(t *testing.T) {
	t.Setenv("VECTOR_STORE_PROVIDER", "")
	os.Unsetenv("VECTOR_STORE_PROVIDER")

	cfg, err := StoreFromEnv()
	if err != nil {
		t.Fatalf("StoreFromEnv: %v", err)
	}
	if cfg.Provider != vectorstore.Milvus {
		t.Errorf("provider: want milvus, got %q", cfg.Provider)
	}
}

func TestStoreFromEnv_UnknownProvider(t *testing.T) {
	t.Setenv("VECTOR_STORE_PROVIDER", "faiss")

	if _, err := StoreFromEnv(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestFloatStr(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   float64
		want string
	}{
		{0.0, ""},
		{0.2, "0.2"},
		{0.3, "0.3"},
		{1.0, "1"},
	}
	for _, tt := range tests {
		if got := floatStr(tt.in); got != tt.want {
			t.Errorf("floatStr(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
