package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivist-labs/ragcore/internal/core/domain"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "chroma", cfg.Vector.Backend)
	assert.Equal(t, 1536, cfg.Vector.Dimensions)
	assert.Equal(t, 1000, cfg.Processor.ChunkSize)
	assert.Equal(t, 200, cfg.Processor.ChunkOverlap)
	assert.Equal(t, 4, cfg.Retrieval.TopK)
	assert.Equal(t, 2, cfg.Worker.Concurrency)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 9090
vector:
  backend: qdrant
  dimensions: 768
  qdrant:
    addr: qdrant:6334
    collection: docs
ai:
  embedding:
    provider: ollama
    model: nomic-embed-text
    base_url: http://localhost:11434
  chat:
    provider: ollama
    model: llama3
    max_tokens: 512
    temperature: 0.2
retrieval:
  top_k: 8
  threshold: 0.35
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "qdrant", cfg.Vector.Backend)
	assert.Equal(t, 768, cfg.Vector.Dimensions)
	require.NotNil(t, cfg.Vector.Qdrant)
	assert.Equal(t, "qdrant:6334", cfg.Vector.Qdrant.Addr)
	assert.Equal(t, "docs", cfg.Vector.Qdrant.Collection)
	assert.Equal(t, 8, cfg.Retrieval.TopK)
	assert.InDelta(t, 0.35, cfg.Retrieval.Threshold, 1e-9)

	// Unset sections keep their defaults
	assert.Equal(t, 1000, cfg.Processor.ChunkSize)
	assert.Equal(t, 2, cfg.Worker.Concurrency)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("VECTOR_BACKEND", "pgvector")
	t.Setenv("PGVECTOR_URL", "postgres://localhost/vectors")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("WORKER_CONCURRENCY", "8")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "pgvector", cfg.Vector.Backend)
	require.NotNil(t, cfg.Vector.Pgvector)
	assert.Equal(t, "postgres://localhost/vectors", cfg.Vector.Pgvector.URL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 8, cfg.Worker.Concurrency)
}

func TestEnvOverrideIgnoresInvalidInt(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestAISettingsConversion(t *testing.T) {
	t.Setenv("TEST_AI_KEY", "sk-test-123")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	cfg.AI.Embedding.Provider = "openai"
	cfg.AI.Embedding.Model = "text-embedding-3-small"
	cfg.AI.Embedding.APIKeyEnv = "TEST_AI_KEY"
	cfg.AI.Chat.Provider = "ollama"
	cfg.AI.Chat.Model = "llama3"
	cfg.AI.Chat.MaxTokens = 256

	embed := cfg.EmbeddingSettings()
	assert.Equal(t, domain.AIProviderOpenAI, embed.Provider)
	assert.Equal(t, "text-embedding-3-small", embed.Model)
	assert.Equal(t, "sk-test-123", embed.APIKey)

	chat := cfg.ChatSettings()
	assert.Equal(t, domain.AIProviderOllama, chat.Provider)
	assert.Equal(t, 256, chat.MaxTokens)
}
