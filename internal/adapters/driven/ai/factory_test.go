package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivist-labs/ragcore/internal/core/domain"
)

func TestFactory_CreateEmbeddingService_Unconfigured(t *testing.T) {
	f := NewFactory()

	svc, err := f.CreateEmbeddingService(nil)
	require.NoError(t, err)
	assert.Nil(t, svc)

	svc, err = f.CreateEmbeddingService(&domain.EmbeddingSettings{})
	require.NoError(t, err)
	assert.Nil(t, svc)

	// OpenAI without an API key counts as unconfigured.
	svc, err = f.CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOpenAI,
		Model:    "text-embedding-3-small",
	})
	require.NoError(t, err)
	assert.Nil(t, svc)
}

func TestFactory_CreateEmbeddingService_OpenAI(t *testing.T) {
	f := NewFactory()

	svc, err := f.CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOpenAI,
		Model:    "text-embedding-3-large",
		APIKey:   "sk-test",
	})
	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.Equal(t, "text-embedding-3-large", svc.Model())
	assert.Equal(t, 3072, svc.Dimensions())
}

func TestFactory_CreateEmbeddingService_Ollama(t *testing.T) {
	f := NewFactory()

	// Ollama is self-hosted and needs no API key.
	svc, err := f.CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		Model:    "nomic-embed-text",
	})
	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.Equal(t, "nomic-embed-text", svc.Model())
	assert.Equal(t, 768, svc.Dimensions())
}

func TestFactory_CreateEmbeddingService_UnknownProvider(t *testing.T) {
	f := NewFactory()

	_, err := f.CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider: "mystery",
		APIKey:   "k",
	})
	require.ErrorIs(t, err, domain.ErrInvalidProvider)
}

func TestFactory_CreateChatService_Unconfigured(t *testing.T) {
	f := NewFactory()

	svc, err := f.CreateChatService(nil)
	require.NoError(t, err)
	assert.Nil(t, svc)

	svc, err = f.CreateChatService(&domain.ChatSettings{})
	require.NoError(t, err)
	assert.Nil(t, svc)
}

func TestFactory_CreateChatService_OpenAI(t *testing.T) {
	f := NewFactory()

	svc, err := f.CreateChatService(&domain.ChatSettings{
		Provider: domain.AIProviderOpenAI,
		Model:    "gpt-4o",
		APIKey:   "sk-test",
	})
	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.Equal(t, "gpt-4o", svc.Model())
}

func TestFactory_CreateChatService_Ollama(t *testing.T) {
	f := NewFactory()

	svc, err := f.CreateChatService(&domain.ChatSettings{
		Provider: domain.AIProviderOllama,
		Model:    "llama3.1",
	})
	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.Equal(t, "llama3.1", svc.Model())
}

func TestFactory_CreateChatService_UnknownProvider(t *testing.T) {
	f := NewFactory()

	_, err := f.CreateChatService(&domain.ChatSettings{
		Provider: "mystery",
		APIKey:   "k",
	})
	require.ErrorIs(t, err, domain.ErrInvalidProvider)
}
