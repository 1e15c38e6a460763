package pgvector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreValidation(t *testing.T) {
	t.Run("requires URL", func(t *testing.T) {
		_, err := NewStore(Config{VectorSize: 768})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "URL")
	})

	t.Run("requires positive vector size", func(t *testing.T) {
		_, err := NewStore(Config{URL: "postgres://localhost/rag?sslmode=disable"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "vector size")
	})

	t.Run("defaults table name", func(t *testing.T) {
		store, err := NewStore(Config{
			URL:        "postgres://localhost/rag?sslmode=disable",
			VectorSize: 768,
		})
		require.NoError(t, err)
		defer store.Close()

		assert.Equal(t, "chunks", store.table)
	})
}
