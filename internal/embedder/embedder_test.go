package embedder

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeHash(t *testing.T) {
	assert.Equal(t,
		"b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		ComputeHash("hello world"))
	assert.Equal(t, ComputeHash("test"), ComputeHash("test"))
	assert.NotEqual(t, ComputeHash("a"), ComputeHash("b"))
}

func TestCache_CopySemantics(t *testing.T) {
	cache := NewCache(10)

	vec := []float32{1, 2, 3}
	cache.Set("k", vec)
	vec[0] = 99 // caller mutation after Set must not reach the cache

	got, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, got)

	got[1] = 99 // mutation of a Get result must not pollute the cache
	again, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, again)

	_, ok = cache.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, 1, cache.Size())
	cache.Clear()
	assert.Equal(t, 0, cache.Size())
}

func TestCache_LRUEviction(t *testing.T) {
	cache := NewCache(2)
	cache.Set("a", []float32{1})
	cache.Set("b", []float32{2})
	cache.Set("c", []float32{3})

	_, ok := cache.Get("a")
	assert.False(t, ok, "oldest entry should be evicted")
	_, ok = cache.Get("c")
	assert.True(t, ok)
}

func TestNormalizeVector(t *testing.T) {
	got := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, got[0], 1e-6)
	assert.InDelta(t, 0.8, got[1], 1e-6)

	var norm float64
	for _, v := range got {
		norm += float64(v * v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)

	// Zero vector passes through unchanged
	zero := []float32{0, 0}
	assert.Equal(t, zero, NormalizeVector(zero))
}

func TestMockProvider(t *testing.T) {
	ctx := context.Background()
	mock := NewMockProvider(8)

	assert.Equal(t, 8, mock.Dimensions())
	assert.Equal(t, "mock:8", mock.EmbeddingID())

	vectors, err := mock.Embed(ctx, []string{"alpha", "beta", "alpha"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, vectors[0], vectors[2], "same text yields same vector")
	assert.NotEqual(t, vectors[0], vectors[1])

	var norm float64
	for _, v := range vectors[0] {
		norm += float64(v * v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)

	empty, err := mock.Embed(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	result := mock.Test(ctx)
	assert.True(t, result.Success)
	assert.Equal(t, 8, result.Dimensions)

	assert.NoError(t, mock.Close())
}
