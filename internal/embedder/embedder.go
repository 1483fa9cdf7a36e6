package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Common errors
var (
	ErrProviderFailed      = errors.New("embedding provider failed")
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrModelLoad           = errors.New("model load failed")
	ErrNoProviderEnabled   = errors.New("no embedding provider configured")
)

// Provider turns text chunks into fixed-dimension vectors. Implementations
// form a closed set (openai, local, mock) selected by explicit
// configuration, never by runtime type inspection.
type Provider interface {
	// EmbeddingID returns a stable model+config fingerprint. The vector
	// store compares it across sessions to detect model changes that
	// require full re-embedding.
	EmbeddingID() string

	// Dimensions returns the output vector width, or 0 if it has not
	// been discovered yet.
	Dimensions() int

	// MaxChunkSize returns the provider's input ceiling in characters.
	MaxChunkSize() int

	// Embed returns one vector per input text, in input order.
	// Empty input yields an empty result.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Test embeds a sentinel string to validate the configuration
	Test(ctx context.Context) TestResult

	// Close releases any resources held by the provider
	Close() error
}

// TestResult reports the outcome of a provider self-test to
// configuration UIs
type TestResult struct {
	Success    bool   `json:"success"`
	Dimensions int    `json:"dimensions,omitempty"`
	Error      string `json:"error,omitempty"`
}

// testSentinel is the text embedded by Test
const testSentinel = "embedding provider connectivity check"

// runTest implements Test on top of a provider's Embed
func runTest(ctx context.Context, p Provider) TestResult {
	vectors, err := p.Embed(ctx, []string{testSentinel})
	if err != nil {
		return TestResult{Error: err.Error()}
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return TestResult{Error: "provider returned no embedding"}
	}
	return TestResult{Success: true, Dimensions: len(vectors[0])}
}

// Cache provides in-memory LRU caching of vectors by content hash.
// Only genuine provider output is cached; zero-vector fallbacks are not.
type Cache struct {
	cache *lru.Cache[string, []float32]
}

// NewCache creates a vector cache with LRU eviction
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 10000
	}
	cache, err := lru.New[string, []float32](maxLen)
	if err != nil {
		// Should never happen with positive size, but fallback to default
		cache, _ = lru.New[string, []float32](10000)
	}
	return &Cache{cache: cache}
}

// Get retrieves a copy of a cached vector.
// Returns a copy so caller mutations never pollute the cache.
func (c *Cache) Get(hash string) ([]float32, bool) {
	vec, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, true
}

// Set stores a vector with automatic LRU eviction
func (c *Cache) Set(hash string, vec []float32) {
	stored := make([]float32, len(vec))
	copy(stored, vec)
	c.cache.Add(hash, stored)
}

// Size returns the current cache size
func (c *Cache) Size() int {
	return c.cache.Len()
}

// Clear empties the cache
func (c *Cache) Clear() {
	c.cache.Purge()
}

// ComputeHash computes the SHA-256 content hash used as the cache key
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// NormalizeVector normalizes a vector to unit length (for cosine similarity)
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}
