package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// MockDimension is the default mock vector width
const MockDimension = 384

// MockProvider generates deterministic unit vectors from a text hash.
// It backs tests and offline smoke runs; the vectors have no semantic
// meaning.
type MockProvider struct {
	dimension int
}

// NewMockProvider creates a mock provider with the given vector width
func NewMockProvider(dimension int) *MockProvider {
	if dimension <= 0 {
		dimension = MockDimension
	}
	return &MockProvider{dimension: dimension}
}

// EmbeddingID returns the mock fingerprint
func (m *MockProvider) EmbeddingID() string {
	return fmt.Sprintf("%s:%d", ProviderMock, m.dimension)
}

// Dimensions returns the configured vector width
func (m *MockProvider) Dimensions() int { return m.dimension }

// MaxChunkSize returns an effectively unbounded ceiling
func (m *MockProvider) MaxChunkSize() int { return MaxInputChars }

// Embed generates one deterministic unit vector per text
func (m *MockProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = m.vectorFor(text)
	}
	return out, nil
}

func (m *MockProvider) vectorFor(text string) []float32 {
	hash := sha256.Sum256([]byte(text))
	vec := make([]float32, m.dimension)
	for i := range vec {
		idx := (i * 4) % (len(hash) - 3)
		val := binary.BigEndian.Uint32(hash[idx : idx+4])
		vec[i] = (float32(val)/float32(1<<32))*2 - 1
	}
	return NormalizeVector(vec)
}

// Test reports the configured dimension
func (m *MockProvider) Test(ctx context.Context) TestResult {
	return runTest(ctx, m)
}

// Close is a no-op
func (m *MockProvider) Close() error { return nil }
