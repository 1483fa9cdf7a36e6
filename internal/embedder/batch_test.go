package embedder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceText(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
		want   []string
	}{
		{
			name:   "under ceiling stays whole",
			text:   "hello",
			maxLen: 10,
			want:   []string{"hello"},
		},
		{
			name:   "exact ceiling stays whole",
			text:   "abcde",
			maxLen: 5,
			want:   []string{"abcde"},
		},
		{
			name:   "oversized splits into consecutive slices",
			text:   "abcdefghij",
			maxLen: 4,
			want:   []string{"abcd", "efgh", "ij"},
		},
		{
			name:   "empty text",
			text:   "",
			maxLen: 4,
			want:   []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sliceText(tt.text, tt.maxLen)
			assert.Equal(t, tt.want, got)
			// Slices always reassemble to the original text
			assert.Equal(t, tt.text, strings.Join(got, ""))
		})
	}
}

func TestPackBatches(t *testing.T) {
	tests := []struct {
		name   string
		slices []string
		budget int
		want   []batchRange
	}{
		{
			name:   "empty input",
			slices: nil,
			budget: 10,
			want:   nil,
		},
		{
			name:   "all fit in one batch",
			slices: []string{"aaa", "bbb", "ccc"},
			budget: 10,
			want:   []batchRange{{0, 3}},
		},
		{
			name:   "greedy fill splits at budget",
			slices: []string{"aaaa", "bbbb", "cccc"},
			budget: 8,
			want:   []batchRange{{0, 2}, {2, 3}},
		},
		{
			name:   "single oversized slice still gets a batch",
			slices: []string{strings.Repeat("x", 100)},
			budget: 8,
			want:   []batchRange{{0, 1}},
		},
		{
			name:   "oversized slice shares no batch",
			slices: []string{"aa", strings.Repeat("x", 100), "bb"},
			budget: 8,
			want:   []batchRange{{0, 1}, {1, 2}, {2, 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, packBatches(tt.slices, tt.budget))
		})
	}
}

func TestPackBatches_CoversAllSlices(t *testing.T) {
	slices := []string{"aaaa", "bb", "cccccc", "d", "eeee", "ff"}
	batches := packBatches(slices, 7)
	require.NotEmpty(t, batches)

	// Batches are consecutive, non-overlapping, and exhaustive
	assert.Equal(t, 0, batches[0].Start)
	for i := 1; i < len(batches); i++ {
		assert.Equal(t, batches[i-1].End, batches[i].Start)
	}
	assert.Equal(t, len(slices), batches[len(batches)-1].End)
}

func TestMeanVectors(t *testing.T) {
	assert.Nil(t, meanVectors(nil))

	single := []float32{1, 2, 3}
	assert.Equal(t, single, meanVectors([][]float32{single}))

	got := meanVectors([][]float32{
		{1, 2, 3},
		{3, 6, 9},
	})
	assert.Equal(t, []float32{2, 4, 6}, got)
}

func TestZeroVector(t *testing.T) {
	assert.Equal(t, []float32{}, zeroVector(0))
	assert.Equal(t, []float32{0, 0, 0}, zeroVector(3))
}
