package merkle

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/vectree/pkg/types"
)

func buildSampleTree(t *testing.T) *Tree {
	t.Helper()
	tree := New("/w", nil)
	files := []struct {
		path  string
		mtime int64
		size  int64
	}{
		{"a/b.txt", 1, 10},
		{"a/c.txt", 1, 20},
		{"a/sub/deep.txt", 7, 3},
		{"top.txt", 2, 99},
	}
	for _, f := range files {
		_, err := tree.UpsertFile(f.path, f.mtime, f.size)
		require.NoError(t, err)
	}
	return tree
}

func TestSerializeRoundTrip(t *testing.T) {
	tree := buildSampleTree(t)

	blob, err := tree.Serialize()
	require.NoError(t, err)

	restored := New("/w", nil)
	require.NoError(t, restored.Deserialize(blob))

	assert.Equal(t, tree.RootHash(), restored.RootHash())
	assert.Equal(t, tree.GetAllFilePaths(), restored.GetAllFilePaths())

	// Restored nodes carry the persisted metadata and keep mutating correctly
	file, ok := restored.GetNode("a/sub/deep.txt").(*FileNode)
	require.True(t, ok)
	assert.Equal(t, int64(7), file.MTime())
	assert.Equal(t, int64(3), file.Size())

	change, err := restored.UpsertFile("a/sub/deep.txt", 8, 3)
	require.NoError(t, err)
	require.NotNil(t, change)
	assert.Equal(t, types.ChangeModify, change.Type)
	assert.NotEqual(t, tree.RootHash(), restored.RootHash())
}

func TestSerialize_DeterministicChildOrder(t *testing.T) {
	tree := buildSampleTree(t)
	first, err := tree.Serialize()
	require.NoError(t, err)

	var blob nodeJSON
	require.NoError(t, json.Unmarshal(first, &blob))
	require.Len(t, blob.Children, 2)
	assert.Equal(t, "a", blob.Children[0].Name)
	assert.Equal(t, "top.txt", blob.Children[1].Name)

	second, err := tree.Serialize()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDeserialize_CorruptDataLeavesTreeUntouched(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"t":"d","n":`},
		{"root is a file", `{"t":"f","n":"","p":"","h":"0123456789abcdef","m":1,"s":2}`},
		{"root has a path", `{"t":"d","n":"x","p":"x","h":"0123456789abcdef"}`},
		{"unknown node type", `{"t":"d","n":"","p":"","h":"0123456789abcdef","c":[{"t":"x","n":"a","p":"a","h":"0123456789abcdef"}]}`},
		{"file missing stat", `{"t":"d","n":"","p":"","h":"0123456789abcdef","c":[{"t":"f","n":"a","p":"a","h":"0123456789abcdef"}]}`},
		{"malformed hash", `{"t":"d","n":"","p":"","h":"abc"}`},
		{"nameless child", `{"t":"d","n":"","p":"","h":"0123456789abcdef","c":[{"t":"d","n":"","p":"a","h":"0123456789abcdef"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := buildSampleTree(t)
			before := tree.RootHash()
			beforePaths := tree.GetAllFilePaths()

			err := tree.Deserialize([]byte(tt.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrCorruptSnapshot)

			// Failed load never produces a partially-built tree
			assert.Equal(t, before, tree.RootHash())
			assert.Equal(t, beforePaths, tree.GetAllFilePaths())
		})
	}
}

func TestDeserialize_TrustsPersistedHashes(t *testing.T) {
	// Hashes from the blob are loaded verbatim, never recomputed
	blob := []byte(`{"t":"d","n":"","p":"","h":"00000000000000aa","c":[` +
		`{"t":"f","n":"f.txt","p":"f.txt","h":"00000000000000bb","m":1,"s":2}]}`)

	tree := New("/w", nil)
	require.NoError(t, tree.Deserialize(blob))
	assert.Equal(t, "00000000000000aa", tree.RootHash())
	assert.Equal(t, "00000000000000bb", tree.GetNode("f.txt").Hash())
}
