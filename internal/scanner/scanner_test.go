package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScan_CollectsStats(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "internal/app/app.go", "package app")
	writeFile(t, root, "docs/readme.md", "# hi")

	result, err := Scan(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	assert.ElementsMatch(t,
		[]string{"main.go", "internal/app/app.go", "docs/readme.md"},
		result.Paths)

	stat, ok := result.Stats["main.go"]
	require.True(t, ok)
	assert.Equal(t, int64(len("package main")), stat.Size)
	assert.Positive(t, stat.MTime)
}

func TestScan_DefaultExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "kept.go", "package kept")
	writeFile(t, root, ".git/objects/aa/blob", "binary")
	writeFile(t, root, "node_modules/pkg/index.js", "js")
	writeFile(t, root, "vendor/dep/dep.go", "package dep")

	result, err := Scan(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"kept.go"}, result.Paths)
}

func TestScan_CustomExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.txt", "keep")
	writeFile(t, root, "skip.log", "log")
	writeFile(t, root, "build/out.bin", "bin")

	result, err := Scan(context.Background(), root, Options{
		Excludes: []string{"**/*.log", "build/**"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.txt"}, result.Paths)
}

func TestScan_MissingRoot(t *testing.T) {
	_, err := Scan(context.Background(), filepath.Join(t.TempDir(), "nope"), Options{})
	assert.Error(t, err)
}

func TestScan_CancelledContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Scan(ctx, root, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLock(t *testing.T) {
	var lock Lock
	assert.True(t, lock.TryAcquire())
	assert.False(t, lock.TryAcquire(), "held lock must not be re-acquired")
	lock.Release()
	assert.True(t, lock.TryAcquire())
}

func TestLocks_PerWorkspace(t *testing.T) {
	locks := NewLocks()
	a := locks.For("/w/a")
	b := locks.For("/w/b")

	assert.Same(t, a, locks.For("/w/a"))
	assert.NotSame(t, a, b)

	require.True(t, a.TryAcquire())
	assert.True(t, b.TryAcquire(), "locks are independent per workspace")
	a.Release()
	b.Release()
}
