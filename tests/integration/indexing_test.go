package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/dshills/vectree/internal/embedder"
	"github.com/dshills/vectree/internal/merkle"
	"github.com/dshills/vectree/internal/scanner"
	"github.com/dshills/vectree/internal/storage"
	"github.com/dshills/vectree/pkg/types"
)

// IndexingTestSuite exercises the full pipeline: scan a workspace,
// fold the results into a hash tree, persist the snapshot, mutate the
// workspace, rescan, diff against the stored snapshot, and embed the
// changed files with the mock provider.
type IndexingTestSuite struct {
	suite.Suite
	store     storage.Store
	workspace string
	ctx       context.Context
}

// SetupTest runs before each test
func (s *IndexingTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.workspace = s.T().TempDir()

	store, err := storage.NewSQLiteStore(filepath.Join(s.T().TempDir(), "vectree.db"))
	s.Require().NoError(err)
	s.store = store

	s.writeFile("a/b.txt", "bravo")
	s.writeFile("a/c.txt", "charlie")
	s.writeFile("top.txt", "top")
}

// TearDownTest runs after each test
func (s *IndexingTestSuite) TearDownTest() {
	if s.store != nil {
		_ = s.store.Close()
	}
}

func (s *IndexingTestSuite) writeFile(rel, content string) {
	abs := filepath.Join(s.workspace, filepath.FromSlash(rel))
	s.Require().NoError(os.MkdirAll(filepath.Dir(abs), 0o755))
	s.Require().NoError(os.WriteFile(abs, []byte(content), 0o644))
}

// scan walks the workspace and applies the results to tree, returning
// the detected changes.
func (s *IndexingTestSuite) scan(tree *merkle.Tree) []types.FileChange {
	result, err := scanner.Scan(s.ctx, s.workspace, scanner.Options{Workers: 2})
	s.Require().NoError(err)
	s.Empty(result.Errors)

	// Tracked paths missing from the scan are deletions.
	paths := result.Paths
	for _, p := range tree.GetAllFilePaths() {
		if _, ok := result.Stats[p]; !ok {
			paths = append(paths, p)
		}
	}

	changes, err := tree.DetectChanges(paths, result.Stats)
	s.Require().NoError(err)
	return changes
}

func (s *IndexingTestSuite) saveSnapshot(tree *merkle.Tree, embeddingID string) {
	blob, err := tree.Serialize()
	s.Require().NoError(err)

	now := time.Now().UTC()
	s.Require().NoError(s.store.SaveSnapshot(s.ctx, &storage.Snapshot{
		WorkspacePath: s.workspace,
		RootHash:      tree.RootHash(),
		EmbeddingID:   embeddingID,
		Tree:          blob,
		FileCount:     len(tree.GetAllFilePaths()),
		CreatedAt:     now,
		UpdatedAt:     now,
	}))
}

func (s *IndexingTestSuite) loadSnapshot() *merkle.Tree {
	snap, err := s.store.GetSnapshot(s.ctx, s.workspace)
	s.Require().NoError(err)

	tree := merkle.New(snap.WorkspacePath, nil)
	s.Require().NoError(tree.Deserialize(snap.Tree))
	s.Equal(snap.RootHash, tree.RootHash(), "stored root hash should match rehydrated tree")
	return tree
}

// TestFullPipeline covers the steady-state loop: initial index, persist,
// reload, mutate, rescan, diff, embed.
func (s *IndexingTestSuite) TestFullPipeline() {
	provider := embedder.NewMockProvider(embedder.MockDimension)
	defer provider.Close()

	// Initial index.
	tree := merkle.New(s.workspace, nil)
	changes := s.scan(tree)
	s.Len(changes, 3, "every file should surface as an add")
	for _, c := range changes {
		s.Equal(types.ChangeAdd, c.Type)
	}
	s.saveSnapshot(tree, provider.EmbeddingID())

	// Mutate the workspace: one modify, one add, one delete.
	time.Sleep(10 * time.Millisecond)
	s.writeFile("a/b.txt", "bravo updated")
	s.writeFile("d/new.txt", "delta")
	s.Require().NoError(os.Remove(filepath.Join(s.workspace, "top.txt")))

	// Rescan against a tree rehydrated from storage.
	current := s.loadSnapshot()
	changes = s.scan(current)

	byPath := map[string]types.ChangeType{}
	for _, c := range changes {
		byPath[c.Path] = c.Type
	}
	s.Equal(types.ChangeModify, byPath["a/b.txt"])
	s.Equal(types.ChangeAdd, byPath["d/new.txt"])
	s.Equal(types.ChangeDelete, byPath["top.txt"])
	s.Len(changes, 3)

	// Diff the stored snapshot against the updated tree: the differ
	// must agree with the scan-driven change detection.
	previous := s.loadSnapshot()
	diff := merkle.NewDiffer().FindChanges(previous, current)
	diffByPath := map[string]types.ChangeType{}
	for _, c := range diff {
		diffByPath[c.Path] = c.Type
	}
	s.Equal(byPath, diffByPath)

	// Embed the non-deleted changed files.
	var texts []string
	for _, c := range changes {
		if c.Type == types.ChangeDelete {
			continue
		}
		content, err := os.ReadFile(filepath.Join(s.workspace, filepath.FromSlash(c.Path)))
		s.Require().NoError(err)
		texts = append(texts, string(content))
	}
	vectors, err := provider.Embed(s.ctx, texts)
	s.Require().NoError(err)
	s.Len(vectors, len(texts))
	for _, v := range vectors {
		s.Len(v, provider.Dimensions())
	}

	// Persist the new state and confirm the stored root advanced.
	s.saveSnapshot(current, provider.EmbeddingID())
	final := s.loadSnapshot()
	s.NotEqual(previous.RootHash(), final.RootHash())
	s.Equal(current.RootHash(), final.RootHash())
}

// TestNoChangesIsStable verifies a rescan of an unchanged workspace
// reports nothing and leaves the root hash alone.
func (s *IndexingTestSuite) TestNoChangesIsStable() {
	tree := merkle.New(s.workspace, nil)
	s.scan(tree)
	before := tree.RootHash()
	s.saveSnapshot(tree, "mock:384")

	reloaded := s.loadSnapshot()
	changes := s.scan(reloaded)
	s.Empty(changes)
	s.Equal(before, reloaded.RootHash())

	s.True(merkle.NewDiffer().Identical(tree, reloaded))
}

// TestEmbeddingModelChange verifies a snapshot saved under a different
// embedding identity is visible to callers deciding on a full re-embed.
func (s *IndexingTestSuite) TestEmbeddingModelChange() {
	tree := merkle.New(s.workspace, nil)
	s.scan(tree)
	s.saveSnapshot(tree, "mock:384")

	snap, err := s.store.GetSnapshot(s.ctx, s.workspace)
	s.Require().NoError(err)
	s.Equal("mock:384", snap.EmbeddingID)

	s.saveSnapshot(tree, "openai:text-embedding-3-small:https://api.openai.com/v1")
	snap, err = s.store.GetSnapshot(s.ctx, s.workspace)
	s.Require().NoError(err)
	s.NotEqual("mock:384", snap.EmbeddingID)
}

func TestIndexingTestSuite(t *testing.T) {
	suite.Run(t, new(IndexingTestSuite))
}
