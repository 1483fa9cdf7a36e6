package merkle

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dshills/vectree/pkg/types"
)

// Tree is an in-memory hash mirror of one workspace's file hierarchy.
// It is exclusively owned by a single indexing session: mutations are
// synchronous and unlocked, and propagation to the root completes
// before every mutating call returns.
type Tree struct {
	workspacePath string
	root          *DirNode
	logger        *slog.Logger
}

// New creates an empty tree scoped to workspacePath.
// A nil logger falls back to slog.Default().
func New(workspacePath string, logger *slog.Logger) *Tree {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tree{
		workspacePath: workspacePath,
		root:          newDirNode("", "", nil),
		logger:        logger,
	}
}

// WorkspacePath returns the workspace this tree mirrors
func (t *Tree) WorkspacePath() string { return t.workspacePath }

// Root returns the root directory node
func (t *Tree) Root() *DirNode { return t.root }

// RootHash returns the current root content address
func (t *Tree) RootHash() string { return t.root.Hash() }

// Clear discards all nodes, resetting the tree to empty
func (t *Tree) Clear() {
	t.root = newDirNode("", "", nil)
}

// splitPath normalizes a /-separated relative path into segments.
// "" and "." address the root.
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" || path == "." {
		return nil
	}
	return strings.Split(path, "/")
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// UpsertFile records a file's (mtime, size) fingerprint at path,
// creating missing ancestor directories. It returns the resulting
// change, or nil when the stat is unchanged (idempotent no-op).
//
// An intermediate path segment occupied by a file is a structural
// conflict and fails with types.ErrPathConflict. A directory occupying
// the final segment is replaced by the file and its subtree discarded;
// this is surfaced via the log and a counter rather than an error.
func (t *Tree) UpsertFile(path string, mtime, size int64) (*types.FileChange, error) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: %q addresses the root, not a file", types.ErrPathConflict, path)
	}

	dir := t.root
	for _, seg := range segments[:len(segments)-1] {
		child := dir.children[seg]
		if child == nil {
			next := newDirNode(seg, joinPath(dir.path, seg), dir)
			dir.children[seg] = next
			dir = next
			continue
		}
		next, ok := child.(*DirNode)
		if !ok {
			return nil, fmt.Errorf("%w: %q exists as a file, expected directory (while upserting %q)",
				types.ErrPathConflict, child.Path(), path)
		}
		dir = next
	}

	name := segments[len(segments)-1]
	normPath := strings.Join(segments, "/")

	switch existing := dir.children[name].(type) {
	case *FileNode:
		if existing.mtime == mtime && existing.size == size {
			return nil, nil
		}
		oldHash := existing.hash
		existing.setStat(mtime, size)
		dir.propagate()
		return &types.FileChange{
			Path:    normPath,
			Type:    types.ChangeModify,
			OldHash: oldHash,
			NewHash: existing.hash,
		}, nil

	case *DirNode:
		// File wins over directory at the same name. The old subtree is
		// discarded; callers learn about it through the log and counter,
		// not an error.
		t.logger.Warn("merkle.conflict",
			"workspace", t.workspacePath,
			"path", normPath,
			"discarded_files", countFiles(existing))
		treeMetrics.dirReplacements.Inc()
	}

	file := newFileNode(name, normPath, mtime, size, dir)
	dir.children[name] = file
	dir.propagate()
	return &types.FileChange{
		Path:    normPath,
		Type:    types.ChangeAdd,
		NewHash: file.hash,
	}, nil
}

// DeleteNode removes the node at path if present, returning the delete
// change or nil. Ancestor directories left empty by the removal are
// pruned recursively; the root itself is never pruned.
func (t *Tree) DeleteNode(path string) *types.FileChange {
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil
	}

	dir := t.root
	for _, seg := range segments[:len(segments)-1] {
		next, ok := dir.children[seg].(*DirNode)
		if !ok {
			return nil
		}
		dir = next
	}

	name := segments[len(segments)-1]
	node := dir.children[name]
	if node == nil {
		return nil
	}
	oldHash := node.Hash()
	delete(dir.children, name)

	// Prune newly-empty ancestors, then propagate from the survivor
	for dir.parent != nil && len(dir.children) == 0 {
		parent := dir.parent
		delete(parent.children, dir.name)
		treeMetrics.nodesPruned.Inc()
		dir = parent
	}
	dir.propagate()

	return &types.FileChange{
		Path:    strings.Join(segments, "/"),
		Type:    types.ChangeDelete,
		OldHash: oldHash,
	}
}

// DetectChanges catches the tree up to a fresh filesystem scan. For
// each path in input order: a path absent from stats is treated as a
// deletion, otherwise as an upsert. Results are concatenated in input
// order; the first structural error aborts.
func (t *Tree) DetectChanges(paths []string, stats map[string]types.FileStat) ([]types.FileChange, error) {
	var changes []types.FileChange
	for _, path := range paths {
		stat, ok := stats[path]
		if !ok {
			if change := t.DeleteNode(path); change != nil {
				changes = append(changes, *change)
			}
			continue
		}
		change, err := t.UpsertFile(path, stat.MTime, stat.Size)
		if err != nil {
			return nil, fmt.Errorf("detect changes at %q: %w", path, err)
		}
		if change != nil {
			changes = append(changes, *change)
		}
	}
	return changes, nil
}

// GetNode returns the node at path, or nil. "" and "." address the root.
func (t *Tree) GetNode(path string) Node {
	segments := splitPath(path)
	var node Node = t.root
	for _, seg := range segments {
		dir, ok := node.(*DirNode)
		if !ok {
			return nil
		}
		node = dir.children[seg]
		if node == nil {
			return nil
		}
	}
	return node
}

// GetAllFilePaths returns every file path in the tree, sorted
func (t *Tree) GetAllFilePaths() []string {
	var paths []string
	collectFilePaths(t.root, &paths)
	sort.Strings(paths)
	return paths
}

func collectFilePaths(node Node, out *[]string) {
	switch n := node.(type) {
	case *FileNode:
		*out = append(*out, n.path)
	case *DirNode:
		for _, name := range n.ChildNames() {
			collectFilePaths(n.children[name], out)
		}
	}
}

func countFiles(node Node) int {
	switch n := node.(type) {
	case *FileNode:
		return 1
	case *DirNode:
		total := 0
		for _, child := range n.children {
			total += countFiles(child)
		}
		return total
	}
	return 0
}
