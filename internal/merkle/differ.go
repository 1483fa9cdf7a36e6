package merkle

import (
	"sort"

	"github.com/dshills/vectree/pkg/types"
)

// Differ compares two tree snapshots by walking only the subtrees whose
// hashes differ. Work is proportional to the number of changed nodes
// plus their ancestors, not to total tree size; NodesVisited exposes
// the walk count so that property can be asserted.
type Differ struct {
	visited int
}

// NewDiffer creates a differ
func NewDiffer() *Differ {
	return &Differ{}
}

// NodesVisited reports how many nodes the last FindChanges walked
func (d *Differ) NodesVisited() int { return d.visited }

// Identical reports whether two trees have equal root hashes
func (d *Differ) Identical(a, b *Tree) bool {
	return a.RootHash() == b.RootHash()
}

// FindChanges returns the file-level changes between oldTree and
// newTree. Equal root hashes short-circuit to nil without walking.
func (d *Differ) FindChanges(oldTree, newTree *Tree) []types.FileChange {
	d.visited = 0
	if oldTree.RootHash() == newTree.RootHash() {
		treeMetrics.diffShortCircuits.Inc()
		return nil
	}
	var changes []types.FileChange
	d.diffNodes(oldTree.root, newTree.root, &changes)
	return changes
}

// diffNodes compares a node pair at the same path. Either side may be
// nil (present only in the other snapshot).
func (d *Differ) diffNodes(oldNode, newNode Node, out *[]types.FileChange) {
	d.visited++

	switch {
	case oldNode == nil:
		d.emitSubtree(newNode, types.ChangeAdd, out)
		return
	case newNode == nil:
		d.emitSubtree(oldNode, types.ChangeDelete, out)
		return
	case oldNode.Hash() == newNode.Hash():
		// Equal hashes prune the entire subtree
		return
	case oldNode.Kind() != newNode.Kind():
		d.emitSubtree(oldNode, types.ChangeDelete, out)
		d.emitSubtree(newNode, types.ChangeAdd, out)
		return
	}

	if oldFile, ok := oldNode.(*FileNode); ok {
		newFile := newNode.(*FileNode)
		*out = append(*out, types.FileChange{
			Path:    newFile.path,
			Type:    types.ChangeModify,
			OldHash: oldFile.hash,
			NewHash: newFile.hash,
		})
		return
	}

	oldDir := oldNode.(*DirNode)
	newDir := newNode.(*DirNode)
	for _, name := range unionNames(oldDir, newDir) {
		oldChild := oldDir.children[name]
		newChild := newDir.children[name]
		if oldChild != nil && newChild != nil && oldChild.Hash() == newChild.Hash() {
			continue
		}
		d.diffNodes(oldChild, newChild, out)
	}
}

// emitSubtree records every file under node as changeType. OldHash is
// set for deletes, NewHash for adds.
func (d *Differ) emitSubtree(node Node, changeType types.ChangeType, out *[]types.FileChange) {
	switch n := node.(type) {
	case *FileNode:
		d.visited++
		change := types.FileChange{Path: n.path, Type: changeType}
		if changeType == types.ChangeDelete {
			change.OldHash = n.hash
		} else {
			change.NewHash = n.hash
		}
		*out = append(*out, change)
	case *DirNode:
		d.visited++
		for _, name := range n.ChildNames() {
			d.emitSubtree(n.children[name], changeType, out)
		}
	}
}

// unionNames returns the sorted union of two directories' child names
func unionNames(a, b *DirNode) []string {
	seen := make(map[string]struct{}, len(a.children)+len(b.children))
	for name := range a.children {
		seen[name] = struct{}{}
	}
	for name := range b.children {
		seen[name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
