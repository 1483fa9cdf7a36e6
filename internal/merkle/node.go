package merkle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// NodeKind distinguishes file and directory nodes
type NodeKind string

const (
	KindFile NodeKind = "file"
	KindDir  NodeKind = "dir"
)

// Hash string composition. File hashes fingerprint metadata only
// (path:mtime:size), not content; two files with identical content but
// different mtimes are treated as changed. Directory hashes join sorted
// child entries so hash equality implies subtree equality.
const (
	hashFieldSep   = ":"
	hashChildSep   = ","
	emptyDirPrefix = "empty:"
	hashHexLen     = 16
)

// hashString computes the 16-hex-char xxHash64 content address for s
func hashString(s string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s))
}

// Node is a single entry in the workspace hash tree
type Node interface {
	// Name returns the last path segment
	Name() string
	// Path returns the /-normalized path relative to the workspace root
	Path() string
	// Hash returns the node's content address
	Hash() string
	// Kind reports whether the node is a file or a directory
	Kind() NodeKind
}

// FileNode is a leaf carrying the (mtime, size) metadata fingerprint
type FileNode struct {
	name   string
	path   string
	hash   string
	mtime  int64
	size   int64
	parent *DirNode // upward propagation only, never an ownership edge
}

func newFileNode(name, path string, mtime, size int64, parent *DirNode) *FileNode {
	f := &FileNode{
		name:   name,
		path:   path,
		mtime:  mtime,
		size:   size,
		parent: parent,
	}
	f.rehash()
	return f
}

func (f *FileNode) Name() string   { return f.name }
func (f *FileNode) Path() string   { return f.path }
func (f *FileNode) Hash() string   { return f.hash }
func (f *FileNode) Kind() NodeKind { return KindFile }

// MTime returns the recorded modification time in Unix milliseconds
func (f *FileNode) MTime() int64 { return f.mtime }

// Size returns the recorded size in bytes
func (f *FileNode) Size() int64 { return f.size }

// setStat updates the metadata fingerprint and recomputes the hash
func (f *FileNode) setStat(mtime, size int64) {
	f.mtime = mtime
	f.size = size
	f.rehash()
}

func (f *FileNode) rehash() {
	f.hash = hashString(fmt.Sprintf("%s%s%d%s%d", f.path, hashFieldSep, f.mtime, hashFieldSep, f.size))
}

// DirNode owns its children through the name map; the parent pointer on
// each child is purely a back-reference
type DirNode struct {
	name     string
	path     string
	hash     string
	children map[string]Node
	parent   *DirNode
}

func newDirNode(name, path string, parent *DirNode) *DirNode {
	d := &DirNode{
		name:     name,
		path:     path,
		children: make(map[string]Node),
		parent:   parent,
	}
	d.rehash()
	return d
}

func (d *DirNode) Name() string   { return d.name }
func (d *DirNode) Path() string   { return d.path }
func (d *DirNode) Hash() string   { return d.hash }
func (d *DirNode) Kind() NodeKind { return KindDir }

// Child returns the named child, or nil
func (d *DirNode) Child(name string) Node {
	return d.children[name]
}

// ChildNames returns the child names sorted lexicographically
func (d *DirNode) ChildNames() []string {
	names := make([]string, 0, len(d.children))
	for name := range d.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of direct children
func (d *DirNode) Len() int { return len(d.children) }

// rehash recomputes this directory's hash from its children's hashes.
// Children are re-sorted by name on every call so map iteration order
// never leaks into the hash. An empty directory hashes a path-scoped
// sentinel so it still participates deterministically in parent hashing.
func (d *DirNode) rehash() {
	if len(d.children) == 0 {
		d.hash = hashString(emptyDirPrefix + d.path)
		return
	}
	entries := make([]string, 0, len(d.children))
	for _, name := range d.ChildNames() {
		entries = append(entries, name+hashFieldSep+d.children[name].Hash())
	}
	d.hash = hashString(strings.Join(entries, hashChildSep))
}

// propagate recomputes hashes from d up to the root. Every mutating
// tree operation calls this before returning, so readers never observe
// an updated leaf under a stale ancestor.
func (d *DirNode) propagate() {
	for n := d; n != nil; n = n.parent {
		n.rehash()
	}
}
