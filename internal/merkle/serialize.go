package merkle

import (
	"encoding/json"
	"fmt"

	"github.com/dshills/vectree/pkg/types"
)

// nodeJSON is the persisted form of one node. The schema is a stability
// contract: persisted trees must survive upgrades, so field names and
// meanings never change.
//
//	{"t":"f"|"d","n":name,"p":path,"h":hash,"m":mtimeMs,"s":size,"c":[...]}
//
// m and s appear only on files; c (children, sorted by name) only on
// directories. Hashes are trusted as-is on load, never recomputed.
type nodeJSON struct {
	Type     string     `json:"t"`
	Name     string     `json:"n"`
	Path     string     `json:"p"`
	Hash     string     `json:"h"`
	MTime    *int64     `json:"m,omitempty"`
	Size     *int64     `json:"s,omitempty"`
	Children []nodeJSON `json:"c,omitempty"`
}

const (
	nodeTypeFile = "f"
	nodeTypeDir  = "d"
)

// Serialize dumps the full tree as a JSON blob in the persisted schema
func (t *Tree) Serialize() ([]byte, error) {
	data, err := json.Marshal(marshalNode(t.root))
	if err != nil {
		return nil, fmt.Errorf("serialize tree: %w", err)
	}
	return data, nil
}

func marshalNode(node Node) nodeJSON {
	switch n := node.(type) {
	case *FileNode:
		mtime, size := n.mtime, n.size
		return nodeJSON{
			Type:  nodeTypeFile,
			Name:  n.name,
			Path:  n.path,
			Hash:  n.hash,
			MTime: &mtime,
			Size:  &size,
		}
	case *DirNode:
		out := nodeJSON{
			Type: nodeTypeDir,
			Name: n.name,
			Path: n.path,
			Hash: n.hash,
		}
		for _, name := range n.ChildNames() {
			out.Children = append(out.Children, marshalNode(n.children[name]))
		}
		return out
	}
	return nodeJSON{}
}

// Deserialize restores a tree from data produced by Serialize. The blob
// is parsed and validated in full before the root is swapped in, so a
// corrupt blob leaves the current tree untouched.
func (t *Tree) Deserialize(data []byte) error {
	var blob nodeJSON
	if err := json.Unmarshal(data, &blob); err != nil {
		return fmt.Errorf("%w: %v", types.ErrCorruptSnapshot, err)
	}
	if blob.Type != nodeTypeDir || blob.Path != "" {
		return fmt.Errorf("%w: root must be a directory with empty path, got type %q path %q",
			types.ErrCorruptSnapshot, blob.Type, blob.Path)
	}
	root, err := unmarshalDir(&blob, nil)
	if err != nil {
		return err
	}
	t.root = root
	return nil
}

func unmarshalDir(blob *nodeJSON, parent *DirNode) (*DirNode, error) {
	if err := validateNode(blob); err != nil {
		return nil, err
	}
	dir := &DirNode{
		name:     blob.Name,
		path:     blob.Path,
		hash:     blob.Hash,
		children: make(map[string]Node, len(blob.Children)),
		parent:   parent,
	}
	for i := range blob.Children {
		child := &blob.Children[i]
		switch child.Type {
		case nodeTypeFile:
			if err := validateNode(child); err != nil {
				return nil, err
			}
			if child.MTime == nil || child.Size == nil {
				return nil, fmt.Errorf("%w: file node %q missing mtime/size", types.ErrCorruptSnapshot, child.Path)
			}
			dir.children[child.Name] = &FileNode{
				name:   child.Name,
				path:   child.Path,
				hash:   child.Hash,
				mtime:  *child.MTime,
				size:   *child.Size,
				parent: dir,
			}
		case nodeTypeDir:
			sub, err := unmarshalDir(child, dir)
			if err != nil {
				return nil, err
			}
			dir.children[child.Name] = sub
		default:
			return nil, fmt.Errorf("%w: unknown node type %q at %q", types.ErrCorruptSnapshot, child.Type, child.Path)
		}
	}
	return dir, nil
}

func validateNode(blob *nodeJSON) error {
	if blob.Path != "" && blob.Name == "" {
		return fmt.Errorf("%w: node at %q has empty name", types.ErrCorruptSnapshot, blob.Path)
	}
	if len(blob.Hash) != hashHexLen {
		return fmt.Errorf("%w: node %q has malformed hash %q", types.ErrCorruptSnapshot, blob.Path, blob.Hash)
	}
	return nil
}
