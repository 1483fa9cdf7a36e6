// Package merkle maintains a content-addressed hash tree mirroring one
// workspace's file hierarchy, and diffs tree snapshots against each other.
//
// Each file node's hash fingerprints its (path, mtime, size) metadata;
// each directory's hash derives from its children's hashes. Equal hashes
// therefore imply equal subtrees, which lets both the live update path
// and the snapshot differ skip untouched subtrees entirely.
//
// # Live Updates
//
// A filesystem scan drives the tree through point mutations:
//
//	tree := merkle.New("/home/user/project", logger)
//	change, err := tree.UpsertFile("internal/app/main.go", mtimeMs, size)
//	change = tree.DeleteNode("internal/app/old.go")
//
// Every mutation recomputes ancestor hashes up to the root before
// returning, so the root hash is always consistent with the leaves.
// DetectChanges batches this over a full scan result:
//
//	changes, err := tree.DetectChanges(paths, statsByPath)
//
// # Snapshots
//
// Serialize/Deserialize round-trip the full structure (hashes included,
// trusted on load) so a session can resume without rescanning:
//
//	blob, _ := tree.Serialize()
//	restored := merkle.New(tree.WorkspacePath(), logger)
//	_ = restored.Deserialize(blob)
//
// # Diffing
//
// Differ compares two snapshots, pruning every subtree whose hashes
// match; the cost is proportional to the changed portion of the tree:
//
//	changes := merkle.NewDiffer().FindChanges(oldTree, newTree)
//
// The tree is owned by one indexing session and performs no internal
// locking.
package merkle
