// Package storage persists serialized tree snapshots between indexing
// sessions.
//
// Each workspace gets one row keyed by its path: the opaque tree blob,
// the root hash, and the embedding-provider fingerprint active when the
// snapshot was taken. On the next activation the caller compares the
// stored EmbeddingID against the current provider's: a mismatch means
// the model changed and every stored vector must be recomputed.
//
//	store, err := storage.NewSQLiteStore("vectree.db")
//	defer store.Close()
//
//	blob, _ := tree.Serialize()
//	err = store.SaveSnapshot(ctx, &storage.Snapshot{
//	    WorkspacePath: tree.WorkspacePath(),
//	    RootHash:      tree.RootHash(),
//	    EmbeddingID:   provider.EmbeddingID(),
//	    Tree:          blob,
//	    FileCount:     len(tree.GetAllFilePaths()),
//	})
//
// # Drivers
//
// Two SQLite drivers are selected by build tag: modernc.org/sqlite
// (pure Go, the default) and mattn/go-sqlite3 (cgo, behind the
// sqlite_cgo tag). Schema migrations are ordered by semver and applied
// at open.
package storage
