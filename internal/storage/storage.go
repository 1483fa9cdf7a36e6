package storage

import (
	"context"
	"time"
)

// Store persists serialized tree snapshots per workspace between
// indexing sessions
type Store interface {
	// SaveSnapshot inserts or replaces the snapshot for snap.WorkspacePath
	SaveSnapshot(ctx context.Context, snap *Snapshot) error

	// GetSnapshot returns the snapshot for workspacePath, or ErrNotFound
	GetSnapshot(ctx context.Context, workspacePath string) (*Snapshot, error)

	// DeleteSnapshot removes the snapshot for workspacePath if present
	DeleteSnapshot(ctx context.Context, workspacePath string) error

	// ListSnapshots returns all snapshots without their tree blobs,
	// ordered by workspace path
	ListSnapshots(ctx context.Context) ([]*Snapshot, error)

	// Close closes the underlying database
	Close() error
}

// Snapshot is one workspace's persisted tree state. A changed
// EmbeddingID between sessions tells the caller the embedding model
// changed and a full re-embedding is required.
type Snapshot struct {
	WorkspacePath string
	RootHash      string
	EmbeddingID   string
	Tree          []byte // serialized tree blob, opaque to the store
	FileCount     int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
