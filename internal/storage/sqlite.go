package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/vectree/pkg/types"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore opens (creating if needed) a snapshot database and
// applies pending migrations
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSnapshot inserts or replaces the snapshot for snap.WorkspacePath
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	query := `
		INSERT INTO snapshots (workspace_path, root_hash, embedding_id, tree, file_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(workspace_path) DO UPDATE SET
			root_hash = excluded.root_hash,
			embedding_id = excluded.embedding_id,
			tree = excluded.tree,
			file_count = excluded.file_count,
			updated_at = excluded.updated_at
	`
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, query,
		snap.WorkspacePath, snap.RootHash, snap.EmbeddingID,
		snap.Tree, snap.FileCount, now, now)
	if err != nil {
		return fmt.Errorf("failed to save snapshot for %s: %w", snap.WorkspacePath, err)
	}
	snap.UpdatedAt = now
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = now
	}
	return nil
}

// GetSnapshot returns the snapshot for workspacePath, or types.ErrNotFound
func (s *SQLiteStore) GetSnapshot(ctx context.Context, workspacePath string) (*Snapshot, error) {
	query := `
		SELECT workspace_path, root_hash, embedding_id, tree, file_count, created_at, updated_at
		FROM snapshots WHERE workspace_path = ?
	`
	snap := &Snapshot{}
	err := s.db.QueryRowContext(ctx, query, workspacePath).Scan(
		&snap.WorkspacePath, &snap.RootHash, &snap.EmbeddingID,
		&snap.Tree, &snap.FileCount, &snap.CreatedAt, &snap.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: snapshot for %s", types.ErrNotFound, workspacePath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot for %s: %w", workspacePath, err)
	}
	return snap, nil
}

// DeleteSnapshot removes the snapshot for workspacePath if present
func (s *SQLiteStore) DeleteSnapshot(ctx context.Context, workspacePath string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE workspace_path = ?", workspacePath)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot for %s: %w", workspacePath, err)
	}
	return nil
}

// ListSnapshots returns all snapshots without their tree blobs
func (s *SQLiteStore) ListSnapshots(ctx context.Context) ([]*Snapshot, error) {
	query := `
		SELECT workspace_path, root_hash, embedding_id, file_count, created_at, updated_at
		FROM snapshots ORDER BY workspace_path
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var snaps []*Snapshot
	for rows.Next() {
		snap := &Snapshot{}
		if err := rows.Scan(
			&snap.WorkspacePath, &snap.RootHash, &snap.EmbeddingID,
			&snap.FileCount, &snap.CreatedAt, &snap.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}
