package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/vectree/internal/config"
	"github.com/dshills/vectree/internal/embedder"
	"github.com/dshills/vectree/internal/merkle"
	"github.com/dshills/vectree/internal/scanner"
	"github.com/dshills/vectree/internal/storage"
	"github.com/dshills/vectree/pkg/types"
)

var scanLocks = scanner.NewLocks()

// loadOrNewTree rehydrates the stored snapshot for workspace, or
// returns an empty tree when none exists
func loadOrNewTree(ctx context.Context, store storage.Store, workspace string) (*merkle.Tree, error) {
	tree := merkle.New(workspace, nil)
	snap, err := store.GetSnapshot(ctx, workspace)
	if errors.Is(err, types.ErrNotFound) {
		return tree, nil
	}
	if err != nil {
		return nil, err
	}
	if err := tree.Deserialize(snap.Tree); err != nil {
		return nil, fmt.Errorf("stored snapshot for %s is unusable: %w", workspace, err)
	}
	return tree, nil
}

// scanWorkspace runs one locked scan and catches the tree up to it
func scanWorkspace(ctx context.Context, tree *merkle.Tree, workspace string, cfg *config.Config) ([]types.FileChange, error) {
	lock := scanLocks.For(workspace)
	if !lock.TryAcquire() {
		return nil, fmt.Errorf("a scan of %s is already running", workspace)
	}
	defer lock.Release()

	result, err := scanner.Scan(ctx, workspace, scanner.Options{
		Excludes: cfg.Scanner.Excludes,
		Workers:  cfg.Scanner.Workers,
	})
	if err != nil {
		return nil, err
	}

	// Tracked files missing from this scan read as deletions
	paths := result.Paths
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		seen[p] = struct{}{}
	}
	for _, p := range tree.GetAllFilePaths() {
		if _, ok := seen[p]; !ok {
			paths = append(paths, p)
		}
	}

	return tree.DetectChanges(paths, result.Stats)
}

func printChanges(changes []types.FileChange) {
	counts := map[types.ChangeType]int{}
	for _, c := range changes {
		counts[c.Type]++
		fmt.Printf("%-7s %s\n", c.Type, c.Path)
	}
	fmt.Printf("%d added, %d modified, %d deleted\n",
		counts[types.ChangeAdd], counts[types.ChangeModify], counts[types.ChangeDelete])
}

func workspaceArg(args []string) (string, error) {
	abs, err := filepath.Abs(args[0])
	if err != nil {
		return "", fmt.Errorf("resolve workspace path: %w", err)
	}
	return abs, nil
}

func newSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <dir>",
		Short: "Scan a workspace, print changes since the stored snapshot, and persist the new state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.LogLevel)
			serveMetrics(flagMetricsAddr, logger)
			workspace, err := workspaceArg(args)
			if err != nil {
				return err
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			tree, err := loadOrNewTree(ctx, store, workspace)
			if err != nil {
				return err
			}
			changes, err := scanWorkspace(ctx, tree, workspace, cfg)
			if err != nil {
				return err
			}
			printChanges(changes)

			blob, err := tree.Serialize()
			if err != nil {
				return err
			}
			models := embedder.NewModelCache()
			provider, err := embedder.New(cfg.EmbedderConfig(), models, logger)
			if err != nil {
				return err
			}
			defer func() { _ = provider.Close() }()

			return store.SaveSnapshot(ctx, &storage.Snapshot{
				WorkspacePath: workspace,
				RootHash:      tree.RootHash(),
				EmbeddingID:   provider.EmbeddingID(),
				Tree:          blob,
				FileCount:     len(tree.GetAllFilePaths()),
			})
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <dir>",
		Short: "Print changes since the stored snapshot without persisting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.LogLevel)
			serveMetrics(flagMetricsAddr, logger)
			workspace, err := workspaceArg(args)
			if err != nil {
				return err
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			tree, err := loadOrNewTree(ctx, store, workspace)
			if err != nil {
				return err
			}
			changes, err := scanWorkspace(ctx, tree, workspace, cfg)
			if err != nil {
				return err
			}
			printChanges(changes)
			return nil
		},
	}
}

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <workspace-a> <workspace-b>",
		Short: "Diff the stored snapshots of two workspaces",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogger(cfg.LogLevel)

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			trees := make([]*merkle.Tree, 2)
			for i, arg := range args {
				workspace, err := filepath.Abs(arg)
				if err != nil {
					return err
				}
				snap, err := store.GetSnapshot(ctx, workspace)
				if err != nil {
					return err
				}
				tree := merkle.New(workspace, nil)
				if err := tree.Deserialize(snap.Tree); err != nil {
					return err
				}
				trees[i] = tree
			}

			differ := merkle.NewDiffer()
			if differ.Identical(trees[0], trees[1]) {
				fmt.Println("snapshots are identical")
				return nil
			}
			printChanges(differ.FindChanges(trees[0], trees[1]))
			return nil
		},
	}
}

func newPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths <dir>",
		Short: "List every file path in the stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogger(cfg.LogLevel)
			workspace, err := workspaceArg(args)
			if err != nil {
				return err
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			snap, err := store.GetSnapshot(cmd.Context(), workspace)
			if err != nil {
				return err
			}
			tree := merkle.New(workspace, nil)
			if err := tree.Deserialize(snap.Tree); err != nil {
				return err
			}
			for _, path := range tree.GetAllFilePaths() {
				fmt.Println(path)
			}
			return nil
		},
	}
}

func newVerifyCmd() *cobra.Command {
	var providerOverride string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Validate the embedding provider configuration and print the result as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.LogLevel)
			if providerOverride != "" {
				cfg.Embedding.Provider = providerOverride
			}

			models := embedder.NewModelCache()
			provider, err := embedder.New(cfg.EmbedderConfig(), models, logger)
			if err != nil {
				return err
			}
			defer func() { _ = provider.Close() }()

			result := provider.Test(cmd.Context())
			out, err := json.MarshalIndent(struct {
				Provider    string `json:"provider"`
				EmbeddingID string `json:"embeddingId"`
				embedder.TestResult
			}{cfg.Embedding.Provider, provider.EmbeddingID(), result}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			if !result.Success {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&providerOverride, "provider", "", "override the configured provider (openai, local, mock)")
	return cmd
}
