package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/vectree/pkg/types"
)

// DefaultExcludes are skipped unless overridden
var DefaultExcludes = []string{
	".git/**",
	".svn/**",
	"node_modules/**",
	"vendor/**",
	"**/.DS_Store",
	"dist/**",
	"bin/**",
}

// Options configures a scan
type Options struct {
	// Excludes are doublestar glob patterns matched against
	// /-normalized relative paths. Nil means DefaultExcludes.
	Excludes []string
	// Workers bounds the concurrent stat pool. <= 0 means 4.
	Workers int
	Logger  *slog.Logger
}

// Result is one scan's output, shaped for Tree.DetectChanges
type Result struct {
	// Paths holds relative /-normalized file paths in walk order
	Paths []string
	// Stats maps every path in Paths to its metadata fingerprint
	Stats map[string]types.FileStat
	// Errors collects non-fatal per-entry failures (permissions, races)
	Errors []error
}

// Scan walks root once and collects (path, mtime, size) for every
// regular file not matched by an exclude pattern. Per-entry stat calls
// run on a bounded worker pool; entry-level errors are collected, not
// fatal. Only a failure to read root itself aborts.
func Scan(ctx context.Context, root string, opts Options) (*Result, error) {
	excludes := opts.Excludes
	if excludes == nil {
		excludes = DefaultExcludes
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	var entries []walkEntry
	var walkErrs []error
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			walkErrs = append(walkErrs, err)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			walkErrs = append(walkErrs, err)
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if excluded(rel, d.IsDir(), excludes) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		entries = append(entries, walkEntry{rel: rel, abs: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	result := &Result{
		Paths:  make([]string, 0, len(entries)),
		Stats:  make(map[string]types.FileStat, len(entries)),
		Errors: walkErrs,
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, entry := range entries {
		entry := entry
		result.Paths = append(result.Paths, entry.rel)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			info, err := os.Stat(entry.abs)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// File vanished or became unreadable mid-scan; the
				// absent stat entry reads as a deletion downstream
				result.Errors = append(result.Errors, err)
				return nil
			}
			result.Stats[entry.rel] = types.FileStat{
				MTime: info.ModTime().UnixMilli(),
				Size:  info.Size(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Drop paths whose stat failed so DetectChanges doesn't read a
	// mid-scan vanish as a deletion of a still-tracked file
	kept := result.Paths[:0]
	for _, path := range result.Paths {
		if _, ok := result.Stats[path]; ok {
			kept = append(kept, path)
		}
	}
	result.Paths = kept

	recordScan(len(result.Paths), len(result.Errors), time.Since(start).Seconds())
	logger.Debug("scan.complete",
		"root", root,
		"files", len(result.Paths),
		"errors", len(result.Errors))
	return result, nil
}

type walkEntry struct {
	rel string
	abs string
}

// excluded reports whether rel matches any exclude pattern. Directory
// patterns ending in "/**" also match the directory itself so the walk
// can skip the whole subtree.
func excluded(rel string, isDir bool, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
		if isDir {
			if base, found := strings.CutSuffix(pattern, "/**"); found {
				if ok, err := doublestar.Match(base, rel); err == nil && ok {
					return true
				}
			}
		}
	}
	return false
}
