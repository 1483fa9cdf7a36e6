// Package scanner performs one-shot workspace walks, producing the
// (path, mtime, size) stats that drive the hash tree's change
// detection.
//
// A scan walks the directory tree once, skipping excluded subtrees
// (doublestar globs), and stats the surviving files on a bounded worker
// pool. Entry-level failures are collected rather than fatal, so a
// permission-denied subdirectory doesn't abort the whole pass:
//
//	result, err := scanner.Scan(ctx, "/home/user/project", scanner.Options{})
//	changes, err := tree.DetectChanges(result.Paths, result.Stats)
//
// The scanner is deliberately not a watcher: each invocation is a
// single pass, and scheduling repeated passes belongs to the caller.
// A Locks registry serializes scans per workspace within the process.
package scanner
