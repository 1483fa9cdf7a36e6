// Package types provides shared type definitions for the vectree change
// detection and embedding pipeline.
//
// This package defines the domain types exchanged between the Merkle tree,
// the tree differ, the scanner, and the snapshot store.
//
// # Core Types
//
// FileChange is the unit of output of both live change detection and
// snapshot-vs-snapshot diffing:
//
//	change := types.FileChange{
//	    Path:    "internal/server/handler.go",
//	    Type:    types.ChangeModify,
//	    OldHash: "9f3a51c02b771e44",
//	    NewHash: "0d82ee917cc40a6b",
//	}
//
// FileStat carries the filesystem metadata a scan feeds into the tree:
//
//	stat := types.FileStat{MTime: 1735689600123, Size: 4096}
//
// MTime is in Unix milliseconds, matching the granularity the scan
// collaborator provides.
//
// # Error Handling
//
// The package exports sentinel errors for the structural failure modes of
// the tree. Callers match them with errors.Is:
//
//	if errors.Is(err, types.ErrPathConflict) {
//	    // a path segment that must be a directory exists as a file
//	}
//
// This package is imported by every other package in the module and is
// deliberately dependency-free.
package types
