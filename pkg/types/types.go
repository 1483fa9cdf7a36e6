package types

// ChangeType classifies a detected file change
type ChangeType string

const (
	ChangeAdd    ChangeType = "add"
	ChangeModify ChangeType = "modify"
	ChangeDelete ChangeType = "delete"
)

// FileChange describes one changed file path, emitted by both live
// change detection and snapshot diffing
type FileChange struct {
	Path    string     `json:"path"`
	Type    ChangeType `json:"type"`
	OldHash string     `json:"oldHash,omitempty"`
	NewHash string     `json:"newHash,omitempty"`
}

// FileStat is the filesystem metadata fingerprint for one file.
// MTime is in Unix milliseconds.
type FileStat struct {
	MTime int64 `json:"mtime"`
	Size  int64 `json:"size"`
}
