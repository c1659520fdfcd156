package repo

import (
	"time"
)

// FileEntry describes one regular file inside an area.
type FileEntry struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Filesystem provides the directory-tree operations the engine needs.
// Paths are slash-separated and rooted at the repository root ("/alice/temporal").
// It abstracts file access so tests can run against an in-memory tree.
type Filesystem interface {
	// ListFiles returns the regular files directly inside dir, sorted by name.
	// Subdirectories and hidden names (leading '.') are skipped. Ignore
	// patterns are not applied.
	// A missing dir is an error wrapping fs.ErrNotExist.
	ListFiles(dir string) ([]FileEntry, error)

	// Ignored reports whether the file at path matches the ignore patterns.
	Ignored(path string) bool

	// ReadFile returns the content of a file.
	ReadFile(path string) ([]byte, error)

	// WriteFile replaces the content of a file, creating it if needed.
	WriteFile(path string, data []byte) error

	// CopyFile copies src to dst, overwriting dst and preserving the modification time.
	CopyFile(src, dst string) error

	// Remove deletes a single file.
	Remove(path string) error

	// Touch sets the modification time of an existing file.
	Touch(path string, t time.Time) error

	// MkdirAll creates dir and any missing parents.
	MkdirAll(dir string) error

	// RemoveAll deletes dir recursively. A missing dir is not an error.
	RemoveAll(dir string) error

	// RemoveIfEmpty deletes dir if it has no entries and reports whether it did.
	RemoveIfEmpty(dir string) (bool, error)

	// FileExists reports whether path is an existing regular file.
	FileExists(path string) (bool, error)

	// DirExists reports whether dir is an existing directory.
	DirExists(dir string) (bool, error)

	// ListDirs returns the names of the subdirectories of dir, sorted.
	// A missing dir yields an empty result.
	ListDirs(dir string) ([]string, error)
}
