package testutil

import (
	"path"
	"testing"

	"github.com/JossMR/VersionsControlRepository/internal/fs"
)

// NewTestFilesystem creates an empty in-memory repository tree.
func NewTestFilesystem(t *testing.T, ignore ...string) *fs.AreaFilesystem {
	t.Helper()
	return fs.NewMemoryFilesystem(fs.NewIgnoreMatcher(ignore))
}

// WriteFiles creates dir and writes each name -> content pair into it.
func WriteFiles(t *testing.T, fsys *fs.AreaFilesystem, dir string, files map[string]string) {
	t.Helper()
	if err := fsys.MkdirAll(dir); err != nil {
		t.Fatalf("MkdirAll(%s) error = %v", dir, err)
	}
	for name, content := range files {
		if err := fsys.WriteFile(path.Join(dir, name), []byte(content)); err != nil {
			t.Fatalf("WriteFile(%s) error = %v", name, err)
		}
	}
}

// ReadFiles returns the name -> content map of the listed files in dir.
func ReadFiles(t *testing.T, fsys *fs.AreaFilesystem, dir string) map[string]string {
	t.Helper()
	entries, err := fsys.ListFiles(dir)
	if err != nil {
		t.Fatalf("ListFiles(%s) error = %v", dir, err)
	}
	files := make(map[string]string, len(entries))
	for _, e := range entries {
		data, err := fsys.ReadFile(path.Join(dir, e.Name))
		if err != nil {
			t.Fatalf("ReadFile(%s) error = %v", e.Name, err)
		}
		files[e.Name] = string(data)
	}
	return files
}
