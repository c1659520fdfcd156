package fs

import (
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/JossMR/VersionsControlRepository/internal/repo"
)

const (
	filePerm = 0o644
	dirPerm  = 0o755

	// tempPrefix marks in-flight writes. Hidden names are never listed.
	tempPrefix = ".tmp-"
)

// AreaFilesystem implements repo.Filesystem on top of an afero.Fs rooted at
// the repository root. Writes go to a temporary file that is renamed into
// place, so readers never see a half-written file.
type AreaFilesystem struct {
	fs     afero.Fs
	ignore *IgnoreMatcher
}

// New wraps fsys. A nil ignore matcher ignores nothing.
func New(fsys afero.Fs, ignore *IgnoreMatcher) *AreaFilesystem {
	if ignore == nil {
		ignore = NewIgnoreMatcher(nil)
	}
	return &AreaFilesystem{fs: fsys, ignore: ignore}
}

// NewOSFilesystem returns a filesystem rooted at root on disk, creating root if needed.
func NewOSFilesystem(root string, ignore *IgnoreMatcher) (*AreaFilesystem, error) {
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("creating repository root: %w", err)
	}
	return New(afero.NewBasePathFs(afero.NewOsFs(), root), ignore), nil
}

// NewMemoryFilesystem returns an empty in-memory filesystem.
func NewMemoryFilesystem(ignore *IgnoreMatcher) *AreaFilesystem {
	return New(afero.NewMemMapFs(), ignore)
}

// Fs exposes the underlying afero filesystem.
func (a *AreaFilesystem) Fs() afero.Fs {
	return a.fs
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// ListFiles returns the regular files directly inside dir, sorted by name.
// Ignore patterns are not applied; callers that display a listing filter
// it with Ignored.
func (a *AreaFilesystem) ListFiles(dir string) ([]repo.FileEntry, error) {
	infos, err := afero.ReadDir(a.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	entries := make([]repo.FileEntry, 0, len(infos))
	for _, info := range infos {
		name := info.Name()
		if !info.Mode().IsRegular() || hidden(name) {
			continue
		}
		entries = append(entries, repo.FileEntry{Name: name, Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Ignored reports whether p matches the ignore patterns.
func (a *AreaFilesystem) Ignored(p string) bool {
	return a.ignore.Match(strings.TrimPrefix(path.Clean(p), "/"))
}

// ReadFile returns the content of a file.
func (a *AreaFilesystem) ReadFile(p string) ([]byte, error) {
	data, err := afero.ReadFile(a.fs, p)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", p, err)
	}
	return data, nil
}

// WriteFile replaces the content of a file, creating it if needed.
func (a *AreaFilesystem) WriteFile(p string, data []byte) error {
	return a.writeAtomic(p, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// CopyFile copies src to dst, overwriting dst and preserving the modification time.
func (a *AreaFilesystem) CopyFile(src, dst string) error {
	info, err := a.fs.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	in, err := a.fs.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	if err := a.writeAtomic(dst, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	}); err != nil {
		return err
	}
	if err := a.fs.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("setting times on %s: %w", dst, err)
	}
	return nil
}

// writeAtomic writes to a temporary file next to p and renames it into place.
func (a *AreaFilesystem) writeAtomic(p string, write func(io.Writer) error) error {
	dir := path.Dir(p)
	tmp, err := afero.TempFile(a.fs, dir, tempPrefix)
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		a.fs.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		a.fs.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := a.fs.Chmod(tmpName, filePerm); err != nil {
		a.fs.Remove(tmpName)
		return fmt.Errorf("setting mode on %s: %w", p, err)
	}
	if err := a.fs.Rename(tmpName, p); err != nil {
		a.fs.Remove(tmpName)
		return fmt.Errorf("renaming into %s: %w", p, err)
	}
	return nil
}

// Remove deletes a single file.
func (a *AreaFilesystem) Remove(p string) error {
	if err := a.fs.Remove(p); err != nil {
		return fmt.Errorf("removing %s: %w", p, err)
	}
	return nil
}

// Touch sets the modification time of an existing file.
func (a *AreaFilesystem) Touch(p string, t time.Time) error {
	if err := a.fs.Chtimes(p, t, t); err != nil {
		return fmt.Errorf("touching %s: %w", p, err)
	}
	return nil
}

// MkdirAll creates dir and any missing parents.
func (a *AreaFilesystem) MkdirAll(dir string) error {
	if err := a.fs.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}

// RemoveAll deletes dir recursively. A missing dir is not an error.
func (a *AreaFilesystem) RemoveAll(dir string) error {
	if err := a.fs.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing directory %s: %w", dir, err)
	}
	return nil
}

// RemoveIfEmpty deletes dir if it has no entries and reports whether it did.
// A missing dir is left alone.
func (a *AreaFilesystem) RemoveIfEmpty(dir string) (bool, error) {
	exists, err := a.DirExists(dir)
	if err != nil || !exists {
		return false, err
	}
	empty, err := afero.IsEmpty(a.fs, dir)
	if err != nil {
		return false, fmt.Errorf("checking directory %s: %w", dir, err)
	}
	if !empty {
		return false, nil
	}
	if err := a.fs.Remove(dir); err != nil {
		return false, fmt.Errorf("removing directory %s: %w", dir, err)
	}
	return true, nil
}

// FileExists reports whether p is an existing regular file.
func (a *AreaFilesystem) FileExists(p string) (bool, error) {
	info, err := a.fs.Stat(p)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", p, err)
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether dir is an existing directory.
func (a *AreaFilesystem) DirExists(dir string) (bool, error) {
	exists, err := afero.DirExists(a.fs, dir)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", dir, err)
	}
	return exists, nil
}

// ListDirs returns the names of the visible subdirectories of dir, sorted.
// A missing dir yields an empty result.
func (a *AreaFilesystem) ListDirs(dir string) ([]string, error) {
	infos, err := afero.ReadDir(a.fs, dir)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	var names []string
	for _, info := range infos {
		if info.IsDir() && !hidden(info.Name()) {
			names = append(names, info.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Compile-time check that AreaFilesystem implements repo.Filesystem
var _ repo.Filesystem = (*AreaFilesystem)(nil)
