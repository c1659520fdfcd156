package fs

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFS(t *testing.T, patterns ...string) *AreaFilesystem {
	t.Helper()
	return NewMemoryFilesystem(NewIgnoreMatcher(patterns))
}

func TestAreaFilesystem_ListFiles(t *testing.T) {
	a := newTestFS(t, "*.log")
	require.NoError(t, a.MkdirAll("/alice/temporal/sub"))
	require.NoError(t, a.WriteFile("/alice/temporal/b.txt", []byte("bb")))
	require.NoError(t, a.WriteFile("/alice/temporal/a.txt", []byte("a")))
	require.NoError(t, a.WriteFile("/alice/temporal/.hidden", []byte("x")))
	require.NoError(t, a.WriteFile("/alice/temporal/debug.log", []byte("x")))

	entries, err := a.ListFiles("/alice/temporal")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a.txt", entries[0].Name)
	assert.Equal(t, int64(1), entries[0].Size)
	assert.Equal(t, "b.txt", entries[1].Name)
	assert.Equal(t, int64(2), entries[1].Size)
	assert.Equal(t, "debug.log", entries[2].Name, "ignore patterns do not filter the listing")
}

func TestAreaFilesystem_Ignored(t *testing.T) {
	a := newTestFS(t, "*.log", "/bob/permanente/secret.txt")

	assert.True(t, a.Ignored("/alice/temporal/debug.log"))
	assert.True(t, a.Ignored("/alice/temporal/draft~"))
	assert.True(t, a.Ignored("/bob/permanente/secret.txt"))
	assert.False(t, a.Ignored("/alice/permanente/secret.txt"))
	assert.False(t, a.Ignored("/alice/temporal/notes.txt"))
}

func TestAreaFilesystem_ListFilesMissingDir(t *testing.T) {
	a := newTestFS(t)
	_, err := a.ListFiles("/nobody/temporal")
	require.Error(t, err)
	assert.ErrorIs(t, err, afero.ErrFileNotFound)
}

func TestAreaFilesystem_WriteFileLeavesNoTempFiles(t *testing.T) {
	a := newTestFS(t)
	require.NoError(t, a.MkdirAll("/alice/temporal"))
	require.NoError(t, a.WriteFile("/alice/temporal/notes.txt", []byte("one")))
	require.NoError(t, a.WriteFile("/alice/temporal/notes.txt", []byte("two")))

	data, err := a.ReadFile("/alice/temporal/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	infos, err := afero.ReadDir(a.Fs(), "/alice/temporal")
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestAreaFilesystem_CopyFilePreservesModTime(t *testing.T) {
	a := newTestFS(t)
	require.NoError(t, a.MkdirAll("/alice/temporal"))
	require.NoError(t, a.MkdirAll("/alice/permanente"))
	require.NoError(t, a.WriteFile("/alice/temporal/notes.txt", []byte("hi")))
	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, a.Touch("/alice/temporal/notes.txt", mtime))
	require.NoError(t, a.WriteFile("/alice/permanente/notes.txt", []byte("old content")))

	require.NoError(t, a.CopyFile("/alice/temporal/notes.txt", "/alice/permanente/notes.txt"))

	data, err := a.ReadFile("/alice/permanente/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))

	entries, err := a.ListFiles("/alice/permanente")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].ModTime.Equal(mtime), "mod time = %v, want %v", entries[0].ModTime, mtime)
}

func TestAreaFilesystem_RemoveIfEmpty(t *testing.T) {
	a := newTestFS(t)

	removed, err := a.RemoveIfEmpty("/bob/access")
	require.NoError(t, err)
	assert.False(t, removed, "missing dir")

	require.NoError(t, a.MkdirAll("/bob/access/alice"))
	removed, err = a.RemoveIfEmpty("/bob/access")
	require.NoError(t, err)
	assert.False(t, removed, "non-empty dir")

	require.NoError(t, a.RemoveAll("/bob/access/alice"))
	removed, err = a.RemoveIfEmpty("/bob/access")
	require.NoError(t, err)
	assert.True(t, removed)

	exists, err := a.DirExists("/bob/access")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAreaFilesystem_Exists(t *testing.T) {
	a := newTestFS(t)
	require.NoError(t, a.MkdirAll("/alice/temporal"))
	require.NoError(t, a.WriteFile("/alice/temporal/notes.txt", []byte("hi")))

	ok, err := a.FileExists("/alice/temporal/notes.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.FileExists("/alice/temporal")
	require.NoError(t, err)
	assert.False(t, ok, "directory is not a file")

	ok, err = a.FileExists("/alice/temporal/missing.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = a.DirExists("/alice/temporal")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAreaFilesystem_ListDirs(t *testing.T) {
	a := newTestFS(t)

	names, err := a.ListDirs("/.versions/alice")
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, a.MkdirAll("/.versions/alice/v2"))
	require.NoError(t, a.MkdirAll("/.versions/alice/v1"))
	require.NoError(t, a.MkdirAll("/.versions/alice/.tmp-x"))
	require.NoError(t, a.WriteFile("/.versions/alice/stray.txt", []byte("x")))

	names, err = a.ListDirs("/.versions/alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v2"}, names)
}

func TestNewOSFilesystem(t *testing.T) {
	root := t.TempDir() + "/repository"
	a, err := NewOSFilesystem(root, nil)
	require.NoError(t, err)

	require.NoError(t, a.MkdirAll("/alice/temporal"))
	require.NoError(t, a.WriteFile("/alice/temporal/notes.txt", []byte("hi")))

	data, err := afero.ReadFile(afero.NewOsFs(), root+"/alice/temporal/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
}
