package repo_test

import (
	"path"
	"reflect"
	"testing"

	"github.com/JossMR/VersionsControlRepository/internal/errors"
	"github.com/JossMR/VersionsControlRepository/internal/repo"
	"github.com/JossMR/VersionsControlRepository/internal/testutil"
)

// wantKind fails the test unless err carries kind.
func wantKind(t *testing.T, err error, kind errors.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("error = nil, want %v", kind)
	}
	if got := errors.KindOf(err); got != kind {
		t.Fatalf("error kind = %v, want %v (error: %v)", got, kind, err)
	}
}

// wantFiles fails the test unless dir holds exactly files.
func wantFiles(t *testing.T, env *testutil.ServiceEnv, dir string, files map[string]string) {
	t.Helper()
	got := testutil.ReadFiles(t, env.FS, dir)
	if !reflect.DeepEqual(got, files) {
		t.Fatalf("%s = %v, want %v", dir, got, files)
	}
}

// wantSnapshot fails the test unless the version holds exactly files.
func wantSnapshot(t *testing.T, env *testutil.ServiceEnv, user, versionID string, files map[string]string) {
	t.Helper()
	vs := repo.NewVersionStore(env.FS, env.Clock, env.IDs, repo.NewNopLogger())
	entries, err := vs.ListFiles(user, versionID)
	if err != nil {
		t.Fatalf("ListFiles(%s, %s) error = %v", user, versionID, err)
	}
	got := make(map[string]string, len(entries))
	for _, e := range entries {
		data, err := env.FS.ReadFile(path.Join(repo.VersionDir(user, versionID), e.Name))
		if err != nil {
			t.Fatalf("ReadFile(%s) error = %v", e.Name, err)
		}
		got[e.Name] = string(data)
	}
	if !reflect.DeepEqual(got, files) {
		t.Fatalf("version %s = %v, want %v", versionID, got, files)
	}
}

func mustCreate(t *testing.T, env *testutil.ServiceEnv, owner, name, content string) {
	t.Helper()
	if err := env.Service.CreateFile(owner, name, []byte(content)); err != nil {
		t.Fatalf("CreateFile(%q, %q) error = %v", owner, name, err)
	}
}
