package repo_test

import (
	"testing"
	"time"

	"github.com/JossMR/VersionsControlRepository/internal/errors"
	"github.com/JossMR/VersionsControlRepository/internal/repo"
	"github.com/JossMR/VersionsControlRepository/internal/testutil"
)

func TestService_Register(t *testing.T) {
	t.Run("creates staging and published areas", func(t *testing.T) {
		env := testutil.NewTestService(t)
		env.Register(t, "alice")

		for _, dir := range []string{repo.StagingDir("alice"), repo.PublishedDir("alice")} {
			ok, err := env.FS.DirExists(dir)
			if err != nil {
				t.Fatalf("DirExists(%s) error = %v", dir, err)
			}
			if !ok {
				t.Errorf("%s was not created", dir)
			}
		}
	})

	t.Run("second registration fails and keeps the first account", func(t *testing.T) {
		env := testutil.NewTestService(t)
		env.Register(t, "alice")

		_, err := env.Service.Register("alice", "other-password")
		wantKind(t, err, errors.Exist)

		if _, err := env.Service.Login("alice", testutil.TestPassword); err != nil {
			t.Fatalf("Login() with the original password error = %v", err)
		}
		if _, err := env.Service.Login("alice", "other-password"); err == nil {
			t.Fatal("Login() with the second password succeeded")
		}
	})

	t.Run("rejects bad input", func(t *testing.T) {
		env := testutil.NewTestService(t)

		_, err := env.Service.Register("../etc", testutil.TestPassword)
		wantKind(t, err, errors.InvalidArgument)

		_, err = env.Service.Register("alice", "")
		wantKind(t, err, errors.InvalidArgument)
	})

	t.Run("stores a hashed credential", func(t *testing.T) {
		env := testutil.NewTestService(t)
		env.Register(t, "alice")

		a, err := env.Store.FindAccount("alice")
		if err != nil {
			t.Fatalf("FindAccount() error = %v", err)
		}
		if a.Credential == testutil.TestPassword {
			t.Error("credential stored in clear text")
		}
	})
}

func TestService_Session(t *testing.T) {
	env := testutil.NewTestService(t)
	env.Register(t, "alice")

	t.Run("operations require a current user", func(t *testing.T) {
		_, err := env.Service.CurrentUser()
		wantKind(t, err, errors.Unauthenticated)

		_, err = env.Service.Commit()
		wantKind(t, err, errors.Unauthenticated)

		err = env.Service.CreateFile("", "notes.txt", []byte("hi"))
		wantKind(t, err, errors.Unauthenticated)

		_, err = env.Service.ListSnapshots()
		wantKind(t, err, errors.Unauthenticated)
	})

	t.Run("wrong password and unknown user are unauthenticated", func(t *testing.T) {
		_, err := env.Service.Login("alice", "wrong")
		wantKind(t, err, errors.Unauthenticated)

		_, err = env.Service.Login("nobody", testutil.TestPassword)
		wantKind(t, err, errors.Unauthenticated)
	})

	t.Run("login, resume and logout", func(t *testing.T) {
		if _, err := env.Service.Login("alice", testutil.TestPassword); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		user, err := env.Service.CurrentUser()
		if err != nil || user != "alice" {
			t.Fatalf("CurrentUser() = %q, %v, want alice", user, err)
		}

		if err := env.Service.Logout(); err != nil {
			t.Fatalf("Logout() error = %v", err)
		}
		wantKind(t, env.Service.Logout(), errors.Unauthenticated)

		if _, err := env.Service.Resume("alice"); err != nil {
			t.Fatalf("Resume() error = %v", err)
		}
		if user, _ := env.Service.CurrentUser(); user != "alice" {
			t.Errorf("CurrentUser() after Resume = %q, want alice", user)
		}

		_, err = env.Service.Resume("ghost")
		wantKind(t, err, errors.Unauthenticated)
	})
}

func TestService_CommitScenario(t *testing.T) {
	env := testutil.NewTestService(t)
	svc := env.As(t, "alice")

	mustCreate(t, env, "", "notes.txt", "hi")

	res, err := svc.Commit()
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if res.Snapshot != nil {
		t.Errorf("first Commit() took snapshot %+v, want none", res.Snapshot)
	}
	wantFiles(t, env, repo.PublishedDir("alice"), map[string]string{"notes.txt": "hi"})
	snaps, err := svc.ListSnapshots()
	if err != nil {
		t.Fatalf("ListSnapshots() error = %v", err)
	}
	if len(snaps) != 0 {
		t.Fatalf("ListSnapshots() = %v, want none", snaps)
	}

	if err := svc.WriteFile("", "notes.txt", []byte("bye")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	env.Clock.Advance(time.Minute)
	res, err = svc.Commit()
	if err != nil {
		t.Fatalf("second Commit() error = %v", err)
	}
	if res.Snapshot == nil || res.Snapshot.SourceTag != repo.SourceStaging {
		t.Fatalf("second Commit() snapshot = %+v, want staging snapshot", res.Snapshot)
	}
	wantFiles(t, env, repo.PublishedDir("alice"), map[string]string{"notes.txt": "bye"})
	wantSnapshot(t, env, "alice", res.Snapshot.VersionID, map[string]string{"notes.txt": "hi"})

	// Staging is copied, not moved.
	wantFiles(t, env, repo.StagingDir("alice"), map[string]string{"notes.txt": "bye"})
}

func TestService_CommitIsIdempotentOnFileSets(t *testing.T) {
	env := testutil.NewTestService(t)
	svc := env.As(t, "alice")
	mustCreate(t, env, "", "a.txt", "a")
	mustCreate(t, env, "", "b.txt", "b")

	if _, err := svc.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	first := testutil.ReadFiles(t, env.FS, repo.PublishedDir("alice"))

	if _, err := svc.Commit(); err != nil {
		t.Fatalf("second Commit() error = %v", err)
	}
	wantFiles(t, env, repo.PublishedDir("alice"), first)
}

func TestService_CommitRemovesFilesDeletedFromStaging(t *testing.T) {
	env := testutil.NewTestService(t)
	svc := env.As(t, "alice")
	mustCreate(t, env, "", "keep.txt", "k")
	mustCreate(t, env, "", "drop.txt", "d")
	if _, err := svc.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if err := svc.DeleteFile("", "drop.txt"); err != nil {
		t.Fatalf("DeleteFile() error = %v", err)
	}
	res, err := svc.Commit()
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if res.Deleted != 1 || res.Copied != 1 {
		t.Errorf("Commit() = %+v, want 1 deleted and 1 copied", res)
	}
	wantFiles(t, env, repo.PublishedDir("alice"), map[string]string{"keep.txt": "k"})
}

func TestService_UpdateOwnStaging(t *testing.T) {
	env := testutil.NewTestService(t)
	svc := env.As(t, "alice")
	mustCreate(t, env, "", "notes.txt", "published")
	if _, err := svc.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if err := svc.WriteFile("", "notes.txt", []byte("draft")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	mustCreate(t, env, "", "scratch.txt", "x")

	if _, err := svc.Update(""); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	wantFiles(t, env, repo.StagingDir("alice"), map[string]string{"notes.txt": "published"})
}
