package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/JossMR/VersionsControlRepository/internal/repo"
)

// newTestStore creates a new in-memory store with the schema applied.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(MemoryPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func mustCreateAccount(t *testing.T, s *SQLiteStore, username string) {
	t.Helper()
	if _, err := s.CreateAccount(username, "hash-"+username, testTime); err != nil {
		t.Fatalf("CreateAccount(%q) error = %v", username, err)
	}
}

func TestSQLiteStore_Accounts(t *testing.T) {
	t.Run("returns nil when account not found", func(t *testing.T) {
		s := newTestStore(t)

		got, err := s.FindAccount("nobody")
		if err != nil {
			t.Fatalf("FindAccount() error = %v", err)
		}
		if got != nil {
			t.Errorf("FindAccount() = %v, want nil", got)
		}
	})

	t.Run("creates and finds account", func(t *testing.T) {
		s := newTestStore(t)
		mustCreateAccount(t, s, "alice")

		got, err := s.FindAccount("alice")
		if err != nil {
			t.Fatalf("FindAccount() error = %v", err)
		}
		if got == nil {
			t.Fatal("FindAccount() = nil, want account")
		}
		if got.Credential != "hash-alice" {
			t.Errorf("Credential = %q, want %q", got.Credential, "hash-alice")
		}
		if !got.CreatedAt.Equal(testTime) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, testTime)
		}
	})

	t.Run("rejects duplicate username and keeps the first", func(t *testing.T) {
		s := newTestStore(t)
		mustCreateAccount(t, s, "alice")

		if _, err := s.CreateAccount("alice", "other", testTime); err == nil {
			t.Fatal("CreateAccount() expected error for duplicate username")
		}
		got, _ := s.FindAccount("alice")
		if got.Credential != "hash-alice" {
			t.Errorf("Credential = %q, want %q", got.Credential, "hash-alice")
		}
	})

	t.Run("lists accounts by username", func(t *testing.T) {
		s := newTestStore(t)
		mustCreateAccount(t, s, "carol")
		mustCreateAccount(t, s, "alice")

		got, err := s.ListAccounts()
		if err != nil {
			t.Fatalf("ListAccounts() error = %v", err)
		}
		if len(got) != 2 || got[0].Username != "alice" || got[1].Username != "carol" {
			t.Errorf("ListAccounts() = %v, want [alice carol]", got)
		}
	})
}

func TestSQLiteStore_Permissions(t *testing.T) {
	s := newTestStore(t)
	for _, u := range []string{"alice", "bob", "carol"} {
		mustCreateAccount(t, s, u)
	}

	t.Run("upserts one edge per pair", func(t *testing.T) {
		if err := s.PutPermission(&repo.Permission{Owner: "alice", Grantee: "bob", Kind: repo.PermissionRead, GrantedAt: testTime}); err != nil {
			t.Fatalf("PutPermission() error = %v", err)
		}
		if err := s.PutPermission(&repo.Permission{Owner: "alice", Grantee: "bob", Kind: repo.PermissionWrite, GrantedAt: testTime}); err != nil {
			t.Fatalf("PutPermission() error = %v", err)
		}

		got, err := s.FindPermission("alice", "bob")
		if err != nil {
			t.Fatalf("FindPermission() error = %v", err)
		}
		if got == nil || got.Kind != repo.PermissionWrite {
			t.Fatalf("FindPermission() = %v, want write edge", got)
		}
	})

	t.Run("edges are directed", func(t *testing.T) {
		got, err := s.FindPermission("bob", "alice")
		if err != nil {
			t.Fatalf("FindPermission() error = %v", err)
		}
		if got != nil {
			t.Errorf("FindPermission(bob, alice) = %v, want nil", got)
		}
	})

	t.Run("lists by grantee and owner", func(t *testing.T) {
		if err := s.PutPermission(&repo.Permission{Owner: "carol", Grantee: "bob", Kind: repo.PermissionRead, GrantedAt: testTime}); err != nil {
			t.Fatalf("PutPermission() error = %v", err)
		}

		byGrantee, err := s.ListPermissionsByGrantee("bob")
		if err != nil {
			t.Fatalf("ListPermissionsByGrantee() error = %v", err)
		}
		if len(byGrantee) != 2 || byGrantee[0].Owner != "alice" || byGrantee[1].Owner != "carol" {
			t.Errorf("ListPermissionsByGrantee() = %v, want owners [alice carol]", byGrantee)
		}

		byOwner, err := s.ListPermissionsByOwner("alice")
		if err != nil {
			t.Fatalf("ListPermissionsByOwner() error = %v", err)
		}
		if len(byOwner) != 1 || byOwner[0].Grantee != "bob" {
			t.Errorf("ListPermissionsByOwner() = %v, want grantee [bob]", byOwner)
		}
	})

	t.Run("deletes and reports existence", func(t *testing.T) {
		removed, err := s.DeletePermission("alice", "bob")
		if err != nil {
			t.Fatalf("DeletePermission() error = %v", err)
		}
		if !removed {
			t.Error("DeletePermission() = false, want true")
		}

		removed, err = s.DeletePermission("alice", "bob")
		if err != nil {
			t.Fatalf("DeletePermission() error = %v", err)
		}
		if removed {
			t.Error("second DeletePermission() = true, want false")
		}
	})
}

func TestSQLiteStore_Sessions(t *testing.T) {
	s := newTestStore(t)
	mustCreateAccount(t, s, "alice")

	live := &Session{Token: "live", Username: "alice", CreatedAt: testTime, ExpiresAt: testTime.Add(time.Hour)}
	old := &Session{Token: "old", Username: "alice", CreatedAt: testTime.Add(-2 * time.Hour), ExpiresAt: testTime.Add(-time.Hour)}
	for _, sess := range []*Session{live, old} {
		if err := s.CreateSession(sess); err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}
	}

	got, err := s.FindSession("live")
	if err != nil {
		t.Fatalf("FindSession() error = %v", err)
	}
	if got == nil || got.Username != "alice" || !got.ExpiresAt.Equal(live.ExpiresAt) {
		t.Fatalf("FindSession() = %+v, want %+v", got, live)
	}
	if got.Expired(testTime) {
		t.Error("Expired() = true, want false")
	}

	n, err := s.DeleteExpiredSessions(testTime)
	if err != nil {
		t.Fatalf("DeleteExpiredSessions() error = %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteExpiredSessions() = %d, want 1", n)
	}
	if got, _ := s.FindSession("old"); got != nil {
		t.Errorf("FindSession(old) = %+v, want nil", got)
	}

	if err := s.DeleteSession("live"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if got, _ := s.FindSession("live"); got != nil {
		t.Errorf("FindSession(live) after delete = %+v, want nil", got)
	}
}

func TestSQLiteStore_DeleteExpiredSessionsBoundary(t *testing.T) {
	s := newTestStore(t)
	mustCreateAccount(t, s, "alice")

	sessions := map[string]time.Time{
		"at-now":       testTime,
		"just-before":  testTime.Add(-time.Millisecond),
		"just-after":   testTime.Add(500 * time.Millisecond),
		"next-day":     testTime.Add(24 * time.Hour),
		"other-offset": testTime.Add(time.Hour).In(time.FixedZone("UTC-5", -5*60*60)),
	}
	for token, expires := range sessions {
		sess := &Session{Token: token, Username: "alice", CreatedAt: testTime.Add(-time.Hour), ExpiresAt: expires}
		if err := s.CreateSession(sess); err != nil {
			t.Fatalf("CreateSession(%s) error = %v", token, err)
		}
	}

	n, err := s.DeleteExpiredSessions(testTime)
	if err != nil {
		t.Fatalf("DeleteExpiredSessions() error = %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteExpiredSessions() = %d, want 2", n)
	}
	for token, expires := range sessions {
		got, err := s.FindSession(token)
		if err != nil {
			t.Fatalf("FindSession(%s) error = %v", token, err)
		}
		wantKept := expires.After(testTime)
		if (got != nil) != wantKept {
			t.Errorf("FindSession(%s) kept = %v, want %v", token, got != nil, wantKept)
		}
	}
}

func TestSQLiteStore_Operations(t *testing.T) {
	s := newTestStore(t)

	first, err := s.CreateOperation("register", "", "alice", testTime)
	if err != nil {
		t.Fatalf("CreateOperation() error = %v", err)
	}
	if first.ID == 0 {
		t.Fatal("CreateOperation() did not assign an ID")
	}
	if err := s.FinishOperation(first.ID, "alice", "success", testTime.Add(time.Second)); err != nil {
		t.Fatalf("FinishOperation() error = %v", err)
	}
	second, err := s.CreateOperation("commit", "bob", "", testTime.Add(time.Minute))
	if err != nil {
		t.Fatalf("CreateOperation() error = %v", err)
	}

	ops, err := s.ListOperations("", 10)
	if err != nil {
		t.Fatalf("ListOperations() error = %v", err)
	}
	if len(ops) != 2 || ops[0].ID != second.ID {
		t.Fatalf("ListOperations() = %v, want newest first", ops)
	}
	if ops[1].Status != "success" || !ops[1].FinishedAt.Valid || ops[1].Username != "alice" {
		t.Errorf("finished operation = %+v", ops[1])
	}
	if ops[0].Status != "running" || ops[0].FinishedAt.Valid {
		t.Errorf("running operation = %+v", ops[0])
	}

	mine, err := s.ListOperations("alice", 10)
	if err != nil {
		t.Fatalf("ListOperations() error = %v", err)
	}
	if len(mine) != 1 || mine[0].Operation != "register" {
		t.Errorf("ListOperations(alice) = %v, want [register]", mine)
	}
}

func TestSQLiteStore_BackupTo(t *testing.T) {
	s := newTestStore(t)
	mustCreateAccount(t, s, "alice")

	dest := filepath.Join(t.TempDir(), "backup.db")
	if err := s.BackupTo(dest); err != nil {
		t.Fatalf("BackupTo() error = %v", err)
	}

	restored, err := NewSQLiteStore(dest)
	if err != nil {
		t.Fatalf("NewSQLiteStore(backup) error = %v", err)
	}
	defer restored.Close()

	got, err := restored.FindAccount("alice")
	if err != nil || got == nil {
		t.Fatalf("FindAccount() on backup = %v, %v", got, err)
	}
}
