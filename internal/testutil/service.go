package testutil

import (
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/JossMR/VersionsControlRepository/internal/auth"
	"github.com/JossMR/VersionsControlRepository/internal/database"
	"github.com/JossMR/VersionsControlRepository/internal/fs"
	"github.com/JossMR/VersionsControlRepository/internal/repo"
)

// TestPassword is the password NewTestService registers users with.
const TestPassword = "s3cret"

// ServiceEnv bundles a Service with the stubs behind it.
type ServiceEnv struct {
	Service *repo.Service
	Store   *database.SQLiteStore
	FS      *fs.AreaFilesystem
	Clock   *StubClock
	IDs     *StubIDGenerator
}

// NewTestService creates a Service over an in-memory tree and account store.
func NewTestService(t *testing.T) *ServiceEnv {
	t.Helper()
	env := &ServiceEnv{
		Store: NewTestAccountStore(t),
		FS:    NewTestFilesystem(t),
		Clock: FixedClock(),
		IDs:   NewStubIDGenerator(),
	}
	env.Service = repo.NewService(env.Store, auth.NewBcryptVerifier(bcrypt.MinCost), env.FS, repo.NewNopLogger(), env.Clock, env.IDs)
	return env
}

// Register registers each user with TestPassword.
func (e *ServiceEnv) Register(t *testing.T, users ...string) {
	t.Helper()
	for _, u := range users {
		if _, err := e.Service.Register(u, TestPassword); err != nil {
			t.Fatalf("Register(%q) error = %v", u, err)
		}
	}
}

// As logs user in, registering them first if needed.
func (e *ServiceEnv) As(t *testing.T, user string) *repo.Service {
	t.Helper()
	if a, err := e.Store.FindAccount(user); err != nil {
		t.Fatalf("FindAccount(%q) error = %v", user, err)
	} else if a == nil {
		e.Register(t, user)
	}
	if _, err := e.Service.Login(user, TestPassword); err != nil {
		t.Fatalf("Login(%q) error = %v", user, err)
	}
	return e.Service
}
