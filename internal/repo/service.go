package repo

import (
	"sync"

	"github.com/JossMR/VersionsControlRepository/internal/errors"
)

// Service is the session facade over the engine. It holds the current user
// and serializes mutations per user tree. Every method except Register,
// Login and Resume requires a current user.
type Service struct {
	accounts AccountStore
	verifier CredentialVerifier
	fs       Filesystem
	logger   Logger
	clock    Clock

	graph    *PermissionGraph
	versions *VersionStore
	sync     *SyncEngine
	locks    *userLocks

	mu      sync.Mutex
	current string
}

// NewService creates a Service with the provided dependencies.
func NewService(accounts AccountStore, verifier CredentialVerifier, fs Filesystem, logger Logger, clock Clock, idgen IDGenerator) *Service {
	graph := NewPermissionGraph(accounts, fs, clock)
	versions := NewVersionStore(fs, clock, idgen, logger)
	return &Service{
		accounts: accounts,
		verifier: verifier,
		fs:       fs,
		logger:   logger,
		clock:    clock,
		graph:    graph,
		versions: versions,
		sync:     NewSyncEngine(fs, graph, versions, logger),
		locks:    newUserLocks(),
	}
}

// Register creates an account together with its staging and published areas.
// It does not log the new user in.
func (s *Service) Register(username, secret string) (*Account, error) {
	const op errors.Op = "repo.Register"
	if err := ValidateUsername(username); err != nil {
		return nil, errors.E(op, errors.InvalidArgument, err)
	}
	if secret == "" {
		return nil, errors.E(op, errors.UserName(username), errors.InvalidArgument, errors.Str("password must not be empty"))
	}

	unlock := s.locks.lock(username)
	defer unlock()

	existing, err := s.accounts.FindAccount(username)
	if err != nil {
		return nil, errors.E(op, errors.IOFailure, err)
	}
	if existing != nil {
		return nil, errors.E(op, errors.UserName(username), errors.Exist, errors.Str("user already registered"))
	}

	credential, err := s.verifier.Hash(secret)
	if err != nil {
		return nil, errors.E(op, errors.UserName(username), errors.IOFailure, err)
	}
	for _, dir := range []string{StagingDir(username), PublishedDir(username)} {
		if err := s.fs.MkdirAll(dir); err != nil {
			return nil, errors.E(op, errors.UserName(username), errors.PathName(dir), errors.IOFailure, err)
		}
	}
	account, err := s.accounts.CreateAccount(username, credential, s.clock.Now())
	if err != nil {
		return nil, errors.E(op, errors.UserName(username), errors.IOFailure, err)
	}

	s.logger.Info("user registered", "user", username)
	return account, nil
}

// Login verifies the secret and makes username the current user.
func (s *Service) Login(username, secret string) (*Account, error) {
	const op errors.Op = "repo.Login"
	account, err := s.accounts.FindAccount(username)
	if err != nil {
		return nil, errors.E(op, errors.IOFailure, err)
	}
	if account == nil || !s.verifier.Verify(account.Credential, secret) {
		return nil, errors.E(op, errors.Unauthenticated, errors.Str("invalid username or password"))
	}

	s.setCurrent(username)
	s.logger.Info("user logged in", "user", username)
	return account, nil
}

// Resume makes an existing account the current user without a secret.
// Callers use it after validating a session token of their own.
func (s *Service) Resume(username string) (*Account, error) {
	const op errors.Op = "repo.Resume"
	account, err := s.accounts.FindAccount(username)
	if err != nil {
		return nil, errors.E(op, errors.IOFailure, err)
	}
	if account == nil {
		return nil, errors.E(op, errors.UserName(username), errors.Unauthenticated, errors.Str("session user no longer exists"))
	}
	s.setCurrent(username)
	return account, nil
}

// Logout clears the current user.
func (s *Service) Logout() error {
	user, err := s.requireUser("repo.Logout")
	if err != nil {
		return err
	}
	s.setCurrent("")
	s.logger.Info("user logged out", "user", user)
	return nil
}

// CurrentUser returns the name of the logged in user.
func (s *Service) CurrentUser() (string, error) {
	return s.requireUser("repo.CurrentUser")
}

func (s *Service) setCurrent(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = username
}

func (s *Service) requireUser(op errors.Op) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == "" {
		return "", errors.E(op, errors.Unauthenticated, errors.Str("log in first"))
	}
	return s.current, nil
}

// Grant gives grantee kind access to the current user's published area.
func (s *Service) Grant(grantee string, kind PermissionKind) (*Permission, error) {
	user, err := s.requireUser("repo.Grant")
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(user, grantee)
	defer unlock()

	p, err := s.graph.Grant(user, grantee, kind)
	if err != nil {
		return nil, err
	}
	s.logger.Info("permission granted", "user", user, "grantee", grantee, "kind", string(kind))
	return p, nil
}

// Revoke removes grantee's access to the current user's published area.
func (s *Service) Revoke(grantee string) error {
	user, err := s.requireUser("repo.Revoke")
	if err != nil {
		return err
	}
	unlock := s.locks.lock(user, grantee)
	defer unlock()

	if err := s.graph.Revoke(user, grantee); err != nil {
		return err
	}
	s.logger.Info("permission revoked", "user", user, "grantee", grantee)
	return nil
}

// Check returns the kind of the edge owner -> grantee, if any.
func (s *Service) Check(owner, grantee string) (PermissionKind, bool, error) {
	if _, err := s.requireUser("repo.Check"); err != nil {
		return "", false, err
	}
	return s.graph.Check(owner, grantee)
}

// ListAccessible returns the edges granting the current user access, ordered by owner.
func (s *Service) ListAccessible() ([]*Permission, error) {
	user, err := s.requireUser("repo.ListAccessible")
	if err != nil {
		return nil, err
	}
	return s.graph.Accessible(user)
}

// ListGrantees returns the edges issued by the current user, ordered by grantee.
func (s *Service) ListGrantees() ([]*Permission, error) {
	user, err := s.requireUser("repo.ListGrantees")
	if err != nil {
		return nil, err
	}
	return s.graph.Grantees(user)
}

// Commit publishes the current user's staging area.
func (s *Service) Commit() (*SyncResult, error) {
	user, err := s.requireUser("repo.Commit")
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(user)
	defer unlock()
	return s.sync.CommitSelf(user)
}

// CommitTo publishes the current user's mirror of owner into owner's published area.
func (s *Service) CommitTo(owner string) (*SyncResult, error) {
	user, err := s.requireUser("repo.CommitTo")
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(user, owner)
	defer unlock()
	return s.sync.CommitDelegated(user, owner)
}

// Update refreshes the current user's staging area, or their mirror of target.
func (s *Service) Update(target string) (*SyncResult, error) {
	user, err := s.requireUser("repo.Update")
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(user, target)
	defer unlock()
	return s.sync.Update(user, target)
}

// Snapshot records the current user's published area as a new version.
func (s *Service) Snapshot() (*Snapshot, error) {
	user, err := s.requireUser("repo.Snapshot")
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(user)
	defer unlock()
	return s.versions.Snapshot(user, SourceManual)
}

// ListSnapshots returns the current user's versions, newest first.
func (s *Service) ListSnapshots() ([]*Snapshot, error) {
	user, err := s.requireUser("repo.ListSnapshots")
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(user)
	defer unlock()
	return s.versions.List(user)
}

// ListSnapshotFiles enumerates the files of one of the current user's versions.
func (s *Service) ListSnapshotFiles(versionID string) ([]FileEntry, error) {
	user, err := s.requireUser("repo.ListSnapshotFiles")
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(user)
	defer unlock()
	return s.versions.ListFiles(user, versionID)
}

// RestoreFolder replaces the current user's published area with a version.
func (s *Service) RestoreFolder(versionID string) (Plan, error) {
	user, err := s.requireUser("repo.RestoreFolder")
	if err != nil {
		return Plan{}, err
	}
	unlock := s.locks.lock(user)
	defer unlock()
	return s.versions.RestoreFolder(user, versionID)
}

// RestoreFile copies one file of a version into the current user's published area.
func (s *Service) RestoreFile(versionID, name string) error {
	user, err := s.requireUser("repo.RestoreFile")
	if err != nil {
		return err
	}
	unlock := s.locks.lock(user)
	defer unlock()
	return s.versions.RestoreFile(user, versionID, name)
}
