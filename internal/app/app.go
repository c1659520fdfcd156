package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/JossMR/VersionsControlRepository/internal/auth"
	"github.com/JossMR/VersionsControlRepository/internal/config"
	"github.com/JossMR/VersionsControlRepository/internal/database"
	"github.com/JossMR/VersionsControlRepository/internal/errors"
	"github.com/JossMR/VersionsControlRepository/internal/fs"
	"github.com/JossMR/VersionsControlRepository/internal/repo"
)

// ErrRepositoryLocked is returned when another vcr process holds the repository lock.
var ErrRepositoryLocked = errors.Str("repository is locked by another vcr process")

type options struct {
	console io.Writer
	clock   repo.Clock
	idgen   repo.IDGenerator
}

// Option customizes NewVCRApp.
type Option func(*options)

// WithConsole sets where console log records go. The default is stderr.
func WithConsole(w io.Writer) Option {
	return func(o *options) { o.console = w }
}

// WithClock replaces the wall clock.
func WithClock(c repo.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithIDGenerator replaces the version id generator.
func WithIDGenerator(g repo.IDGenerator) Option {
	return func(o *options) { o.idgen = g }
}

// VCRApp is the application layer between the CLI and repo.Service.
// It constructs all dependencies from config, keeps the login session
// across invocations, records mutating commands in the operation history,
// and releases everything on Close.
type VCRApp struct {
	cfg     *config.Config
	store   *database.SQLiteStore
	fsys    *fs.AreaFilesystem
	service *repo.Service
	clock   repo.Clock
	lock    *flock.Flock
	tokens  *tokenFile
	token   string
	op      *Operation
	opUser  string
	logFile *os.File
}

// NewVCRApp creates a fully wired VCRApp from the given config.
// op identifies the CLI command being run. The caller must call Close when done.
func NewVCRApp(cfg *config.Config, op *Operation, opts ...Option) (*VCRApp, error) {
	o := options{console: os.Stderr, clock: repo.RealClock{}, idgen: repo.UUIDGenerator{}}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	level, err := ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &VCRApp{
		cfg:    cfg,
		clock:  o.clock,
		tokens: newTokenFile(cfg.BaseDir),
		op:     op,
	}
	fail := func(err error) (*VCRApp, error) {
		a.release()
		return nil, err
	}

	if err := a.acquireLock(); err != nil {
		return nil, err
	}

	a.fsys, err = fs.NewFilesystemFromConfig(cfg.Filesystem, cfg.RootDir)
	if err != nil {
		return fail(fmt.Errorf("creating filesystem: %w", err))
	}

	a.store, err = database.NewStoreFromConfig(cfg)
	if err != nil {
		return fail(fmt.Errorf("creating database: %w", err))
	}
	if err := a.store.CheckMigrations(); err != nil {
		return fail(fmt.Errorf("database schema out of date: %w", err))
	}

	opID := o.clock.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID, level, o.console)
	if err != nil {
		return fail(fmt.Errorf("creating logger: %w", err))
	}
	a.logFile = logFile

	verifier := auth.NewBcryptVerifier(cfg.Auth.BcryptCost)
	a.service = repo.NewService(a.store, verifier, a.fsys, &slogAdapter{l: logger}, o.clock, o.idgen)

	if err := a.resumeSession(); err != nil {
		return fail(err)
	}
	return a, nil
}

// acquireLock takes the exclusive repository lock. In-memory
// repositories are private to the process and need none.
func (a *VCRApp) acquireLock() error {
	if a.cfg.Filesystem.Type == "memory" {
		return nil
	}
	if err := os.MkdirAll(a.cfg.RootDir, 0755); err != nil {
		return fmt.Errorf("creating repository root: %w", err)
	}
	lock := flock.New(filepath.Join(a.cfg.RootDir, repo.LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("locking repository: %w", err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", ErrRepositoryLocked, lock.Path())
	}
	a.lock = lock
	return nil
}

// resumeSession restores the logged in user from the stored token.
// Stale tokens are discarded.
func (a *VCRApp) resumeSession() error {
	now := a.clock.Now()
	if _, err := a.store.DeleteExpiredSessions(now); err != nil {
		return err
	}

	token, err := a.tokens.Read()
	if err != nil || token == "" {
		return err
	}
	session, err := a.store.FindSession(token)
	if err != nil {
		return err
	}
	if session == nil || session.Expired(now) {
		return a.tokens.Remove()
	}
	if _, err := a.service.Resume(session.Username); err != nil {
		if !errors.Is(errors.Unauthenticated, err) {
			return err
		}
		if err := a.store.DeleteSession(token); err != nil {
			return err
		}
		return a.tokens.Remove()
	}
	a.token = token
	return nil
}

// persistOperation saves the operation to the history table, giving it an ID.
// Only repository-mutating commands call it.
func (a *VCRApp) persistOperation() error {
	if a.op == nil || a.op.Persisted() {
		return nil
	}
	if user, err := a.service.CurrentUser(); err == nil {
		a.opUser = user
	}
	rec, err := a.store.CreateOperation(a.op.Name, a.opUser, a.op.Parameters, a.clock.Now())
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = rec.ID
	return nil
}

// track records err against the current operation.
func (a *VCRApp) track(err error) error {
	if a.op == nil {
		return err
	}
	return a.op.Track(err)
}

// Register creates a new account. It does not log in.
func (a *VCRApp) Register(username, password string) (*repo.Account, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	a.opUser = username
	account, err := a.service.Register(username, password)
	return account, a.track(err)
}

// Login verifies the password and starts a session that later
// invocations resume. Any previous session of this client ends.
func (a *VCRApp) Login(username, password string) (*repo.Account, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	account, err := a.service.Login(username, password)
	if err != nil {
		return nil, a.track(err)
	}
	a.opUser = username

	if a.token != "" {
		if err := a.store.DeleteSession(a.token); err != nil {
			return nil, a.track(err)
		}
		a.token = ""
	}

	now := a.clock.Now()
	session := &database.Session{
		Token:     uuid.NewString(),
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(a.cfg.SessionTTL()),
	}
	if err := a.store.CreateSession(session); err != nil {
		return nil, a.track(err)
	}
	if err := a.tokens.Write(session.Token); err != nil {
		return nil, a.track(err)
	}
	a.token = session.Token
	return account, nil
}

// Logout ends the current session.
func (a *VCRApp) Logout() error {
	if err := a.persistOperation(); err != nil {
		return err
	}
	if err := a.service.Logout(); err != nil {
		return a.track(err)
	}
	if a.token != "" {
		if err := a.store.DeleteSession(a.token); err != nil {
			return a.track(err)
		}
		a.token = ""
	}
	return a.track(a.tokens.Remove())
}

// WhoAmI returns the logged in user.
func (a *VCRApp) WhoAmI() (string, error) {
	return a.service.CurrentUser()
}

// Grant gives grantee read or write access to the current user's published area.
func (a *VCRApp) Grant(grantee, kind string) (*repo.Permission, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	k, ok := repo.ParsePermissionKind(kind)
	if !ok {
		return nil, a.track(errors.E(errors.Op("app.Grant"), errors.InvalidArgument, errors.Errorf("unknown permission kind %q, want read or write", kind)))
	}
	p, err := a.service.Grant(grantee, k)
	return p, a.track(err)
}

// Revoke removes grantee's access to the current user's published area.
func (a *VCRApp) Revoke(grantee string) error {
	if err := a.persistOperation(); err != nil {
		return err
	}
	return a.track(a.service.Revoke(grantee))
}

// Accessible returns the permissions other users granted the current user.
func (a *VCRApp) Accessible() ([]*repo.Permission, error) {
	return a.service.ListAccessible()
}

// Grantees returns the permissions the current user granted.
func (a *VCRApp) Grantees() ([]*repo.Permission, error) {
	return a.service.ListGrantees()
}

// Commit publishes the current user's staging area, or with a non-empty
// owner their mirror of owner into owner's published area.
func (a *VCRApp) Commit(owner string) (*repo.SyncResult, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	var (
		res *repo.SyncResult
		err error
	)
	if owner == "" {
		res, err = a.service.Commit()
	} else {
		res, err = a.service.CommitTo(owner)
	}
	return res, a.track(err)
}

// Update refreshes the staging area, or with a non-empty target the mirror of target.
func (a *VCRApp) Update(target string) (*repo.SyncResult, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	res, err := a.service.Update(target)
	return res, a.track(err)
}

// ListFiles lists an area visible to the current user.
func (a *VCRApp) ListFiles(kind repo.AreaKind, owner string) ([]repo.FileEntry, error) {
	return a.service.ListFiles(kind, owner)
}

// ReadFile returns a file of an area visible to the current user.
func (a *VCRApp) ReadFile(kind repo.AreaKind, owner, name string) ([]byte, error) {
	return a.service.ReadFile(kind, owner, name)
}

// CreateFile creates a file in the staging area, or in the mirror of owner.
func (a *VCRApp) CreateFile(owner, name string, content []byte) error {
	if err := a.persistOperation(); err != nil {
		return err
	}
	return a.track(a.service.CreateFile(owner, name, content))
}

// WriteFile replaces the content of an existing file.
func (a *VCRApp) WriteFile(owner, name string, content []byte) error {
	if err := a.persistOperation(); err != nil {
		return err
	}
	return a.track(a.service.WriteFile(owner, name, content))
}

// TouchFile updates the modification time of an existing file.
func (a *VCRApp) TouchFile(owner, name string) error {
	if err := a.persistOperation(); err != nil {
		return err
	}
	return a.track(a.service.TouchFile(owner, name))
}

// DeleteFile removes an existing file.
func (a *VCRApp) DeleteFile(owner, name string) error {
	if err := a.persistOperation(); err != nil {
		return err
	}
	return a.track(a.service.DeleteFile(owner, name))
}

// ListVersions returns the current user's versions, newest first.
func (a *VCRApp) ListVersions() ([]*repo.Snapshot, error) {
	return a.service.ListSnapshots()
}

// CreateVersion snapshots the current user's published area.
func (a *VCRApp) CreateVersion() (*repo.Snapshot, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	snap, err := a.service.Snapshot()
	return snap, a.track(err)
}

// ResolveVersion turns a selector into a version id. A decimal selector is
// a 1-based position in ListVersions; anything else is taken as an id.
func (a *VCRApp) ResolveVersion(selector string) (string, error) {
	const op errors.Op = "app.ResolveVersion"
	if selector == "" {
		return "", errors.E(op, errors.InvalidArgument, errors.Str("empty version selector"))
	}
	n, err := strconv.Atoi(selector)
	if err != nil {
		return selector, nil
	}
	if n < 1 {
		return "", errors.E(op, errors.InvalidArgument, errors.Errorf("version number must be at least 1, got %d", n))
	}
	snaps, err := a.service.ListSnapshots()
	if err != nil {
		return "", err
	}
	if n > len(snaps) {
		return "", errors.E(op, errors.NotFound, errors.Errorf("no version number %d, %d versions exist", n, len(snaps)))
	}
	return snaps[n-1].VersionID, nil
}

// VersionFiles lists the files of the selected version.
func (a *VCRApp) VersionFiles(selector string) ([]repo.FileEntry, error) {
	id, err := a.ResolveVersion(selector)
	if err != nil {
		return nil, err
	}
	return a.service.ListSnapshotFiles(id)
}

// RestoreFolder replaces the published area with the selected version.
func (a *VCRApp) RestoreFolder(selector string) (repo.Plan, error) {
	if err := a.persistOperation(); err != nil {
		return repo.Plan{}, err
	}
	id, err := a.ResolveVersion(selector)
	if err != nil {
		return repo.Plan{}, a.track(err)
	}
	plan, err := a.service.RestoreFolder(id)
	return plan, a.track(err)
}

// RestoreFile copies one file of the selected version into the published area.
func (a *VCRApp) RestoreFile(selector, name string) error {
	if err := a.persistOperation(); err != nil {
		return err
	}
	id, err := a.ResolveVersion(selector)
	if err != nil {
		return a.track(err)
	}
	return a.track(a.service.RestoreFile(id, name))
}

// History returns the most recent operations of the current user, or of
// every user when all is set.
func (a *VCRApp) History(limit int, all bool) ([]*database.Operation, error) {
	username := ""
	if !all {
		user, err := a.service.CurrentUser()
		if err != nil {
			return nil, err
		}
		username = user
	}
	return a.store.ListOperations(username, limit)
}

// BackupDatabase writes a copy of the account database to dest.
func (a *VCRApp) BackupDatabase(dest string) error {
	if err := a.persistOperation(); err != nil {
		return err
	}
	abs, err := filepath.Abs(dest)
	if err != nil {
		return a.track(fmt.Errorf("resolving path: %w", err))
	}
	if _, err := os.Stat(abs); err == nil {
		return a.track(errors.E(errors.Op("app.BackupDatabase"), errors.PathName(abs), errors.Exist, errors.Str("backup destination already exists")))
	}
	return a.track(a.store.BackupTo(abs))
}

// Close finalizes the operation record and releases all resources.
func (a *VCRApp) Close() error {
	var firstErr error
	if a.op != nil && a.op.Persisted() {
		if err := a.store.FinishOperation(a.op.ID, a.opUser, a.op.Status, a.clock.Now()); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}
	if err := a.release(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// release closes the database, the log file and the repository lock.
func (a *VCRApp) release() error {
	var firstErr error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			firstErr = fmt.Errorf("closing database: %w", err)
		}
		a.store = nil
	}
	if a.logFile != nil {
		a.logFile.Close()
		a.logFile = nil
	}
	if a.lock != nil {
		if err := a.lock.Unlock(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("unlocking repository: %w", err)
		}
		a.lock = nil
	}
	return firstErr
}
