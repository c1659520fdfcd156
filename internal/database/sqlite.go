package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/JossMR/VersionsControlRepository/internal/database/migrations"
	"github.com/JossMR/VersionsControlRepository/internal/repo"
)

const driverName = "sqlite3"

// MemoryPath opens an in-memory database.
const MemoryPath = ":memory:"

const pragmas = `
PRAGMA foreign_keys=ON;
PRAGMA busy_timeout=5000;
PRAGMA synchronous=FULL;
`

// Session is a login that survives across CLI invocations.
type Session struct {
	Token     string    `db:"token" json:"-"`
	Username  string    `db:"username" json:"username"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Operation is one recorded CLI command.
type Operation struct {
	ID         int64        `db:"id" json:"id"`
	Operation  string       `db:"operation" json:"operation"`
	Username   string       `db:"username" json:"username"`
	Parameters string       `db:"parameters" json:"parameters"`
	StartedAt  time.Time    `db:"started_at" json:"started_at"`
	FinishedAt sql.NullTime `db:"finished_at" json:"-"`
	Status     string       `db:"status" json:"status"`
}

// SQLiteStore keeps accounts, permission edges, sessions and the operation
// history in one SQLite file. Every call runs under a single mutex and
// writes are committed before the call returns.
type SQLiteStore struct {
	mu   sync.Mutex
	db   *sqlx.DB
	path string
}

// OpenConnection opens and configures a SQLite connection.
// path can be a file path or ":memory:". The pool holds a single
// connection so an in-memory database is shared by all queries.
func OpenConnection(path string) (*sqlx.DB, error) {
	dsn := MemoryPath
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_txlock=immediate&mode=rwc", path)
	}

	db, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(pragmas); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}
	return db, nil
}

// NewSQLiteStore opens the database at path and applies pending migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db.DB); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteStore) Path() string {
	return s.path
}

// CheckMigrations verifies the schema is up to date.
func (s *SQLiteStore) CheckMigrations() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return migrations.CheckStatus(s.db.DB)
}

// Accounts

func (s *SQLiteStore) CreateAccount(username, credential string, createdAt time.Time) (*repo.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account := &repo.Account{Username: username, Credential: credential, CreatedAt: createdAt.UTC()}
	_, err := s.db.NamedExec(`INSERT INTO accounts (username, credential, created_at)
		VALUES (:username, :credential, :created_at)`, account)
	if err != nil {
		return nil, fmt.Errorf("creating account %s: %w", username, err)
	}
	return account, nil
}

func (s *SQLiteStore) FindAccount(username string) (*repo.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var account repo.Account
	err := s.db.Get(&account, "SELECT username, credential, created_at FROM accounts WHERE username = ?", username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding account %s: %w", username, err)
	}
	return &account, nil
}

func (s *SQLiteStore) ListAccounts() ([]*repo.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var accounts []*repo.Account
	if err := s.db.Select(&accounts, "SELECT username, credential, created_at FROM accounts ORDER BY username"); err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	return accounts, nil
}

// Permissions

func (s *SQLiteStore) PutPermission(p *repo.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := *p
	row.GrantedAt = row.GrantedAt.UTC()
	_, err := s.db.NamedExec(`INSERT INTO permissions (owner, grantee, kind, granted_at)
		VALUES (:owner, :grantee, :kind, :granted_at)
		ON CONFLICT (owner, grantee) DO UPDATE SET kind = excluded.kind, granted_at = excluded.granted_at`, &row)
	if err != nil {
		return fmt.Errorf("storing permission %s -> %s: %w", p.Owner, p.Grantee, err)
	}
	return nil
}

func (s *SQLiteStore) DeletePermission(owner, grantee string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM permissions WHERE owner = ? AND grantee = ?", owner, grantee)
	if err != nil {
		return false, fmt.Errorf("deleting permission %s -> %s: %w", owner, grantee, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting permission %s -> %s: %w", owner, grantee, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) FindPermission(owner, grantee string) (*repo.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p repo.Permission
	err := s.db.Get(&p, `SELECT owner, grantee, kind, granted_at FROM permissions
		WHERE owner = ? AND grantee = ?`, owner, grantee)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding permission %s -> %s: %w", owner, grantee, err)
	}
	return &p, nil
}

func (s *SQLiteStore) ListPermissionsByGrantee(grantee string) ([]*repo.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var perms []*repo.Permission
	err := s.db.Select(&perms, `SELECT owner, grantee, kind, granted_at FROM permissions
		WHERE grantee = ? ORDER BY owner`, grantee)
	if err != nil {
		return nil, fmt.Errorf("listing permissions for grantee %s: %w", grantee, err)
	}
	return perms, nil
}

func (s *SQLiteStore) ListPermissionsByOwner(owner string) ([]*repo.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var perms []*repo.Permission
	err := s.db.Select(&perms, `SELECT owner, grantee, kind, granted_at FROM permissions
		WHERE owner = ? ORDER BY grantee`, owner)
	if err != nil {
		return nil, fmt.Errorf("listing permissions for owner %s: %w", owner, err)
	}
	return perms, nil
}

// Sessions

func (s *SQLiteStore) CreateSession(session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := *session
	row.CreatedAt = row.CreatedAt.UTC()
	row.ExpiresAt = row.ExpiresAt.UTC()
	_, err := s.db.NamedExec(`INSERT INTO sessions (token, username, created_at, expires_at)
		VALUES (:token, :username, :created_at, :expires_at)`, &row)
	if err != nil {
		return fmt.Errorf("creating session for %s: %w", session.Username, err)
	}
	return nil
}

// FindSession returns the session for token, or nil if there is none.
func (s *SQLiteStore) FindSession(token string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var session Session
	err := s.db.Get(&session, "SELECT token, username, created_at, expires_at FROM sessions WHERE token = ?", token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding session: %w", err)
	}
	return &session, nil
}

func (s *SQLiteStore) DeleteSession(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes every session that expired at or before now and
// returns how many were removed.
func (s *SQLiteStore) DeleteExpiredSessions(now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Times are stored in UTC, so the driver's timestamp text sorts chronologically.
	res, err := s.db.Exec("DELETE FROM sessions WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting expired sessions: %w", err)
	}
	return n, nil
}

// Operation history

func (s *SQLiteStore) CreateOperation(operation, username, parameters string, startedAt time.Time) (*Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op := &Operation{
		Operation:  operation,
		Username:   username,
		Parameters: parameters,
		StartedAt:  startedAt.UTC(),
		Status:     "running",
	}
	res, err := s.db.NamedExec(`INSERT INTO operations (operation, username, parameters, started_at, status)
		VALUES (:operation, :username, :parameters, :started_at, :status)`, op)
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	if op.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}
	return op, nil
}

func (s *SQLiteStore) FinishOperation(id int64, username, status string, finishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("UPDATE operations SET username = ?, status = ?, finished_at = ? WHERE id = ?",
		username, status, finishedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("finishing operation %d: %w", id, err)
	}
	return nil
}

// ListOperations returns the most recent operations, newest first.
// With a non-empty username only that user's operations are returned.
func (s *SQLiteStore) ListOperations(username string, limit int) ([]*Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := "SELECT id, operation, username, parameters, started_at, finished_at, status FROM operations"
	args := []any{}
	if username != "" {
		query += " WHERE username = ?"
		args = append(args, username)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	var ops []*Operation
	if err := s.db.Select(&ops, query, args...); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

// BackupTo writes a complete copy of the database to destPath using VACUUM INTO.
func (s *SQLiteStore) BackupTo(destPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteStore implements repo.AccountStore interface
var _ repo.AccountStore = (*SQLiteStore)(nil)
