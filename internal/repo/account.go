package repo

import (
	"strings"
	"time"
)

// PermissionKind is the single kind carried by a permission edge.
type PermissionKind string

const (
	PermissionRead  PermissionKind = "read"
	PermissionWrite PermissionKind = "write"
)

// Valid reports whether k is one of the known kinds.
func (k PermissionKind) Valid() bool {
	return k == PermissionRead || k == PermissionWrite
}

// ParsePermissionKind parses a kind name, case-insensitively.
// The Spanish names used by earlier repositories are accepted as aliases.
func ParsePermissionKind(s string) (PermissionKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "read", "lectura":
		return PermissionRead, true
	case "write", "escritura":
		return PermissionWrite, true
	}
	return "", false
}

// Account is a registered user.
type Account struct {
	Username   string    `db:"username" json:"username"`
	Credential string    `db:"credential" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Permission is a directed edge owner -> grantee.
type Permission struct {
	Owner     string         `db:"owner" json:"owner"`
	Grantee   string         `db:"grantee" json:"grantee"`
	Kind      PermissionKind `db:"kind" json:"kind"`
	GrantedAt time.Time      `db:"granted_at" json:"granted_at"`
}

// AccountStore is the single source of truth for account existence and
// permission edges. Every mutation must be durable when the call returns.
type AccountStore interface {
	// CreateAccount inserts a new account. It fails if the username is taken.
	CreateAccount(username, credential string, createdAt time.Time) (*Account, error)

	// FindAccount returns the account, or nil if it does not exist.
	FindAccount(username string) (*Account, error)

	// ListAccounts returns all accounts ordered by username.
	ListAccounts() ([]*Account, error)

	// PutPermission upserts the edge (p.Owner, p.Grantee).
	PutPermission(p *Permission) error

	// DeletePermission removes the edge and reports whether it existed.
	DeletePermission(owner, grantee string) (bool, error)

	// FindPermission returns the edge, or nil if there is none.
	FindPermission(owner, grantee string) (*Permission, error)

	// ListPermissionsByGrantee returns every edge pointing at grantee, ordered by owner.
	ListPermissionsByGrantee(grantee string) ([]*Permission, error)

	// ListPermissionsByOwner returns every edge issued by owner, ordered by grantee.
	ListPermissionsByOwner(owner string) ([]*Permission, error)

	// Close releases the underlying storage.
	Close() error
}

// CredentialVerifier turns secrets into stored credentials and checks them.
// The engine never sees or stores a secret in clear text.
type CredentialVerifier interface {
	// Hash derives the credential to store for a new account.
	Hash(secret string) (string, error)

	// Verify reports whether secret matches the stored credential.
	Verify(credential, secret string) bool
}
