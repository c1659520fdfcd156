package repo

import (
	"github.com/JossMR/VersionsControlRepository/internal/errors"
)

// PermissionGraph is the directed edge set (owner, grantee) -> kind.
// It keeps the mirror-area invariant: a mirror directory for (grantee, owner)
// exists exactly while the edge owner -> grantee exists.
type PermissionGraph struct {
	store AccountStore
	fs    Filesystem
	clock Clock
}

// NewPermissionGraph creates a graph backed by store.
func NewPermissionGraph(store AccountStore, fs Filesystem, clock Clock) *PermissionGraph {
	return &PermissionGraph{store: store, fs: fs, clock: clock}
}

// Check returns the kind of the edge owner -> grantee, if any.
func (g *PermissionGraph) Check(owner, grantee string) (PermissionKind, bool, error) {
	const op errors.Op = "repo.Check"
	p, err := g.store.FindPermission(owner, grantee)
	if err != nil {
		return "", false, errors.E(op, errors.IOFailure, err)
	}
	if p == nil {
		return "", false, nil
	}
	return p.Kind, true, nil
}

// Grant upserts the edge owner -> grantee and makes sure the grantee's
// mirror directory for owner exists. An existing mirror keeps its content.
func (g *PermissionGraph) Grant(owner, grantee string, kind PermissionKind) (*Permission, error) {
	const op errors.Op = "repo.Grant"
	if !kind.Valid() {
		return nil, errors.E(op, errors.InvalidArgument, errors.Errorf("unknown permission kind %q: use %q or %q", kind, PermissionRead, PermissionWrite))
	}
	if owner == grantee {
		return nil, errors.E(op, errors.UserName(grantee), errors.InvalidArgument, errors.Str("cannot grant a permission to yourself"))
	}
	account, err := g.store.FindAccount(grantee)
	if err != nil {
		return nil, errors.E(op, errors.IOFailure, err)
	}
	if account == nil {
		return nil, errors.E(op, errors.UserName(grantee), errors.InvalidArgument, errors.Str("user does not exist"))
	}

	mirror := MirrorDir(grantee, owner)
	existed, err := g.fs.DirExists(mirror)
	if err != nil {
		return nil, errors.E(op, errors.IOFailure, errors.PathName(mirror), err)
	}
	if err := g.fs.MkdirAll(mirror); err != nil {
		return nil, errors.E(op, errors.IOFailure, errors.PathName(mirror), err)
	}

	p := &Permission{Owner: owner, Grantee: grantee, Kind: kind, GrantedAt: g.clock.Now()}
	if err := g.store.PutPermission(p); err != nil {
		if !existed {
			g.fs.RemoveAll(mirror)
		}
		return nil, errors.E(op, errors.IOFailure, err)
	}
	return p, nil
}

// Revoke removes the edge owner -> grantee, deletes the grantee's mirror of
// owner and removes the grantee's access directory once it is empty.
func (g *PermissionGraph) Revoke(owner, grantee string) error {
	const op errors.Op = "repo.Revoke"
	removed, err := g.store.DeletePermission(owner, grantee)
	if err != nil {
		return errors.E(op, errors.IOFailure, err)
	}
	if !removed {
		return errors.E(op, errors.UserName(grantee), errors.NotFound, errors.Str("no permission granted to this user"))
	}

	mirror := MirrorDir(grantee, owner)
	if err := g.fs.RemoveAll(mirror); err != nil {
		return errors.E(op, errors.IOFailure, errors.PathName(mirror), err)
	}
	if _, err := g.fs.RemoveIfEmpty(AccessDir(grantee)); err != nil {
		return errors.E(op, errors.IOFailure, errors.PathName(AccessDir(grantee)), err)
	}
	return nil
}

// Accessible returns the edges pointing at grantee.
func (g *PermissionGraph) Accessible(grantee string) ([]*Permission, error) {
	perms, err := g.store.ListPermissionsByGrantee(grantee)
	if err != nil {
		return nil, errors.E(errors.Op("repo.ListAccessible"), errors.IOFailure, err)
	}
	return perms, nil
}

// Grantees returns the edges issued by owner.
func (g *PermissionGraph) Grantees(owner string) ([]*Permission, error) {
	perms, err := g.store.ListPermissionsByOwner(owner)
	if err != nil {
		return nil, errors.E(errors.Op("repo.ListGrantees"), errors.IOFailure, err)
	}
	return perms, nil
}

// requireWrite fails with PermissionDenied unless owner granted user Write.
func (g *PermissionGraph) requireWrite(op errors.Op, owner, user string) error {
	kind, ok, err := g.Check(owner, user)
	if err != nil {
		return errors.E(op, err)
	}
	if !ok || kind != PermissionWrite {
		return errors.E(op, errors.UserName(owner), errors.PermissionDenied, errors.Str("no write permission on this user's files"))
	}
	return nil
}

// requireAny fails with PermissionDenied unless owner granted user any kind.
func (g *PermissionGraph) requireAny(op errors.Op, owner, user string) error {
	_, ok, err := g.Check(owner, user)
	if err != nil {
		return errors.E(op, err)
	}
	if !ok {
		return errors.E(op, errors.UserName(owner), errors.PermissionDenied, errors.Str("no permission on this user's files"))
	}
	return nil
}

func (g *PermissionGraph) accountExists(username string) (bool, error) {
	account, err := g.store.FindAccount(username)
	if err != nil {
		return false, errors.E(errors.IOFailure, err)
	}
	return account != nil, nil
}
