package repo

import (
	"github.com/JossMR/VersionsControlRepository/internal/errors"
)

// SyncResult describes the effect of a commit or update.
type SyncResult struct {
	// Snapshot is the recovery point taken before the target was replaced,
	// or nil if none was needed.
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Deleted  int       `json:"deleted"`
	Copied   int       `json:"copied"`
}

func newSyncResult(snap *Snapshot, plan Plan) *SyncResult {
	return &SyncResult{Snapshot: snap, Deleted: len(plan.Delete), Copied: len(plan.Copy)}
}

// SyncEngine moves file sets between staging, mirror and published areas.
// It owns no state of its own.
type SyncEngine struct {
	fs       Filesystem
	graph    *PermissionGraph
	versions *VersionStore
	logger   Logger
}

// NewSyncEngine creates a SyncEngine.
func NewSyncEngine(fs Filesystem, graph *PermissionGraph, versions *VersionStore, logger Logger) *SyncEngine {
	return &SyncEngine{fs: fs, graph: graph, versions: versions, logger: logger}
}

// CommitSelf publishes user's staging area. A non-empty published area is
// snapshotted first, and a failed snapshot aborts before anything changes.
func (e *SyncEngine) CommitSelf(user string) (*SyncResult, error) {
	const op errors.Op = "repo.Commit"
	if user == "" {
		return nil, errors.E(op, errors.Unauthenticated)
	}

	snap, err := e.snapshotIfNonEmpty(user, SourceStaging)
	if err != nil {
		return nil, errors.E(op, errors.UserName(user), err)
	}
	plan, err := replaceArea(e.fs, StagingDir(user), PublishedDir(user))
	if err != nil {
		return nil, errors.E(op, errors.UserName(user), err)
	}

	e.logger.Info("committed", "user", user, "count", len(plan.Copy), "deleted", len(plan.Delete))
	return newSyncResult(snap, plan), nil
}

// CommitDelegated publishes user's mirror of owner into owner's published area.
// It requires a Write edge owner -> user and an existing mirror.
func (e *SyncEngine) CommitDelegated(user, owner string) (*SyncResult, error) {
	const op errors.Op = "repo.CommitTo"
	if user == "" {
		return nil, errors.E(op, errors.Unauthenticated)
	}
	if owner == user {
		return nil, errors.E(op, errors.UserName(owner), errors.InvalidArgument, errors.Str("use commit without an owner to publish your own staging area"))
	}
	if err := e.graph.requireWrite(op, owner, user); err != nil {
		return nil, err
	}

	mirror := MirrorDir(user, owner)
	exists, err := e.fs.DirExists(mirror)
	if err != nil {
		return nil, errors.E(op, errors.IOFailure, errors.PathName(mirror), err)
	}
	if !exists {
		return nil, errors.E(op, errors.UserName(owner), errors.PathName(mirror), errors.NotFound, errors.Str("no mirror of this user's files"))
	}

	snap, err := e.snapshotIfNonEmpty(owner, SourceAccess)
	if err != nil {
		return nil, errors.E(op, errors.UserName(owner), err)
	}
	plan, err := replaceArea(e.fs, mirror, PublishedDir(owner))
	if err != nil {
		return nil, errors.E(op, errors.UserName(owner), err)
	}

	e.logger.Info("committed to owner", "user", user, "owner", owner, "count", len(plan.Copy), "deleted", len(plan.Delete))
	return newSyncResult(snap, plan), nil
}

// Update refreshes an area from a published area. With an empty target the
// user's staging area is replaced by their own published area. Otherwise
// the mirror of target is replaced by target's published area, which
// requires an edge of any kind target -> user. The mirror is created if
// missing.
func (e *SyncEngine) Update(user, target string) (*SyncResult, error) {
	const op errors.Op = "repo.Update"
	if user == "" {
		return nil, errors.E(op, errors.Unauthenticated)
	}

	if target == "" || target == user {
		plan, err := replaceArea(e.fs, PublishedDir(user), StagingDir(user))
		if err != nil {
			return nil, errors.E(op, errors.UserName(user), err)
		}
		e.logger.Info("staging updated", "user", user, "count", len(plan.Copy), "deleted", len(plan.Delete))
		return newSyncResult(nil, plan), nil
	}

	exists, err := e.graph.accountExists(target)
	if err != nil {
		return nil, errors.E(op, err)
	}
	if !exists {
		return nil, errors.E(op, errors.UserName(target), errors.NotFound, errors.Str("user does not exist"))
	}
	if err := e.graph.requireAny(op, target, user); err != nil {
		return nil, err
	}

	plan, err := replaceArea(e.fs, PublishedDir(target), MirrorDir(user, target))
	if err != nil {
		return nil, errors.E(op, errors.UserName(target), err)
	}
	e.logger.Info("mirror updated", "user", user, "owner", target, "count", len(plan.Copy), "deleted", len(plan.Delete))
	return newSyncResult(nil, plan), nil
}

// snapshotIfNonEmpty snapshots owner's published area unless it holds no files.
func (e *SyncEngine) snapshotIfNonEmpty(owner, tag string) (*Snapshot, error) {
	entries, err := listArea(e.fs, PublishedDir(owner))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return e.versions.Snapshot(owner, tag)
}
