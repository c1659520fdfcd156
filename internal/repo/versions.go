package repo

import (
	"bytes"
	stderrors "errors"
	"io/fs"
	"path"
	"sort"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/JossMR/VersionsControlRepository/internal/errors"
)

// Source tags recorded on snapshots.
const (
	SourceStaging = "staging" // taken by a self commit
	SourceAccess  = "access"  // taken by a delegated commit
	SourceManual  = "manual"  // taken on explicit request
)

// Snapshot is an immutable copy of a user's published area.
type Snapshot struct {
	VersionID string    `toml:"version_id" json:"version_id"`
	Timestamp time.Time `toml:"timestamp" json:"timestamp"`
	User      string    `toml:"user" json:"user"`
	SourceTag string    `toml:"source_tag" json:"source_tag"`
	FileCount int       `toml:"file_count" json:"file_count"`
}

// VersionStore creates, enumerates and restores snapshots.
// Snapshot content lives in <root>/.versions/<user>/<version_id>/ and the
// metadata file is written last, so a directory without one is incomplete.
type VersionStore struct {
	fs     Filesystem
	clock  Clock
	idgen  IDGenerator
	logger Logger
}

// NewVersionStore creates a VersionStore.
func NewVersionStore(fs Filesystem, clock Clock, idgen IDGenerator, logger Logger) *VersionStore {
	return &VersionStore{fs: fs, clock: clock, idgen: idgen, logger: logger}
}

// Snapshot copies every file of user's published area into a new version.
// On failure the partial version directory is removed on a best-effort basis.
func (v *VersionStore) Snapshot(user, sourceTag string) (*Snapshot, error) {
	const op errors.Op = "repo.Snapshot"
	published := PublishedDir(user)
	entries, err := listArea(v.fs, published)
	if err != nil {
		return nil, errors.E(op, errors.UserName(user), err)
	}
	for _, e := range entries {
		if e.Name == metadataFileName {
			return nil, errors.E(op, errors.UserName(user), errors.PathName(e.Name), errors.InvalidArgument,
				errors.Str("published file name is reserved for snapshot metadata"))
		}
	}

	snap := &Snapshot{
		VersionID: v.idgen.New(),
		Timestamp: v.clock.Now(),
		User:      user,
		SourceTag: sourceTag,
		FileCount: len(entries),
	}
	dir := VersionDir(user, snap.VersionID)
	if err := v.writeSnapshot(dir, published, entries, snap); err != nil {
		if rmErr := v.fs.RemoveAll(dir); rmErr != nil {
			v.logger.Warn("removing partial snapshot", "user", user, "version", snap.VersionID, "error", rmErr)
		}
		return nil, errors.E(op, errors.UserName(user), errors.IOFailure, err)
	}

	v.logger.Info("snapshot created", "user", user, "version", snap.VersionID, "source", sourceTag, "count", len(entries))
	return snap, nil
}

func (v *VersionStore) writeSnapshot(dir, published string, entries []FileEntry, snap *Snapshot) error {
	if err := v.fs.MkdirAll(dir); err != nil {
		return err
	}
	for _, e := range entries {
		if err := v.fs.CopyFile(path.Join(published, e.Name), path.Join(dir, e.Name)); err != nil {
			return err
		}
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(snap); err != nil {
		return errors.Errorf("encoding snapshot metadata: %w", err)
	}
	return v.fs.WriteFile(path.Join(dir, metadataFileName), buf.Bytes())
}

// List returns user's snapshots, newest first. Ties on timestamp are broken
// by version id, descending. A user without snapshots yields an empty list.
func (v *VersionStore) List(user string) ([]*Snapshot, error) {
	const op errors.Op = "repo.ListSnapshots"
	ids, err := v.fs.ListDirs(VersionsDir(user))
	if err != nil {
		return nil, errors.E(op, errors.UserName(user), errors.IOFailure, err)
	}

	snaps := make([]*Snapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := v.readMetadata(user, id)
		if err != nil {
			return nil, errors.E(op, errors.UserName(user), err)
		}
		if snap == nil {
			v.logger.Warn("skipping incomplete snapshot", "user", user, "version", id)
			continue
		}
		snaps = append(snaps, snap)
	}

	sort.Slice(snaps, func(i, j int) bool {
		if !snaps[i].Timestamp.Equal(snaps[j].Timestamp) {
			return snaps[i].Timestamp.After(snaps[j].Timestamp)
		}
		return snaps[i].VersionID > snaps[j].VersionID
	})
	return snaps, nil
}

// Find returns the snapshot with the given id.
func (v *VersionStore) Find(user, versionID string) (*Snapshot, error) {
	const op errors.Op = "repo.FindSnapshot"
	if err := ValidateFilename(versionID); err != nil {
		return nil, errors.E(op, errors.UserName(user), errors.InvalidArgument, err)
	}
	snap, err := v.readMetadata(user, versionID)
	if err != nil {
		return nil, errors.E(op, errors.UserName(user), err)
	}
	if snap == nil {
		return nil, errors.E(op, errors.UserName(user), errors.PathName(versionID), errors.NotFound, errors.Str("no such version"))
	}
	return snap, nil
}

// readMetadata returns nil without error when the metadata file is absent.
func (v *VersionStore) readMetadata(user, versionID string) (*Snapshot, error) {
	p := path.Join(VersionDir(user, versionID), metadataFileName)
	exists, err := v.fs.FileExists(p)
	if err != nil {
		return nil, errors.E(errors.IOFailure, errors.PathName(p), err)
	}
	if !exists {
		return nil, nil
	}
	data, err := v.fs.ReadFile(p)
	if err != nil {
		return nil, errors.E(errors.IOFailure, errors.PathName(p), err)
	}
	var snap Snapshot
	if _, err := toml.Decode(string(data), &snap); err != nil {
		return nil, errors.E(errors.IOFailure, errors.PathName(p), errors.Errorf("decoding snapshot metadata: %w", err))
	}
	// The directory name is authoritative.
	snap.VersionID = versionID
	return &snap, nil
}

// ListFiles enumerates the files held by a snapshot.
func (v *VersionStore) ListFiles(user, versionID string) ([]FileEntry, error) {
	const op errors.Op = "repo.ListSnapshotFiles"
	if _, err := v.Find(user, versionID); err != nil {
		return nil, errors.E(op, err)
	}
	entries, err := v.content(user, versionID)
	if err != nil {
		return nil, errors.E(op, errors.UserName(user), err)
	}
	return entries, nil
}

// content lists the files of a snapshot without its metadata file.
func (v *VersionStore) content(user, versionID string) ([]FileEntry, error) {
	entries, err := listArea(v.fs, VersionDir(user, versionID))
	if err != nil {
		return nil, err
	}
	files := entries[:0]
	for _, e := range entries {
		if e.Name != metadataFileName {
			files = append(files, e)
		}
	}
	return files, nil
}

// RestoreFolder replaces user's published area with the snapshot's file set.
// Staging is never touched.
func (v *VersionStore) RestoreFolder(user, versionID string) (Plan, error) {
	const op errors.Op = "repo.RestoreFolder"
	if _, err := v.Find(user, versionID); err != nil {
		return Plan{}, errors.E(op, err)
	}
	entries, err := v.content(user, versionID)
	if err != nil {
		return Plan{}, errors.E(op, errors.UserName(user), err)
	}
	plan, err := replaceAreaWith(v.fs, VersionDir(user, versionID), entries, PublishedDir(user))
	if err != nil {
		return plan, errors.E(op, errors.UserName(user), err)
	}
	v.logger.Info("published area restored", "user", user, "version", versionID, "count", len(plan.Copy))
	return plan, nil
}

// RestoreFile copies one file of a snapshot into user's published area,
// overwriting it if present.
func (v *VersionStore) RestoreFile(user, versionID, name string) error {
	const op errors.Op = "repo.RestoreFile"
	if _, err := v.Find(user, versionID); err != nil {
		return errors.E(op, err)
	}
	if err := ValidateFilename(name); err != nil {
		return errors.E(op, errors.UserName(user), errors.InvalidArgument, err)
	}
	published := PublishedDir(user)
	if v.fs.Ignored(path.Join(published, name)) {
		return errors.E(op, errors.UserName(user), errors.PathName(name), errors.InvalidArgument, errors.Str("file name matches an ignore pattern"))
	}
	src := path.Join(VersionDir(user, versionID), name)
	exists, err := v.fs.FileExists(src)
	if err != nil {
		return errors.E(op, errors.UserName(user), errors.IOFailure, err)
	}
	if !exists {
		return errors.E(op, errors.UserName(user), errors.PathName(name), errors.NotFound, errors.Str("file not in version"))
	}
	if err := v.fs.MkdirAll(published); err != nil {
		return errors.E(op, errors.UserName(user), errors.IOFailure, err)
	}
	if err := v.fs.CopyFile(src, path.Join(published, name)); err != nil {
		return errors.E(op, errors.UserName(user), errors.PathName(name), errors.IOFailure, err)
	}
	v.logger.Info("file restored", "user", user, "version", versionID, "file", name)
	return nil
}

// listArea lists an area, reporting a missing directory as NotFound.
func listArea(fsys Filesystem, dir string) ([]FileEntry, error) {
	entries, err := fsys.ListFiles(dir)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.E(errors.PathName(dir), errors.NotFound, err)
		}
		return nil, errors.E(errors.PathName(dir), errors.IOFailure, err)
	}
	return entries, nil
}
