package repo

import (
	"path"

	"github.com/JossMR/VersionsControlRepository/internal/errors"
)

// writableArea resolves the directory a file mutation applies to. An empty
// owner means the user's staging area; any other owner means the user's
// mirror of that owner, which needs a Write edge and is created if missing.
func (s *Service) writableArea(op errors.Op, user, owner string) (string, error) {
	if owner == "" {
		return StagingDir(user), nil
	}
	if owner == user {
		return "", errors.E(op, errors.UserName(owner), errors.InvalidArgument, errors.Str("omit the owner to edit your own staging area"))
	}
	exists, err := s.graph.accountExists(owner)
	if err != nil {
		return "", errors.E(op, err)
	}
	if !exists {
		return "", errors.E(op, errors.UserName(owner), errors.NotFound, errors.Str("user does not exist"))
	}
	if err := s.graph.requireWrite(op, owner, user); err != nil {
		return "", err
	}
	dir := MirrorDir(user, owner)
	if err := s.fs.MkdirAll(dir); err != nil {
		return "", errors.E(op, errors.PathName(dir), errors.IOFailure, err)
	}
	return dir, nil
}

// readableArea resolves the directory a read applies to.
// Another user's published area needs an edge of any kind.
func (s *Service) readableArea(op errors.Op, user string, kind AreaKind, owner string) (string, error) {
	switch kind {
	case AreaStaging:
		if owner != "" && owner != user {
			return "", errors.E(op, errors.UserName(owner), errors.InvalidArgument, errors.Str("staging areas are private"))
		}
		return StagingDir(user), nil
	case AreaPublished:
		if owner == "" || owner == user {
			return PublishedDir(user), nil
		}
		exists, err := s.graph.accountExists(owner)
		if err != nil {
			return "", errors.E(op, err)
		}
		if !exists {
			return "", errors.E(op, errors.UserName(owner), errors.NotFound, errors.Str("user does not exist"))
		}
		if err := s.graph.requireAny(op, owner, user); err != nil {
			return "", err
		}
		return PublishedDir(owner), nil
	case AreaMirror:
		if owner == "" || owner == user {
			return "", errors.E(op, errors.InvalidArgument, errors.Str("a mirror needs another user as owner"))
		}
		if err := s.graph.requireAny(op, owner, user); err != nil {
			return "", err
		}
		return MirrorDir(user, owner), nil
	}
	return "", errors.E(op, errors.InvalidArgument, errors.Errorf("unknown area %v", kind))
}

// mutateFile runs fn on the path of name inside the writable area, after
// checking that the file's existence matches wantExists.
func (s *Service) mutateFile(op errors.Op, owner, name string, wantExists bool, fn func(user, p string) error) error {
	user, err := s.requireUser(op)
	if err != nil {
		return err
	}
	if err := ValidateFilename(name); err != nil {
		return errors.E(op, errors.InvalidArgument, err)
	}
	unlock := s.locks.lock(user, owner)
	defer unlock()

	dir, err := s.writableArea(op, user, owner)
	if err != nil {
		return err
	}
	p := path.Join(dir, name)
	if s.fs.Ignored(p) {
		return errors.E(op, errors.PathName(name), errors.InvalidArgument, errors.Str("file name matches an ignore pattern"))
	}
	exists, err := s.fs.FileExists(p)
	if err != nil {
		return errors.E(op, errors.PathName(p), errors.IOFailure, err)
	}
	switch {
	case wantExists && !exists:
		return errors.E(op, errors.PathName(name), errors.NotFound, errors.Str("no such file"))
	case !wantExists && exists:
		return errors.E(op, errors.PathName(name), errors.Exist, errors.Str("file already exists"))
	}
	if err := fn(user, p); err != nil {
		return errors.E(op, errors.PathName(name), errors.IOFailure, err)
	}
	return nil
}

// CreateFile creates name with content in the current user's staging area,
// or in their mirror of owner.
func (s *Service) CreateFile(owner, name string, content []byte) error {
	return s.mutateFile("repo.CreateFile", owner, name, false, func(user, p string) error {
		if err := s.fs.WriteFile(p, content); err != nil {
			return err
		}
		s.logger.Info("file created", "user", user, "owner", owner, "file", name)
		return nil
	})
}

// WriteFile replaces the content of an existing file.
func (s *Service) WriteFile(owner, name string, content []byte) error {
	return s.mutateFile("repo.WriteFile", owner, name, true, func(user, p string) error {
		if err := s.fs.WriteFile(p, content); err != nil {
			return err
		}
		s.logger.Info("file written", "user", user, "owner", owner, "file", name)
		return nil
	})
}

// TouchFile updates the modification time of an existing file.
func (s *Service) TouchFile(owner, name string) error {
	return s.mutateFile("repo.TouchFile", owner, name, true, func(user, p string) error {
		if err := s.fs.Touch(p, s.clock.Now()); err != nil {
			return err
		}
		s.logger.Info("file touched", "user", user, "owner", owner, "file", name)
		return nil
	})
}

// DeleteFile removes an existing file.
func (s *Service) DeleteFile(owner, name string) error {
	return s.mutateFile("repo.DeleteFile", owner, name, true, func(user, p string) error {
		if err := s.fs.Remove(p); err != nil {
			return err
		}
		s.logger.Info("file deleted", "user", user, "owner", owner, "file", name)
		return nil
	})
}

// ListFiles lists an area visible to the current user.
func (s *Service) ListFiles(kind AreaKind, owner string) ([]FileEntry, error) {
	const op errors.Op = "repo.ListFiles"
	user, err := s.requireUser(op)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(user, owner)
	defer unlock()

	dir, err := s.readableArea(op, user, kind, owner)
	if err != nil {
		return nil, err
	}
	entries, err := listArea(s.fs, dir)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return visibleEntries(s.fs, dir, entries), nil
}

// visibleEntries drops the entries of dir that match the ignore patterns.
func visibleEntries(fsys Filesystem, dir string, entries []FileEntry) []FileEntry {
	visible := entries[:0]
	for _, e := range entries {
		if !fsys.Ignored(path.Join(dir, e.Name)) {
			visible = append(visible, e)
		}
	}
	return visible
}

// ReadFile returns the content of a file in an area visible to the current user.
func (s *Service) ReadFile(kind AreaKind, owner, name string) ([]byte, error) {
	const op errors.Op = "repo.ReadFile"
	user, err := s.requireUser(op)
	if err != nil {
		return nil, err
	}
	if err := ValidateFilename(name); err != nil {
		return nil, errors.E(op, errors.InvalidArgument, err)
	}
	unlock := s.locks.lock(user, owner)
	defer unlock()

	dir, err := s.readableArea(op, user, kind, owner)
	if err != nil {
		return nil, err
	}
	p := path.Join(dir, name)
	exists, err := s.fs.FileExists(p)
	if err != nil {
		return nil, errors.E(op, errors.PathName(p), errors.IOFailure, err)
	}
	if !exists {
		return nil, errors.E(op, errors.PathName(name), errors.NotFound, errors.Str("no such file"))
	}
	data, err := s.fs.ReadFile(p)
	if err != nil {
		return nil, errors.E(op, errors.PathName(name), errors.IOFailure, err)
	}
	return data, nil
}
