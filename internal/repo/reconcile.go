package repo

import (
	"path"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/JossMR/VersionsControlRepository/internal/errors"
)

// Plan is the set of file operations that turns a target directory into an
// exact copy of a source directory.
type Plan struct {
	// Delete lists names present in the target but absent from the source.
	Delete []string
	// Copy lists every name in the source. Existing target files are overwritten.
	Copy []string
}

// Reconcile computes the whole-set replacement of target by source.
// There is no merge and no timestamp comparison: after the plan is applied
// the target holds exactly the source's names with the source's content.
func Reconcile(target, source []string) Plan {
	t := mapset.NewThreadUnsafeSet(target...)
	s := mapset.NewThreadUnsafeSet(source...)

	del := t.Difference(s).ToSlice()
	cp := s.ToSlice()
	sort.Strings(del)
	sort.Strings(cp)

	return Plan{Delete: del, Copy: cp}
}

// Empty reports whether applying the plan would not touch the target.
func (p Plan) Empty() bool {
	return len(p.Delete) == 0 && len(p.Copy) == 0
}

// fileNames extracts the names of entries.
func fileNames(entries []FileEntry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// replaceArea makes dst hold exactly the files of src. dst is created if
// missing. A failure midway leaves the operations already applied in place.
// Ignore patterns do not apply: every file of src is copied and every
// other file of dst is removed.
func replaceArea(fsys Filesystem, src, dst string) (Plan, error) {
	srcEntries, err := listArea(fsys, src)
	if err != nil {
		return Plan{}, err
	}
	return replaceAreaWith(fsys, src, srcEntries, dst)
}

// replaceAreaWith is replaceArea with the source listing already taken.
func replaceAreaWith(fsys Filesystem, src string, srcEntries []FileEntry, dst string) (Plan, error) {
	if err := fsys.MkdirAll(dst); err != nil {
		return Plan{}, errors.E(errors.PathName(dst), errors.IOFailure, err)
	}
	dstEntries, err := listArea(fsys, dst)
	if err != nil {
		return Plan{}, err
	}

	plan := Reconcile(fileNames(dstEntries), fileNames(srcEntries))
	for _, name := range plan.Delete {
		if err := fsys.Remove(path.Join(dst, name)); err != nil {
			return plan, errors.E(errors.PathName(path.Join(dst, name)), errors.IOFailure, err)
		}
	}
	for _, name := range plan.Copy {
		if err := fsys.CopyFile(path.Join(src, name), path.Join(dst, name)); err != nil {
			return plan, errors.E(errors.PathName(path.Join(dst, name)), errors.IOFailure, err)
		}
	}
	return plan, nil
}
