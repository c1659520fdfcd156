package repo

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Directory and file names inside the repository root.
//
//	<root>/.accounts                                 account database
//	<root>/.lock                                     process lock
//	<root>/.versions/<user>/<version_id>/...         snapshot content
//	<root>/.versions/<user>/<version_id>/metadata
//	<root>/<user>/temporal/                          staging area
//	<root>/<user>/permanente/                        published area
//	<root>/<user>/access/<owner>/                    mirror area
const (
	AccountsFileName = ".accounts"
	LockFileName     = ".lock"

	stagingDirName   = "temporal"
	publishedDirName = "permanente"
	accessDirName    = "access"
	versionsDirName  = ".versions"
	metadataFileName = "metadata"
)

// AreaKind identifies one of the per-user directories.
type AreaKind int

const (
	AreaStaging AreaKind = iota
	AreaPublished
	AreaMirror
)

func (k AreaKind) String() string {
	switch k {
	case AreaStaging:
		return "staging"
	case AreaPublished:
		return "published"
	case AreaMirror:
		return "mirror"
	}
	return fmt.Sprintf("AreaKind(%d)", int(k))
}

// StagingDir returns the staging area of user.
func StagingDir(user string) string {
	return path.Join("/", user, stagingDirName)
}

// PublishedDir returns the published area of user.
func PublishedDir(user string) string {
	return path.Join("/", user, publishedDirName)
}

// AccessDir returns the parent of all mirror areas held by grantee.
func AccessDir(grantee string) string {
	return path.Join("/", grantee, accessDirName)
}

// MirrorDir returns the mirror area of owner's published files held by grantee.
func MirrorDir(grantee, owner string) string {
	return path.Join(AccessDir(grantee), owner)
}

// VersionsDir returns the snapshot root of user.
func VersionsDir(user string) string {
	return path.Join("/", versionsDirName, user)
}

// VersionDir returns the directory of one snapshot.
func VersionDir(user, versionID string) string {
	return path.Join(VersionsDir(user), versionID)
}

// Resolve maps (user, kind, owner) to an area directory.
// owner is required for AreaMirror and ignored otherwise.
func Resolve(user string, kind AreaKind, owner string) (string, error) {
	switch kind {
	case AreaStaging:
		return StagingDir(user), nil
	case AreaPublished:
		return PublishedDir(user), nil
	case AreaMirror:
		if owner == "" {
			return "", fmt.Errorf("mirror area requires an owner")
		}
		return MirrorDir(user, owner), nil
	}
	return "", fmt.Errorf("unknown area kind: %v", kind)
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// ValidateUsername checks that name can be used as a directory name under the root.
func ValidateUsername(name string) error {
	if !usernamePattern.MatchString(name) {
		return fmt.Errorf("invalid username %q: use letters, digits, '.', '_' or '-' and start with a letter or digit", name)
	}
	return nil
}

// ValidateFilename checks that name is a flat file name. Names starting
// with '.' and the snapshot metadata name are reserved.
func ValidateFilename(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("file name is empty")
	case name == metadataFileName:
		return fmt.Errorf("invalid file name %q: reserved for snapshot metadata", name)
	case len(name) > 255:
		return fmt.Errorf("file name too long: %d bytes", len(name))
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("invalid file name %q: names starting with '.' are reserved", name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("invalid file name %q: must not contain path separators", name)
	}
	return nil
}
