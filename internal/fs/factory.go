package fs

import (
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/JossMR/VersionsControlRepository/internal/config"
)

// NewFilesystemFromConfig creates the area filesystem selected by the
// filesystem config type. Patterns read from the ignore file at the
// repository root are added to the configured ones.
func NewFilesystemFromConfig(cfg config.FilesystemConfig, root string) (*AreaFilesystem, error) {
	var base afero.Fs
	switch cfg.Type {
	case "", "os":
		if root == "" {
			return nil, fmt.Errorf("root directory required for os filesystem")
		}
		if err := os.MkdirAll(root, dirPerm); err != nil {
			return nil, fmt.Errorf("creating repository root: %w", err)
		}
		base = afero.NewBasePathFs(afero.NewOsFs(), root)
	case "memory":
		base = afero.NewMemMapFs()
	default:
		return nil, fmt.Errorf("unknown filesystem type: %s", cfg.Type)
	}

	fromFile, err := ParseIgnoreFile(base, "/"+IgnoreFileName)
	if err != nil {
		return nil, err
	}
	patterns := append(append([]string{}, cfg.Ignore...), fromFile...)
	return New(base, NewIgnoreMatcher(patterns)), nil
}
