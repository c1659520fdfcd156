package app

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SessionFileName holds the token of the logged in session inside base_dir.
const SessionFileName = "session"

// tokenFile stores the session token between CLI invocations.
type tokenFile struct {
	path string
}

func newTokenFile(baseDir string) *tokenFile {
	return &tokenFile{path: filepath.Join(baseDir, SessionFileName)}
}

// Read returns the stored token, or "" if there is none.
func (f *tokenFile) Read() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("reading session file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Write stores token, readable only by the current OS user.
func (f *tokenFile) Write(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	if err := os.WriteFile(f.path, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}

// Remove deletes the stored token. A missing file is not an error.
func (f *tokenFile) Remove() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}
