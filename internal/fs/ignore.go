package fs

import (
	"bufio"
	"errors"
	"fmt"
	iofs "io/fs"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/afero"
)

// IgnoreFileName is the optional pattern file at the repository root.
const IgnoreFileName = ".vcrignore"

// defaultIgnorePatterns are always applied regardless of config or .vcrignore.
var defaultIgnorePatterns = []string{"*~"}

// IgnoreMatcher checks repository-relative paths against gitignore-style
// patterns. Patterns without '/' match a name at any depth. A leading '/'
// or a directory glob such as "alice/temporal/*.bak" anchors the pattern at
// the repository root. A leading '!' re-includes a path an earlier pattern
// excluded.
type IgnoreMatcher struct {
	lines  []string
	ignore *gitignore.GitIgnore
}

// NewIgnoreMatcher creates an IgnoreMatcher from the default patterns and
// rawPatterns. Blank lines and lines starting with '#' are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var lines []string
	all := append(append([]string{}, defaultIgnorePatterns...), rawPatterns...)
	for _, raw := range all {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		lines = append(lines, raw)
	}
	return &IgnoreMatcher{lines: lines, ignore: gitignore.CompileIgnoreLines(lines...)}
}

// Match reports whether the given slash-separated relative path should be ignored.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	if relativePath == "" {
		return false
	}
	return m.ignore.MatchesPath(relativePath)
}

// ParseIgnoreFile reads an ignore file from fsys and returns the raw pattern strings.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(fsys afero.Fs, p string) ([]string, error) {
	f, err := fsys.Open(p)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
