package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	herrors "github.com/pbaille/hop/internal/errors"
)

const appName = "hop"

// Normalize converts a path into its lexical canonical form:
// absolute, cleaned, no trailing separator except for the root.
// Symlinks are not resolved, so two links to the same directory stay distinct.
func Normalize(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}
	// filepath.Abs already cleans, which strips trailing separators
	return abs, nil
}

// Canonicalize normalizes path and checks that it names an existing directory.
// Failures are reported as InvalidPath.
func Canonicalize(path string) (string, error) {
	norm, err := Normalize(path)
	if err != nil {
		return "", herrors.New(herrors.InvalidPath, "cannot canonicalize path", err).WithPath(path)
	}
	info, err := os.Stat(norm)
	if err != nil {
		return "", herrors.New(herrors.InvalidPath, "cannot stat path", err).WithPath(norm)
	}
	if !info.IsDir() {
		return "", herrors.New(herrors.InvalidPath, "not a directory", nil).WithPath(norm)
	}
	return norm, nil
}

// IsDir reports whether path currently names a directory
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Components splits a canonical path into its non-empty components
func Components(path string) []string {
	return strings.FieldsFunc(path, IsSeparator)
}

// IsSeparator reports whether r separates path components
func IsSeparator(r rune) bool {
	return r == '/' || r == filepath.Separator
}

// DataDir returns the directory holding the store.
// $HOP_DATA_DIR wins, then $XDG_DATA_HOME/hop, then ~/.local/share/hop.
func DataDir() (string, error) {
	if dir := os.Getenv("HOP_DATA_DIR"); dir != "" {
		return dir, nil
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", appName), nil
}

// ConfigDir returns the directory searched for config.toml
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// StorePath returns the database file inside dataDir
func StorePath(dataDir string) string {
	return filepath.Join(dataDir, appName+".db")
}

// EnsureDir creates dir (and parents) if needed
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	return nil
}

// MatchesAny reports whether path matches one of the glob patterns.
// A leading "~" in a pattern expands to the home directory.
func MatchesAny(path string, patterns []string) bool {
	for _, p := range patterns {
		if strings.HasPrefix(p, "~") {
			if home, err := os.UserHomeDir(); err == nil {
				p = home + p[1:]
			}
		}
		if ok, err := filepath.Match(p, path); err == nil && ok {
			return true
		}
	}
	return false
}
