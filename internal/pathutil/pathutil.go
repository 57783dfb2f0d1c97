// Package pathutil keeps files named after dataset values inside their
// directory. Scenario ids come from the dataset and from MCP clients, and
// they become file names in the task and record directories.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RedactPath reduces a full path to .../<parent>/<basename> for error messages.
// For example, "/home/user/.sense/config.yaml" becomes ".../.sense/config.yaml".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	base := filepath.Base(cleaned)
	if parent == "." || parent == string(filepath.Separator) {
		return base
	}
	return ".../" + parent + "/" + base
}

// CheckName rejects names that are not a single plain path element.
func CheckName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("invalid file name: empty")
	case strings.ContainsRune(name, '\x00'):
		return fmt.Errorf("invalid file name %q: contains null byte", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("invalid file name %q: contains a path separator", name)
	case name == "." || name == "..":
		return fmt.Errorf("invalid file name %q", name)
	}
	return nil
}

// JoinWithin returns dir/name after checking that name is a plain file
// name and that the result, with symlinks resolved, stays inside dir.
func JoinWithin(dir, name string) (string, error) {
	if err := CheckName(name); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)

	base, err := resolve(dir)
	if err != nil {
		return "", err
	}
	resolved, err := resolve(path)
	if err != nil {
		return "", err
	}
	if !isSubpath(resolved, base) {
		return "", fmt.Errorf("path %q escapes %q", RedactPath(resolved), RedactPath(base))
	}
	return path, nil
}

// resolve makes path absolute and resolves symlinks on its deepest
// existing ancestor. Missing trailing elements are appended unchanged.
func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot resolve %s: %w", RedactPath(path), err)
	}
	var tail []string
	for {
		resolved, err := filepath.EvalSymlinks(abs)
		if err == nil {
			return filepath.Join(append([]string{resolved}, tail...)...), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("cannot resolve %s: %w", RedactPath(abs), err)
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("cannot resolve %s", RedactPath(path))
		}
		tail = append([]string{filepath.Base(abs)}, tail...)
		abs = parent
	}
}

// isSubpath reports whether path is strictly inside base.
func isSubpath(path, base string) bool {
	return path != base && strings.HasPrefix(path, base+string(os.PathSeparator))
}
