// Package project resolves paths inside a project directory and tracks
// which project a session is working on.
package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// PathEscapeError is returned when a path resolves outside the project
// root.
type PathEscapeError struct {
	Root string
	Path string
}

func (e *PathEscapeError) Error() string {
	return fmt.Sprintf("path %q escapes project root %s", e.Path, e.Root)
}

// ErrRootPath is returned by ResolveFile for paths naming the root itself.
var ErrRootPath = errors.New("path refers to the project root")

// Resolve joins rel onto root and returns the cleaned absolute path. The
// result must be root itself or nested under it. The check is textual:
// symlinks are not evaluated.
func Resolve(root, rel string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root %s: %w", root, err)
	}
	var full string
	if filepath.IsAbs(rel) {
		full = filepath.Clean(rel)
	} else {
		full = filepath.Join(absRoot, rel)
	}
	r, err := filepath.Rel(absRoot, full)
	if err != nil || !Within(r) {
		return "", &PathEscapeError{Root: absRoot, Path: rel}
	}
	return full, nil
}

// ResolveFile is Resolve for operations on a single entry: it also
// rejects the root itself.
func ResolveFile(root, rel string) (string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", ErrRootPath
	}
	full, err := Resolve(root, rel)
	if err != nil {
		return "", err
	}
	absRoot, _ := filepath.Abs(root)
	if full == absRoot {
		return "", ErrRootPath
	}
	return full, nil
}

// Within reports whether a path produced by filepath.Rel stays inside its
// base.
func Within(rel string) bool {
	if filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Rel returns path relative to root using forward slashes.
func Rel(root, path string) string {
	r, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(r)
}
