// Package sanitize canonicalizes folder roots and keeps every path an
// operation touches inside its root.
package sanitize

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Validation errors for security checks.
var (
	// ErrEmptyPath indicates an empty path was provided.
	ErrEmptyPath = errors.New("path cannot be empty")

	// ErrPathTraversal indicates a path resolves outside of its folder root.
	ErrPathTraversal = errors.New("path escapes folder root")

	// ErrNotDirectory indicates a folder root is not a directory.
	ErrNotDirectory = errors.New("not a directory")
)

// CanonicalRoot resolves root to an absolute directory path with all symlinks
// evaluated. A missing root yields an error wrapping fs.ErrNotExist.
func CanonicalRoot(root string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", ErrEmptyPath
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root: %w", err)
	}

	resolved, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root: %w", err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("failed to stat root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	return resolved, nil
}

// Within checks that path lies inside root and returns its canonical absolute
// form. root must already be canonical (see CanonicalRoot). Relative paths are
// taken relative to root. Paths that do not exist yet are resolved through
// their closest existing parent so symlinked parents cannot be used to escape.
func Within(root, path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	if root == "" {
		return "", fmt.Errorf("%w: no folder root", ErrEmptyPath)
	}

	target := path
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, target)
	}
	target = filepath.Clean(target)

	resolved, err := resolveExisting(target)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	rel, err := filepath.Rel(root, resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, path)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, path)
	}

	return resolved, nil
}

// resolveExisting evaluates symlinks on the longest existing prefix of path
// and re-attaches the missing remainder.
func resolveExisting(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	parent := filepath.Dir(path)
	if parent == path {
		return path, nil
	}
	resolvedParent, err := resolveExisting(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(path)), nil
}

// Relative strips the literal "root/" prefix from path and returns the result
// with forward slashes. A trailing separator on root, as on "/", is not
// doubled. The root itself maps to ".". A path that does not start with the
// prefix is returned unchanged.
func Relative(root, path string) string {
	sep := string(filepath.Separator)
	if path == root || path+sep == root {
		return "."
	}
	rel := strings.TrimPrefix(path, strings.TrimSuffix(root, sep)+sep)
	return filepath.ToSlash(rel)
}
