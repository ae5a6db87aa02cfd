// Package safepath keeps generated output inside the workspace root.
package safepath

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/kingrea/dfxcore/internal/dfxerr"
)

// Canonicalize returns the absolute, symlink-free form of an existing path.
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("safepath: resolve %s: %w", path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("safepath: canonicalize %s: %w", path, err)
	}
	return resolved, nil
}

// Within canonicalizes path and root and fails with ErrPathSafety unless
// path lies at or below root. Both must exist. It returns the canonical path.
func Within(path, root string) (string, error) {
	canonicalRoot, err := Canonicalize(root)
	if err != nil {
		return "", err
	}
	canonical, err := Canonicalize(path)
	if err != nil {
		return "", err
	}
	if !HasPrefix(canonical, canonicalRoot) {
		return "", dfxerr.PathSafety("Directory at '%s' is outside the workspace root.", canonical)
	}
	return canonical, nil
}

// HasPrefix compares whole path components, so /a/bc is not under /a/b.
func HasPrefix(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if runtime.GOOS == "windows" {
		path = strings.ToLower(path)
		root = strings.ToLower(root)
	}
	if path == root {
		return true
	}
	sep := string(os.PathSeparator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.HasPrefix(path, root)
}
