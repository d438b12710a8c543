// Package security validates filesystem paths taken from configuration.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePathWithinDirectory checks that filePath resolves inside safeDir,
// following symlinks. Input discovery uses it so a symlinked entry in the
// data directory cannot pull in files from elsewhere on the host.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("resolve path %s: %w", filePath, err)
	}
	absSafeDir, err := filepath.Abs(safeDir)
	if err != nil {
		return fmt.Errorf("resolve directory %s: %w", safeDir, err)
	}

	canonical := resolveSymlinks(absPath)
	canonicalDir := resolveSymlinks(absSafeDir)

	rel, err := filepath.Rel(canonicalDir, canonical)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path %s is outside directory %s", filePath, safeDir)
	}
	return nil
}

// resolveSymlinks canonicalizes path. When the leaf does not exist yet, the
// nearest existing ancestor is resolved instead so a symlinked parent still
// counts.
func resolveSymlinks(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	check := path
	for {
		parent := filepath.Dir(check)
		if parent == check {
			return path
		}
		if resolved, err := filepath.EvalSymlinks(parent); err == nil {
			rel, relErr := filepath.Rel(parent, path)
			if relErr != nil {
				return path
			}
			return filepath.Join(resolved, rel)
		}
		check = parent
	}
}
