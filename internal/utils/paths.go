package utils

import (
	"path/filepath"
	"strings"
)

// ResolvePath resolves path relative to baseDir. Absolute paths are only
// cleaned; an empty path resolves to baseDir itself.
func ResolvePath(path, baseDir string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(baseDir, path)
}

// IsWithin reports whether child is parent or lives somewhere below it.
// Both paths are cleaned first; no symlinks are followed.
func IsWithin(parent, child string) bool {
	parent = filepath.Clean(parent)
	child = filepath.Clean(child)
	if parent == child {
		return true
	}
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
