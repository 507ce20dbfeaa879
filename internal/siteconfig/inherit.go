package siteconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/maps"
)

// inheritKey names a parent configuration that the document extends.
const inheritKey = "INHERIT"

// resolveInherit merges the parent chain named by INHERIT into doc. Nested
// mappings merge key by key with the child winning; any other value in the
// child replaces the parent's. Parent paths are relative to the file that
// names them.
func resolveInherit(doc map[string]any, path string, lookup func(string) (string, bool)) (map[string]any, error) {
	return resolveInheritFrom(doc, path, lookup, map[string]bool{})
}

func resolveInheritFrom(doc map[string]any, path string, lookup func(string) (string, bool), seen map[string]bool) (map[string]any, error) {
	raw, ok := doc[inheritKey]
	if !ok {
		return doc, nil
	}
	delete(doc, inheritKey)

	name, ok := raw.(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("%s must be a file path, got %v", inheritKey, raw)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	seen[abs] = true

	parentPath := name
	if !filepath.IsAbs(parentPath) {
		parentPath = filepath.Join(filepath.Dir(abs), parentPath)
	}
	if seen[parentPath] {
		return nil, fmt.Errorf("%s cycle at %s", inheritKey, parentPath)
	}

	data, err := os.ReadFile(parentPath)
	if err != nil {
		return nil, fmt.Errorf("inherited config file %s does not exist", parentPath)
	}

	parent, err := decodeWithEnv(data, lookup)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", parentPath, err)
	}
	parent, err = resolveInheritFrom(parent, parentPath, lookup, seen)
	if err != nil {
		return nil, err
	}

	maps.Merge(doc, parent)
	return parent, nil
}
