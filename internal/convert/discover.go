// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/pdiddy/org2anki/pkg/types"
)

// orgExt is the only file extension a recursive run converts.
const orgExt = ".org"

// Discover lists the org files under root matching any include pattern and
// no exclude pattern, sorted by path. Patterns are relative to root and use
// doublestar syntax. Index files are left out (see IsIndexFile).
func Discover(root string, includes, excludes []string) ([]string, error) {
	if len(includes) == 0 {
		includes = []string{types.DefaultIncludeGlob}
	}
	for _, p := range append(slices.Clone(includes), excludes...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
	}

	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range includes {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("globbing %q under %s: %w", pattern, root, err)
		}
		for _, rel := range matches {
			if seen[rel] || filepath.Ext(rel) != orgExt || excluded(rel, excludes) {
				continue
			}
			seen[rel] = true
			path := filepath.Join(root, filepath.FromSlash(rel))
			if IsIndexFile(root, path) {
				continue
			}
			files = append(files, path)
		}
	}
	slices.Sort(files)
	return files, nil
}

// excluded checks rel (slash separated) and its base name against the
// exclude patterns.
func excluded(rel string, excludes []string) bool {
	base := pathBase(rel)
	for _, pattern := range excludes {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

func pathBase(rel string) string {
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		return rel[i+1:]
	}
	return rel
}

// IsIndexFile reports whether path is a directory index: an org file named
// after its own directory or after the conversion root, such as
// notes/notes.org.
func IsIndexFile(root, path string) bool {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return stem == filepath.Base(filepath.Clean(root)) || stem == filepath.Base(filepath.Dir(path))
}

// ExportPath returns the directory the import files for file are written
// to: dest joined with file's path relative to root, without the .org
// extension. When root is a file, its parent directory is the base.
func ExportPath(root, dest, file string) (string, error) {
	base := root
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		base = filepath.Dir(root)
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", base, err)
	}
	absFile, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", file, err)
	}
	rel, err := filepath.Rel(absBase, absFile)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", file, root)
	}
	return filepath.Join(dest, strings.TrimSuffix(rel, filepath.Ext(rel))), nil
}
