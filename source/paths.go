package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNoMatch is returned when a consumer pattern matches no file.
var ErrNoMatch = errors.New("no files match pattern")

// ResolveFiles expands consumer patterns to concrete files.
// Supports both single-level wildcards (*) and recursive wildcards (**).
// Relative patterns are resolved against root.
//
// Examples:
//   - "src/scripts/chat.js" → ["<root>/src/scripts/chat.js"]
//   - "src/**/*.js" → every .js file below src
//
// Files matching any exclude pattern (matched against the slash-separated
// path relative to root) are dropped. Every pattern must match at least one
// file that survives exclusion. The result keeps pattern order and has no
// duplicates; matches of one glob are sorted.
func ResolveFiles(root string, patterns, exclude []string) ([]string, error) {
	var resolved []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		paths, err := resolvePattern(root, pattern)
		if err != nil {
			return nil, fmt.Errorf("resolve pattern %q: %w", pattern, err)
		}

		kept := 0
		for _, p := range paths {
			excluded, err := isExcluded(root, p, exclude)
			if err != nil {
				return nil, err
			}
			if excluded {
				continue
			}
			kept++
			if !seen[p] {
				seen[p] = true
				resolved = append(resolved, p)
			}
		}
		if kept == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoMatch, pattern)
		}
	}

	return resolved, nil
}

// Match reports whether path would be selected by any of the patterns,
// ignoring whether it currently exists.
func Match(root, path string, patterns, exclude []string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if excluded, err := isExcluded(root, abs, exclude); err != nil || excluded {
		return false
	}

	for _, pattern := range patterns {
		if ok, err := doublestar.PathMatch(absolute(root, pattern), abs); err == nil && ok {
			return true
		}
	}
	return false
}

// resolvePattern expands a single pattern to files.
func resolvePattern(root, pattern string) ([]string, error) {
	abs := absolute(root, pattern)

	if !containsGlob(pattern) {
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%w: %s is a directory", ErrUnreadable, abs)
		}
		return []string{abs}, nil
	}

	// Use doublestar for ** support
	matches, err := doublestar.FilepathGlob(abs, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob error: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

func isExcluded(root, path string, exclude []string) (bool, error) {
	if len(exclude) == 0 {
		return false, nil
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range exclude {
		ok, err := doublestar.Match(filepath.ToSlash(pattern), rel)
		if err != nil {
			return false, fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// absolute joins a relative path onto root, keeping glob characters intact.
func absolute(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	if root == "" {
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return p
	}
	return filepath.Join(root, p)
}

// containsGlob checks if a pattern contains glob characters.
func containsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// Rel returns path relative to root with forward slashes, for display. Paths
// outside root are returned unchanged.
func Rel(root, path string) string {
	if root == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
