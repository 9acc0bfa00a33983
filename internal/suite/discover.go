package suite

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DiscoverOptions controls fixture discovery.
type DiscoverOptions struct {
	// Root is the directory to walk.
	Root    string
	Include []string
	Ignore  []string
	// SkipDirs are absolute directories never descended into, such as the
	// build output.
	SkipDirs []string
}

// Discover walks Root and returns the absolute paths of fixtures matching
// any include pattern and no ignore pattern, sorted. Patterns match the
// slash separated path relative to Root. Hidden directories are skipped.
func Discover(opts DiscoverOptions) ([]string, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}
	for _, p := range append(append([]string(nil), opts.Include...), opts.Ignore...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid fixture pattern %q", p)
		}
	}
	skip := make(map[string]bool, len(opts.SkipDirs))
	for _, d := range opts.SkipDirs {
		if abs, err := filepath.Abs(d); err == nil {
			skip[abs] = true
		}
	}

	var found []string
	walkErr := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && (skip[p] || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if matchAny(opts.Include, rel) && !matchAny(opts.Ignore, rel) {
			found = append(found, p)
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to discover fixtures under %s: %w", root, walkErr)
	}
	sort.Strings(found)
	return found, nil
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}
