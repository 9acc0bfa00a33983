package hugo

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ArtifactPath returns the rendered page of fixture: "x/_index.md" maps to
// "<out>/x/index.html" and "x/y.md" to "<out>/x/y/index.html". fixture may
// be absolute or relative to contentDir.
func ArtifactPath(contentDir, outputDir, fixture string) (string, error) {
	rel := fixture
	if filepath.IsAbs(fixture) {
		r, err := filepath.Rel(contentDir, fixture)
		if err != nil {
			return "", fmt.Errorf("fixture %s is not under %s: %w", fixture, contentDir, err)
		}
		rel = r
	}
	rel = filepath.Clean(filepath.FromSlash(rel))
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("fixture %s is not under %s", fixture, contentDir)
	}
	dir, base := filepath.Split(rel)
	if base == "_index.md" {
		return filepath.Join(outputDir, dir, "index.html"), nil
	}
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outputDir, dir, name, "index.html"), nil
}

// GroupName is the test group of a fixture: the base name of its output
// directory.
func GroupName(artifactPath string) string {
	return filepath.Base(filepath.Dir(artifactPath))
}
