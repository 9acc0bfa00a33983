package hugo

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteConfig writes settings to a temporary JSON file. The caller removes
// it with the returned cleanup function once the build finished.
func WriteConfig(settings map[string]any) (path string, cleanup func(), err error) {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode hugo config: %w", err)
	}
	f, err := os.CreateTemp("", "hugotest-*.json")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create hugo config: %w", err)
	}
	path = f.Name()
	cleanup = func() { _ = os.Remove(path) }
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to write hugo config: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}
