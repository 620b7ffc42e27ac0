package runner

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile writes contents to path, relative to out when path is not
// already absolute, creating parent directories as needed.
func WriteFile(out, path, contents string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(out, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
		return "", fmt.Errorf("write_file: %w", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return "", fmt.Errorf("write_file: %w", err)
	}
	return path, nil
}
