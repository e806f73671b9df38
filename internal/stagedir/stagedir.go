// Package stagedir owns the per-run staging directory: its lifecycle
// and the fan-out of every input into archive and compressed variants.
package stagedir

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Prefix names staging directories so stray ones are recognizable.
const Prefix = "ballooncd-"

// Create makes the staging directory in the output image's parent so
// artifacts land on the destination filesystem. The returned path is
// absolute; archiver targets must stay valid when tools run with the
// staging directory as their working directory.
func Create(outputPath string) (string, error) {
	parent := filepath.Dir(outputPath)
	dir, err := os.MkdirTemp(parent, Prefix)
	if err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("resolve staging directory: %w", err)
	}
	return abs, nil
}

// Remove deletes the staging directory and everything beneath it.
func Remove(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	return os.RemoveAll(path)
}
