package genisoimage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ballooncd/internal/logging"
	"ballooncd/internal/services"
)

const (
	// DefaultApplicationID is written into the image's application
	// identifier header field.
	DefaultApplicationID = "CD Ballooner"
	// DefaultSystemID is written into the image's system identifier header
	// field.
	DefaultSystemID = "LINUX"
)

// Builder defines ISO authoring behaviour.
type Builder interface {
	Build(ctx context.Context, srcDir, outPath, volumeID string) error
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithApplicationID overrides the application identifier header field.
func WithApplicationID(id string) Option {
	return func(c *CLI) {
		if id != "" {
			c.appID = id
		}
	}
}

// WithSystemID overrides the system identifier header field.
func WithSystemID(id string) Option {
	return func(c *CLI) {
		if id != "" {
			c.systemID = id
		}
	}
}

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec services.Executor) Option {
	return func(c *CLI) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLogger routes tool output to the supplied logger at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *CLI) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "genisoimage")
		}
	}
}

// CLI wraps the genisoimage command-line tool.
type CLI struct {
	binary   string
	appID    string
	systemID string
	exec     services.Executor
	logger   *slog.Logger
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{
		binary:   "genisoimage",
		appID:    DefaultApplicationID,
		systemID: DefaultSystemID,
		exec:     services.CommandExecutor{},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// EscapeGraft escapes a path for use in a graft-point specification. Must be
// applied before the significant '=' separator is appended.
func EscapeGraft(path string) string {
	path = strings.ReplaceAll(path, `\`, `\\`)
	return strings.ReplaceAll(path, "=", `\=`)
}

// Grafts builds one name=path graft entry per immediate child of srcDir.
// Two entries escaping to the same name is a fatal collision.
func Grafts(srcDir string) ([]string, error) {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return nil, fmt.Errorf("list staging entries: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return buildGrafts(srcDir, names)
}

func buildGrafts(srcDir string, names []string) ([]string, error) {
	grafts := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		escaped := EscapeGraft(name)
		path := EscapeGraft(filepath.Join(srcDir, name))
		if _, ok := seen[escaped]; ok {
			return nil, fmt.Errorf("%w: graft name %q", services.ErrCollision, escaped)
		}
		seen[escaped] = struct{}{}
		grafts = append(grafts, escaped+"="+path)
	}
	return grafts, nil
}

// Build authors an ISO at outPath containing the top-level entries of srcDir
// as direct children of the image root.
func (c *CLI) Build(ctx context.Context, srcDir, outPath, volumeID string) error {
	if srcDir == "" {
		return errors.New("source directory required")
	}
	if outPath == "" {
		return errors.New("output path required")
	}

	absSrc, err := filepath.Abs(srcDir)
	if err != nil {
		return fmt.Errorf("resolve source directory: %w", err)
	}
	grafts, err := Grafts(absSrc)
	if err != nil {
		return err
	}

	args := []string{
		"-appid", c.appID,
		"-sysid", c.systemID,
		"-quiet",
		"-no-cache-inodes",
		"-udf",
		"-iso-level", "1",
		"-joliet",
		"-rational-rock",
		"-translation-table",
		"-hide-joliet-trans-tbl",
		"-volid", volumeID,
		"-o", outPath,
		"-graft-points",
	}
	args = append(args, grafts...)

	if err := c.exec.Run(ctx, "", c.binary, args, func(line string) {
		c.logger.Debug(line)
	}); err != nil {
		return fmt.Errorf("genisoimage build: %w", err)
	}
	return nil
}

var _ Builder = (*CLI)(nil)
