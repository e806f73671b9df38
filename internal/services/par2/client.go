package par2

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"ballooncd/internal/fsutil"
	"ballooncd/internal/logging"
	"ballooncd/internal/services"
)

const (
	// DefaultRedundancy is the recovery-data percentage requested from par2.
	DefaultRedundancy = 20
	// DefaultRecoveryFiles is the number of recovery volumes to emit.
	DefaultRecoveryFiles = 1
)

// Creator defines parity generation behaviour.
type Creator interface {
	Create(ctx context.Context, path string) (string, error)
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

// WithRedundancy overrides the recovery-data percentage.
func WithRedundancy(percent int) Option {
	return func(c *CLI) {
		if percent > 0 {
			c.redundancy = percent
		}
	}
}

// WithRecoveryFiles overrides the recovery volume count.
func WithRecoveryFiles(count int) Option {
	return func(c *CLI) {
		if count > 0 {
			c.recoveryFiles = count
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
			c.logger = logging.NewComponentLogger(logger, "par2")
		}
	}
}

// CLI wraps the par2 command-line tool.
type CLI struct {
	binary        string
	redundancy    int
	recoveryFiles int
	exec          services.Executor
	logger        *slog.Logger
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{
		binary:        "par2",
		redundancy:    DefaultRedundancy,
		recoveryFiles: DefaultRecoveryFiles,
		exec:          services.CommandExecutor{},
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Create generates a parity archive for the file or directory at path,
// placing <path>.par2 in the same parent directory. Directory sources protect
// every file beneath them in a single parity set. Returns the parity archive
// path.
func (c *CLI) Create(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", errors.New("source path required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat parity source: %w", err)
	}

	parDir := filepath.Dir(path)
	parityPath := path + ".par2"

	args := []string{"c", "-n" + strconv.Itoa(c.recoveryFiles), "-r" + strconv.Itoa(c.redundancy), parityPath}
	if info.IsDir() {
		files, err := fsutil.TreeFiles(path, parDir)
		if err != nil {
			return "", fmt.Errorf("enumerate parity sources: %w", err)
		}
		if len(files) == 0 {
			return "", fmt.Errorf("no files to protect under %s", path)
		}
		args = append(args, files...)
	} else {
		args = append(args, filepath.Base(path))
	}

	if err := c.exec.Run(ctx, parDir, c.binary, args, func(line string) {
		c.logger.Debug(line)
	}); err != nil {
		return "", fmt.Errorf("par2 create: %w", err)
	}
	return parityPath, nil
}

var _ Creator = (*CLI)(nil)
