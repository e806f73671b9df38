package dvdisaster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"

	"ballooncd/internal/logging"
	"ballooncd/internal/services"
)

const (
	// DefaultMethod selects the error-correction codec dvdisaster applies.
	DefaultMethod = "RS02"
	// DefaultMedium sizes the recovery data for the target disc type.
	DefaultMedium = "CD"
)

// Augmenter defines ECC augmentation behaviour.
type Augmenter interface {
	Augment(ctx context.Context, isoPath string) error
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

// WithMethod overrides the error-correction method.
func WithMethod(method string) Option {
	return func(c *CLI) {
		if method != "" {
			c.method = method
		}
	}
}

// WithMedium overrides the target medium name.
func WithMedium(medium string) Option {
	return func(c *CLI) {
		if medium != "" {
			c.medium = medium
		}
	}
}

// WithThreads overrides the worker count passed to the tool. Zero keeps the
// default of one worker per processing unit.
func WithThreads(threads int) Option {
	return func(c *CLI) {
		if threads > 0 {
			c.threads = threads
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
			c.logger = logging.NewComponentLogger(logger, "dvdisaster")
		}
	}
}

// CLI wraps the dvdisaster command-line tool.
type CLI struct {
	binary  string
	method  string
	medium  string
	threads int
	exec    services.Executor
	logger  *slog.Logger
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{
		binary: "dvdisaster",
		method: DefaultMethod,
		medium: DefaultMedium,
		exec:   services.CommandExecutor{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Augment runs dvdisaster in create mode against the ISO at isoPath, growing
// the file in place with interleaved recovery sectors.
func (c *CLI) Augment(ctx context.Context, isoPath string) error {
	if isoPath == "" {
		return errors.New("iso path required")
	}

	threads := c.threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	args := []string{
		"-c",
		"-x", strconv.Itoa(threads),
		"-m" + c.method,
		"-n", c.medium,
		"-i", isoPath,
	}

	if err := c.exec.Run(ctx, "", c.binary, args, func(line string) {
		c.logger.Debug(line)
	}); err != nil {
		return fmt.Errorf("dvdisaster augment: %w", err)
	}
	return nil
}

var _ Augmenter = (*CLI)(nil)
