package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"ballooncd/internal/catalog"
	"ballooncd/internal/config"
	"ballooncd/internal/fsutil"
	"ballooncd/internal/logging"
	"ballooncd/internal/services"
)

// commandContext carries the flag values and lazily loaded configuration
// shared by every subcommand.
type commandContext struct {
	configFlag  *string
	verboseFlag *int
	quietFlag   *int

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string, verboseFlag, quietFlag *int) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
		quietFlag:   quietFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = fmt.Errorf("%w: %w", services.ErrConfiguration, err)
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

// describeConfigSource names where the active configuration came from.
func (c *commandContext) describeConfigSource() string {
	if c.configExists {
		return c.configPath
	}
	return fmt.Sprintf("built-in defaults (%s not found)", c.configPath)
}

// verbosity maps the accumulated -v/-q counts onto a log level.
func (c *commandContext) verbosity() slog.Level {
	verbose, quiet := 0, 0
	if c.verboseFlag != nil {
		verbose = *c.verboseFlag
	}
	if c.quietFlag != nil {
		quiet = *c.quietFlag
	}
	return logging.VerbosityLevel(verbose, quiet)
}

// newLogger builds the run logger from the loaded configuration and the
// verbosity flags.
func (c *commandContext) newLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Level:    c.verbosity(),
		Format:   cfg.Logging.Format,
		FilePath: cfg.Logging.Path,
	})
}

// withStore opens the run catalog, hands it to fn, and closes it again.
func (c *commandContext) withStore(fn func(*catalog.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.Catalog.Enabled {
		return fmt.Errorf("the run catalog is disabled; enable [catalog] in %s", c.describeConfigSource())
	}
	store, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = store.Close() }()
	return fn(store)
}

// hasCatalog reports whether a catalog database already exists, so read-only
// commands can skip lookups without creating one.
func (c *commandContext) hasCatalog() bool {
	cfg, err := c.ensureConfig()
	if err != nil || !cfg.Catalog.Enabled {
		return false
	}
	return fsutil.Exists(cfg.Catalog.Path)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
