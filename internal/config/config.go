package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"ballooncd/internal/formats"
)

//go:embed sample_config.toml
var sampleConfig string

// Parity contains configuration for par2 parity generation.
type Parity struct {
	RedundancyPercent int `toml:"redundancy_percent"`
	RecoveryFiles     int `toml:"recovery_files"`
}

// ISO contains configuration for the ISO-authoring step.
type ISO struct {
	ApplicationID string `toml:"application_id"`
	SystemID      string `toml:"system_id"`
}

// ECC contains configuration for dvdisaster recovery-data augmentation.
type ECC struct {
	Method  string `toml:"method"`
	Medium  string `toml:"medium"`
	Threads int    `toml:"threads"`
}

// Catalog contains configuration for the run catalog database.
type Catalog struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Path   string `toml:"path"`
}

// Config encapsulates all configuration values for ballooncd.
//
// Configuration sections by subsystem:
//   - Tools: per-tool binary overrides keyed by canonical tool name
//   - Parity: par2 redundancy settings
//   - ISO: identifier header fields for the authored image
//   - ECC: dvdisaster method, medium, and worker count
//   - Catalog: run history database
//   - Logging: log format and optional log file copy
type Config struct {
	Tools   map[string]string `toml:"tools"`
	Parity  Parity            `toml:"parity"`
	ISO     ISO               `toml:"iso"`
	ECC     ECC               `toml:"ecc"`
	Catalog Catalog           `toml:"catalog"`
	Logging Logging           `toml:"logging"`
}

// Tool pairs a canonical tool name with the binary that will be invoked for
// it.
type Tool struct {
	Name   string
	Binary string
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/ballooncd/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// ResolvePath reports which configuration file a load would use and whether
// it exists, without parsing it.
func ResolvePath(path string) (string, bool, error) {
	return resolveConfigPath(path)
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("ballooncd.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// Binary returns the executable to invoke for the named tool, honouring any
// [tools] override.
func (c *Config) Binary(name string) string {
	if override, ok := c.Tools[name]; ok && override != "" {
		return override
	}
	return name
}

// ExternalTools returns every tool the pipeline can invoke, in invocation
// order, with overrides applied.
func (c *Config) ExternalTools() []Tool {
	names := append(formats.Binaries(), "par2", "genisoimage", "dvdisaster")
	tools := make([]Tool, 0, len(names))
	for _, name := range names {
		tools = append(tools, Tool{Name: name, Binary: c.Binary(name)})
	}
	return tools
}

func knownToolNames() map[string]struct{} {
	names := append(formats.Binaries(), "par2", "genisoimage", "dvdisaster")
	known := make(map[string]struct{}, len(names))
	for _, name := range names {
		known[name] = struct{}{}
	}
	return known
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
