package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeTools()
	c.normalizeParity()
	c.normalizeISO()
	c.normalizeECC()
	if err := c.normalizeCatalog(); err != nil {
		return err
	}
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizeTools() {
	if len(c.Tools) == 0 {
		return
	}
	cleaned := make(map[string]string, len(c.Tools))
	for name, binary := range c.Tools {
		name = strings.TrimSpace(name)
		binary = strings.TrimSpace(binary)
		if name == "" || binary == "" {
			continue
		}
		cleaned[name] = binary
	}
	c.Tools = cleaned
}

func (c *Config) normalizeParity() {
	if c.Parity.RedundancyPercent <= 0 {
		c.Parity.RedundancyPercent = defaultParityRedundancy
	}
	if c.Parity.RecoveryFiles <= 0 {
		c.Parity.RecoveryFiles = defaultParityRecovery
	}
}

func (c *Config) normalizeISO() {
	c.ISO.ApplicationID = strings.TrimSpace(c.ISO.ApplicationID)
	if c.ISO.ApplicationID == "" {
		c.ISO.ApplicationID = defaultISOApplicationID
	}
	c.ISO.SystemID = strings.TrimSpace(c.ISO.SystemID)
	if c.ISO.SystemID == "" {
		c.ISO.SystemID = defaultISOSystemID
	}
}

func (c *Config) normalizeECC() {
	c.ECC.Method = strings.ToUpper(strings.TrimSpace(c.ECC.Method))
	if c.ECC.Method == "" {
		c.ECC.Method = defaultECCMethod
	}
	c.ECC.Medium = strings.ToUpper(strings.TrimSpace(c.ECC.Medium))
	if c.ECC.Medium == "" {
		c.ECC.Medium = defaultECCMedium
	}
	if c.ECC.Threads < 0 {
		c.ECC.Threads = 0
	}
}

func (c *Config) normalizeCatalog() error {
	var err error
	if strings.TrimSpace(c.Catalog.Path) == "" {
		c.Catalog.Path = defaultCatalogPath
	}
	if c.Catalog.Path, err = expandPath(c.Catalog.Path); err != nil {
		return fmt.Errorf("catalog.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Path = strings.TrimSpace(c.Logging.Path)
	if c.Logging.Path != "" {
		var err error
		if c.Logging.Path, err = expandPath(c.Logging.Path); err != nil {
			return fmt.Errorf("logging.path: %w", err)
		}
	}
	return nil
}
