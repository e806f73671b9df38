package config

import (
	"errors"
	"fmt"
	"sort"
)

var validECCMethods = map[string]struct{}{
	"RS01": {},
	"RS02": {},
	"RS03": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateParity(); err != nil {
		return err
	}
	if err := c.validateECC(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTools() error {
	if len(c.Tools) == 0 {
		return nil
	}
	known := knownToolNames()
	unknown := make([]string, 0)
	for name := range c.Tools {
		if _, ok := known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("tools: unknown tool names %v", unknown)
	}
	return nil
}

func (c *Config) validateParity() error {
	if c.Parity.RedundancyPercent < 1 || c.Parity.RedundancyPercent > 100 {
		return errors.New("parity.redundancy_percent must be between 1 and 100")
	}
	if c.Parity.RecoveryFiles < 1 {
		return errors.New("parity.recovery_files must be >= 1")
	}
	return nil
}

func (c *Config) validateECC() error {
	if _, ok := validECCMethods[c.ECC.Method]; !ok {
		return fmt.Errorf("ecc.method must be one of RS01, RS02, RS03 (got %q)", c.ECC.Method)
	}
	if c.ECC.Medium == "" {
		return errors.New("ecc.medium must be set")
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if c.Catalog.Enabled && c.Catalog.Path == "" {
		return errors.New("catalog.path must be set when catalog.enabled is true")
	}
	return nil
}
