// Package config loads, normalizes, and validates the TOML configuration
// file. Defaults cover every setting, so a config file is optional; when one
// exists it is discovered at an explicit path, then
// ~/.config/ballooncd/config.toml, then ./ballooncd.toml.
package config
