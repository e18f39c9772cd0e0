package config

import (
	"fmt"
	"slices"
	"strings"
)

var (
	validDrivers = []string{"sqlite", "postgres"}
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"text", "json"}
	validOutputs = []string{"auto", "text", "markdown", "json"}
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", c.Server.Port)
	}
	if !slices.Contains(validDrivers, c.Store.Driver) {
		return fmt.Errorf("store.driver must be one of %s, got %q", strings.Join(validDrivers, ", "), c.Store.Driver)
	}
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	}
	if c.Store.PersistInterval < 0 {
		return fmt.Errorf("store.persist_interval must not be negative")
	}
	if !slices.Contains(validLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("log.level must be one of %s, got %q", strings.Join(validLevels, ", "), c.Log.Level)
	}
	if !slices.Contains(validFormats, c.Log.Format) {
		return fmt.Errorf("log.format must be one of %s, got %q", strings.Join(validFormats, ", "), c.Log.Format)
	}
	if !slices.Contains(validOutputs, c.Output) {
		return fmt.Errorf("output must be one of %s, got %q", strings.Join(validOutputs, ", "), c.Output)
	}
	if c.Client.Layout == "" {
		return fmt.Errorf("client.layout is required")
	}
	return nil
}
