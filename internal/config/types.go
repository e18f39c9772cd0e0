// Package config loads mydat configuration from defaults, a YAML file, MYDAT_ environment
// variables and command-line flags, in increasing order of precedence.
package config

import "time"

// Config holds all configuration options.
type Config struct {
	Server   ServerConfig `koanf:"server"`
	Store    StoreConfig  `koanf:"store"`
	SeedFile string       `koanf:"seed_file"`
	Log      LogConfig    `koanf:"log"`
	Client   ClientConfig `koanf:"client"`
	Output   string       `koanf:"output"`

	// File is the config file that was loaded, empty when none was found.
	File string `koanf:"-"`
}

// ServerConfig holds configuration for the UI server.
type ServerConfig struct {
	Port          int    `koanf:"port"`
	SessionSecret string `koanf:"session_secret"`
	// SecureCookie restricts the session cookie to HTTPS. Enable it behind a TLS proxy.
	SecureCookie bool `koanf:"secure_cookie"`
	Watch        bool `koanf:"watch"`
}

// StoreConfig selects where user graphs are persisted.
type StoreConfig struct {
	Driver          string        `koanf:"driver"` // sqlite, postgres
	Path            string        `koanf:"path"`   // sqlite file
	DSN             string        `koanf:"dsn"`    // postgres connection string
	PersistInterval time.Duration `koanf:"persist_interval"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // text, json
}

// ClientConfig is used by commands that talk to a running server.
type ClientConfig struct {
	BaseURL string `koanf:"base_url"`
	Layout  string `koanf:"layout"`
}
