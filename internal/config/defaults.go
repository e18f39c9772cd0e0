package config

import "time"

// Default configuration values.
const (
	DefaultPort            = 8080
	DefaultStoreDriver     = "sqlite"
	DefaultStorePath       = ".mydat/mydat.db"
	DefaultPersistInterval = 30 * time.Second
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultBaseURL         = "http://localhost:8080"
	DefaultLayout          = "grid"
	DefaultOutput          = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// ConfigFileNames are looked up in the working directory, in order.
var ConfigFileNames = []string{"mydat.yaml", "mydat.yml"}

// EnvPrefix prefixes every environment variable read. A double underscore separates
// nesting levels: MYDAT_STORE__PERSIST_INTERVAL sets store.persist_interval.
const EnvPrefix = "MYDAT_"

func defaults() map[string]any {
	return map[string]any{
		"server.port":            DefaultPort,
		"server.session_secret":  "",
		"server.secure_cookie":   false,
		"server.watch":           false,
		"store.driver":           DefaultStoreDriver,
		"store.path":             DefaultStorePath,
		"store.dsn":              "",
		"store.persist_interval": DefaultPersistInterval.String(),
		"seed_file":              "",
		"log.level":              DefaultLogLevel,
		"log.format":             DefaultLogFormat,
		"client.base_url":        DefaultBaseURL,
		"client.layout":          DefaultLayout,
		"output":                 DefaultOutput,
	}
}
