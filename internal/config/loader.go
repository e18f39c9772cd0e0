package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"port":             "server.port",
	"session-secret":   "server.session_secret",
	"secure-cookie":    "server.secure_cookie",
	"watch":            "server.watch",
	"store-driver":     "store.driver",
	"store-path":       "store.path",
	"store-dsn":        "store.dsn",
	"persist-interval": "store.persist_interval",
	"seed-file":        "seed_file",
	"log-level":        "log.level",
	"log-format":       "log.format",
	"base-url":         "client.base_url",
	"layout":           "client.layout",
	"output":           "output",
}

// findConfigFile finds the config file to use.
// Priority: explicit path > mydat.yaml > mydat.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range ConfigFileNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Load loads configuration from defaults, file, environment variables and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// Only flags that were explicitly set override other sources.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	var fileKeys map[string]bool
	if used != "" {
		fk := koanf.New(".")
		if err := fk.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
		fileKeys = make(map[string]bool)
		for _, key := range fk.Keys() {
			fileKeys[key] = true
		}
		if err := k.Merge(fk); err != nil {
			return nil, fmt.Errorf("error merging config file %s: %w", used, err)
		}
	}

	// 3. Environment: MYDAT_STORE__PATH -> store.path
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Decode
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           &cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Paths written in the config file are relative to that file.
	if used != "" {
		cfg.File = used
		base := filepath.Dir(used)
		if fileKeys["store.path"] && !overridden(flags, "store.path") {
			cfg.Store.Path = resolvePathRelativeTo(cfg.Store.Path, base)
		}
		if fileKeys["seed_file"] && !overridden(flags, "seed_file") {
			cfg.SeedFile = resolvePathRelativeTo(cfg.SeedFile, base)
		}
	}

	cfg.Store.DSN = expandEnvVars(cfg.Store.DSN)
	cfg.Server.SessionSecret = expandEnvVars(cfg.Server.SessionSecret)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// overridden reports whether key was set by an environment variable or a changed flag.
func overridden(flags *pflag.FlagSet, key string) bool {
	envName := EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "__"))
	if _, ok := os.LookupEnv(envName); ok {
		return true
	}
	if flags == nil {
		return false
	}
	for name, k := range flagKeys {
		if k == key && flags.Changed(name) {
			return true
		}
	}
	return false
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}
