package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/mydat/internal/cli/output"
	"github.com/leapstack-labs/mydat/internal/config"
	"github.com/leapstack-labs/mydat/internal/logging"
	"github.com/leapstack-labs/mydat/internal/state"
)

type configKey struct{}

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// ConfigFromContext returns the config stored in ctx, or the defaults when there is none.
func ConfigFromContext(ctx context.Context) *config.Config {
	if ctx != nil {
		if c, ok := ctx.Value(configKey{}).(*config.Config); ok && c != nil {
			return c
		}
	}
	return &config.Config{
		Server: config.ServerConfig{Port: config.DefaultPort},
		Store: config.StoreConfig{
			Driver:          config.DefaultStoreDriver,
			Path:            config.DefaultStorePath,
			PersistInterval: config.DefaultPersistInterval,
		},
		Log:    config.LogConfig{Level: config.DefaultLogLevel, Format: config.DefaultLogFormat},
		Client: config.ClientConfig{BaseURL: config.DefaultBaseURL, Layout: config.DefaultLayout},
		Output: config.DefaultOutput,
	}
}

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext collects the config, logger and renderer of cmd.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	cfg := ConfigFromContext(ctx)
	return &CommandContext{
		Cfg:      cfg,
		Logger:   logging.FromContext(ctx),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output)),
	}
}

// OpenStore opens the configured graph store and brings its schema up to date.
// The caller closes the store.
func (c *CommandContext) OpenStore(ctx context.Context) (*state.Store, error) {
	stCfg := state.Config{
		Driver: state.Driver(c.Cfg.Store.Driver),
		Path:   c.Cfg.Store.Path,
		DSN:    c.Cfg.Store.DSN,
	}
	if stCfg.Driver == state.DriverSQLite && stCfg.Path != ":memory:" {
		dir := filepath.Dir(stCfg.Path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create store directory: %w", err)
			}
		}
	}

	st, err := state.Open(ctx, stCfg, c.Logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}
