// Package cli provides the command-line interface for mydat.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/mydat/internal/cli/commands"
	"github.com/leapstack-labs/mydat/internal/cli/output"
	"github.com/leapstack-labs/mydat/internal/config"
	"github.com/leapstack-labs/mydat/internal/logging"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mydat",
		Short: "mydat - visual data pipeline builder",
		Long: `mydat serves a web UI where each user assembles a graph of tables,
analyses, charts and data nodes. The graph view redraws itself whenever
a page fragment is swapped in and routes node clicks back to the server.

The same binary can inspect stored graphs and drive a running server
from the terminal.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}

			ctx := commands.WithConfig(cmd.Context(), cfg)
			ctx = logging.WithLogger(ctx, logger)
			cmd.SetContext(ctx)

			if cfg.File != "" {
				logger.Debug("using config file", "path", cfg.File)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./mydat.yaml)")
	pf.Int("port", config.DefaultPort, "Port the UI server listens on")
	pf.String("session-secret", "", "Key used to sign session cookies")
	pf.Bool("secure-cookie", false, "Only send the session cookie over HTTPS")
	pf.Bool("watch", false, "Reload the seed file when it changes")
	pf.String("store-driver", config.DefaultStoreDriver, "Graph store driver (sqlite|postgres)")
	pf.String("store-path", config.DefaultStorePath, "Path to the SQLite graph store")
	pf.String("store-dsn", "", "Postgres connection string")
	pf.Duration("persist-interval", config.DefaultPersistInterval, "How often changed graphs are written to the store")
	pf.String("seed-file", "", "YAML graph new users start with")
	pf.String("log-level", config.DefaultLogLevel, "Log level (debug|info|warn|error)")
	pf.String("log-format", config.DefaultLogFormat, "Log format (text|json)")
	pf.String("base-url", config.DefaultBaseURL, "URL of a running mydat server")
	pf.String("layout", config.DefaultLayout, "Layout used to position graph nodes")
	pf.StringP("output", "o", "", "Output format (auto|text|markdown|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "markdown", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("store-driver", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"sqlite", "postgres"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewBrowseCommand())
	rootCmd.AddCommand(commands.NewGraphCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	return commands.ConfigFromContext(ctx)
}

// GetRenderer builds a renderer for the output mode in the command context.
func GetRenderer(ctx context.Context) *output.Renderer {
	return output.NewRenderer(os.Stdout, os.Stderr, output.Mode(GetConfig(ctx).Output))
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for mydat.

To load completions:

Bash:
  $ source <(mydat completion bash)

  # To load completions for each session, execute once:
  $ mydat completion bash > /etc/bash_completion.d/mydat

Zsh:
  $ mydat completion zsh > "${fpath[1]}/_mydat"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ mydat completion fish | source

PowerShell:
  PS> mydat completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
