package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/mydat/internal/seed"
	"github.com/leapstack-labs/mydat/internal/ui"
	"github.com/leapstack-labs/mydat/internal/workspace"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Open bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the mydat web UI",
		Long: `Start the web server hosting the graph editor.

Every visitor gets a session cookie and their own copy of the seed graph.
Changed graphs are written to the store periodically and on shutdown.`,
		Example: `  # Start on the default port
  mydat serve

  # Start on a custom port with a seed graph that reloads on change
  mydat serve --port 3000 --seed-file graph.yaml --watch

  # Persist graphs to Postgres
  mydat serve --store-driver postgres --store-dsn postgres://localhost/mydat`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Open, "open", false, "Open the UI in the default browser")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	logger := cmdCtx.Logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := cmdCtx.OpenStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	seedGraph, err := seed.Load(cfg.SeedFile)
	if err != nil {
		return err
	}

	server := ui.NewServer(ui.Config{
		Workspace:       workspace.New(st, seedGraph, logger),
		Port:            cfg.Server.Port,
		Watch:           cfg.Server.Watch,
		SeedFile:        cfg.SeedFile,
		SessionSecret:   cfg.Server.SessionSecret,
		SecureCookie:    cfg.Server.SecureCookie,
		Layout:          cfg.Client.Layout,
		PersistInterval: cfg.Store.PersistInterval,
		Logger:          logger,
	})

	if opts.Open {
		go openBrowser(fmt.Sprintf("http://localhost:%d", cfg.Server.Port))
	}

	return server.Serve(ctx)
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(context.Background(), "open", url)
	case "linux":
		cmd = exec.CommandContext(context.Background(), "xdg-open", url)
	case "windows":
		cmd = exec.CommandContext(context.Background(), "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return
	}

	_ = cmd.Start()
}
