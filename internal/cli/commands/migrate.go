package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/mydat/internal/cli/output"
	"github.com/leapstack-labs/mydat/internal/state"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the graph store schema",
		Long: `Apply every pending schema migration to the configured store.

serve runs the migrations on startup as well, so this is only needed
when the store is prepared ahead of time.`,
		Example: `  # Migrate the default SQLite store
  mydat migrate

  # Migrate a Postgres store
  mydat migrate --store-driver postgres --store-dsn postgres://localhost/mydat`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd)
		},
	}
}

func runMigrate(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer
	ctx := cmd.Context()

	st, err := cmdCtx.OpenStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to migrate store: %w", err)
	}
	defer func() { _ = st.Close() }()

	version, err := st.MigrationVersion(ctx)
	if err != nil {
		return err
	}

	target := cmdCtx.Cfg.Store.Path
	if st.Driver() != state.DriverSQLite {
		target = string(st.Driver())
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(map[string]any{
			"driver":  string(st.Driver()),
			"version": version,
		})
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Migrations"))
		r.Println(output.FormatKeyValue("Store", target))
		r.Println(output.FormatKeyValue("Version", fmt.Sprintf("%d", version)))
	default:
		r.Success(fmt.Sprintf("Store %s is at schema version %d", target, version))
	}
	return nil
}
