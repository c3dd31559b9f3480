package cli

import (
	"context"
	"fmt"
	"time"

	"todo_app/internal/config"
	"todo_app/internal/db"

	"github.com/spf13/cobra"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	Apply bool
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "List or apply database migrations",
		Long: `List the embedded Postgres migrations. With --apply, bring the
configured store's schema up to date (Postgres runs the SQL files,
SQLite runs the gorm auto-migration).`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Apply {
				return listMigrations(cmd)
			}
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			return applyMigrations(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&opts.Apply, "apply", false, "apply migrations to the configured store")

	return cmd
}

func listMigrations(cmd *cobra.Command) error {
	migrations, err := db.Migrations()
	if err != nil {
		return err
	}
	for _, m := range migrations {
		fmt.Fprintln(cmd.OutOrStdout(), m.Name)
	}
	return nil
}

func applyMigrations(cmd *cobra.Command, cfg *config.Config) error {
	if cfg.StoreDriver == config.DriverMemory {
		return fmt.Errorf("store driver %q has no schema to migrate", cfg.StoreDriver)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	schemaOnly := *cfg
	schemaOnly.RedisAddr = ""
	st, err := openStorage(ctx, &schemaOnly, true)
	if err != nil {
		return err
	}
	defer st.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", cfg.StoreDriver)
	return nil
}
