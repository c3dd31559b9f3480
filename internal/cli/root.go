package cli

import (
	"todo_app/internal/config"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFiles []string
}

// NewRootCommand creates the root command for the todo API.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "app",
		Short: "Todo task API",
		Long:  "HTTP API for creating, listing and completing to-do tasks.",
	}

	cmd.PersistentFlags().StringSliceVar(&opts.EnvFiles, "env-file", nil, "env file to load before the environment (repeatable; default .env)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

func (o *RootOptions) loadConfig() (*config.Config, error) {
	return config.Load(o.EnvFiles...)
}
