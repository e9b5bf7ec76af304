package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devinvista/Trip-sub001/internal/storage/sqlite"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.readConfig()
			if err != nil {
				return err
			}

			// opening the store runs the migrations
			store, err := sqlite.New(cfg.Database.Path)
			if err != nil {
				return err
			}
			if err := store.Close(); err != nil {
				return fmt.Errorf("closing database: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Database ready at %s\n", cfg.Database.Path)
			return nil
		},
	}
}
