package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/vsinha/fieldflow/pkg/infrastructure/config"
	"github.com/vsinha/fieldflow/pkg/infrastructure/repositories/postgres"
)

func newMigrateCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.cfg.Store.Driver != config.DriverPostgres {
				return errors.New("migrate needs store.driver postgres")
			}
			if err := postgres.Migrate(cmd.Context(), e.cfg.Postgres.DSN); err != nil {
				return err
			}
			e.log.Info("migrations applied")
			return nil
		},
	}
}
