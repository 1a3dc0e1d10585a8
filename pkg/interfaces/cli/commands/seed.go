package commands

import (
	"github.com/spf13/cobra"

	"github.com/vsinha/fieldflow/pkg/infrastructure/config"
	"github.com/vsinha/fieldflow/pkg/interfaces/cli/output"
)

func newSeedCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file>",
		Short: "Load a scenario file into the store",
		Long: `Load technicians, materials, equipment types, tools and jobs from a YAML
scenario file in a single transaction. With the memory store the file is
only validated.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			uow, closeStore, err := e.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			res, err := seedFile(ctx, uow, args[0])
			if err != nil {
				return err
			}
			if e.cfg.Store.Driver != config.DriverPostgres {
				e.log.Warn("memory store: scenario validated but not persisted", "file", args[0])
			}

			summary := output.SeedSummary{
				Technicians:    len(res.Technicians),
				Materials:      len(res.Materials),
				EquipmentTypes: len(res.EquipmentTypes),
				Tools:          len(res.Tools),
				Jobs:           len(res.Jobs),
				Tasks:          len(res.Tasks),
				JobIDs:         make(map[string]string, len(res.Jobs)),
			}
			for key, id := range res.Jobs {
				summary.JobIDs[key] = id.String()
			}
			return output.Seeded(e.output(cmd), summary)
		},
	}
}
