package commands

import (
	"github.com/spf13/cobra"

	"github.com/vsinha/fieldflow/pkg/application/app"
	"github.com/vsinha/fieldflow/pkg/application/dto"
	"github.com/vsinha/fieldflow/pkg/interfaces/cli/output"
)

func newSnapshotsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Manage per-site equipment snapshots",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "rebuild",
		Short: "Recompute every site snapshot from the installation ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withServices(cmd.Context(), func(s *app.Services) error {
				snaps, err := s.Workflow.RebuildSiteEquipmentSnapshots(cmd.Context())
				if err != nil {
					return err
				}
				e.log.Info("snapshots rebuilt", "rows", len(snaps))
				return output.Snapshots(e.output(cmd), dto.FromSnapshots(snaps))
			})
		},
	})
	return cmd
}
