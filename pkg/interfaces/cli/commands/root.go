// Package commands implements the fieldflow command line.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/vsinha/fieldflow/pkg/infrastructure/config"
	"github.com/vsinha/fieldflow/pkg/infrastructure/logger"
	"github.com/vsinha/fieldflow/pkg/interfaces/cli/output"
)

// env is the state shared by every subcommand once flags are parsed
type env struct {
	configPath string
	envFile    string
	format     string
	fixtures   string

	cfg config.Config
	log *logger.Logger
	// seeded maps fixture job keys to ids when --fixtures loaded a memory store
	seeded map[string]string
}

// NewRootCommand builds the fieldflow command tree
func NewRootCommand() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:   "fieldflow",
		Short: "Field-service job scheduling and equipment workflow",
		Long: `fieldflow schedules field-service jobs and tracks their equipment from the
client warehouse to permanent installation at a site.

Settings come from --config (YAML), an optional --env-file and FIELDFLOW_*
environment variables. With the memory store, --fixtures seeds the store
from a scenario file before the command runs.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.log != nil {
				e.log.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&e.configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&e.envFile, "env-file", ".env", "optional .env file preloaded into the environment")
	flags.StringVarP(&e.format, "format", "f", output.FormatText, "output format: text, json")
	flags.StringVar(&e.fixtures, "fixtures", "", "scenario file seeded into the memory store")

	root.AddCommand(
		newServeCommand(e),
		newMigrateCommand(e),
		newSeedCommand(e),
		newWorkflowCommand(e),
		newSnapshotsCommand(e),
	)
	return root
}

func (e *env) load() error {
	cfg, err := config.Load(e.configPath, e.envFile)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return err
	}
	e.cfg = cfg
	e.log = log
	return nil
}

func (e *env) output(cmd *cobra.Command) output.Config {
	return output.Config{Format: e.format, Out: cmd.OutOrStdout()}
}
