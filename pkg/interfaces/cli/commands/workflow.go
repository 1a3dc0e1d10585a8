package commands

import (
	"github.com/spf13/cobra"

	"github.com/vsinha/fieldflow/pkg/application/app"
	"github.com/vsinha/fieldflow/pkg/application/dto"
	"github.com/vsinha/fieldflow/pkg/interfaces/cli/output"
)

func newWorkflowCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Inspect a job's workflow",
	}
	cmd.AddCommand(newWorkflowStatusCommand(e), newCriticalPathCommand(e))
	return cmd
}

func newWorkflowStatusCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job>",
		Short: "Show the job's batch progress and the actions it allows next",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withServices(cmd.Context(), func(s *app.Services) error {
				jobID, err := e.resolveJob(args[0])
				if err != nil {
					return err
				}
				status, err := s.Workflow.GetWorkflowStatus(cmd.Context(), jobID)
				if err != nil {
					return err
				}
				return output.WorkflowStatus(e.output(cmd), dto.FromWorkflowStatus(status))
			})
		},
	}
}

func newCriticalPathCommand(e *env) *cobra.Command {
	var svgPath, htmlPath string

	cmd := &cobra.Command{
		Use:   "critical-path <job>",
		Short: "Compute slack per task and print the job's Gantt chart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withServices(cmd.Context(), func(s *app.Services) error {
				jobID, err := e.resolveJob(args[0])
				if err != nil {
					return err
				}
				analysis, err := s.Scheduler.GetCriticalPath(cmd.Context(), jobID)
				if err != nil {
					return err
				}
				cp := dto.FromCriticalPath(analysis)

				if svgPath != "" {
					svg := output.NewGanttChart(&cp).GenerateSVG(&cp)
					if err := output.WriteFile(svgPath, []byte(svg)); err != nil {
						return err
					}
					e.log.Info("Gantt chart written", "file", svgPath)
				}
				if htmlPath != "" {
					html, err := output.NewHTMLReport().GenerateHTML(cp)
					if err != nil {
						return err
					}
					if err := output.WriteFile(htmlPath, []byte(html)); err != nil {
						return err
					}
					e.log.Info("HTML report written", "file", htmlPath)
				}
				return output.CriticalPath(e.output(cmd), cp)
			})
		},
	}
	cmd.Flags().StringVar(&svgPath, "svg", "", "also write the Gantt chart as SVG to this file")
	cmd.Flags().StringVar(&htmlPath, "html", "", "also write an HTML report to this file")
	return cmd
}
