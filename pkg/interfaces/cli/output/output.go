package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/vsinha/fieldflow/pkg/application/dto"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds configuration for output generation
type Config struct {
	Format string
	Out    io.Writer
}

func (c Config) writer() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

// generate emits payload as indented JSON or through the text renderer
func generate(config Config, payload any, text func(w io.Writer)) error {
	switch config.Format {
	case "", FormatText:
		text(config.writer())
		return nil
	case FormatJSON:
		enc := json.NewEncoder(config.writer())
		enc.SetIndent("", "  ")
		if err := enc.Encode(payload); err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// WorkflowStatus prints the job's workflow position and allowed actions
func WorkflowStatus(config Config, s dto.WorkflowStatus) error {
	return generate(config, s, func(w io.Writer) {
		fmt.Fprintf(w, "Job %s\n", s.JobID)
		fmt.Fprintf(w, "======================================\n\n")
		fmt.Fprintf(w, "Job status:    %s\n", s.JobStatus)
		if s.BatchID != nil {
			fmt.Fprintf(w, "Batch:         %s (%s)\n", *s.BatchID, s.BatchStatus)
		} else {
			fmt.Fprintf(w, "Batch:         none\n")
		}
		fmt.Fprintf(w, "Discrepancies: %d\n\n", s.Discrepancies)

		if s.TotalLines > 0 {
			fmt.Fprintf(w, "Equipment lines (%d):\n", s.TotalLines)
			writeCounts(w, s.LineCounts)
			fmt.Fprintln(w)
		}
		if len(s.TaskCounts) > 0 {
			fmt.Fprintf(w, "Tasks:\n")
			writeCounts(w, s.TaskCounts)
			fmt.Fprintln(w)
		}

		fmt.Fprintf(w, "Next actions:\n")
		actions := []struct {
			name string
			ok   bool
		}{
			{"accept", s.CanAccept},
			{"receive", s.CanReceive},
			{"ship", s.CanShip},
			{"close", s.CanClose},
		}
		offered := false
		for _, a := range actions {
			if a.ok {
				fmt.Fprintf(w, "  - %s\n", a.name)
				offered = true
			}
		}
		if !offered {
			fmt.Fprintf(w, "  (none)\n")
		}
	})
}

func writeCounts(w io.Writer, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-22s %d\n", k, counts[k])
	}
}

// CriticalPath prints the task table and a day-by-day Gantt line chart
func CriticalPath(config Config, cp dto.CriticalPath) error {
	return generate(config, cp, func(w io.Writer) {
		fmt.Fprintf(w, "Critical path for job %s (as of %s)\n", cp.JobID, cp.AnalysisDate.Format("2006-01-02"))
		fmt.Fprintf(w, "======================================\n\n")

		fmt.Fprintf(w, "%-24s %-12s %-12s %-14s %-14s %-8s %-8s\n",
			"Task", "Start", "End", "Earliest", "Latest", "Slack", "Critical")
		fmt.Fprintf(w, "%-24s %-12s %-12s %-14s %-14s %-8s %-8s\n",
			"------------------------", "------------", "------------", "--------------", "--------------", "--------", "--------")
		for _, n := range cp.Nodes {
			critical := ""
			switch {
			case n.Critical:
				critical = "yes"
			case n.Violated:
				critical = "LATE"
			}
			fmt.Fprintf(w, "%-24s %-12s %-12s %-14s %-14s %-8.1f %-8s\n",
				truncate(n.TaskName, 24),
				n.StartDate.Format("2006-01-02"),
				n.EndDate.Format("2006-01-02"),
				n.EarliestStart.Format("2006-01-02"),
				n.LatestStart.Format("2006-01-02"),
				n.SlackDays,
				critical)
		}
		fmt.Fprintln(w)

		WriteTextGantt(w, &cp)
	})
}

// Snapshots prints per-site equipment counts
func Snapshots(config Config, snaps []dto.Snapshot) error {
	return generate(config, snaps, func(w io.Writer) {
		fmt.Fprintf(w, "Site equipment snapshots: %d\n\n", len(snaps))
		if len(snaps) == 0 {
			return
		}
		fmt.Fprintf(w, "%-36s %-36s %-8s %-20s\n", "Site", "Equipment Type", "Qty", "Updated (UTC)")
		fmt.Fprintf(w, "%-36s %-36s %-8s %-20s\n",
			"------------------------------------", "------------------------------------", "--------", "--------------------")
		for _, s := range snaps {
			fmt.Fprintf(w, "%-36s %-36s %-8d %-20s\n",
				s.SiteID, s.EquipmentTypeID, s.CurrentQty, s.LastUpdateUTC.Format("2006-01-02 15:04:05"))
		}
	})
}

// SeedSummary reports how many records of each kind a fixture file created
type SeedSummary struct {
	Technicians    int               `json:"technicians"`
	Materials      int               `json:"materials"`
	EquipmentTypes int               `json:"equipment_types"`
	Tools          int               `json:"tools"`
	Jobs           int               `json:"jobs"`
	Tasks          int               `json:"tasks"`
	JobIDs         map[string]string `json:"job_ids"`
}

// Seeded prints the seed summary
func Seeded(config Config, s SeedSummary) error {
	return generate(config, s, func(w io.Writer) {
		fmt.Fprintf(w, "Seeded %d technicians, %d materials, %d equipment types, %d tools, %d jobs, %d tasks\n",
			s.Technicians, s.Materials, s.EquipmentTypes, s.Tools, s.Jobs, s.Tasks)
		keys := make([]string, 0, len(s.JobIDs))
		for k := range s.JobIDs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  job %-20s %s\n", k, s.JobIDs[k])
		}
	})
}

// WriteFile creates parent directories and writes data to path
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
