package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CriticalPathNode holds the scheduling window computed for one task
type CriticalPathNode struct {
	TaskID        uuid.UUID
	TaskName      string
	StartDate     time.Time
	EndDate       time.Time
	EarliestStart time.Time
	LatestStart   time.Time
	SlackDays     float64
	Critical      bool // zero slack
	Violated      bool // negative slack: a prerequisite ends after the task starts
}

// CriticalPathAnalysis contains the results of critical path analysis for a job
type CriticalPathAnalysis struct {
	JobID        uuid.UUID
	AnalysisDate time.Time
	Nodes        []CriticalPathNode // every task, ordered by earliest start
	CriticalPath []CriticalPathNode // zero-slack tasks, ordered by earliest start
	Violations   []CriticalPathNode // negative-slack tasks, ordered by earliest start
}

// GetCriticalPathSummary returns a formatted summary of the critical path
func (analysis *CriticalPathAnalysis) GetCriticalPathSummary() string {
	if len(analysis.CriticalPath) == 0 {
		return "No critical path found"
	}
	first := analysis.CriticalPath[0]
	last := analysis.CriticalPath[len(analysis.CriticalPath)-1]
	return fmt.Sprintf(
		"Critical Path: %d of %d tasks, %s -> %s",
		len(analysis.CriticalPath),
		len(analysis.Nodes),
		first.EarliestStart.Format(time.DateOnly),
		last.EndDate.Format(time.DateOnly),
	)
}

// CriticalTaskIDs returns the ids on the critical path in order
func (analysis *CriticalPathAnalysis) CriticalTaskIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(analysis.CriticalPath))
	for _, n := range analysis.CriticalPath {
		ids = append(ids, n.TaskID)
	}
	return ids
}
