package planning

import (
	"math/rand/v2"
	"sync"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
)

// Scorer rates candidates on a 0-100 scale. Scores are heuristics, not an
// optimisation; implementations may be swapped without touching the planner.
type Scorer interface {
	ScoreTechnician(tech *entities.Technician) int
	ScoreTool(tool *entities.Tool) int
	ScoreEquipment(et *entities.EquipmentType) int
}

// HeuristicScorer is the default Scorer. Technician scores carry random
// jitter drawn from rng.
type HeuristicScorer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewHeuristicScorer creates a scorer seeded with seed
func NewHeuristicScorer(seed uint64) *HeuristicScorer {
	return &HeuristicScorer{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Verify interface compliance
var _ Scorer = (*HeuristicScorer)(nil)

// ScoreTechnician is 50, plus 20 with any roles, plus jitter in [0,30], capped at 100
func (s *HeuristicScorer) ScoreTechnician(tech *entities.Technician) int {
	score := 50
	if tech.HasRoles() {
		score += 20
	}
	s.mu.Lock()
	score += s.rng.IntN(31)
	s.mu.Unlock()
	return min(score, 100)
}

// ScoreTool rates availability adjusted by condition
func (s *HeuristicScorer) ScoreTool(tool *entities.Tool) int {
	return statusConditionScore(tool.Status, tool.Condition)
}

// ScoreEquipment rates an equipment type the same way as a tool
func (s *HeuristicScorer) ScoreEquipment(et *entities.EquipmentType) int {
	return statusConditionScore(et.Status, et.Condition)
}

func statusConditionScore(status entities.ToolStatus, condition entities.Condition) int {
	var score int
	switch status {
	case entities.ToolAvailable:
		score = 80
	case entities.ToolUnderMaintenance:
		score = 20
	}
	switch condition {
	case entities.ConditionNew:
		score += 20
	case entities.ConditionGood:
		score += 10
	case entities.ConditionPoor:
		score -= 20
	}
	return max(0, min(score, 100))
}
