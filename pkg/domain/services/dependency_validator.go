package services

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
)

// DependencyValidator checks the integrity of a task dependency graph.
// Edges run prerequisite -> parent.
type DependencyValidator struct{}

// NewDependencyValidator creates a new dependency validator
func NewDependencyValidator() *DependencyValidator {
	return &DependencyValidator{}
}

// ValidationResult contains the results of dependency validation
type ValidationResult struct {
	HasCycles  bool
	CyclePaths [][]uuid.UUID
	Duplicates []entities.TaskDependency
	SelfEdges  []entities.TaskDependency
	Errors     []string
}

// Validate performs cycle, duplicate and self-edge detection on a set of edges
func (v *DependencyValidator) Validate(deps []entities.TaskDependency) *ValidationResult {
	result := &ValidationResult{}

	seen := make(map[entities.TaskDependency]bool)
	for _, dep := range deps {
		if dep.ParentTaskID == dep.PrerequisiteTaskID {
			result.SelfEdges = append(result.SelfEdges, dep)
			continue
		}
		if seen[dep] {
			result.Duplicates = append(result.Duplicates, dep)
			continue
		}
		seen[dep] = true
	}

	result.CyclePaths = v.detectCycles(v.buildAdjacencyMap(deps))
	result.HasCycles = len(result.CyclePaths) > 0

	for _, cycle := range result.CyclePaths {
		result.Errors = append(result.Errors, fmt.Sprintf("dependency cycle detected: %s", FormatPath(cycle)))
	}
	if len(result.Duplicates) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("found %d duplicate dependencies", len(result.Duplicates)))
	}
	if len(result.SelfEdges) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("found %d self dependencies", len(result.SelfEdges)))
	}
	return result
}

// FindCycleWith returns the cycle that adding candidate to deps would close,
// or nil when the graph stays acyclic
func (v *DependencyValidator) FindCycleWith(deps []entities.TaskDependency, candidate entities.TaskDependency) []uuid.UUID {
	if candidate.ParentTaskID == candidate.PrerequisiteTaskID {
		return []uuid.UUID{candidate.ParentTaskID, candidate.ParentTaskID}
	}
	adjacency := v.buildAdjacencyMap(deps)

	// The new edge prerequisite -> parent closes a cycle iff parent already reaches prerequisite
	path := v.findPath(adjacency, candidate.ParentTaskID, candidate.PrerequisiteTaskID)
	if path == nil {
		return nil
	}
	return append([]uuid.UUID{candidate.PrerequisiteTaskID}, path...)
}

// TopologicalOrder returns the tasks so every prerequisite precedes its parents.
// Ties are broken by id. It fails when the graph has a cycle.
func (v *DependencyValidator) TopologicalOrder(taskIDs []uuid.UUID, deps []entities.TaskDependency) ([]uuid.UUID, error) {
	inDegree := make(map[uuid.UUID]int, len(taskIDs))
	for _, id := range taskIDs {
		inDegree[id] = 0
	}
	adjacency := v.buildAdjacencyMap(deps)
	for from, tos := range adjacency {
		if _, ok := inDegree[from]; !ok {
			continue
		}
		for _, to := range tos {
			if _, ok := inDegree[to]; ok {
				inDegree[to]++
			}
		}
	}

	var ready []uuid.UUID
	for id, d := range inDegree {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	sortIDs(ready)

	order := make([]uuid.UUID, 0, len(taskIDs))
	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		order = append(order, current)

		var released []uuid.UUID
		for _, next := range adjacency[current] {
			if _, ok := inDegree[next]; !ok {
				continue
			}
			inDegree[next]--
			if inDegree[next] == 0 {
				released = append(released, next)
			}
		}
		ready = append(ready, released...)
		sortIDs(ready)
	}

	if len(order) != len(inDegree) {
		cycles := v.detectCycles(adjacency)
		if len(cycles) > 0 {
			return nil, fmt.Errorf("dependency cycle detected: %s", FormatPath(cycles[0]))
		}
		return nil, fmt.Errorf("dependency cycle detected")
	}
	return order, nil
}

// buildAdjacencyMap creates a map of prerequisite -> parents
func (v *DependencyValidator) buildAdjacencyMap(deps []entities.TaskDependency) map[uuid.UUID][]uuid.UUID {
	adjacency := make(map[uuid.UUID][]uuid.UUID)
	for _, dep := range deps {
		parents := adjacency[dep.PrerequisiteTaskID]
		found := false
		for _, p := range parents {
			if p == dep.ParentTaskID {
				found = true
				break
			}
		}
		if !found {
			adjacency[dep.PrerequisiteTaskID] = append(parents, dep.ParentTaskID)
		}
	}
	for id := range adjacency {
		sortIDs(adjacency[id])
	}
	return adjacency
}

// detectCycles uses DFS to find cycles, starting from nodes in id order
func (v *DependencyValidator) detectCycles(adjacency map[uuid.UUID][]uuid.UUID) [][]uuid.UUID {
	visited := make(map[uuid.UUID]bool)
	onStack := make(map[uuid.UUID]bool)
	var cycles [][]uuid.UUID

	starts := make([]uuid.UUID, 0, len(adjacency))
	for id := range adjacency {
		starts = append(starts, id)
	}
	sortIDs(starts)

	for _, start := range starts {
		if !visited[start] {
			v.dfsDetectCycle(start, adjacency, visited, onStack, nil, &cycles)
		}
	}
	return cycles
}

func (v *DependencyValidator) dfsDetectCycle(
	current uuid.UUID,
	adjacency map[uuid.UUID][]uuid.UUID,
	visited map[uuid.UUID]bool,
	onStack map[uuid.UUID]bool,
	path []uuid.UUID,
	cycles *[][]uuid.UUID,
) {
	visited[current] = true
	onStack[current] = true
	path = append(path, current)

	for _, next := range adjacency[current] {
		if !visited[next] {
			v.dfsDetectCycle(next, adjacency, visited, onStack, path, cycles)
			continue
		}
		if !onStack[next] {
			continue
		}
		for i, id := range path {
			if id == next {
				cycle := append([]uuid.UUID(nil), path[i:]...)
				*cycles = append(*cycles, append(cycle, next))
				break
			}
		}
	}

	onStack[current] = false
}

// findPath returns a path from -> ... -> to using breadth-first search
func (v *DependencyValidator) findPath(adjacency map[uuid.UUID][]uuid.UUID, from, to uuid.UUID) []uuid.UUID {
	prev := map[uuid.UUID]uuid.UUID{}
	visited := map[uuid.UUID]bool{from: true}
	queue := []uuid.UUID{from}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == to {
			path := []uuid.UUID{to}
			for path[0] != from {
				path = append([]uuid.UUID{prev[path[0]]}, path...)
			}
			return path
		}
		for _, next := range adjacency[current] {
			if !visited[next] {
				visited[next] = true
				prev[next] = current
				queue = append(queue, next)
			}
		}
	}
	return nil
}

// FormatPath renders a task id path as "a -> b -> c"
func FormatPath(path []uuid.UUID) string {
	s := ""
	for i, id := range path {
		if i > 0 {
			s += " -> "
		}
		s += id.String()
	}
	return s
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
}
