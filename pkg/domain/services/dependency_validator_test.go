package services

import (
	"testing"

	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
)

func edge(prereq, parent uuid.UUID) entities.TaskDependency {
	return entities.TaskDependency{ParentTaskID: parent, PrerequisiteTaskID: prereq}
}

func TestDependencyValidator_Validate(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	v := NewDependencyValidator()

	testCases := []struct {
		name           string
		deps           []entities.TaskDependency
		wantCycles     bool
		wantDuplicates int
		wantSelfEdges  int
	}{
		{"chain", []entities.TaskDependency{edge(a, b), edge(b, c)}, false, 0, 0},
		{"diamond-ish", []entities.TaskDependency{edge(a, b), edge(a, c), edge(b, c)}, false, 0, 0},
		{"cycle", []entities.TaskDependency{edge(a, b), edge(b, c), edge(c, a)}, true, 0, 0},
		{"duplicate", []entities.TaskDependency{edge(a, b), edge(a, b)}, false, 1, 0},
		{"self edge", []entities.TaskDependency{edge(a, a)}, true, 0, 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := v.Validate(tc.deps)
			if result.HasCycles != tc.wantCycles {
				t.Errorf("Expected HasCycles %v, got %v (%v)", tc.wantCycles, result.HasCycles, result.CyclePaths)
			}
			if len(result.Duplicates) != tc.wantDuplicates {
				t.Errorf("Expected %d duplicates, got %d", tc.wantDuplicates, len(result.Duplicates))
			}
			if len(result.SelfEdges) != tc.wantSelfEdges {
				t.Errorf("Expected %d self edges, got %d", tc.wantSelfEdges, len(result.SelfEdges))
			}
		})
	}
}

func TestDependencyValidator_FindCycleWith(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	v := NewDependencyValidator()
	deps := []entities.TaskDependency{edge(a, b), edge(b, c)}

	if cycle := v.FindCycleWith(deps, edge(a, c)); cycle != nil {
		t.Errorf("Expected shortcut edge to be acyclic, got %v", cycle)
	}

	cycle := v.FindCycleWith(deps, edge(c, a))
	want := []uuid.UUID{c, a, b, c}
	if len(cycle) != len(want) {
		t.Fatalf("Expected cycle %v, got %v", want, cycle)
	}
	for i := range want {
		if cycle[i] != want[i] {
			t.Fatalf("Expected cycle %s, got %s", FormatPath(want), FormatPath(cycle))
		}
	}
}

func TestDependencyValidator_TopologicalOrder(t *testing.T) {
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	v := NewDependencyValidator()

	order, err := v.TopologicalOrder([]uuid.UUID{d, c, b, a}, []entities.TaskDependency{edge(a, b), edge(b, c)})
	if err != nil {
		t.Fatalf("Expected order: %v", err)
	}
	pos := map[uuid.UUID]int{}
	for i, id := range order {
		pos[id] = i
	}
	if len(order) != 4 {
		t.Fatalf("Expected 4 tasks, got %d", len(order))
	}
	if !(pos[a] < pos[b] && pos[b] < pos[c]) {
		t.Errorf("Expected a before b before c, got %v", order)
	}

	if _, err := v.TopologicalOrder([]uuid.UUID{a, b}, []entities.TaskDependency{edge(a, b), edge(b, a)}); err == nil {
		t.Error("Expected cycle to fail topological ordering")
	}
}
