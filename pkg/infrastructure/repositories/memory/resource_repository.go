package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/errs"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
)

// ResourceRepository provides in-memory technician, tool and material storage
type ResourceRepository struct {
	st *state
}

// Verify interface compliance
var _ repositories.ResourceRepository = (*ResourceRepository)(nil)

// GetTechnician returns a technician by id
func (r *ResourceRepository) GetTechnician(_ context.Context, id uuid.UUID) (*entities.Technician, error) {
	tech, ok := r.st.technicians[id]
	if !ok {
		return nil, errs.NotFound("technician", id)
	}
	return &tech, nil
}

// ListTechnicians returns technicians ordered by name then id
func (r *ResourceRepository) ListTechnicians(_ context.Context) ([]*entities.Technician, error) {
	techs := make([]*entities.Technician, 0, len(r.st.technicians))
	for _, tech := range r.st.technicians {
		techs = append(techs, &tech)
	}
	sort.Slice(techs, func(i, j int) bool {
		if techs[i].Name != techs[j].Name {
			return techs[i].Name < techs[j].Name
		}
		return techs[i].ID.String() < techs[j].ID.String()
	})
	return techs, nil
}

// CreateTechnician stores a technician
func (r *ResourceRepository) CreateTechnician(_ context.Context, tech *entities.Technician) error {
	r.st.technicians[tech.ID] = *tech
	return nil
}

// ListCalendarEntries returns a technician's entries intersecting [from,to]
func (r *ResourceRepository) ListCalendarEntries(_ context.Context, technicianID uuid.UUID, from, to time.Time) ([]entities.CalendarEntry, error) {
	var entries []entities.CalendarEntry
	for _, e := range r.st.calendar {
		if e.TechnicianID == technicianID && entities.Overlaps(e.Start, e.End, from, to) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// CreateCalendarEntry stores a calendar entry
func (r *ResourceRepository) CreateCalendarEntry(_ context.Context, entry *entities.CalendarEntry) error {
	if _, ok := r.st.technicians[entry.TechnicianID]; !ok {
		return errs.NotFound("technician", entry.TechnicianID)
	}
	r.st.calendar = append(r.st.calendar, *entry)
	return nil
}

// GetTool returns a tool by id
func (r *ResourceRepository) GetTool(_ context.Context, id uuid.UUID) (*entities.Tool, error) {
	tool, ok := r.st.tools[id]
	if !ok {
		return nil, errs.NotFound("tool", id)
	}
	return &tool, nil
}

// ListTools returns tools ordered by model number
func (r *ResourceRepository) ListTools(_ context.Context) ([]*entities.Tool, error) {
	tools := make([]*entities.Tool, 0, len(r.st.tools))
	for _, tool := range r.st.tools {
		tools = append(tools, &tool)
	}
	sort.Slice(tools, func(i, j int) bool {
		return tools[i].ModelNumber < tools[j].ModelNumber
	})
	return tools, nil
}

// CreateTool stores a tool; model numbers are unique
func (r *ResourceRepository) CreateTool(_ context.Context, tool *entities.Tool) error {
	for _, existing := range r.st.tools {
		if existing.ModelNumber == tool.ModelNumber {
			return errs.Validation("tool model number %s already exists", tool.ModelNumber)
		}
	}
	r.st.tools[tool.ID] = *tool
	return nil
}

// UpdateTool overwrites a tool
func (r *ResourceRepository) UpdateTool(_ context.Context, tool *entities.Tool) error {
	if _, ok := r.st.tools[tool.ID]; !ok {
		return errs.NotFound("tool", tool.ID)
	}
	r.st.tools[tool.ID] = *tool
	return nil
}

// ListOpenToolAssignments returns assignments without a return date
func (r *ResourceRepository) ListOpenToolAssignments(_ context.Context) ([]*entities.ToolAssignment, error) {
	var open []*entities.ToolAssignment
	for _, a := range r.st.assignments {
		if a.IsOpen() {
			open = append(open, &a)
		}
	}
	sort.Slice(open, func(i, j int) bool {
		return open[i].CheckoutDate.Before(open[j].CheckoutDate)
	})
	return open, nil
}

// CreateToolAssignment stores a checkout
func (r *ResourceRepository) CreateToolAssignment(_ context.Context, a *entities.ToolAssignment) error {
	if _, ok := r.st.tools[a.ToolID]; !ok {
		return errs.NotFound("tool", a.ToolID)
	}
	r.st.assignments[a.ID] = *a
	return nil
}

// UpdateToolAssignment overwrites a checkout
func (r *ResourceRepository) UpdateToolAssignment(_ context.Context, a *entities.ToolAssignment) error {
	if _, ok := r.st.assignments[a.ID]; !ok {
		return errs.NotFound("tool assignment", a.ID)
	}
	r.st.assignments[a.ID] = *a
	return nil
}

// GetMaterial returns a material by id
func (r *ResourceRepository) GetMaterial(_ context.Context, id uuid.UUID) (*entities.Material, error) {
	m, ok := r.st.materials[id]
	if !ok {
		return nil, errs.NotFound("material", id)
	}
	return &m, nil
}

// ListMaterials returns materials ordered by name
func (r *ResourceRepository) ListMaterials(_ context.Context) ([]*entities.Material, error) {
	materials := make([]*entities.Material, 0, len(r.st.materials))
	for _, m := range r.st.materials {
		materials = append(materials, &m)
	}
	sort.Slice(materials, func(i, j int) bool {
		return materials[i].Name < materials[j].Name
	})
	return materials, nil
}

// CreateMaterial stores a material
func (r *ResourceRepository) CreateMaterial(_ context.Context, m *entities.Material) error {
	r.st.materials[m.ID] = *m
	return nil
}
