package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
)

// ResourceRepository stores technicians, calendars, tools and materials
type ResourceRepository struct {
	*conn
}

// Verify interface compliance
var _ repositories.ResourceRepository = (*ResourceRepository)(nil)

func scanTechnician(row pgx.Row) (*entities.Technician, error) {
	var t entities.Technician
	if err := row.Scan(&t.ID, &t.Name, &t.Phone, &t.Roles); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTechnician returns a technician by id
func (r *ResourceRepository) GetTechnician(ctx context.Context, id uuid.UUID) (*entities.Technician, error) {
	tech, err := scanTechnician(r.tx.QueryRow(ctx, `SELECT id, name, phone, roles FROM technicians WHERE id = $1`+r.forUpdate(), id))
	if err != nil {
		return nil, lookupErr(err, "technician", id)
	}
	return tech, nil
}

// ListTechnicians returns technicians ordered by name then id
func (r *ResourceRepository) ListTechnicians(ctx context.Context) ([]*entities.Technician, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, name, phone, roles FROM technicians ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list technicians: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entities.Technician, error) {
		return scanTechnician(row)
	})
}

// CreateTechnician stores a technician
func (r *ResourceRepository) CreateTechnician(ctx context.Context, tech *entities.Technician) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO technicians (id, name, phone, roles) VALUES ($1, $2, $3, $4)`,
		tech.ID, tech.Name, tech.Phone, tech.Roles)
	if err != nil {
		return writeErr(err, "technician "+tech.ID.String())
	}
	return nil
}

// ListCalendarEntries returns a technician's entries intersecting [from,to]
func (r *ResourceRepository) ListCalendarEntries(ctx context.Context, technicianID uuid.UUID, from, to time.Time) ([]entities.CalendarEntry, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT id, technician_id, start_at, end_at, reason
		FROM calendar_entries
		WHERE technician_id = $1 AND start_at <= $3 AND end_at >= $2
		ORDER BY start_at, id`, technicianID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list calendar entries: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (entities.CalendarEntry, error) {
		var e entities.CalendarEntry
		err := row.Scan(&e.ID, &e.TechnicianID, &e.Start, &e.End, &e.Reason)
		return e, err
	})
}

// CreateCalendarEntry stores a calendar entry
func (r *ResourceRepository) CreateCalendarEntry(ctx context.Context, entry *entities.CalendarEntry) error {
	if err := r.mustExist(ctx, "technicians", "technician", entry.TechnicianID); err != nil {
		return err
	}
	_, err := r.tx.Exec(ctx, `
		INSERT INTO calendar_entries (id, technician_id, start_at, end_at, reason)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.TechnicianID, entry.Start, entry.End, entry.Reason)
	if err != nil {
		return writeErr(err, "calendar entry")
	}
	return nil
}

const toolColumns = `id, name, item_type, model_number, status, condition`

func scanTool(row pgx.Row) (*entities.Tool, error) {
	var t entities.Tool
	if err := row.Scan(&t.ID, &t.Name, &t.ItemType, &t.ModelNumber, &t.Status, &t.Condition); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTool returns a tool by id, row-locked in write transactions
func (r *ResourceRepository) GetTool(ctx context.Context, id uuid.UUID) (*entities.Tool, error) {
	tool, err := scanTool(r.tx.QueryRow(ctx, `SELECT `+toolColumns+` FROM tools WHERE id = $1`+r.forUpdate(), id))
	if err != nil {
		return nil, lookupErr(err, "tool", id)
	}
	return tool, nil
}

// ListTools returns tools ordered by model number
func (r *ResourceRepository) ListTools(ctx context.Context) ([]*entities.Tool, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+toolColumns+` FROM tools ORDER BY model_number`)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entities.Tool, error) {
		return scanTool(row)
	})
}

// CreateTool stores a tool; model numbers are unique
func (r *ResourceRepository) CreateTool(ctx context.Context, tool *entities.Tool) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO tools (`+toolColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		tool.ID, tool.Name, tool.ItemType, tool.ModelNumber, tool.Status, tool.Condition)
	if err != nil {
		return writeErr(err, "tool model number "+tool.ModelNumber)
	}
	return nil
}

// UpdateTool overwrites a tool
func (r *ResourceRepository) UpdateTool(ctx context.Context, tool *entities.Tool) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE tools SET name = $2, item_type = $3, model_number = $4, status = $5, condition = $6
		WHERE id = $1`,
		tool.ID, tool.Name, tool.ItemType, tool.ModelNumber, tool.Status, tool.Condition)
	return expectOne(tag, err, "tool", tool.ID)
}

// ListOpenToolAssignments returns assignments without a return date
func (r *ResourceRepository) ListOpenToolAssignments(ctx context.Context) ([]*entities.ToolAssignment, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT id, tool_id, technician_id, job_id, checkout_date, expected_return, actual_return
		FROM tool_assignments
		WHERE actual_return IS NULL
		ORDER BY checkout_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list tool assignments: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entities.ToolAssignment, error) {
		var a entities.ToolAssignment
		err := row.Scan(&a.ID, &a.ToolID, &a.TechnicianID, &a.JobID, &a.CheckoutDate, &a.ExpectedReturn, &a.ActualReturn)
		return &a, err
	})
}

// CreateToolAssignment stores a checkout; a tool has at most one open assignment
func (r *ResourceRepository) CreateToolAssignment(ctx context.Context, a *entities.ToolAssignment) error {
	if err := r.mustExist(ctx, "tools", "tool", a.ToolID); err != nil {
		return err
	}
	_, err := r.tx.Exec(ctx, `
		INSERT INTO tool_assignments (id, tool_id, technician_id, job_id, checkout_date, expected_return, actual_return)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.ToolID, a.TechnicianID, a.JobID, a.CheckoutDate, a.ExpectedReturn, a.ActualReturn)
	if err != nil {
		return writeErr(err, "open assignment for tool "+a.ToolID.String())
	}
	return nil
}

// UpdateToolAssignment overwrites a checkout
func (r *ResourceRepository) UpdateToolAssignment(ctx context.Context, a *entities.ToolAssignment) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE tool_assignments
		SET tool_id = $2, technician_id = $3, job_id = $4, checkout_date = $5,
		    expected_return = $6, actual_return = $7
		WHERE id = $1`,
		a.ID, a.ToolID, a.TechnicianID, a.JobID, a.CheckoutDate, a.ExpectedReturn, a.ActualReturn)
	return expectOne(tag, err, "tool assignment", a.ID)
}

// GetMaterial returns a material by id
func (r *ResourceRepository) GetMaterial(ctx context.Context, id uuid.UUID) (*entities.Material, error) {
	var m entities.Material
	err := r.tx.QueryRow(ctx, `SELECT id, name, stock_quantity FROM materials WHERE id = $1`, id).
		Scan(&m.ID, &m.Name, &m.StockQuantity)
	if err != nil {
		return nil, lookupErr(err, "material", id)
	}
	return &m, nil
}

// ListMaterials returns materials ordered by name
func (r *ResourceRepository) ListMaterials(ctx context.Context) ([]*entities.Material, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, name, stock_quantity FROM materials ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entities.Material, error) {
		var m entities.Material
		err := row.Scan(&m.ID, &m.Name, &m.StockQuantity)
		return &m, err
	})
}

// CreateMaterial stores a material
func (r *ResourceRepository) CreateMaterial(ctx context.Context, m *entities.Material) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO materials (id, name, stock_quantity) VALUES ($1, $2, $3)`,
		m.ID, m.Name, m.StockQuantity)
	if err != nil {
		return writeErr(err, "material "+m.ID.String())
	}
	return nil
}
