package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
)

// JobRepository stores jobs and their equipment requirements
type JobRepository struct {
	*conn
}

// Verify interface compliance
var _ repositories.JobRepository = (*JobRepository)(nil)

const jobColumns = `id, name, site_id, client_id, status, start_date, end_date, completed_at`

func scanJob(row pgx.Row) (*entities.Job, error) {
	var job entities.Job
	err := row.Scan(&job.ID, &job.Name, &job.SiteID, &job.ClientID, &job.Status,
		&job.StartDate, &job.EndDate, &job.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// GetJob returns a job with its requirements, row-locked in write transactions
func (r *JobRepository) GetJob(ctx context.Context, id uuid.UUID) (*entities.Job, error) {
	job, err := scanJob(r.tx.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`+r.forUpdate(), id))
	if err != nil {
		return nil, lookupErr(err, "job", id)
	}
	if err := r.loadRequirements(ctx, []*entities.Job{job}); err != nil {
		return nil, err
	}
	return job, nil
}

// ListJobs returns all jobs ordered by start date
func (r *JobRepository) ListJobs(ctx context.Context) ([]*entities.Job, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY start_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	jobs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entities.Job, error) {
		return scanJob(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan jobs: %w", err)
	}
	if err := r.loadRequirements(ctx, jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *JobRepository) loadRequirements(ctx context.Context, jobs []*entities.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*entities.Job, len(jobs))
	ids := make([]uuid.UUID, 0, len(jobs))
	for _, job := range jobs {
		byID[job.ID] = job
		ids = append(ids, job.ID)
	}

	rows, err := r.tx.Query(ctx, `
		SELECT id, job_id, equipment_type_id, planned_qty
		FROM job_requirements
		WHERE job_id = ANY($1)
		ORDER BY position`, ids)
	if err != nil {
		return fmt.Errorf("load job requirements: %w", err)
	}
	reqs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entities.JobRequirement, error) {
		var req entities.JobRequirement
		err := row.Scan(&req.ID, &req.JobID, &req.EquipmentTypeID, &req.PlannedQty)
		return req, err
	})
	if err != nil {
		return fmt.Errorf("scan job requirements: %w", err)
	}
	for _, req := range reqs {
		job := byID[req.JobID]
		job.Requirements = append(job.Requirements, req)
	}
	return nil
}

// CreateJob stores a new job; requirements are added separately
func (r *JobRepository) CreateJob(ctx context.Context, job *entities.Job) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		job.ID, job.Name, job.SiteID, job.ClientID, job.Status, job.StartDate, job.EndDate, job.CompletedAt)
	if err != nil {
		return writeErr(err, "job "+job.ID.String())
	}
	return nil
}

// UpdateJob overwrites the job's scalar fields
func (r *JobRepository) UpdateJob(ctx context.Context, job *entities.Job) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE jobs
		SET name = $2, site_id = $3, client_id = $4, status = $5,
		    start_date = $6, end_date = $7, completed_at = $8
		WHERE id = $1`,
		job.ID, job.Name, job.SiteID, job.ClientID, job.Status, job.StartDate, job.EndDate, job.CompletedAt)
	return expectOne(tag, err, "job", job.ID)
}

// AddRequirement appends an equipment requirement to a job
func (r *JobRepository) AddRequirement(ctx context.Context, req *entities.JobRequirement) error {
	var exists bool
	if err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, req.JobID).Scan(&exists); err != nil {
		return fmt.Errorf("check job %s: %w", req.JobID, err)
	}
	if !exists {
		return lookupErr(pgx.ErrNoRows, "job", req.JobID)
	}
	_, err := r.tx.Exec(ctx, `
		INSERT INTO job_requirements (id, job_id, equipment_type_id, planned_qty)
		VALUES ($1, $2, $3, $4)`,
		req.ID, req.JobID, req.EquipmentTypeID, req.PlannedQty)
	if err != nil {
		return writeErr(err, "job requirement")
	}
	return nil
}
