package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/errs"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
)

// JobRepository provides in-memory job storage
type JobRepository struct {
	st *state
}

// Verify interface compliance
var _ repositories.JobRepository = (*JobRepository)(nil)

// GetJob returns a job with its requirements
func (r *JobRepository) GetJob(_ context.Context, id uuid.UUID) (*entities.Job, error) {
	job, ok := r.st.jobs[id]
	if !ok {
		return nil, errs.NotFound("job", id)
	}
	job.Requirements = slices.Clone(job.Requirements)
	return &job, nil
}

// ListJobs returns all jobs ordered by start date
func (r *JobRepository) ListJobs(_ context.Context) ([]*entities.Job, error) {
	jobs := make([]*entities.Job, 0, len(r.st.jobs))
	for _, job := range r.st.jobs {
		job.Requirements = slices.Clone(job.Requirements)
		jobs = append(jobs, &job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].StartDate.Equal(jobs[j].StartDate) {
			return jobs[i].StartDate.Before(jobs[j].StartDate)
		}
		return jobs[i].ID.String() < jobs[j].ID.String()
	})
	return jobs, nil
}

// CreateJob stores a new job
func (r *JobRepository) CreateJob(_ context.Context, job *entities.Job) error {
	if _, exists := r.st.jobs[job.ID]; exists {
		return errs.Validation("job %s already exists", job.ID)
	}
	stored := *job
	stored.Requirements = slices.Clone(job.Requirements)
	r.st.jobs[job.ID] = stored
	return nil
}

// UpdateJob overwrites the job's scalar fields; requirements are kept
func (r *JobRepository) UpdateJob(_ context.Context, job *entities.Job) error {
	existing, ok := r.st.jobs[job.ID]
	if !ok {
		return errs.NotFound("job", job.ID)
	}
	stored := *job
	stored.Requirements = existing.Requirements
	r.st.jobs[job.ID] = stored
	return nil
}

// AddRequirement appends an equipment requirement to a job
func (r *JobRepository) AddRequirement(_ context.Context, req *entities.JobRequirement) error {
	job, ok := r.st.jobs[req.JobID]
	if !ok {
		return errs.NotFound("job", req.JobID)
	}
	job.Requirements = append(slices.Clone(job.Requirements), *req)
	r.st.jobs[req.JobID] = job
	return nil
}
