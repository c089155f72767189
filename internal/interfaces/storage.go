package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/adscope/internal/models"
)

// JobStore is the single source of truth for job and workflow state.
//
// All access to one id is serialized. Getters return deep copies, so callers
// never share memory with the store. Update functions run under the id's lock
// and are never called for a record that is already terminal; in that case
// models.ErrTerminal is returned.
type JobStore interface {
	CreateJob(job *models.Job) error
	GetJob(id string) (*models.Job, error)
	UpdateJob(id string, fn func(job *models.Job) error) (*models.Job, error)
	ListJobs(status models.JobStatus) []*models.Job

	CreateWorkflow(workflow *models.Workflow) error
	GetWorkflow(id string) (*models.Workflow, error)
	UpdateWorkflow(id string, fn func(workflow *models.Workflow) error) (*models.Workflow, error)
	ListWorkflows(status models.JobStatus) []*models.Workflow

	// EvictTerminal removes terminal records completed before cutoff
	EvictTerminal(cutoff time.Time) (jobs int, workflows int)
}

// JobArchive durably stores terminal jobs and workflows
type JobArchive interface {
	SaveJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	GetWorkflow(ctx context.Context, id string) (*models.Workflow, error)
	CountJobs(ctx context.Context, status models.JobStatus) (int, error)
	Compact() error
	Close() error
}
