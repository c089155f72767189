package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/adscope/internal/models"
)

// Archive keeps terminal jobs and workflows after they leave the in-memory store
type Archive struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewArchive creates an archive over an open database
func NewArchive(db *BadgerDB, logger arbor.ILogger) *Archive {
	return &Archive{
		db:     db,
		logger: logger,
	}
}

func (a *Archive) SaveJob(ctx context.Context, job *models.Job) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if err := a.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to archive job %s: %w", job.ID, err)
	}
	return nil
}

func (a *Archive) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := a.db.Store().Get(id, &job); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("job %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get archived job: %w", err)
	}
	return &job, nil
}

func (a *Archive) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	if workflow == nil || workflow.ID == "" {
		return fmt.Errorf("workflow ID is required")
	}
	if err := a.db.Store().Upsert(workflow.ID, workflow); err != nil {
		return fmt.Errorf("failed to archive workflow %s: %w", workflow.ID, err)
	}
	return nil
}

func (a *Archive) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow
	if err := a.db.Store().Get(id, &workflow); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("workflow %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get archived workflow: %w", err)
	}
	return &workflow, nil
}

// CountJobs counts archived jobs; an empty status counts all
func (a *Archive) CountJobs(ctx context.Context, status models.JobStatus) (int, error) {
	var query *badgerhold.Query
	if status != "" {
		query = badgerhold.Where("Status").Eq(status)
	}
	count, err := a.db.Store().Count(&models.Job{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count archived jobs: %w", err)
	}
	return int(count), nil
}

func (a *Archive) Compact() error {
	return a.db.Compact()
}

func (a *Archive) Close() error {
	return a.db.Close()
}
