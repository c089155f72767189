// -----------------------------------------------------------------------
// In-memory JobStore - per-id serialized registry of jobs and workflows
// -----------------------------------------------------------------------

package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/models"
)

type jobEntry struct {
	mu      sync.Mutex
	job     *models.Job
	removed bool
}

type workflowEntry struct {
	mu       sync.Mutex
	workflow *models.Workflow
	removed  bool
}

// JobStore keeps jobs and workflows in memory.
//
// The map lock only guards membership; each record has its own mutex, so
// writers of different ids never contend. Updates are copy-on-write: fn
// mutates a private copy that replaces the stored record only if fn succeeds.
// fn must not call back into the store.
type JobStore struct {
	mu        sync.RWMutex
	jobs      map[string]*jobEntry
	workflows map[string]*workflowEntry
	logger    arbor.ILogger
}

// NewJobStore creates an empty store
func NewJobStore(logger arbor.ILogger) *JobStore {
	return &JobStore{
		jobs:      make(map[string]*jobEntry),
		workflows: make(map[string]*workflowEntry),
		logger:    logger,
	}
}

// CreateJob registers a new job. The store keeps its own copy.
func (s *JobStore) CreateJob(job *models.Job) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("job id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = &jobEntry{job: job.Clone()}
	return nil
}

func (s *JobStore) jobEntry(id string) *jobEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id]
}

// GetJob returns a snapshot of the job
func (s *JobStore) GetJob(id string) (*models.Job, error) {
	e := s.jobEntry(id)
	if e == nil {
		return nil, fmt.Errorf("job %s: %w", id, models.ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return nil, fmt.Errorf("job %s: %w", id, models.ErrNotFound)
	}
	return e.job.Clone(), nil
}

// UpdateJob applies fn to the job under its lock and returns the new snapshot.
// A terminal job is returned unchanged together with models.ErrTerminal.
func (s *JobStore) UpdateJob(id string, fn func(job *models.Job) error) (*models.Job, error) {
	e := s.jobEntry(id)
	if e == nil {
		return nil, fmt.Errorf("job %s: %w", id, models.ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return nil, fmt.Errorf("job %s: %w", id, models.ErrNotFound)
	}
	if e.job.Status.IsTerminal() {
		return e.job.Clone(), models.ErrTerminal
	}

	working := e.job.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	e.job = working
	return working.Clone(), nil
}

// ListJobs returns snapshots newest first. An empty status matches all.
func (s *JobStore) ListJobs(status models.JobStatus) []*models.Job {
	s.mu.RLock()
	entries := make([]*jobEntry, 0, len(s.jobs))
	for _, e := range s.jobs {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]*models.Job, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.removed && (status == "" || e.job.Status == status) {
			out = append(out, e.job.Clone())
		}
		e.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// CreateWorkflow registers a new workflow. The store keeps its own copy.
func (s *JobStore) CreateWorkflow(workflow *models.Workflow) error {
	if workflow == nil || workflow.ID == "" {
		return fmt.Errorf("workflow id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.workflows[workflow.ID]; exists {
		return fmt.Errorf("workflow %s already exists", workflow.ID)
	}
	s.workflows[workflow.ID] = &workflowEntry{workflow: workflow.Clone()}
	return nil
}

func (s *JobStore) workflowEntry(id string) *workflowEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workflows[id]
}

// GetWorkflow returns a snapshot of the workflow
func (s *JobStore) GetWorkflow(id string) (*models.Workflow, error) {
	e := s.workflowEntry(id)
	if e == nil {
		return nil, fmt.Errorf("workflow %s: %w", id, models.ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return nil, fmt.Errorf("workflow %s: %w", id, models.ErrNotFound)
	}
	return e.workflow.Clone(), nil
}

// UpdateWorkflow applies fn to the workflow under its lock and returns the new snapshot.
// A terminal workflow is returned unchanged together with models.ErrTerminal.
func (s *JobStore) UpdateWorkflow(id string, fn func(workflow *models.Workflow) error) (*models.Workflow, error) {
	e := s.workflowEntry(id)
	if e == nil {
		return nil, fmt.Errorf("workflow %s: %w", id, models.ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return nil, fmt.Errorf("workflow %s: %w", id, models.ErrNotFound)
	}
	if e.workflow.Status.IsTerminal() {
		return e.workflow.Clone(), models.ErrTerminal
	}

	working := e.workflow.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	e.workflow = working
	return working.Clone(), nil
}

// ListWorkflows returns snapshots newest first. An empty status matches all.
func (s *JobStore) ListWorkflows(status models.JobStatus) []*models.Workflow {
	s.mu.RLock()
	entries := make([]*workflowEntry, 0, len(s.workflows))
	for _, e := range s.workflows {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]*models.Workflow, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.removed && (status == "" || e.workflow.Status == status) {
			out = append(out, e.workflow.Clone())
		}
		e.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// EvictTerminal removes terminal records that completed before cutoff.
// Running and queued records are never evicted.
func (s *JobStore) EvictTerminal(cutoff time.Time) (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := 0
	for id, e := range s.jobs {
		e.mu.Lock()
		if e.job.Status.IsTerminal() && e.job.CompletedAt != nil && e.job.CompletedAt.Before(cutoff) {
			e.removed = true
			delete(s.jobs, id)
			jobs++
		}
		e.mu.Unlock()
	}

	workflows := 0
	for id, e := range s.workflows {
		e.mu.Lock()
		if e.workflow.Status.IsTerminal() && e.workflow.CompletedAt != nil && e.workflow.CompletedAt.Before(cutoff) {
			e.removed = true
			delete(s.workflows, id)
			workflows++
		}
		e.mu.Unlock()
	}

	if jobs > 0 || workflows > 0 {
		s.logger.Debug().
			Int("jobs", jobs).
			Int("workflows", workflows).
			Msg("Evicted terminal records")
	}

	return jobs, workflows
}
