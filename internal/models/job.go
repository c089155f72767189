// -----------------------------------------------------------------------
// Scrape Job - single page/keyword ad scrape tracked through its lifecycle
// -----------------------------------------------------------------------

package models

import (
	"time"
)

// JobStatus represents the state of a job or workflow
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// CanTransitionTo enforces queued -> running -> {completed|failed|cancelled}.
// A queued record may also be failed or cancelled directly.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusQueued:
		return next == JobStatusRunning || next == JobStatusFailed || next == JobStatusCancelled
	case JobStatusRunning:
		return next == JobStatusCompleted || next == JobStatusFailed || next == JobStatusCancelled
	default:
		return false
	}
}

// JobType distinguishes a plain scrape from a scrape followed by AI analysis
type JobType string

const (
	JobTypeScrape       JobType = "scrape"
	JobTypeBulkAnalysis JobType = "bulk-analysis"
)

// JobProgress is written incrementally while a job runs
type JobProgress struct {
	Current    int     `json:"current"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Message    string  `json:"message"`
}

// Advance moves progress forward. Current and Percentage never decrease,
// so a concurrent reader always observes a non-decreasing value.
func (p *JobProgress) Advance(current, total int, message string) {
	if total > 0 {
		p.Total = total
	}
	if current > p.Current {
		p.Current = current
	}
	if p.Total > 0 {
		pct := float64(p.Current) / float64(p.Total) * 100
		if pct > 100 {
			pct = 100
		}
		if pct > p.Percentage {
			p.Percentage = pct
		}
	}
	if message != "" {
		p.Message = message
	}
}

// Job is a single unit of scraping work.
//
// Params are immutable after creation. Result stays empty until the job completes.
// Status transitions are monotonic, see JobStatus.CanTransitionTo.
type Job struct {
	ID           string        `json:"id" badgerhold:"key"`
	Type         JobType       `json:"type"`
	Status       JobStatus     `json:"status" badgerhold:"index"`
	Params       SearchParams  `json:"params"`
	Progress     JobProgress   `json:"progress"`
	Result       []AdRecord    `json:"result"`
	ProviderUsed string        `json:"provider_used,omitempty"`
	Analysis     *AnalysisData `json:"analysis,omitempty"` // bulk-analysis jobs only
	Error        string        `json:"error,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
}

// NewJob creates a queued job with an empty result
func NewJob(id string, jobType JobType, params SearchParams) *Job {
	return &Job{
		ID:        id,
		Type:      jobType,
		Status:    JobStatusQueued,
		Params:    params,
		Progress:  JobProgress{Total: 1, Message: "Queued"},
		Result:    []AdRecord{},
		CreatedAt: time.Now(),
	}
}

// SetStatus applies a validated transition and stamps the matching timestamp.
func (j *Job) SetStatus(next JobStatus) error {
	if !j.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	now := time.Now()
	j.Status = next
	if next == JobStatusRunning {
		j.StartedAt = &now
	}
	if next.IsTerminal() {
		j.CompletedAt = &now
	}
	return nil
}

// Clone returns a deep copy safe to hand to readers outside the store.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	c.Result = CloneAds(j.Result)
	c.Analysis = j.Analysis.Clone()
	c.StartedAt = cloneTime(j.StartedAt)
	c.CompletedAt = cloneTime(j.CompletedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
