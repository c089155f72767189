// -----------------------------------------------------------------------
// Scrape Manager - runs one Job through the scraping fallback chain
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/adscope/internal/common"
	"github.com/ternarybob/adscope/internal/interfaces"
	"github.com/ternarybob/adscope/internal/models"
)

// ScrapeManager owns the execution of scrape and bulk-analysis jobs.
// It is the only writer of a job while the job runs.
type ScrapeManager struct {
	deps     *Dependencies
	baseCtx  context.Context
	deadline time.Duration
}

// NewScrapeManager creates a manager. Jobs started with Start run under
// baseCtx (the application lifetime), never under a request context.
func NewScrapeManager(baseCtx context.Context, deps *Dependencies, deadline time.Duration) *ScrapeManager {
	return &ScrapeManager{
		deps:     deps,
		baseCtx:  baseCtx,
		deadline: deadline,
	}
}

// Start runs the job in the background
func (m *ScrapeManager) Start(jobID string) {
	common.SafeGo(m.deps.Logger, "scrape:"+jobID, func() {
		if err := m.Run(m.baseCtx, jobID); err != nil {
			m.deps.Logger.Error().Err(err).Str("job_id", jobID).Msg("Scrape job aborted")
		}
	}, func(r interface{}, _ string) {
		m.fail(jobID, &models.OrchestrationError{Op: "scrape job", Err: common.RecoverError(r)})
	})
}

// Run executes the job synchronously. Finding no ads is a completed job;
// only orchestration faults fail it.
func (m *ScrapeManager) Run(ctx context.Context, jobID string) error {
	if m.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.deadline)
		defer cancel()
	}

	chain := m.deps.Scrape
	if chain == nil || chain.Len() == 0 {
		err := &models.OrchestrationError{Op: "scrape job", Err: errors.New("no scraping providers configured")}
		m.fail(jobID, err)
		return err
	}

	job, err := m.deps.Store.UpdateJob(jobID, func(j *models.Job) error {
		if err := j.SetStatus(models.JobStatusRunning); err != nil {
			return err
		}
		j.Progress.Advance(0, m.totalSteps(j), "Scraping")
		return nil
	})
	if errors.Is(err, models.ErrTerminal) {
		m.deps.Logger.Debug().Str("job_id", jobID).Msg("Job already finished before start")
		return nil
	}
	if err != nil {
		orchErr := &models.OrchestrationError{Op: "start job " + jobID, Err: err}
		m.fail(jobID, orchErr)
		return orchErr
	}

	total := m.totalSteps(job)
	m.deps.Logger.Info().
		Str("job_id", jobID).
		Str("type", string(job.Type)).
		Str("query", job.Params.Query).
		Strs("providers", chain.Providers()).
		Msg("Scrape job started")

	result := chain.RunObserved(ctx, job.Params, func(index, n int, record models.ProviderAttemptRecord) {
		message := fmt.Sprintf("%s: %s", record.Provider, record.Outcome)
		updated, err := m.deps.Store.UpdateJob(jobID, func(j *models.Job) error {
			j.Progress.Advance(index+1, total, message)
			return nil
		})
		if err == nil {
			m.publishProgress(updated, record.Provider)
		}
	})

	var analysis *models.AnalysisData
	if job.Type == models.JobTypeBulkAnalysis && m.deps.Analysis != nil {
		input := models.AnalysisInput{
			Prompt: job.Params.Query,
			Pages: []models.PageAggregate{{
				Role:     models.RoleYourPage,
				PageName: dominantPageName(result.Value, job.Params.Query),
				Ads:      models.CloneAds(result.Value),
			}},
		}
		analysis = m.deps.Analysis.Analyze(ctx, input).Value
	}

	final, err := m.deps.Store.UpdateJob(jobID, func(j *models.Job) error {
		if err := j.SetStatus(models.JobStatusCompleted); err != nil {
			return err
		}
		j.Result = models.CloneAds(result.Value)
		if j.Result == nil {
			j.Result = []models.AdRecord{}
		}
		j.ProviderUsed = result.Provider
		j.Analysis = analysis
		j.Progress.Advance(total, total, fmt.Sprintf("Completed: %d ads from %s", len(j.Result), result.Provider))
		return nil
	})
	if errors.Is(err, models.ErrTerminal) {
		m.deps.Logger.Info().Str("job_id", jobID).Str("status", string(final.Status)).Msg("Job finished elsewhere, result discarded")
		return nil
	}
	if err != nil {
		orchErr := &models.OrchestrationError{Op: "complete job " + jobID, Err: err}
		m.fail(jobID, orchErr)
		return orchErr
	}

	m.deps.Logger.Info().
		Str("job_id", jobID).
		Str("provider", final.ProviderUsed).
		Int("ads", len(final.Result)).
		Msg("Scrape job completed")

	m.finished(final)
	return nil
}

// Cancel moves a queued or running job to cancelled. A running chain is
// left to finish; its result is discarded.
func (m *ScrapeManager) Cancel(jobID string) (*models.Job, error) {
	job, err := m.deps.Store.UpdateJob(jobID, func(j *models.Job) error {
		if err := j.SetStatus(models.JobStatusCancelled); err != nil {
			return err
		}
		j.Progress.Message = "Cancelled"
		return nil
	})
	if err != nil {
		return job, err
	}

	m.deps.Logger.Info().Str("job_id", jobID).Msg("Scrape job cancelled")
	m.finished(job)
	return job, nil
}

func (m *ScrapeManager) fail(jobID string, cause error) {
	job, err := m.deps.Store.UpdateJob(jobID, func(j *models.Job) error {
		if err := j.SetStatus(models.JobStatusFailed); err != nil {
			return err
		}
		j.Error = cause.Error()
		j.Progress.Message = "Failed"
		return nil
	})
	if err != nil {
		m.deps.Logger.Warn().Err(err).Str("job_id", jobID).Msg("Could not mark job failed")
		return
	}

	m.deps.Logger.Error().Err(cause).Str("job_id", jobID).Msg("Scrape job failed")
	m.finished(job)
}

func (m *ScrapeManager) finished(job *models.Job) {
	m.deps.archiveJob(job)
	m.deps.publish(interfaces.EventJobCompleted, interfaces.ProgressPayload{
		ID:         job.ID,
		Kind:       "job",
		Status:     string(job.Status),
		Provider:   job.ProviderUsed,
		Percentage: job.Progress.Percentage,
		Message:    job.Progress.Message,
	})
}

func (m *ScrapeManager) publishProgress(job *models.Job, provider string) {
	m.deps.publish(interfaces.EventJobProgress, interfaces.ProgressPayload{
		ID:         job.ID,
		Kind:       "job",
		Status:     string(job.Status),
		Provider:   provider,
		Percentage: job.Progress.Percentage,
		Message:    job.Progress.Message,
	})
}

// totalSteps is one step per provider plus the AI stage for bulk analysis
func (m *ScrapeManager) totalSteps(job *models.Job) int {
	total := m.deps.Scrape.Len()
	if job.Type == models.JobTypeBulkAnalysis {
		total++
	}
	if total == 0 {
		total = 1
	}
	return total
}
