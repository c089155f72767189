// -----------------------------------------------------------------------
// Workflow Orchestrator - fan-out page scrapes, join, analyse, finalize
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/adscope/internal/common"
	"github.com/ternarybob/adscope/internal/interfaces"
	"github.com/ternarybob/adscope/internal/models"
	"github.com/ternarybob/adscope/internal/services/llm"
)

const errNoProviderAds = "no provider returned ads"

// WorkflowOptions are the per-page search settings
type WorkflowOptions struct {
	Deadline    time.Duration
	PageLimit   int
	Region      string
	Concurrency int // page runners in flight per workflow; 0 runs every page at once
}

// WorkflowOrchestrator runs competitor workflows.
//
// Page runners write only their own PageTask. The analysis stage and the
// terminal transition happen once, after every runner has joined.
type WorkflowOrchestrator struct {
	deps    *Dependencies
	baseCtx context.Context
	options WorkflowOptions
}

// NewWorkflowOrchestrator creates an orchestrator bound to the application lifetime
func NewWorkflowOrchestrator(baseCtx context.Context, deps *Dependencies, options WorkflowOptions) *WorkflowOrchestrator {
	return &WorkflowOrchestrator{
		deps:    deps,
		baseCtx: baseCtx,
		options: options,
	}
}

// Start runs the workflow in the background
func (o *WorkflowOrchestrator) Start(workflowID string) {
	common.SafeGo(o.deps.Logger, "workflow:"+workflowID, func() {
		if err := o.Run(o.baseCtx, workflowID); err != nil {
			o.deps.Logger.Error().Err(err).Str("workflow_id", workflowID).Msg("Workflow aborted")
		}
	}, func(r interface{}, _ string) {
		o.fail(workflowID, &models.OrchestrationError{Op: "workflow", Err: common.RecoverError(r)})
	})
}

// Run executes the workflow synchronously
func (o *WorkflowOrchestrator) Run(ctx context.Context, workflowID string) error {
	if o.options.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.options.Deadline)
		defer cancel()
	}

	if o.deps.Scrape == nil || o.deps.Scrape.Len() == 0 {
		err := &models.OrchestrationError{Op: "workflow", Err: errors.New("no scraping providers configured")}
		o.fail(workflowID, err)
		return err
	}

	workflow, err := o.deps.Store.UpdateWorkflow(workflowID, func(w *models.Workflow) error {
		if err := w.SetStatus(models.JobStatusRunning); err != nil {
			return err
		}
		w.Progress.Message = "Scraping pages"
		return nil
	})
	switch {
	case errors.Is(err, models.ErrTerminal):
		o.deps.Logger.Debug().Str("workflow_id", workflowID).Msg("Workflow already finished before start")
		return nil
	case err != nil:
		return &models.OrchestrationError{Op: "start workflow " + workflowID, Err: err}
	}

	o.deps.Logger.Info().
		Str("workflow_id", workflowID).
		Int("pages", len(workflow.Pages)).
		Msg("Workflow started")
	o.publishProgress(workflow)

	// Fan out. Runners never return errors so one page cannot cancel another;
	// the group only bounds how many pages scrape at once.
	var g errgroup.Group
	if o.options.Concurrency > 0 {
		g.SetLimit(o.options.Concurrency)
	}
	for _, page := range workflow.Pages {
		role, pageURL := page.Role, page.URL
		g.Go(func() error {
			o.runPage(ctx, workflowID, role, pageURL)
			return nil
		})
	}
	_ = g.Wait()

	joined, err := o.deps.Store.GetWorkflow(workflowID)
	if err != nil {
		err = &models.OrchestrationError{Op: "join workflow " + workflowID, Err: err}
		o.fail(workflowID, err)
		return err
	}
	if joined.Status.IsTerminal() {
		o.deps.Logger.Info().
			Str("workflow_id", workflowID).
			Str("status", string(joined.Status)).
			Msg("Workflow stopped before analysis")
		return nil
	}

	input := aggregate(joined)
	analysis, analysisErr := o.analyse(ctx, input)

	return o.finalize(workflowID, analysis, analysisErr)
}

// runPage scrapes one page and records the outcome on its PageTask
func (o *WorkflowOrchestrator) runPage(ctx context.Context, workflowID, role, pageURL string) {
	query := DeriveQuery(pageURL)
	var (
		ads      []models.AdRecord
		provider = models.NoProviderSucceeded
		pageErr  string
	)

	func() {
		defer func() {
			if r := recover(); r != nil {
				pageErr = common.RecoverError(r).Error()
			}
		}()
		result := o.deps.Scrape.Run(ctx, models.SearchParams{
			Platform: "facebook",
			Query:    query,
			Limit:    o.options.PageLimit,
			Region:   o.options.Region,
		})
		ads, provider = result.Value, result.Provider
		if result.Exhausted() {
			pageErr = errNoProviderAds
		}
	}()

	updated, err := o.deps.Store.UpdateWorkflow(workflowID, func(w *models.Workflow) error {
		page := w.Page(role)
		if page == nil {
			return fmt.Errorf("page %s: %w", role, models.ErrNotFound)
		}
		if pageErr != "" {
			page.Status = models.TaskStatusFailed
			page.Error = pageErr
			w.StepDone(fmt.Sprintf("%s failed", role))
			return nil
		}
		page.Status = models.TaskStatusCompleted
		page.Data = &models.PageData{
			PageName:     dominantPageName(ads, query),
			AdsFound:     len(ads),
			Ads:          models.CloneAds(ads),
			ProviderUsed: provider,
		}
		w.StepDone(fmt.Sprintf("%s: %d ads", role, len(ads)))
		return nil
	})
	if errors.Is(err, models.ErrTerminal) {
		// cancelled while scraping
		return
	}
	if err != nil {
		o.deps.Logger.Warn().Err(err).Str("workflow_id", workflowID).Str("role", role).Msg("Failed to record page result")
		return
	}

	o.deps.Logger.Debug().
		Str("workflow_id", workflowID).
		Str("role", role).
		Str("query", query).
		Str("provider", provider).
		Int("ads", len(ads)).
		Msg("Page scraped")

	o.deps.publish(interfaces.EventPageCompleted, interfaces.ProgressPayload{
		ID:         workflowID,
		Kind:       "workflow",
		Status:     string(updated.Page(role).Status),
		Role:       role,
		Provider:   provider,
		Percentage: updated.Progress.Percentage,
		Message:    updated.Progress.Message,
	})
}

// analyse runs the AI stage. The chain itself cannot fail; a panic here
// marks only the analysis task failed.
func (o *WorkflowOrchestrator) analyse(ctx context.Context, input models.AnalysisInput) (result *models.AnalysisData, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, common.RecoverError(r)
		}
	}()
	if o.deps.Analysis == nil {
		return llm.Enhance(input), nil
	}
	return o.deps.Analysis.Analyze(ctx, input).Value, nil
}

// finalize performs the single terminal transition of a workflow
func (o *WorkflowOrchestrator) finalize(workflowID string, analysis *models.AnalysisData, analysisErr error) error {
	final, err := o.deps.Store.UpdateWorkflow(workflowID, func(w *models.Workflow) error {
		if !w.PagesTerminal() {
			return errors.New("pages still pending at finalize")
		}
		if analysisErr != nil {
			w.Analysis.Status = models.TaskStatusFailed
			w.Analysis.Error = analysisErr.Error()
		} else {
			w.Analysis.Status = models.TaskStatusCompleted
			w.Analysis.Data = analysis.Clone()
			if analysis != nil && llm.IsModelProvider(analysis.AIProvider) {
				w.CreditsUsed++
			}
		}
		w.StepDone("Analysis complete")
		if err := w.SetStatus(models.JobStatusCompleted); err != nil {
			return err
		}
		w.Progress.Message = "Completed"
		return nil
	})
	if errors.Is(err, models.ErrTerminal) {
		o.deps.Logger.Debug().Str("workflow_id", workflowID).Msg("Workflow already finalized")
		return nil
	}
	if err != nil {
		err = &models.OrchestrationError{Op: "finalize workflow " + workflowID, Err: err}
		o.fail(workflowID, err)
		return err
	}

	provider := ""
	if final.Analysis.Data != nil {
		provider = final.Analysis.Data.AIProvider
	}
	o.deps.publish(interfaces.EventAnalysisCompleted, interfaces.ProgressPayload{
		ID:       workflowID,
		Kind:     "workflow",
		Status:   string(final.Analysis.Status),
		Provider: provider,
		Message:  final.Analysis.Error,
	})

	o.deps.Logger.Info().
		Str("workflow_id", workflowID).
		Str("analysis_provider", provider).
		Int("credits_used", final.CreditsUsed).
		Msg("Workflow completed")

	o.finished(final)
	return nil
}

// Cancel stops a queued or running workflow. In-flight scrapes finish
// but their results are discarded.
func (o *WorkflowOrchestrator) Cancel(workflowID string) (*models.Workflow, error) {
	workflow, err := o.deps.Store.UpdateWorkflow(workflowID, func(w *models.Workflow) error {
		if err := w.SetStatus(models.JobStatusCancelled); err != nil {
			return err
		}
		w.Progress.Message = "Cancelled"
		return nil
	})
	if err != nil {
		return workflow, err
	}

	o.deps.Logger.Info().Str("workflow_id", workflowID).Msg("Workflow cancelled")
	o.finished(workflow)
	return workflow, nil
}

func (o *WorkflowOrchestrator) fail(workflowID string, cause error) {
	workflow, err := o.deps.Store.UpdateWorkflow(workflowID, func(w *models.Workflow) error {
		if err := w.SetStatus(models.JobStatusFailed); err != nil {
			return err
		}
		w.Error = cause.Error()
		w.Progress.Message = "Failed"
		return nil
	})
	if err != nil {
		o.deps.Logger.Warn().Err(err).Str("workflow_id", workflowID).Msg("Could not mark workflow failed")
		return
	}

	o.deps.Logger.Error().Err(cause).Str("workflow_id", workflowID).Msg("Workflow failed")
	o.finished(workflow)
}

func (o *WorkflowOrchestrator) finished(workflow *models.Workflow) {
	o.deps.archiveWorkflow(workflow)
	o.deps.publish(interfaces.EventWorkflowCompleted, interfaces.ProgressPayload{
		ID:         workflow.ID,
		Kind:       "workflow",
		Status:     string(workflow.Status),
		Percentage: workflow.Progress.Percentage,
		Message:    workflow.Progress.Message,
	})
}

func (o *WorkflowOrchestrator) publishProgress(workflow *models.Workflow) {
	o.deps.publish(interfaces.EventWorkflowProgress, interfaces.ProgressPayload{
		ID:         workflow.ID,
		Kind:       "workflow",
		Status:     string(workflow.Status),
		Percentage: workflow.Progress.Percentage,
		Message:    workflow.Progress.Message,
	})
}

// aggregate builds the analysis input. Pages without data appear with zero ads.
func aggregate(workflow *models.Workflow) models.AnalysisInput {
	input := models.AnalysisInput{Pages: make([]models.PageAggregate, 0, len(workflow.Pages))}
	for _, page := range workflow.Pages {
		agg := models.PageAggregate{
			Role: page.Role,
			URL:  page.URL,
			Ads:  []models.AdRecord{},
		}
		if page.Data != nil {
			agg.PageName = page.Data.PageName
			agg.Ads = models.CloneAds(page.Data.Ads)
		}
		if agg.PageName == "" {
			agg.PageName = DeriveQuery(page.URL)
		}
		input.Pages = append(input.Pages, agg)
	}
	return input
}
