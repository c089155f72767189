// -----------------------------------------------------------------------
// Ads Service - inbound operations over jobs, workflows and analysis
// -----------------------------------------------------------------------

package ads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/common"
	"github.com/ternarybob/adscope/internal/interfaces"
	"github.com/ternarybob/adscope/internal/jobs"
	"github.com/ternarybob/adscope/internal/models"
	"github.com/ternarybob/adscope/internal/services/llm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service validates inbound requests, creates jobs and workflows, hands
// them to their owners and serves read-only views from the store.
type Service struct {
	store     interfaces.JobStore
	archive   interfaces.JobArchive
	scrapes   *jobs.ScrapeManager
	workflows *jobs.WorkflowOrchestrator
	analysis  *llm.AnalysisChain
	config    common.JobsConfig
	validate  *validator.Validate
	credits   atomic.Int64
	logger    arbor.ILogger
}

// NewService creates the service. archive may be nil.
func NewService(
	store interfaces.JobStore,
	archive interfaces.JobArchive,
	scrapes *jobs.ScrapeManager,
	workflows *jobs.WorkflowOrchestrator,
	analysis *llm.AnalysisChain,
	config common.JobsConfig,
	logger arbor.ILogger,
) *Service {
	return &Service{
		store:     store,
		archive:   archive,
		scrapes:   scrapes,
		workflows: workflows,
		analysis:  analysis,
		config:    config,
		validate:  newValidator(),
		logger:    logger,
	}
}

// CreateScrapeJob validates the request, stores a queued job and starts it
func (s *Service) CreateScrapeJob(req ScrapeRequest) (*models.Job, error) {
	req.Query = strings.TrimSpace(req.Query)
	req.Region = strings.ToUpper(strings.TrimSpace(req.Region))
	if req.Platform == "" {
		req.Platform = "facebook"
	}
	if req.Type == "" {
		req.Type = models.JobTypeScrape
	}
	if err := s.check(req); err != nil {
		return nil, err
	}
	if req.Limit == 0 {
		req.Limit = s.config.DefaultLimit
	}
	if req.Region == "" {
		req.Region = s.config.DefaultRegion
	}

	job := models.NewJob(common.NewJobID(), req.Type, models.SearchParams{
		Platform: req.Platform,
		Query:    req.Query,
		Limit:    req.Limit,
		Region:   req.Region,
	})
	if err := s.store.CreateJob(job); err != nil {
		return nil, &models.OrchestrationError{Op: "create job", Err: err}
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("type", string(job.Type)).
		Str("query", req.Query).
		Int("limit", req.Limit).
		Str("region", req.Region).
		Msg("Scrape job created")

	s.scrapes.Start(job.ID)
	return job.Clone(), nil
}

// GetJobStatus returns the job, falling back to the archive after eviction
func (s *Service) GetJobStatus(ctx context.Context, id string) (*models.Job, error) {
	job, err := s.store.GetJob(id)
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, models.ErrNotFound) || s.archive == nil {
		return nil, err
	}
	return s.archive.GetJob(ctx, id)
}

// GetJobResults returns one 1-based page of the job's ads
func (s *Service) GetJobResults(ctx context.Context, id string, page, pageSize int) (*ResultsPage, error) {
	job, err := s.GetJobStatus(ctx, id)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	total := len(job.Result)
	start := total
	if page-1 <= total/pageSize {
		start = min((page-1)*pageSize, total)
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return &ResultsPage{
		JobID:      job.ID,
		Status:     job.Status,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: (total + pageSize - 1) / pageSize,
		Ads:        models.CloneAds(job.Result[start:end]),
	}, nil
}

// CancelJob cancels a queued or running job
func (s *Service) CancelJob(id string) (*models.Job, error) {
	return s.scrapes.Cancel(id)
}

// ListJobs returns jobs newest first, optionally filtered by status
func (s *Service) ListJobs(status string) ([]*models.Job, error) {
	st, err := parseStatus(status)
	if err != nil {
		return nil, err
	}
	return s.store.ListJobs(st), nil
}

// CreateWorkflow validates the URLs, stores a queued workflow and starts it
func (s *Service) CreateWorkflow(req WorkflowRequest) (*models.Workflow, error) {
	req.YourPageURL = strings.TrimSpace(req.YourPageURL)
	for i := range req.CompetitorURLs {
		req.CompetitorURLs[i] = strings.TrimSpace(req.CompetitorURLs[i])
	}
	if err := s.check(req); err != nil {
		return nil, err
	}
	if s.config.MaxCompetitors > 0 && len(req.CompetitorURLs) > s.config.MaxCompetitors {
		return nil, &models.ValidationError{
			Field:   "competitor_urls",
			Message: fmt.Sprintf("at most %d competitors are allowed", s.config.MaxCompetitors),
		}
	}

	workflow := models.NewWorkflow(common.NewWorkflowID(), req.YourPageURL, req.CompetitorURLs)
	if err := s.store.CreateWorkflow(workflow); err != nil {
		return nil, &models.OrchestrationError{Op: "create workflow", Err: err}
	}

	s.logger.Info().
		Str("workflow_id", workflow.ID).
		Str("your_page", req.YourPageURL).
		Int("competitors", len(req.CompetitorURLs)).
		Msg("Workflow created")

	s.workflows.Start(workflow.ID)
	return workflow.Clone(), nil
}

// GetWorkflowStatus returns the workflow, falling back to the archive after eviction
func (s *Service) GetWorkflowStatus(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := s.store.GetWorkflow(id)
	if err == nil {
		return workflow, nil
	}
	if !errors.Is(err, models.ErrNotFound) || s.archive == nil {
		return nil, err
	}
	return s.archive.GetWorkflow(ctx, id)
}

// CancelWorkflow cancels a queued or running workflow
func (s *Service) CancelWorkflow(id string) (*models.Workflow, error) {
	return s.workflows.Cancel(id)
}

// GetWorkflowResults returns the page tasks and the analysis task
func (s *Service) GetWorkflowResults(ctx context.Context, id string) (*WorkflowResults, error) {
	workflow, err := s.GetWorkflowStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	return &WorkflowResults{
		WorkflowID:  workflow.ID,
		Status:      workflow.Status,
		Pages:       workflow.Pages,
		Analysis:    workflow.Analysis,
		CreditsUsed: workflow.CreditsUsed,
	}, nil
}

// ListWorkflows returns workflows newest first, optionally filtered by status
func (s *Service) ListWorkflows(status string) ([]*models.Workflow, error) {
	st, err := parseStatus(status)
	if err != nil {
		return nil, err
	}
	return s.store.ListWorkflows(st), nil
}

// RunAnalysis analyses a workflow's pages or a set of ads from completed jobs
func (s *Service) RunAnalysis(ctx context.Context, req AnalysisRequest) (*models.AnalysisTask, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}

	input, err := s.analysisInput(ctx, req)
	if err != nil {
		return nil, err
	}
	input = applyFilters(input, req.Filters)
	input.Prompt = req.Prompt

	result := s.analysis.Analyze(ctx, input)
	if llm.IsModelProvider(result.Provider) {
		s.credits.Add(1)
	}

	s.logger.Info().
		Str("workflow_id", req.WorkflowID).
		Int("ads", input.TotalAds()).
		Str("provider", result.Provider).
		Msg("Analysis completed")

	return &models.AnalysisTask{Status: models.TaskStatusCompleted, Data: result.Value}, nil
}

// ChatWithAnalysis answers a question, using the workflow as context when given
func (s *Service) ChatWithAnalysis(ctx context.Context, req ChatRequest) (*models.ChatReply, error) {
	req.Message = strings.TrimSpace(req.Message)
	if err := s.check(req); err != nil {
		return nil, err
	}

	input := models.ChatInput{Message: req.Message, History: req.History}
	if req.WorkflowID != "" {
		workflow, err := s.GetWorkflowStatus(ctx, req.WorkflowID)
		if err != nil {
			return nil, err
		}
		aggregate := workflowInput(workflow)
		input.Context = &aggregate
		input.Analysis = workflow.Analysis.Data
	}

	result := s.analysis.Chat(ctx, input)
	if llm.IsModelProvider(result.Provider) {
		s.credits.Add(1)
	}
	return result.Value, nil
}

// Usage reports credits consumed by standalone analysis and chat plus workflows
func (s *Service) Usage(ctx context.Context) Usage {
	usage := Usage{AnalysisCredits: s.credits.Load()}
	for _, w := range s.store.ListWorkflows("") {
		usage.WorkflowCredits += w.CreditsUsed
		if !w.Status.IsTerminal() {
			usage.ActiveWorkflows++
		}
	}
	for _, j := range s.store.ListJobs("") {
		if !j.Status.IsTerminal() {
			usage.ActiveJobs++
		}
	}
	if s.archive != nil {
		if n, err := s.archive.CountJobs(ctx, models.JobStatusCompleted); err == nil {
			usage.ArchivedComplete = n
		} else {
			s.logger.Warn().Err(err).Msg("Failed to count archived jobs")
		}
	}
	usage.TotalCredits = usage.AnalysisCredits + int64(usage.WorkflowCredits)
	return usage
}

func (s *Service) analysisInput(ctx context.Context, req AnalysisRequest) (models.AnalysisInput, error) {
	if req.WorkflowID != "" {
		workflow, err := s.GetWorkflowStatus(ctx, req.WorkflowID)
		if err != nil {
			return models.AnalysisInput{}, err
		}
		return workflowInput(workflow), nil
	}

	wanted := make(map[string]bool, len(req.AdIDs))
	for _, id := range req.AdIDs {
		wanted[id] = true
	}

	// Group matching ads by page so the analysis compares advertisers
	byPage := make(map[string]*models.PageAggregate)
	var order []string
	for _, job := range s.store.ListJobs(models.JobStatusCompleted) {
		for _, ad := range job.Result {
			if !wanted[ad.ID] {
				continue
			}
			delete(wanted, ad.ID)
			name := ad.PageName
			if name == "" {
				name = job.Params.Query
			}
			agg, ok := byPage[name]
			if !ok {
				role := models.CompetitorRole(len(order))
				if len(order) == 0 {
					role = models.RoleYourPage
				}
				agg = &models.PageAggregate{Role: role, PageName: name}
				byPage[name] = agg
				order = append(order, name)
			}
			agg.Ads = append(agg.Ads, ad)
		}
	}
	if len(order) == 0 {
		return models.AnalysisInput{}, fmt.Errorf("ads %s: %w", strings.Join(req.AdIDs, ","), models.ErrNotFound)
	}

	input := models.AnalysisInput{Pages: make([]models.PageAggregate, 0, len(order))}
	for _, name := range order {
		input.Pages = append(input.Pages, *byPage[name])
	}
	return input, nil
}

// workflowInput mirrors the orchestrator's aggregate: every page, data or not
func workflowInput(workflow *models.Workflow) models.AnalysisInput {
	input := models.AnalysisInput{Pages: make([]models.PageAggregate, 0, len(workflow.Pages))}
	for _, page := range workflow.Pages {
		agg := models.PageAggregate{Role: page.Role, URL: page.URL, Ads: []models.AdRecord{}}
		if page.Data != nil {
			agg.PageName = page.Data.PageName
			agg.Ads = page.Data.Ads
		}
		if agg.PageName == "" {
			agg.PageName = jobs.DeriveQuery(page.URL)
		}
		input.Pages = append(input.Pages, agg)
	}
	return input
}

func applyFilters(input models.AnalysisInput, filters AnalysisFilters) models.AnalysisInput {
	roles := make(map[string]bool, len(filters.Roles))
	for _, r := range filters.Roles {
		roles[r] = true
	}

	out := models.AnalysisInput{Prompt: input.Prompt, Pages: make([]models.PageAggregate, 0, len(input.Pages))}
	for _, page := range input.Pages {
		if len(roles) > 0 && !roles[page.Role] {
			continue
		}
		kept := make([]models.AdRecord, 0, len(page.Ads))
		for _, ad := range page.Ads {
			if filters.MediaType != "" && ad.MediaType != filters.MediaType {
				continue
			}
			if filters.ActiveOnly && !ad.Active {
				continue
			}
			kept = append(kept, ad)
		}
		page.Ads = kept
		out.Pages = append(out.Pages, page)
	}
	return out
}
