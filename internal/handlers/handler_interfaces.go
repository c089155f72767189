package handlers

import (
	"context"

	"github.com/ternarybob/adscope/internal/models"
	"github.com/ternarybob/adscope/internal/services/ads"
	"github.com/ternarybob/adscope/internal/services/report"
)

// JobService is the job half of the ads service.
type JobService interface {
	CreateScrapeJob(req ads.ScrapeRequest) (*models.Job, error)
	GetJobStatus(ctx context.Context, id string) (*models.Job, error)
	GetJobResults(ctx context.Context, id string, page, pageSize int) (*ads.ResultsPage, error)
	CancelJob(id string) (*models.Job, error)
	ListJobs(status string) ([]*models.Job, error)
}

// WorkflowService is the workflow half of the ads service.
type WorkflowService interface {
	CreateWorkflow(req ads.WorkflowRequest) (*models.Workflow, error)
	GetWorkflowStatus(ctx context.Context, id string) (*models.Workflow, error)
	CancelWorkflow(id string) (*models.Workflow, error)
	GetWorkflowResults(ctx context.Context, id string) (*ads.WorkflowResults, error)
	ListWorkflows(status string) ([]*models.Workflow, error)
}

// AnalysisService runs standalone analysis and chat.
type AnalysisService interface {
	RunAnalysis(ctx context.Context, req ads.AnalysisRequest) (*models.AnalysisTask, error)
	ChatWithAnalysis(ctx context.Context, req ads.ChatRequest) (*models.ChatReply, error)
	Usage(ctx context.Context) ads.Usage
}

// ReportRenderer renders a workflow report.
type ReportRenderer interface {
	Render(workflow *models.Workflow, format report.Format) ([]byte, error)
}
