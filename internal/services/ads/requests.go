package ads

import (
	"github.com/ternarybob/adscope/internal/models"
)

// ScrapeRequest creates a scrape or bulk-analysis job
type ScrapeRequest struct {
	Platform string         `json:"platform" validate:"omitempty,oneof=facebook"`
	Query    string         `json:"query" validate:"required,max=200"`
	Limit    int            `json:"limit" validate:"gte=0,lte=500"`
	Region   string         `json:"region" validate:"omitempty,len=2|eq=ALL"`
	Type     models.JobType `json:"type" validate:"omitempty,oneof=scrape bulk-analysis"`
}

// WorkflowRequest creates a competitor workflow
type WorkflowRequest struct {
	YourPageURL    string   `json:"your_page_url" validate:"required,url"`
	CompetitorURLs []string `json:"competitor_urls" validate:"required,min=1,dive,required,url"`
}

// AnalysisFilters narrow the ads sent to the analysis chain
type AnalysisFilters struct {
	Roles      []string `json:"roles,omitempty"`
	MediaType  string   `json:"media_type,omitempty" validate:"omitempty,oneof=image video carousel text"`
	ActiveOnly bool     `json:"active_only,omitempty"`
}

// AnalysisRequest runs a standalone analysis over a workflow or explicit ad ids
type AnalysisRequest struct {
	Prompt     string          `json:"prompt" validate:"max=4000"`
	WorkflowID string          `json:"workflow_id" validate:"required_without=AdIDs"`
	AdIDs      []string        `json:"ad_ids" validate:"required_without=WorkflowID,dive,required"`
	Filters    AnalysisFilters `json:"filters"`
}

// ChatRequest asks a question about an analysis
type ChatRequest struct {
	Message    string               `json:"message" validate:"required,max=4000"`
	WorkflowID string               `json:"workflow_id,omitempty"`
	History    []models.ChatMessage `json:"history,omitempty" validate:"max=50,dive"`
}

// ResultsPage is one page of a job's ads
type ResultsPage struct {
	JobID      string            `json:"job_id"`
	Status     models.JobStatus  `json:"status"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	Total      int               `json:"total"`
	TotalPages int               `json:"total_pages"`
	Ads        []models.AdRecord `json:"ads"`
}

// WorkflowResults are the pages and analysis of a workflow
type WorkflowResults struct {
	WorkflowID  string              `json:"workflow_id"`
	Status      models.JobStatus    `json:"status"`
	Pages       []*models.PageTask  `json:"pages"`
	Analysis    models.AnalysisTask `json:"analysis"`
	CreditsUsed int                 `json:"credits_used"`
}

// Usage summarises AI credit consumption
type Usage struct {
	AnalysisCredits  int64 `json:"analysis_credits"`
	WorkflowCredits  int   `json:"workflow_credits"`
	TotalCredits     int64 `json:"total_credits"`
	ActiveJobs       int   `json:"active_jobs"`
	ActiveWorkflows  int   `json:"active_workflows"`
	ArchivedComplete int   `json:"archived_completed_jobs"`
}
