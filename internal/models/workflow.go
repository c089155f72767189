// -----------------------------------------------------------------------
// Workflow - one "your page" plus N competitor pages and one AI stage
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"time"
)

// RoleYourPage is the page role of the requesting advertiser.
const RoleYourPage = "your_page"

// CompetitorRole returns the page role for the n-th competitor (1-based).
func CompetitorRole(n int) string {
	return fmt.Sprintf("competitor_%d", n)
}

// TaskStatus is the status of a PageTask or AnalysisTask
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// IsTerminal reports whether the task has finished, successfully or not.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// PageData is the aggregate scraped for one page
type PageData struct {
	PageName     string     `json:"page_name" yaml:"page_name"`
	AdsFound     int        `json:"ads_found" yaml:"ads_found"`
	Ads          []AdRecord `json:"ads" yaml:"ads"`
	ProviderUsed string     `json:"provider_used" yaml:"provider_used"`
}

// PageTask is the scrape of one page inside a workflow
type PageTask struct {
	Role   string     `json:"role" yaml:"role"`
	URL    string     `json:"url" yaml:"url"`
	Status TaskStatus `json:"status" yaml:"status"`
	Data   *PageData  `json:"data,omitempty" yaml:"data,omitempty"`
	Error  string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// AnalysisData is the structured output of the AI stage
type AnalysisData struct {
	Summary         string    `json:"summary" yaml:"summary"`
	Insights        []string  `json:"insights" yaml:"insights"`
	Recommendations []string  `json:"recommendations" yaml:"recommendations"`
	AIProvider      string    `json:"ai_provider" yaml:"ai_provider"`
	GeneratedAt     time.Time `json:"generated_at" yaml:"generated_at"`
}

// Clone returns a deep copy of the analysis
func (a *AnalysisData) Clone() *AnalysisData {
	if a == nil {
		return nil
	}
	c := *a
	c.Insights = append([]string(nil), a.Insights...)
	c.Recommendations = append([]string(nil), a.Recommendations...)
	return &c
}

// IsEmpty reports whether a provider returned nothing usable.
func (a *AnalysisData) IsEmpty() bool {
	return a == nil || (a.Summary == "" && len(a.Insights) == 0 && len(a.Recommendations) == 0)
}

// AnalysisTask is the AI stage of a workflow
type AnalysisTask struct {
	Status TaskStatus    `json:"status" yaml:"status"`
	Data   *AnalysisData `json:"data,omitempty" yaml:"data,omitempty"`
	Error  string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// WorkflowProgress tracks steps; TotalSteps is always len(Pages)+1.
type WorkflowProgress struct {
	CurrentStep int     `json:"current_step"`
	TotalSteps  int     `json:"total_steps"`
	Percentage  float64 `json:"percentage"`
	Message     string  `json:"message"`
}

// Workflow orchestrates the analysis of one page plus its competitors.
// Pages keep creation order: your_page first, then competitor_1..N.
type Workflow struct {
	ID          string           `json:"id" badgerhold:"key"`
	Status      JobStatus        `json:"status" badgerhold:"index"`
	Pages       []*PageTask      `json:"pages"`
	Analysis    AnalysisTask     `json:"analysis"`
	Progress    WorkflowProgress `json:"progress"`
	CreditsUsed int              `json:"credits_used"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// NewWorkflow creates a queued workflow with every page pending.
func NewWorkflow(id, yourPageURL string, competitorURLs []string) *Workflow {
	pages := make([]*PageTask, 0, len(competitorURLs)+1)
	pages = append(pages, &PageTask{Role: RoleYourPage, URL: yourPageURL, Status: TaskStatusPending})
	for i, u := range competitorURLs {
		pages = append(pages, &PageTask{Role: CompetitorRole(i + 1), URL: u, Status: TaskStatusPending})
	}
	return &Workflow{
		ID:       id,
		Status:   JobStatusQueued,
		Pages:    pages,
		Analysis: AnalysisTask{Status: TaskStatusPending},
		Progress: WorkflowProgress{
			TotalSteps: len(pages) + 1,
			Message:    "Queued",
		},
		CreatedAt: time.Now(),
	}
}

// Page returns the task for a role, or nil.
func (w *Workflow) Page(role string) *PageTask {
	for _, p := range w.Pages {
		if p.Role == role {
			return p
		}
	}
	return nil
}

// SetStatus applies a validated transition and stamps the matching timestamp.
func (w *Workflow) SetStatus(next JobStatus) error {
	if !w.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	now := time.Now()
	w.Status = next
	if next == JobStatusRunning {
		w.StartedAt = &now
	}
	if next.IsTerminal() {
		w.CompletedAt = &now
	}
	return nil
}

// StepDone counts one more finished step and recomputes the percentage.
func (w *Workflow) StepDone(message string) {
	if w.Progress.CurrentStep < w.Progress.TotalSteps {
		w.Progress.CurrentStep++
	}
	if w.Progress.TotalSteps > 0 {
		w.Progress.Percentage = float64(w.Progress.CurrentStep) / float64(w.Progress.TotalSteps) * 100
	}
	if message != "" {
		w.Progress.Message = message
	}
}

// PagesTerminal reports whether every page task has finished.
func (w *Workflow) PagesTerminal() bool {
	for _, p := range w.Pages {
		if !p.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy safe to hand to readers outside the store.
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}
	c := *w
	c.Pages = make([]*PageTask, len(w.Pages))
	for i, p := range w.Pages {
		pc := *p
		if p.Data != nil {
			d := *p.Data
			d.Ads = CloneAds(p.Data.Ads)
			pc.Data = &d
		}
		c.Pages[i] = &pc
	}
	c.Analysis.Data = w.Analysis.Data.Clone()
	c.StartedAt = cloneTime(w.StartedAt)
	c.CompletedAt = cloneTime(w.CompletedAt)
	return &c
}
