package jobs

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/interfaces"
	"github.com/ternarybob/adscope/internal/models"
	"github.com/ternarybob/adscope/internal/services/fallback"
	"github.com/ternarybob/adscope/internal/services/llm"
)

// ScrapeChain is the ordered scraping fallback chain
type ScrapeChain = fallback.Chain[models.SearchParams, []models.AdRecord]

// Dependencies are shared by the scrape manager and the workflow orchestrator.
// Archive and Events are optional.
type Dependencies struct {
	Store    interfaces.JobStore
	Archive  interfaces.JobArchive
	Events   interfaces.EventService
	Scrape   *ScrapeChain
	Analysis *llm.AnalysisChain
	Logger   arbor.ILogger
}

const archiveTimeout = 5 * time.Second

func (d *Dependencies) publish(eventType interfaces.EventType, payload interfaces.ProgressPayload) {
	if d.Events == nil {
		return
	}
	if err := d.Events.Publish(context.Background(), interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		d.Logger.Warn().Err(err).Str("event", string(eventType)).Msg("Failed to publish event")
	}
}

func (d *Dependencies) archiveJob(job *models.Job) {
	if d.Archive == nil || job == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := d.Archive.SaveJob(ctx, job); err != nil {
		d.Logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to archive job")
	}
}

func (d *Dependencies) archiveWorkflow(workflow *models.Workflow) {
	if d.Archive == nil || workflow == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := d.Archive.SaveWorkflow(ctx, workflow); err != nil {
		d.Logger.Warn().Err(err).Str("workflow_id", workflow.ID).Msg("Failed to archive workflow")
	}
}
