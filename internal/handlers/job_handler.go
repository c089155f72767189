package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/services/ads"
)

const jobsPrefix = "/api/jobs/"

// JobHandler serves the scrape job endpoints
type JobHandler struct {
	service JobService
	logger  arbor.ILogger
}

// NewJobHandler creates a new job handler
func NewJobHandler(service JobService, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		service: service,
		logger:  logger,
	}
}

// CreateJobHandler starts a scrape job
// POST /api/jobs
func (h *JobHandler) CreateJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req ads.ScrapeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	job, err := h.service.CreateScrapeJob(req)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": job.ID,
		"status": job.Status,
		"job":    job,
	})
}

// ListJobsHandler lists jobs newest first
// GET /api/jobs?status=running
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobs, err := h.service.ListJobs(r.URL.Query().Get("status"))
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"total": len(jobs),
	})
}

// GetJobHandler returns the job view
// GET /api/jobs/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	job, err := h.service.GetJobStatus(r.Context(), PathID(r, jobsPrefix))
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// GetJobResultsHandler returns one page of scraped ads
// GET /api/jobs/{id}/results?page=1&page_size=20
func (h *JobHandler) GetJobResultsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	page, pageSize := GetPaginationParams(r)
	results, err := h.service.GetJobResults(r.Context(), PathID(r, jobsPrefix), page, pageSize)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, results)
}

// CancelJobHandler cancels a queued or running job
// POST /api/jobs/{id}/cancel
func (h *JobHandler) CancelJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	jobID := PathID(r, jobsPrefix)
	job, err := h.service.CancelJob(jobID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	h.logger.Info().Str("job_id", jobID).Msg("Job cancelled")
	WriteJSON(w, http.StatusOK, job)
}
