package handlers

import (
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/services/ads"
	"github.com/ternarybob/adscope/internal/services/report"
)

const workflowsPrefix = "/api/workflows/"

// WorkflowHandler serves the competitor workflow endpoints
type WorkflowHandler struct {
	service WorkflowService
	reports ReportRenderer
	logger  arbor.ILogger
}

// NewWorkflowHandler creates a new workflow handler
func NewWorkflowHandler(service WorkflowService, reports ReportRenderer, logger arbor.ILogger) *WorkflowHandler {
	return &WorkflowHandler{
		service: service,
		reports: reports,
		logger:  logger,
	}
}

// CreateWorkflowHandler starts a workflow
// POST /api/workflows
func (h *WorkflowHandler) CreateWorkflowHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req ads.WorkflowRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	workflow, err := h.service.CreateWorkflow(req)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"workflow_id": workflow.ID,
		"status":      workflow.Status,
		"workflow":    workflow,
	})
}

// ListWorkflowsHandler lists workflows newest first
// GET /api/workflows?status=completed
func (h *WorkflowHandler) ListWorkflowsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	workflows, err := h.service.ListWorkflows(r.URL.Query().Get("status"))
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"workflows": workflows,
		"total":     len(workflows),
	})
}

// GetWorkflowHandler returns the workflow view
// GET /api/workflows/{id}
func (h *WorkflowHandler) GetWorkflowHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	workflow, err := h.service.GetWorkflowStatus(r.Context(), PathID(r, workflowsPrefix))
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, workflow)
}

// GetWorkflowResultsHandler returns pages and analysis
// GET /api/workflows/{id}/results
func (h *WorkflowHandler) GetWorkflowResultsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	results, err := h.service.GetWorkflowResults(r.Context(), PathID(r, workflowsPrefix))
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, results)
}

// CancelWorkflowHandler cancels a queued or running workflow
// POST /api/workflows/{id}/cancel
func (h *WorkflowHandler) CancelWorkflowHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	workflowID := PathID(r, workflowsPrefix)
	workflow, err := h.service.CancelWorkflow(workflowID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	h.logger.Info().Str("workflow_id", workflowID).Msg("Workflow cancelled")
	WriteJSON(w, http.StatusOK, workflow)
}

// ReportHandler exports the workflow report
// GET /api/workflows/{id}/report?format=md|html|pdf|yaml
func (h *WorkflowHandler) ReportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	workflow, err := h.service.GetWorkflowStatus(r.Context(), PathID(r, workflowsPrefix))
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	body, err := h.reports.Render(workflow, format)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	if format == report.FormatPDF {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", workflow.ID+".pdf"))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
