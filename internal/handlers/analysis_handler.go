package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/services/ads"
)

// AnalysisHandler serves standalone analysis, chat and usage
type AnalysisHandler struct {
	service AnalysisService
	logger  arbor.ILogger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service AnalysisService, logger arbor.ILogger) *AnalysisHandler {
	return &AnalysisHandler{
		service: service,
		logger:  logger,
	}
}

// RunAnalysisHandler analyses a workflow or a set of ads
// POST /api/analysis
func (h *AnalysisHandler) RunAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req ads.AnalysisRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	task, err := h.service.RunAnalysis(r.Context(), req)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, task)
}

// ChatHandler answers a question about an analysis
// POST /api/chat
func (h *AnalysisHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req ads.ChatRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	reply, err := h.service.ChatWithAnalysis(r.Context(), req)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, reply)
}

// UsageHandler reports AI credit consumption
// GET /api/usage
func (h *AnalysisHandler) UsageHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, h.service.Usage(r.Context()))
}
