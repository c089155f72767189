package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/common"
)

type APIHandler struct {
	scrapeProviders []string
	aiProviders     []string
	logger          arbor.ILogger
}

// NewAPIHandler creates the system handler; provider names are reported by /api/health
func NewAPIHandler(scrapeProviders, aiProviders []string, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		scrapeProviders: scrapeProviders,
		aiProviders:     aiProviders,
		logger:          logger,
	}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"full":    common.GetFullVersion(),
	})
}

// HealthHandler returns health check status
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	status := "ok"
	if len(h.scrapeProviders) == 0 {
		status = "degraded"
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":           status,
		"scrape_providers": h.scrapeProviders,
		"ai_providers":     h.aiProviders,
	})
}

// NotFoundHandler handles 404 errors with JSON response
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}
