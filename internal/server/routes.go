package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Scrape jobs
	mux.HandleFunc("/api/jobs", s.handleJobsRoute)  // GET (list), POST (create)
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes) // /{id}, /{id}/results, /{id}/cancel

	// API routes - Workflows
	mux.HandleFunc("/api/workflows", s.handleWorkflowsRoute)  // GET (list), POST (create)
	mux.HandleFunc("/api/workflows/", s.handleWorkflowRoutes) // /{id}, /{id}/results, /{id}/cancel, /{id}/report

	// API routes - Analysis
	mux.HandleFunc("/api/analysis", s.app.AnalysisHandler.RunAnalysisHandler)
	mux.HandleFunc("/api/chat", s.app.AnalysisHandler.ChatHandler)
	mux.HandleFunc("/api/usage", s.app.AnalysisHandler.UsageHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}

func (s *Server) handleJobsRoute(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r, s.app.JobHandler.ListJobsHandler, s.app.JobHandler.CreateJobHandler)
}

// handleJobRoutes routes /api/jobs/{id} and its subpaths
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	if RouteByPathSuffix(w, r, "/api/jobs/", []PathSuffixRouter{
		{Suffix: "/results", Handler: s.app.JobHandler.GetJobResultsHandler},
		{Suffix: "/cancel", Handler: s.app.JobHandler.CancelJobHandler},
	}) {
		return
	}

	if isItemPath(r.URL.Path, "/api/jobs/") {
		s.app.JobHandler.GetJobHandler(w, r)
		return
	}
	s.app.APIHandler.NotFoundHandler(w, r)
}

func (s *Server) handleWorkflowsRoute(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r, s.app.WorkflowHandler.ListWorkflowsHandler, s.app.WorkflowHandler.CreateWorkflowHandler)
}

// handleWorkflowRoutes routes /api/workflows/{id} and its subpaths
func (s *Server) handleWorkflowRoutes(w http.ResponseWriter, r *http.Request) {
	if RouteByPathSuffix(w, r, "/api/workflows/", []PathSuffixRouter{
		{Suffix: "/results", Handler: s.app.WorkflowHandler.GetWorkflowResultsHandler},
		{Suffix: "/cancel", Handler: s.app.WorkflowHandler.CancelWorkflowHandler},
		{Suffix: "/report", Handler: s.app.WorkflowHandler.ReportHandler},
	}) {
		return
	}

	if isItemPath(r.URL.Path, "/api/workflows/") {
		s.app.WorkflowHandler.GetWorkflowHandler(w, r)
		return
	}
	s.app.APIHandler.NotFoundHandler(w, r)
}

// isItemPath reports whether path is prefix + a single non-empty segment
func isItemPath(path, prefix string) bool {
	rest := strings.TrimPrefix(path, prefix)
	return rest != "" && !strings.Contains(rest, "/")
}
