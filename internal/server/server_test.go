package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/app"
	"github.com/ternarybob/adscope/internal/common"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Browser.Enabled = false
	cfg.HTTPScraper.Enabled = false

	application, err := app.New(cfg, arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { application.Close() })
	return New(application)
}

func TestRoutes(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		code   int
	}{
		{"health", http.MethodGet, "/api/health", "", http.StatusOK},
		{"version", http.MethodGet, "/api/version", "", http.StatusOK},
		{"usage", http.MethodGet, "/api/usage", "", http.StatusOK},
		{"list jobs", http.MethodGet, "/api/jobs", "", http.StatusOK},
		{"list jobs bad status", http.MethodGet, "/api/jobs?status=paused", "", http.StatusBadRequest},
		{"create job invalid", http.MethodPost, "/api/jobs", `{"query":""}`, http.StatusBadRequest},
		{"jobs wrong method", http.MethodPut, "/api/jobs", "", http.StatusMethodNotAllowed},
		{"job not found", http.MethodGet, "/api/jobs/job_missing", "", http.StatusNotFound},
		{"job results not found", http.MethodGet, "/api/jobs/job_missing/results", "", http.StatusNotFound},
		{"cancel job not found", http.MethodPost, "/api/jobs/job_missing/cancel", "", http.StatusNotFound},
		{"cancel job wrong method", http.MethodGet, "/api/jobs/job_missing/cancel", "", http.StatusMethodNotAllowed},
		{"unknown job subpath", http.MethodGet, "/api/jobs/a/b/c", "", http.StatusNotFound},
		{"list workflows", http.MethodGet, "/api/workflows", "", http.StatusOK},
		{"create workflow invalid", http.MethodPost, "/api/workflows", `{"your_page_url":"nope"}`, http.StatusBadRequest},
		{"workflow not found", http.MethodGet, "/api/workflows/wf_missing", "", http.StatusNotFound},
		{"workflow report not found", http.MethodGet, "/api/workflows/wf_missing/report", "", http.StatusNotFound},
		{"analysis invalid", http.MethodPost, "/api/analysis", `{}`, http.StatusBadRequest},
		{"chat", http.MethodPost, "/api/chat", `{"message":"what should I do next?"}`, http.StatusOK},
		{"unknown", http.MethodGet, "/nope", "", http.StatusNotFound},
		{"preflight", http.MethodOptions, "/api/jobs", "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestRouteByPathSuffix(t *testing.T) {
	called := ""
	routes := []PathSuffixRouter{
		{Suffix: "/results", Handler: func(http.ResponseWriter, *http.Request) { called = "results" }},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/job_1/results", nil)
	assert.True(t, RouteByPathSuffix(httptest.NewRecorder(), req, "/api/jobs/", routes))
	assert.Equal(t, "results", called)

	req = httptest.NewRequest(http.MethodGet, "/api/jobs/results", nil)
	assert.False(t, RouteByPathSuffix(httptest.NewRecorder(), req, "/api/jobs/", routes))

	req = httptest.NewRequest(http.MethodGet, "/api/jobs/a/b/results", nil)
	assert.False(t, RouteByPathSuffix(httptest.NewRecorder(), req, "/api/jobs/", routes))
}
