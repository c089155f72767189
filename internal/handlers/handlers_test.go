package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/models"
	"github.com/ternarybob/adscope/internal/services/ads"
	"github.com/ternarybob/adscope/internal/services/report"
)

type mockJobService struct{ mock.Mock }

func (m *mockJobService) CreateScrapeJob(req ads.ScrapeRequest) (*models.Job, error) {
	args := m.Called(req)
	job, _ := args.Get(0).(*models.Job)
	return job, args.Error(1)
}

func (m *mockJobService) GetJobStatus(ctx context.Context, id string) (*models.Job, error) {
	args := m.Called(id)
	job, _ := args.Get(0).(*models.Job)
	return job, args.Error(1)
}

func (m *mockJobService) GetJobResults(ctx context.Context, id string, page, pageSize int) (*ads.ResultsPage, error) {
	args := m.Called(id, page, pageSize)
	results, _ := args.Get(0).(*ads.ResultsPage)
	return results, args.Error(1)
}

func (m *mockJobService) CancelJob(id string) (*models.Job, error) {
	args := m.Called(id)
	job, _ := args.Get(0).(*models.Job)
	return job, args.Error(1)
}

func (m *mockJobService) ListJobs(status string) ([]*models.Job, error) {
	args := m.Called(status)
	jobs, _ := args.Get(0).([]*models.Job)
	return jobs, args.Error(1)
}

type mockWorkflowService struct{ mock.Mock }

func (m *mockWorkflowService) CreateWorkflow(req ads.WorkflowRequest) (*models.Workflow, error) {
	args := m.Called(req)
	w, _ := args.Get(0).(*models.Workflow)
	return w, args.Error(1)
}

func (m *mockWorkflowService) GetWorkflowStatus(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(id)
	w, _ := args.Get(0).(*models.Workflow)
	return w, args.Error(1)
}

func (m *mockWorkflowService) CancelWorkflow(id string) (*models.Workflow, error) {
	args := m.Called(id)
	w, _ := args.Get(0).(*models.Workflow)
	return w, args.Error(1)
}

func (m *mockWorkflowService) GetWorkflowResults(ctx context.Context, id string) (*ads.WorkflowResults, error) {
	args := m.Called(id)
	r, _ := args.Get(0).(*ads.WorkflowResults)
	return r, args.Error(1)
}

func (m *mockWorkflowService) ListWorkflows(status string) ([]*models.Workflow, error) {
	args := m.Called(status)
	w, _ := args.Get(0).([]*models.Workflow)
	return w, args.Error(1)
}

type mockAnalysisService struct{ mock.Mock }

func (m *mockAnalysisService) RunAnalysis(ctx context.Context, req ads.AnalysisRequest) (*models.AnalysisTask, error) {
	args := m.Called(req)
	task, _ := args.Get(0).(*models.AnalysisTask)
	return task, args.Error(1)
}

func (m *mockAnalysisService) ChatWithAnalysis(ctx context.Context, req ads.ChatRequest) (*models.ChatReply, error) {
	args := m.Called(req)
	reply, _ := args.Get(0).(*models.ChatReply)
	return reply, args.Error(1)
}

func (m *mockAnalysisService) Usage(ctx context.Context) ads.Usage {
	return m.Called().Get(0).(ads.Usage)
}

func doRequest(handler http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCreateJobHandler(t *testing.T) {
	service := &mockJobService{}
	handler := NewJobHandler(service, arbor.NewLogger())

	job := models.NewJob("job_1", models.JobTypeScrape, models.SearchParams{Query: "nike"})
	service.On("CreateScrapeJob", ads.ScrapeRequest{Query: "nike", Limit: 10}).Return(job, nil)

	rec := doRequest(handler.CreateJobHandler, http.MethodPost, "/api/jobs", `{"query":"nike","limit":10}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "job_1", body["job_id"])
	assert.Equal(t, "queued", body["status"])
	service.AssertExpectations(t)
}

func TestCreateJobHandlerRejectsBadBody(t *testing.T) {
	service := &mockJobService{}
	handler := NewJobHandler(service, arbor.NewLogger())

	rec := doRequest(handler.CreateJobHandler, http.MethodPost, "/api/jobs", `{"query":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(handler.CreateJobHandler, http.MethodPost, "/api/jobs", `{"query":"x","bogus":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(handler.CreateJobHandler, http.MethodGet, "/api/jobs", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	service.AssertNotCalled(t, "CreateScrapeJob", mock.Anything)
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", &models.ValidationError{Field: "query", Message: "is required"}, http.StatusBadRequest},
		{"not found", fmt.Errorf("job x: %w", models.ErrNotFound), http.StatusNotFound},
		{"terminal", models.ErrTerminal, http.StatusConflict},
		{"transition", models.ErrInvalidTransition, http.StatusConflict},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &mockJobService{}
			handler := NewJobHandler(service, arbor.NewLogger())
			service.On("CancelJob", "job_1").Return(nil, tt.err)

			rec := doRequest(handler.CancelJobHandler, http.MethodPost, "/api/jobs/job_1/cancel", "")
			assert.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusInternalServerError {
				assert.NotContains(t, rec.Body.String(), "disk on fire")
			}
		})
	}
}

func TestGetJobResultsHandlerPassesPaging(t *testing.T) {
	service := &mockJobService{}
	handler := NewJobHandler(service, arbor.NewLogger())
	service.On("GetJobResults", "job_1", 2, 50).Return(&ads.ResultsPage{JobID: "job_1", Page: 2, PageSize: 50}, nil)

	rec := doRequest(handler.GetJobResultsHandler, http.MethodGet, "/api/jobs/job_1/results?page=2&page_size=50", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decodeBody(t, rec)["page"])
	service.AssertExpectations(t)
}

func TestListJobsHandler(t *testing.T) {
	service := &mockJobService{}
	handler := NewJobHandler(service, arbor.NewLogger())
	service.On("ListJobs", "running").Return([]*models.Job{models.NewJob("job_1", models.JobTypeScrape, models.SearchParams{})}, nil)

	rec := doRequest(handler.ListJobsHandler, http.MethodGet, "/api/jobs?status=running", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["total"])
}

type stubRenderer struct{}

func (stubRenderer) Render(workflow *models.Workflow, format report.Format) ([]byte, error) {
	return []byte("report " + workflow.ID + " " + string(format)), nil
}

func TestWorkflowHandlers(t *testing.T) {
	service := &mockWorkflowService{}
	handler := NewWorkflowHandler(service, stubRenderer{}, arbor.NewLogger())
	workflow := models.NewWorkflow("wf_1", "https://facebook.com/a", []string{"https://facebook.com/b"})

	req := ads.WorkflowRequest{YourPageURL: "https://facebook.com/a", CompetitorURLs: []string{"https://facebook.com/b"}}
	service.On("CreateWorkflow", req).Return(workflow, nil)
	service.On("GetWorkflowStatus", "wf_1").Return(workflow, nil)
	service.On("GetWorkflowStatus", "wf_404").Return(nil, models.ErrNotFound)

	rec := doRequest(handler.CreateWorkflowHandler, http.MethodPost, "/api/workflows",
		`{"your_page_url":"https://facebook.com/a","competitor_urls":["https://facebook.com/b"]}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "wf_1", decodeBody(t, rec)["workflow_id"])

	rec = doRequest(handler.GetWorkflowHandler, http.MethodGet, "/api/workflows/wf_404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(handler.ReportHandler, http.MethodGet, "/api/workflows/wf_1/report?format=pdf", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "wf_1.pdf")
	assert.Equal(t, "report wf_1 pdf", rec.Body.String())

	rec = doRequest(handler.ReportHandler, http.MethodGet, "/api/workflows/wf_1/report?format=docx", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalysisHandlers(t *testing.T) {
	service := &mockAnalysisService{}
	handler := NewAnalysisHandler(service, arbor.NewLogger())

	service.On("RunAnalysis", ads.AnalysisRequest{WorkflowID: "wf_1"}).
		Return(&models.AnalysisTask{Status: models.TaskStatusCompleted, Data: &models.AnalysisData{Summary: "ok"}}, nil)
	service.On("ChatWithAnalysis", ads.ChatRequest{Message: "hi"}).
		Return(&models.ChatReply{Text: "hello", AIProvider: "enhanced"}, nil)
	service.On("Usage").Return(ads.Usage{TotalCredits: 3})

	rec := doRequest(handler.RunAnalysisHandler, http.MethodPost, "/api/analysis", `{"workflow_id":"wf_1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", decodeBody(t, rec)["status"])

	rec = doRequest(handler.ChatHandler, http.MethodPost, "/api/chat", `{"message":"hi"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", decodeBody(t, rec)["response"])

	rec = doRequest(handler.UsageHandler, http.MethodGet, "/api/usage", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), decodeBody(t, rec)["total_credits"])
}

func TestHealthHandler(t *testing.T) {
	rec := doRequest(NewAPIHandler([]string{"apify"}, []string{"claude", "enhanced"}, arbor.NewLogger()).HealthHandler, http.MethodGet, "/api/health", "")
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])

	rec = doRequest(NewAPIHandler(nil, nil, arbor.NewLogger()).HealthHandler, http.MethodGet, "/api/health", "")
	assert.Equal(t, "degraded", decodeBody(t, rec)["status"])
}

func TestPathID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/job_1/results", nil)
	assert.Equal(t, "job_1", PathID(req, jobsPrefix))

	req = httptest.NewRequest(http.MethodGet, "/api/workflows/wf_9", nil)
	assert.Equal(t, "wf_9", PathID(req, workflowsPrefix))
}
