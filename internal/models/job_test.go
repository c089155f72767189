package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from JobStatus
		to   JobStatus
		want bool
	}{
		{JobStatusQueued, JobStatusRunning, true},
		{JobStatusQueued, JobStatusCancelled, true},
		{JobStatusQueued, JobStatusCompleted, false},
		{JobStatusRunning, JobStatusCompleted, true},
		{JobStatusRunning, JobStatusFailed, true},
		{JobStatusRunning, JobStatusCancelled, true},
		{JobStatusRunning, JobStatusQueued, false},
		{JobStatusCompleted, JobStatusRunning, false},
		{JobStatusCompleted, JobStatusFailed, false},
		{JobStatusFailed, JobStatusCompleted, false},
		{JobStatusCancelled, JobStatusRunning, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestJob_SetStatusStampsTimestamps(t *testing.T) {
	job := NewJob("job_1", JobTypeScrape, SearchParams{Query: "nike", Limit: 10})

	require.NoError(t, job.SetStatus(JobStatusRunning))
	assert.NotNil(t, job.StartedAt)
	assert.Nil(t, job.CompletedAt)

	require.NoError(t, job.SetStatus(JobStatusCompleted))
	assert.NotNil(t, job.CompletedAt)

	assert.ErrorIs(t, job.SetStatus(JobStatusRunning), ErrInvalidTransition)
	assert.Equal(t, JobStatusCompleted, job.Status)
}

func TestJobProgress_AdvanceIsMonotonic(t *testing.T) {
	var p JobProgress

	p.Advance(2, 4, "half")
	assert.Equal(t, 50.0, p.Percentage)

	p.Advance(1, 0, "stale")
	assert.Equal(t, 2, p.Current)
	assert.Equal(t, 50.0, p.Percentage)
	assert.Equal(t, "stale", p.Message)

	p.Advance(9, 4, "")
	assert.Equal(t, 100.0, p.Percentage)
}

func TestJob_CloneSharesNothing(t *testing.T) {
	job := NewJob("job_1", JobTypeScrape, SearchParams{Query: "nike"})
	job.Result = []AdRecord{{ID: "ad1", Platforms: []string{"facebook"}}}
	job.Analysis = &AnalysisData{Summary: "s", Insights: []string{"i"}}

	c := job.Clone()
	c.Result[0].Platforms[0] = "instagram"
	c.Analysis.Insights[0] = "changed"

	assert.Equal(t, "facebook", job.Result[0].Platforms[0])
	assert.Equal(t, "i", job.Analysis.Insights[0])
}

func TestNewWorkflow_PagesAndSteps(t *testing.T) {
	wf := NewWorkflow("wf_1", "https://facebook.com/mine", []string{"https://facebook.com/a", "https://facebook.com/b"})

	require.Len(t, wf.Pages, 3)
	assert.Equal(t, RoleYourPage, wf.Pages[0].Role)
	assert.Equal(t, "competitor_2", wf.Pages[2].Role)
	assert.Equal(t, 4, wf.Progress.TotalSteps)
	assert.Equal(t, TaskStatusPending, wf.Analysis.Status)
	assert.False(t, wf.PagesTerminal())

	for _, p := range wf.Pages {
		p.Status = TaskStatusFailed
	}
	assert.True(t, wf.PagesTerminal())

	for i := 0; i < 10; i++ {
		wf.StepDone("")
	}
	assert.Equal(t, 4, wf.Progress.CurrentStep)
	assert.Equal(t, 100.0, wf.Progress.Percentage)
}
