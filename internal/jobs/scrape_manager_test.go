package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/adscope/internal/interfaces"
	"github.com/ternarybob/adscope/internal/models"
	"github.com/ternarybob/adscope/internal/services/fallback"
	"github.com/ternarybob/adscope/internal/services/llm"
)

func createJob(t *testing.T, deps *Dependencies, jobType models.JobType) string {
	t.Helper()
	job := models.NewJob("job_1", jobType, models.SearchParams{Platform: "facebook", Query: "nike", Limit: 10, Region: "US"})
	require.NoError(t, deps.Store.CreateJob(job))
	return job.ID
}

func waitForJob(t *testing.T, deps *Dependencies, id string, status models.JobStatus) *models.Job {
	t.Helper()
	var job *models.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = deps.Store.GetJob(id)
		return err == nil && job.Status == status
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestScrapeManager_FallsThroughToFirstSuccess(t *testing.T) {
	deps := newDeps(
		emptyProvider("A"),
		errorProvider("B"),
		byQuery("C", map[string][]models.AdRecord{"nike": makeAds("Nike", 2)}),
	)
	events := &recordingEvents{}
	deps.Events = events
	id := createJob(t, deps, models.JobTypeScrape)

	manager := NewScrapeManager(context.Background(), deps, time.Second)
	require.NoError(t, manager.Run(context.Background(), id))

	job, err := deps.Store.GetJob(id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, "C", job.ProviderUsed)
	assert.Len(t, job.Result, 2)
	assert.Equal(t, float64(100), job.Progress.Percentage)
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.CompletedAt)
	assert.Nil(t, job.Analysis)

	types := events.types()
	require.NotEmpty(t, types)
	assert.Equal(t, interfaces.EventJobCompleted, types[len(types)-1])
	assert.Contains(t, types, interfaces.EventJobProgress)

	// terminal reads are stable
	again, err := deps.Store.GetJob(id)
	require.NoError(t, err)
	assert.Equal(t, job, again)
}

func TestScrapeManager_ExhaustedIsCompletedAndEmpty(t *testing.T) {
	deps := newDeps(emptyProvider("A"), errorProvider("B"))
	id := createJob(t, deps, models.JobTypeScrape)

	manager := NewScrapeManager(context.Background(), deps, time.Second)
	require.NoError(t, manager.Run(context.Background(), id))

	job, err := deps.Store.GetJob(id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, models.NoProviderSucceeded, job.ProviderUsed)
	assert.NotNil(t, job.Result)
	assert.Empty(t, job.Result)
	assert.Empty(t, job.Error)
}

func TestScrapeManager_NoProvidersFailsJob(t *testing.T) {
	deps := newDeps()
	id := createJob(t, deps, models.JobTypeScrape)

	manager := NewScrapeManager(context.Background(), deps, time.Second)
	err := manager.Run(context.Background(), id)

	var orchErr *models.OrchestrationError
	require.ErrorAs(t, err, &orchErr)

	job, err := deps.Store.GetJob(id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "no scraping providers configured")
}

// completionFailingStore rejects the update that would complete a job
type completionFailingStore struct {
	interfaces.JobStore
}

func (s completionFailingStore) UpdateJob(id string, fn func(job *models.Job) error) (*models.Job, error) {
	current, err := s.JobStore.GetJob(id)
	if err != nil {
		return nil, err
	}
	if err := fn(current); err == nil && current.Status == models.JobStatusCompleted {
		return nil, errors.New("store write failed")
	}
	return s.JobStore.UpdateJob(id, fn)
}

func TestScrapeManager_StoreFaultFailsJob(t *testing.T) {
	deps := newDeps(byQuery("A", map[string][]models.AdRecord{"nike": makeAds("Nike", 2)}))
	deps.Store = completionFailingStore{JobStore: deps.Store}
	id := createJob(t, deps, models.JobTypeScrape)

	manager := NewScrapeManager(context.Background(), deps, time.Second)
	err := manager.Run(context.Background(), id)

	var orchErr *models.OrchestrationError
	require.ErrorAs(t, err, &orchErr)

	job, err := deps.Store.GetJob(id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "store write failed")
	assert.Empty(t, job.Result)
}

func TestScrapeManager_BulkAnalysis(t *testing.T) {
	deps := newDeps(byQuery("A", map[string][]models.AdRecord{"nike": makeAds("Nike", 3)}))
	id := createJob(t, deps, models.JobTypeBulkAnalysis)

	manager := NewScrapeManager(context.Background(), deps, time.Second)
	require.NoError(t, manager.Run(context.Background(), id))

	job, err := deps.Store.GetJob(id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Analysis)
	assert.Equal(t, llm.ProviderEnhanced, job.Analysis.AIProvider)
	assert.Contains(t, job.Analysis.Summary, "Analysed 3 ads")
	assert.Equal(t, 2, job.Progress.Total)
}

func TestScrapeManager_CancelDiscardsResult(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	deps := newDeps(gatedProvider("slow", started, release, makeAds("Nike", 4)))
	id := createJob(t, deps, models.JobTypeScrape)

	manager := NewScrapeManager(context.Background(), deps, 5*time.Second)
	done := make(chan error, 1)
	go func() { done <- manager.Run(context.Background(), id) }()

	<-started
	cancelled, err := manager.Cancel(id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCancelled, cancelled.Status)

	close(release)
	require.NoError(t, <-done)

	job, err := deps.Store.GetJob(id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCancelled, job.Status)
	assert.Empty(t, job.Result)

	_, err = manager.Cancel(id)
	assert.ErrorIs(t, err, models.ErrTerminal)
}

func TestScrapeManager_StartRecoversPanic(t *testing.T) {
	deps := newDeps(emptyProvider("A"))
	deps.Events = &recordingEvents{panicOn: interfaces.EventJobProgress}
	id := createJob(t, deps, models.JobTypeScrape)

	manager := NewScrapeManager(context.Background(), deps, time.Second)
	manager.Start(id)

	job := waitForJob(t, deps, id, models.JobStatusFailed)
	assert.Contains(t, job.Error, "event bus exploded")
}

func TestScrapeManager_DeadlineAbandonsHungProvider(t *testing.T) {
	hung := fallback.Func("hung", func(ctx context.Context, p models.SearchParams) ([]models.AdRecord, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	deps := newDeps(hung, byQuery("B", map[string][]models.AdRecord{"nike": makeAds("Nike", 1)}))
	deps.Scrape = deps.Scrape.WithAttemptTimeout(20 * time.Millisecond)
	id := createJob(t, deps, models.JobTypeScrape)

	manager := NewScrapeManager(context.Background(), deps, time.Second)
	require.NoError(t, manager.Run(context.Background(), id))

	job, err := deps.Store.GetJob(id)
	require.NoError(t, err)
	assert.Equal(t, "B", job.ProviderUsed)
}
