package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/interfaces"
	"github.com/ternarybob/adscope/internal/models"
	"github.com/ternarybob/adscope/internal/services/fallback"
	"github.com/ternarybob/adscope/internal/services/llm"
	"github.com/ternarybob/adscope/internal/storage/memory"
)

func makeAds(page string, n int) []models.AdRecord {
	out := make([]models.AdRecord, n)
	for i := range out {
		out[i] = models.AdRecord{ID: fmt.Sprintf("%s-%d", page, i), PageName: page, AdText: "ad copy for " + page}
	}
	return out
}

func emptyProvider(name string) interfaces.ScrapeProvider {
	return fallback.Func(name, func(ctx context.Context, p models.SearchParams) ([]models.AdRecord, error) {
		return nil, nil
	})
}

func errorProvider(name string) interfaces.ScrapeProvider {
	return fallback.Func(name, func(ctx context.Context, p models.SearchParams) ([]models.AdRecord, error) {
		return nil, errors.New(name + " unavailable")
	})
}

// byQuery returns ads keyed on the derived page query; unknown queries fail
func byQuery(name string, results map[string][]models.AdRecord) interfaces.ScrapeProvider {
	return fallback.Func(name, func(ctx context.Context, p models.SearchParams) ([]models.AdRecord, error) {
		ads, ok := results[p.Query]
		if !ok {
			return nil, fmt.Errorf("no data for %s", p.Query)
		}
		return models.CloneAds(ads), nil
	})
}

// gatedProvider blocks until release is closed
func gatedProvider(name string, started chan<- struct{}, release <-chan struct{}, ads []models.AdRecord) interfaces.ScrapeProvider {
	var once sync.Once
	return fallback.Func(name, func(ctx context.Context, p models.SearchParams) ([]models.AdRecord, error) {
		once.Do(func() { close(started) })
		<-release
		return models.CloneAds(ads), nil
	})
}

func newDeps(providers ...interfaces.ScrapeProvider) *Dependencies {
	logger := arbor.NewLogger()
	return &Dependencies{
		Store:    memory.NewJobStore(logger),
		Scrape:   fallback.NewChain("scrape", logger, func(ads []models.AdRecord) bool { return len(ads) == 0 }, providers...),
		Analysis: llm.NewAnalysisChain(nil, time.Second, logger),
		Logger:   logger,
	}
}

// recordingEvents captures published events
type recordingEvents struct {
	mu      sync.Mutex
	events  []interfaces.Event
	panicOn interfaces.EventType
}

func (r *recordingEvents) Subscribe(interfaces.EventType, interfaces.EventHandler) (string, error) {
	return "sub", nil
}

func (r *recordingEvents) Unsubscribe(string) error { return nil }

func (r *recordingEvents) Publish(ctx context.Context, event interfaces.Event) error {
	if r.panicOn != "" && event.Type == r.panicOn {
		panic("event bus exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingEvents) PublishSync(ctx context.Context, event interfaces.Event) error {
	return r.Publish(ctx, event)
}

func (r *recordingEvents) Close() error { return nil }

func (r *recordingEvents) types() []interfaces.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]interfaces.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type fakeCompleter struct {
	name  string
	reply string
}

func (f fakeCompleter) Name() string { return f.name }

func (f fakeCompleter) Complete(ctx context.Context, request *llm.CompletionRequest) (string, error) {
	return f.reply, nil
}
