package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/interfaces"
)

// EvictionService periodically drops terminal jobs and workflows from the
// in-memory store. Archived copies stay readable from the durable archive.
type EvictionService struct {
	store     interfaces.JobStore
	archive   interfaces.JobArchive
	retention time.Duration
	schedule  string
	cron      *cron.Cron
	logger    arbor.ILogger
	mu        sync.Mutex // serializes runs
	running   bool
	lastRun   *time.Time
	now       func() time.Time
}

// NewEvictionService creates the service. archive may be nil.
func NewEvictionService(store interfaces.JobStore, archive interfaces.JobArchive, retention time.Duration, schedule string, logger arbor.ILogger) *EvictionService {
	if schedule == "" {
		schedule = "@every 5m"
	}
	return &EvictionService{
		store:     store,
		archive:   archive,
		retention: retention,
		schedule:  schedule,
		cron:      cron.New(),
		logger:    logger,
		now:       time.Now,
	}
}

// Start registers the eviction run and starts the cron scheduler
func (s *EvictionService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("eviction scheduler already running")
	}
	if _, err := s.cron.AddFunc(s.schedule, s.execute); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", s.schedule).
		Dur("retention", s.retention).
		Msg("Eviction scheduler started")
	return nil
}

// Stop halts the scheduler and waits for an in-flight run
func (s *EvictionService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Eviction scheduler stopped")
}

// RunOnce evicts terminal records finished more than retention ago
func (s *EvictionService) RunOnce() (jobs int, workflows int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.now()
	jobs, workflows = s.store.EvictTerminal(started.Add(-s.retention))
	s.lastRun = &started

	if jobs > 0 || workflows > 0 {
		s.logger.Info().
			Int("jobs", jobs).
			Int("workflows", workflows).
			Msg("Evicted terminal records")
	}

	if s.archive != nil {
		if err := s.archive.Compact(); err != nil {
			s.logger.Warn().Err(err).Msg("Archive compaction failed")
		}
	}
	return jobs, workflows
}

// LastRun returns the time of the most recent run, or nil
func (s *EvictionService) LastRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

func (s *EvictionService) execute() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in eviction run")
		}
	}()
	s.RunOnce()
}
