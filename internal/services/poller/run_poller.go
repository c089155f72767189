// -----------------------------------------------------------------------
// Run Poller - drives a remote asynchronous run to a terminal state
// -----------------------------------------------------------------------

package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/models"
)

// RunState is the state reported by the remote system
type RunState string

const (
	StateReady     RunState = "READY"
	StateRunning   RunState = "RUNNING"
	StateSucceeded RunState = "SUCCEEDED"
	StateFailed    RunState = "FAILED"
	StateAborting  RunState = "ABORTING"
	StateAborted   RunState = "ABORTED"
	StateTimingOut RunState = "TIMING-OUT"
	StateTimedOut  RunState = "TIMED-OUT"
)

// IsTerminal reports whether the remote run has finished.
func (s RunState) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateAborted, StateTimedOut:
		return true
	}
	return false
}

// RunStatus is one status observation. Diagnostic carries the remote
// status message, if any, and is surfaced when the run fails.
type RunStatus struct {
	State      RunState
	Diagnostic string
}

// RemoteRun is a handle to a started remote job.
type RemoteRun[R any] interface {
	ID() string
	Status(ctx context.Context) (RunStatus, error)
	Fetch(ctx context.Context) (R, error)
}

// Options controls one await. Zero values fall back to the poller defaults.
type Options struct {
	PollInterval    time.Duration // Delay between status calls (default 2s)
	MaxWait         time.Duration // Hard limit for the whole await (default 5m)
	MaxInterval     time.Duration // Upper bound when Backoff > 1
	Backoff         float64       // Interval multiplier after each non-terminal poll; 1 keeps it fixed
	MaxStatusErrors int           // Consecutive status call failures tolerated (default 3)
}

// DefaultOptions returns the baseline polling behaviour.
func DefaultOptions() Options {
	return Options{
		PollInterval:    2 * time.Second,
		MaxWait:         5 * time.Minute,
		Backoff:         1,
		MaxStatusErrors: 3,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.MaxWait <= 0 {
		o.MaxWait = d.MaxWait
	}
	if o.Backoff < 1 {
		o.Backoff = d.Backoff
	}
	if o.MaxInterval < o.PollInterval {
		o.MaxInterval = o.PollInterval
	}
	if o.MaxStatusErrors <= 0 {
		o.MaxStatusErrors = d.MaxStatusErrors
	}
	return o
}

// Poller holds the default options and logger shared by all awaits.
// Each Await call is independent; nothing is locked across calls.
type Poller struct {
	options Options
	logger  arbor.ILogger
}

// New creates a poller
func New(logger arbor.ILogger, options Options) *Poller {
	return &Poller{
		options: options.withDefaults(),
		logger:  logger,
	}
}

// Options returns the effective defaults.
func (p *Poller) Options() Options {
	return p.options
}

// Await polls run until it reaches a terminal state or MaxWait elapses.
// SUCCEEDED fetches and returns the result. FAILED, ABORTED and TIMED-OUT
// return a *models.RunFailedError; running out of time returns a *models.PollTimeoutError.
func Await[R any](ctx context.Context, p *Poller, run RemoteRun[R]) (R, error) {
	return AwaitWith(ctx, p, run, p.options)
}

// AwaitWith is Await with per-call options.
func AwaitWith[R any](ctx context.Context, p *Poller, run RemoteRun[R], options Options) (R, error) {
	var zero R
	options = options.withDefaults()

	waitCtx, cancel := context.WithTimeout(ctx, options.MaxWait)
	defer cancel()

	started := time.Now()
	interval := options.PollInterval
	last := RunStatus{State: StateReady}
	statusErrors := 0
	polls := 0

	for {
		status, err := run.Status(waitCtx)
		polls++

		if err != nil && waitCtx.Err() == nil {
			statusErrors++
			p.logger.Warn().
				Str("run_id", run.ID()).
				Int("consecutive_errors", statusErrors).
				Err(err).
				Msg("Run status check failed")
			if statusErrors > options.MaxStatusErrors {
				return zero, fmt.Errorf("run %s status unavailable after %d attempts: %w", run.ID(), statusErrors, err)
			}
		} else if err == nil {
			statusErrors = 0
			last = status

			switch status.State {
			case StateSucceeded:
				p.logger.Debug().
					Str("run_id", run.ID()).
					Int("polls", polls).
					Str("elapsed", time.Since(started).String()).
					Msg("Run succeeded, fetching result")
				return run.Fetch(waitCtx)
			case StateFailed, StateAborted, StateTimedOut:
				return zero, &models.RunFailedError{
					RunID:      run.ID(),
					State:      string(status.State),
					Diagnostic: status.Diagnostic,
				}
			}
		}

		if !sleep(waitCtx, interval) {
			if ctx.Err() != nil {
				return zero, ctx.Err()
			}
			return zero, &models.PollTimeoutError{
				RunID:     run.ID(),
				LastState: string(last.State),
				Waited:    options.MaxWait.String(),
			}
		}

		interval = nextInterval(interval, options)
	}
}

func nextInterval(current time.Duration, options Options) time.Duration {
	if options.Backoff <= 1 {
		return current
	}
	next := time.Duration(float64(current) * options.Backoff)
	if next > options.MaxInterval {
		next = options.MaxInterval
	}
	return next
}

// sleep waits for d or until ctx is done. It returns false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
