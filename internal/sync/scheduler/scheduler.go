// Package scheduler drives periodic synchronization runs.
//
// The scheduler runs once as soon as it starts, then waits the configured
// interval after each run returns before requesting the next one, so runs
// never overlap with their own schedule. Runs go through the coordinator
// and therefore share the run lock with manually triggered runs.
//
// A failed or panicking run is logged and the loop carries on; only
// cancellation of the Start context or a call to Stop ends it.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	pkgsync "github.com/elter-ri/vocabs-sync/internal/sync"
	"github.com/elter-ri/vocabs-sync/internal/sync/coordinator"
)

// ErrAlreadyStarted is returned by Start when the scheduler is already running
var ErrAlreadyStarted = errors.New("scheduler already started")

// WaitFunc returns a channel that fires once d has elapsed
type WaitFunc func(d time.Duration) <-chan time.Time

// Scheduler manages the background sync loop
type Scheduler interface {
	// Start runs the sync loop. It blocks until ctx is cancelled or Stop is called.
	// Once stopped, a scheduler cannot be started again.
	Start(ctx context.Context) error

	// Stop stops the loop and waits for it to exit
	Stop() error
}

// defaultScheduler is the default implementation of Scheduler
type defaultScheduler struct {
	coordinator coordinator.Coordinator
	interval    time.Duration
	wait        WaitFunc

	// Lifecycle management
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	done       chan struct{}
	stopped    bool
}

// Option is a function that configures the scheduler
type Option func(*defaultScheduler)

// WithWaitFunc replaces time.After, mostly for tests
func WithWaitFunc(wait WaitFunc) Option {
	return func(s *defaultScheduler) {
		if wait != nil {
			s.wait = wait
		}
	}
}

// New creates a scheduler requesting a run every interval
func New(coord coordinator.Coordinator, interval time.Duration, opts ...Option) Scheduler {
	s := &defaultScheduler{
		coordinator: coord,
		interval:    interval,
		wait:        time.After,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start implements Scheduler
func (s *defaultScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	if s.cancelFunc != nil {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	defer func() {
		cancel()
		close(done)
		slog.Info("Sync scheduler shutting down")
	}()

	slog.Info("Starting sync scheduler", "interval", s.interval.String())

	for {
		s.runOnce(loopCtx)

		select {
		case <-s.wait(s.interval):
		case <-loopCtx.Done():
			slog.Info("Sync scheduler stopping")
			return nil
		}
	}
}

// Stop implements Scheduler
func (s *defaultScheduler) Stop() error {
	s.mu.Lock()
	s.stopped = true
	cancel, done := s.cancelFunc, s.done
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}

	slog.Info("Stopping sync scheduler")
	cancel()
	// Wait for the loop, including an in-flight run, to finish
	<-done
	return nil
}

// runOnce requests one scheduled run, swallowing its errors and panics
func (s *defaultScheduler) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Scheduled sync run panicked", "panic", r)
		}
	}()

	if ctx.Err() != nil {
		return
	}

	if _, err := s.coordinator.RequestRun(ctx, pkgsync.TriggerScheduled); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		slog.ErrorContext(ctx, "Scheduled sync run failed", "error", err)
	}
}
