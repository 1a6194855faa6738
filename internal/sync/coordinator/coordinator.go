package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/semaphore"

	pkgsync "github.com/elter-ri/vocabs-sync/internal/sync"
	"github.com/elter-ri/vocabs-sync/internal/telemetry"
)

// DefaultLockRetryDelay is how often a held lock file is polled
const DefaultLockRetryDelay = 500 * time.Millisecond

// runStatusError labels the run duration metric of a run-level failure
const runStatusError = "error"

//go:generate mockgen -destination=mocks/mock_coordinator.go -package=mocks -source=coordinator.go Coordinator

// Coordinator serializes sync runs behind a single run lock
type Coordinator interface {
	// RequestRun waits for the run lock, executes one run and releases the lock.
	// If ctx is done before the lock is acquired, no run happens and ctx.Err() is returned.
	RequestRun(ctx context.Context, trigger pkgsync.Trigger) (*pkgsync.RunOutcome, error)

	// LastOutcome returns the outcome of the most recent completed run, nil if none
	LastOutcome() *pkgsync.RunOutcome
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	engine pkgsync.Engine

	sem            *semaphore.Weighted
	fileLock       *flock.Flock
	lockRetryDelay time.Duration

	last atomic.Pointer[pkgsync.RunOutcome]

	syncMetrics *telemetry.SyncMetrics
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithSyncMetrics sets the sync metrics for the coordinator
func WithSyncMetrics(metrics *telemetry.SyncMetrics) Option {
	return func(c *defaultCoordinator) {
		c.syncMetrics = metrics
	}
}

// WithLockFile adds a cross-process advisory lock on path. An empty path disables it.
func WithLockFile(path string) Option {
	return func(c *defaultCoordinator) {
		if path != "" {
			c.fileLock = flock.New(path)
		}
	}
}

// WithLockRetryDelay sets how often a lock file held by another process is polled
func WithLockRetryDelay(delay time.Duration) Option {
	return func(c *defaultCoordinator) {
		if delay > 0 {
			c.lockRetryDelay = delay
		}
	}
}

// New creates a new coordinator around engine
func New(engine pkgsync.Engine, opts ...Option) Coordinator {
	c := &defaultCoordinator{
		engine:         engine,
		sem:            semaphore.NewWeighted(1),
		lockRetryDelay: DefaultLockRetryDelay,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// RequestRun implements Coordinator
func (c *defaultCoordinator) RequestRun(ctx context.Context, trigger pkgsync.Trigger) (*pkgsync.RunOutcome, error) {
	waitStart := time.Now()

	release, err := c.acquire(ctx)
	if err != nil {
		slog.InfoContext(ctx, "Sync run not started",
			"trigger", trigger,
			"reason", err.Error(),
		)
		return nil, err
	}
	defer release()

	c.syncMetrics.RecordLockWait(ctx, string(trigger), time.Since(waitStart))

	runCtx := pkgsync.WithTrigger(context.WithoutCancel(ctx), trigger)
	start := time.Now()
	outcome, err := c.engine.RunOnce(runCtx)
	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(runCtx, "Sync run failed",
			"trigger", trigger,
			"duration", duration.String(),
			"error", err,
		)
		c.syncMetrics.RecordRunDuration(runCtx, string(trigger), runStatusError, duration)
		return nil, err
	}

	c.last.Store(outcome)
	c.syncMetrics.RecordRunDuration(runCtx, string(trigger), string(outcome.Status()), duration)
	c.logSummary(runCtx, outcome)

	return outcome, nil
}

// LastOutcome implements Coordinator
func (c *defaultCoordinator) LastOutcome() *pkgsync.RunOutcome {
	return c.last.Load()
}

// acquire takes the semaphore and, if configured, the lock file.
// The returned function releases both.
func (c *defaultCoordinator) acquire(ctx context.Context) (func(), error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	if c.fileLock == nil {
		return func() { c.sem.Release(1) }, nil
	}

	if _, err := c.fileLock.TryLockContext(ctx, c.lockRetryDelay); err != nil {
		c.sem.Release(1)
		return nil, fmt.Errorf("failed to lock %s: %w", c.fileLock.Path(), err)
	}

	return func() {
		if err := c.fileLock.Unlock(); err != nil {
			slog.Error("Failed to unlock run lock file",
				"path", c.fileLock.Path(),
				"error", err)
		}
		c.sem.Release(1)
	}, nil
}

func (*defaultCoordinator) logSummary(ctx context.Context, outcome *pkgsync.RunOutcome) {
	attrs := []any{
		"run_id", outcome.ID.String(),
		"trigger", outcome.Trigger,
		"status", outcome.Status(),
		"succeeded", outcome.Succeeded(),
		"failed", outcome.FailedCount(),
		"duration", outcome.Duration().String(),
	}

	if outcome.FailedCount() > 0 {
		slog.WarnContext(ctx, "Sync run completed with failures", attrs...)
		return
	}
	slog.InfoContext(ctx, "Sync run completed", attrs...)
}
