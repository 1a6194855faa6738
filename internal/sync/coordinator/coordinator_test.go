package coordinator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/mock/gomock"

	"github.com/elter-ri/vocabs-sync/internal/sources"
	pkgsync "github.com/elter-ri/vocabs-sync/internal/sync"
	syncmocks "github.com/elter-ri/vocabs-sync/internal/sync/mocks"
	"github.com/elter-ri/vocabs-sync/internal/telemetry"
)

func successfulOutcome(trigger pkgsync.Trigger) *pkgsync.RunOutcome {
	now := time.Now()
	return &pkgsync.RunOutcome{
		Trigger:    trigger,
		StartedAt:  now,
		FinishedAt: now.Add(time.Second),
		Results: []pkgsync.EntryResult{{
			Entry:         sources.SourceEntry{URI: "https://example.org/a.ttl", Graph: "http://example.org/a/"},
			FetchStatus:   pkgsync.FetchSuccess,
			PublishStatus: pkgsync.PublishSuccess,
		}},
	}
}

// runOnceFromContext echoes the trigger found in the run context
func runOnceFromContext(ctx context.Context) (*pkgsync.RunOutcome, error) {
	return successfulOutcome(pkgsync.TriggerFromContext(ctx)), nil
}

func TestCoordinator_New(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockEngine := syncmocks.NewMockEngine(ctrl)

	coord := New(mockEngine,
		WithLockFile(filepath.Join(t.TempDir(), "run.lock")),
		WithLockRetryDelay(10*time.Millisecond),
	)
	require.NotNil(t, coord)

	dc, ok := coord.(*defaultCoordinator)
	require.True(t, ok)
	assert.Equal(t, mockEngine, dc.engine)
	assert.NotNil(t, dc.sem)
	assert.NotNil(t, dc.fileLock)
	assert.Equal(t, 10*time.Millisecond, dc.lockRetryDelay)
	assert.Nil(t, coord.LastOutcome())
}

func TestCoordinator_New_Defaults(t *testing.T) {
	t.Parallel()

	coord := New(syncmocks.NewMockEngine(gomock.NewController(t)), WithLockFile(""), WithLockRetryDelay(-1))
	dc := coord.(*defaultCoordinator)
	assert.Nil(t, dc.fileLock)
	assert.Equal(t, DefaultLockRetryDelay, dc.lockRetryDelay)
}

func TestCoordinator_RequestRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		trigger     pkgsync.Trigger
		runErr      error
		expectError bool
	}{
		{name: "scheduled run", trigger: pkgsync.TriggerScheduled},
		{name: "manual run", trigger: pkgsync.TriggerManual},
		{
			name:        "run-level failure",
			trigger:     pkgsync.TriggerManual,
			runErr:      fmt.Errorf("%w: boom", pkgsync.ErrRunFailed),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			mockEngine := syncmocks.NewMockEngine(ctrl)
			if tt.runErr != nil {
				mockEngine.EXPECT().RunOnce(gomock.Any()).Return(nil, tt.runErr)
			} else {
				mockEngine.EXPECT().RunOnce(gomock.Any()).DoAndReturn(runOnceFromContext)
			}

			coord := New(mockEngine)
			outcome, err := coord.RequestRun(context.Background(), tt.trigger)

			if tt.expectError {
				require.Error(t, err)
				assert.ErrorIs(t, err, pkgsync.ErrRunFailed)
				assert.Nil(t, outcome)
				assert.Nil(t, coord.LastOutcome())
				return
			}

			require.NoError(t, err)
			require.NotNil(t, outcome)
			assert.Equal(t, tt.trigger, outcome.Trigger)
			assert.Same(t, outcome, coord.LastOutcome())
		})
	}
}

func TestCoordinator_RequestRun_ReleasesLockAfterFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockEngine := syncmocks.NewMockEngine(ctrl)
	gomock.InOrder(
		mockEngine.EXPECT().RunOnce(gomock.Any()).Return(nil, pkgsync.ErrRunFailed),
		mockEngine.EXPECT().RunOnce(gomock.Any()).DoAndReturn(func(context.Context) (*pkgsync.RunOutcome, error) {
			panic("engine bug")
		}),
		mockEngine.EXPECT().RunOnce(gomock.Any()).DoAndReturn(runOnceFromContext),
	)

	coord := New(mockEngine)

	_, err := coord.RequestRun(context.Background(), pkgsync.TriggerScheduled)
	require.ErrorIs(t, err, pkgsync.ErrRunFailed)

	assert.Panics(t, func() {
		_, _ = coord.RequestRun(context.Background(), pkgsync.TriggerScheduled)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	outcome, err := coord.RequestRun(ctx, pkgsync.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, pkgsync.TriggerManual, outcome.Trigger)
}

func TestCoordinator_RequestRun_AtMostOneInFlight(t *testing.T) {
	t.Parallel()

	const callers = 16

	var inFlight, maxInFlight atomic.Int32
	ctrl := gomock.NewController(t)
	mockEngine := syncmocks.NewMockEngine(ctrl)
	mockEngine.EXPECT().RunOnce(gomock.Any()).DoAndReturn(func(ctx context.Context) (*pkgsync.RunOutcome, error) {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return runOnceFromContext(ctx)
	}).Times(callers)

	coord := New(mockEngine)

	var wg sync.WaitGroup
	for i := range callers {
		trigger := pkgsync.TriggerScheduled
		if i%2 == 0 {
			trigger = pkgsync.TriggerManual
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := coord.RequestRun(context.Background(), trigger)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load())
}

func TestCoordinator_RequestRun_CancelledWhileWaiting(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	finish := make(chan struct{})

	ctrl := gomock.NewController(t)
	mockEngine := syncmocks.NewMockEngine(ctrl)
	mockEngine.EXPECT().RunOnce(gomock.Any()).DoAndReturn(func(ctx context.Context) (*pkgsync.RunOutcome, error) {
		close(started)
		<-finish
		return runOnceFromContext(ctx)
	}).Times(1)

	coord := New(mockEngine)

	done := make(chan error, 1)
	go func() {
		_, err := coord.RequestRun(context.Background(), pkgsync.TriggerScheduled)
		done <- err
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	waiting := make(chan error, 1)
	go func() {
		_, err := coord.RequestRun(ctx, pkgsync.TriggerManual)
		waiting <- err
	}()
	cancel()

	select {
	case err := <-waiting:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled request did not return")
	}

	close(finish)
	require.NoError(t, <-done)
}

func TestCoordinator_RequestRun_DetachesCallerCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var runCtxErr error

	ctrl := gomock.NewController(t)
	mockEngine := syncmocks.NewMockEngine(ctrl)
	mockEngine.EXPECT().RunOnce(gomock.Any()).DoAndReturn(func(runCtx context.Context) (*pkgsync.RunOutcome, error) {
		cancel()
		runCtxErr = runCtx.Err()
		return runOnceFromContext(runCtx)
	})

	coord := New(mockEngine)
	outcome, err := coord.RequestRun(ctx, pkgsync.TriggerManual)

	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.NoError(t, runCtxErr)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestCoordinator_RequestRun_LockFileAcrossCoordinators(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "vocabs-sync.lock")

	var inFlight, maxInFlight atomic.Int32
	run := func(ctx context.Context) (*pkgsync.RunOutcome, error) {
		n := inFlight.Add(1)
		if n > maxInFlight.Load() {
			maxInFlight.Store(n)
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return runOnceFromContext(ctx)
	}

	ctrl := gomock.NewController(t)
	engineA := syncmocks.NewMockEngine(ctrl)
	engineB := syncmocks.NewMockEngine(ctrl)
	engineA.EXPECT().RunOnce(gomock.Any()).DoAndReturn(run).Times(3)
	engineB.EXPECT().RunOnce(gomock.Any()).DoAndReturn(run).Times(3)

	coordA := New(engineA, WithLockFile(lockPath), WithLockRetryDelay(time.Millisecond))
	coordB := New(engineB, WithLockFile(lockPath), WithLockRetryDelay(time.Millisecond))

	var wg sync.WaitGroup
	for _, coord := range []Coordinator{coordA, coordB} {
		for range 3 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := coord.RequestRun(context.Background(), pkgsync.TriggerScheduled)
				assert.NoError(t, err)
			}()
		}
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load())
}

func TestCoordinator_RequestRun_LockFileCancelled(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "vocabs-sync.lock")
	holder := New(syncmocks.NewMockEngine(gomock.NewController(t)), WithLockFile(lockPath))
	locked, err := holder.(*defaultCoordinator).fileLock.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer func() { _ = holder.(*defaultCoordinator).fileLock.Unlock() }()

	ctrl := gomock.NewController(t)
	mockEngine := syncmocks.NewMockEngine(ctrl)
	mockEngine.EXPECT().RunOnce(gomock.Any()).Times(0)

	coord := New(mockEngine, WithLockFile(lockPath), WithLockRetryDelay(time.Millisecond))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = coord.RequestRun(ctx, pkgsync.TriggerManual)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	// the semaphore must have been given back
	assert.True(t, coord.(*defaultCoordinator).sem.TryAcquire(1))
}

func TestCoordinator_RequestRun_RecordsMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()
	metrics, err := telemetry.NewSyncMetrics(mp)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	mockEngine := syncmocks.NewMockEngine(ctrl)
	mockEngine.EXPECT().RunOnce(gomock.Any()).DoAndReturn(runOnceFromContext)
	mockEngine.EXPECT().RunOnce(gomock.Any()).Return(nil, pkgsync.ErrRunFailed)

	coord := New(mockEngine, WithSyncMetrics(metrics))
	_, _ = coord.RequestRun(context.Background(), pkgsync.TriggerManual)
	_, _ = coord.RequestRun(context.Background(), pkgsync.TriggerManual)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := map[string]uint64{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			hist, ok := m.Data.(metricdata.Histogram[float64])
			if !ok {
				continue
			}
			for _, dp := range hist.DataPoints {
				counts[m.Name] += dp.Count
			}
		}
	}
	assert.Equal(t, uint64(2), counts["vocabs_sync_run_duration_seconds"])
	assert.Equal(t, uint64(2), counts["vocabs_sync_lock_wait_seconds"])
}
