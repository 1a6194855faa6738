// Package coordinator serializes synchronization runs.
//
// The scheduler and the POST /sync handler both ask the coordinator for a
// run instead of calling the engine directly. The coordinator holds the run
// lock while the engine works, so at most one run is ever in flight:
//
//	outcome, err := coord.RequestRun(ctx, sync.TriggerManual)
//
// # Run Lock
//
// The lock is a weighted semaphore of size one. RequestRun blocks until it
// is free; the caller's context only bounds that wait. Once the lock is held
// the run executes on a context detached from the caller's cancellation, so
// a client hanging up or a shutdown signal never aborts a half-finished run.
// The lock is released before RequestRun returns, whatever the run did.
//
// When several replicas share a volume, WithLockFile adds an advisory file
// lock (flock) taken after the semaphore, extending the guarantee across
// processes.
//
// # Fairness
//
// Scheduled and manual runs contend for the same lock with no priority. A
// trigger arriving during a run waits and then starts a fresh run of its own.
//
// # Observability
//
// Every run logs a one-line summary and records its lock wait and duration
// through telemetry.SyncMetrics. The most recent outcome is kept in memory
// (LastOutcome) for the readiness probe; there is no run history.
package coordinator
