// Package sync implements one synchronization pass over the source registry.
//
// # Engine
//
// Engine.RunOnce walks the registry in order. For every entry it fetches the
// source document and, only if the fetch succeeded, publishes the bytes to
// the entry's named graph. A failure is recorded in the entry's EntryResult
// and the run moves on to the next entry; one broken source never prevents
// the others from being refreshed.
//
// The returned RunOutcome carries one EntryResult per registry entry, in
// registry order. An error is returned only for a run-level failure (a panic
// escaping the per-entry path), wrapped in ErrRunFailed.
//
// # Concurrency
//
// RunOnce itself takes no lock. Callers must serialize runs; the coordinator
// subpackage owns the run lock and is the only production caller. The
// scheduler subpackage drives periodic runs through the coordinator.
//
// # Triggers
//
// The reason a run was started travels in the context (WithTrigger) so it
// shows up in the outcome, in logs and on spans without widening RunOnce.
package sync
