package sync

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/elter-ri/vocabs-sync/internal/sources"
)

// Trigger identifies what started a run
type Trigger string

const (
	// TriggerScheduled marks runs started by the scheduler
	TriggerScheduled Trigger = "scheduled"

	// TriggerManual marks runs started through POST /sync
	TriggerManual Trigger = "manual"
)

// FetchStatus is the result of retrieving a source document
type FetchStatus string

const (
	FetchSuccess FetchStatus = "success"
	FetchFailed  FetchStatus = "fetch_failed"
)

// PublishStatus is the result of writing a document to its graph
type PublishStatus string

const (
	PublishSuccess PublishStatus = "success"
	PublishFailed  PublishStatus = "publish_failed"

	// PublishSkipped means no publish was attempted because the fetch failed
	PublishSkipped PublishStatus = "skipped"
)

// RunStatus summarizes a whole run
type RunStatus string

const (
	// RunStatusUpdated means every entry was fetched and published
	RunStatusUpdated RunStatus = "updated"

	// RunStatusPartial means at least one entry succeeded and at least one failed
	RunStatusPartial RunStatus = "partial"

	// RunStatusFailed means no entry succeeded
	RunStatusFailed RunStatus = "failed"
)

// EntryResult is the outcome for one registry entry within a run
type EntryResult struct {
	Entry         sources.SourceEntry
	FetchStatus   FetchStatus
	PublishStatus PublishStatus

	// ErrorDetail is empty on success
	ErrorDetail string

	// Bytes is the size of the fetched document
	Bytes    int
	Duration time.Duration
}

// Succeeded reports whether the entry was fetched and published
func (r EntryResult) Succeeded() bool {
	return r.FetchStatus == FetchSuccess && r.PublishStatus == PublishSuccess
}

// RunOutcome records one execution of Engine.RunOnce
type RunOutcome struct {
	ID         uuid.UUID
	Trigger    Trigger
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []EntryResult
}

// Succeeded returns the number of entries that were fetched and published
func (o *RunOutcome) Succeeded() int {
	n := 0
	for _, r := range o.Results {
		if r.Succeeded() {
			n++
		}
	}
	return n
}

// FailedCount returns the number of entries that failed at either step
func (o *RunOutcome) FailedCount() int {
	return len(o.Results) - o.Succeeded()
}

// Status summarizes the outcome
func (o *RunOutcome) Status() RunStatus {
	switch succeeded := o.Succeeded(); {
	case succeeded == len(o.Results):
		return RunStatusUpdated
	case succeeded == 0:
		return RunStatusFailed
	default:
		return RunStatusPartial
	}
}

// Duration returns how long the run took
func (o *RunOutcome) Duration() time.Duration {
	return o.FinishedAt.Sub(o.StartedAt)
}

type triggerKey struct{}

// WithTrigger returns a context carrying the trigger of the run
func WithTrigger(ctx context.Context, trigger Trigger) context.Context {
	return context.WithValue(ctx, triggerKey{}, trigger)
}

// TriggerFromContext returns the trigger stored in ctx, TriggerScheduled if none
func TriggerFromContext(ctx context.Context) Trigger {
	if trigger, ok := ctx.Value(triggerKey{}).(Trigger); ok {
		return trigger
	}
	return TriggerScheduled
}
