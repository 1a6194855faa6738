package sync

import "errors"

var (
	// ErrFetchFailed marks a source document that could not be retrieved
	ErrFetchFailed = errors.New("fetch failed")

	// ErrPublishFailed marks a document the triple store did not accept
	ErrPublishFailed = errors.New("publish failed")

	// ErrRunFailed marks a run that aborted as a whole
	ErrRunFailed = errors.New("sync run failed")
)
