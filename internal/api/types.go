package api

import (
	"time"

	pkgsync "github.com/elter-ri/vocabs-sync/internal/sync"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status" example:"healthy"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Status  string       `json:"status" example:"ready"`
	LastRun *LastRunInfo `json:"lastRun,omitempty"`
}

// LastRunInfo summarizes the most recent completed run
type LastRunInfo struct {
	RunID      string    `json:"runId"`
	Status     string    `json:"status" example:"updated"`
	Trigger    string    `json:"trigger" example:"scheduled"`
	FinishedAt time.Time `json:"finishedAt"`
}

// VersionResponse represents the version information response
type VersionResponse struct {
	Version   string `json:"version" example:"v0.1.0"`
	Commit    string `json:"commit" example:"abc123def"`
	BuildDate string `json:"build_date" example:"2025-01-15T10:30:00Z"`
	GoVersion string `json:"go_version" example:"go1.21.5"`
	Platform  string `json:"platform" example:"linux/amd64"`
}

// SyncResponse is returned by POST /sync once the run has finished
type SyncResponse struct {
	Status     string               `json:"status" example:"updated"`
	RunID      string               `json:"runId"`
	Trigger    string               `json:"trigger" example:"manual"`
	StartedAt  time.Time            `json:"startedAt"`
	FinishedAt time.Time            `json:"finishedAt"`
	Succeeded  int                  `json:"succeeded"`
	Failed     int                  `json:"failed"`
	Results    []EntryResultPayload `json:"results"`
}

// EntryResultPayload is the per-document part of SyncResponse
type EntryResultPayload struct {
	DocumentURI   string `json:"documentUri"`
	Graph         string `json:"graph"`
	FetchStatus   string `json:"fetchStatus" example:"success"`
	PublishStatus string `json:"publishStatus" example:"success"`
	Bytes         int    `json:"bytes"`
	Error         string `json:"error,omitempty"`
}

func newSyncResponse(outcome *pkgsync.RunOutcome) SyncResponse {
	resp := SyncResponse{
		Status:     string(outcome.Status()),
		RunID:      outcome.ID.String(),
		Trigger:    string(outcome.Trigger),
		StartedAt:  outcome.StartedAt,
		FinishedAt: outcome.FinishedAt,
		Succeeded:  outcome.Succeeded(),
		Failed:     outcome.FailedCount(),
		Results:    make([]EntryResultPayload, 0, len(outcome.Results)),
	}
	for _, r := range outcome.Results {
		resp.Results = append(resp.Results, EntryResultPayload{
			DocumentURI:   r.Entry.URI,
			Graph:         r.Entry.Graph,
			FetchStatus:   string(r.FetchStatus),
			PublishStatus: string(r.PublishStatus),
			Bytes:         r.Bytes,
			Error:         r.ErrorDetail,
		})
	}
	return resp
}

func newLastRunInfo(outcome *pkgsync.RunOutcome) *LastRunInfo {
	if outcome == nil {
		return nil
	}
	return &LastRunInfo{
		RunID:      outcome.ID.String(),
		Status:     string(outcome.Status()),
		Trigger:    string(outcome.Trigger),
		FinishedAt: outcome.FinishedAt,
	}
}
