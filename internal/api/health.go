package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/elter-ri/vocabs-sync/internal/api/common"
	"github.com/elter-ri/vocabs-sync/internal/sync/coordinator"
	"github.com/elter-ri/vocabs-sync/internal/versions"
)

func registerHealthRoutes(r chi.Router, coord coordinator.Coordinator) {
	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(coord))
	r.Get("/version", versionHandler)
}

// healthHandler handles health check requests
//
// @Summary		Health check
// @Description	Check if the sync service is alive
// @Tags			system
// @Produce		json
// @Success		200	{object}	HealthResponse
// @Router			/health [get]
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, HealthResponse{Status: "healthy"}, http.StatusOK)
}

// readinessHandler reports readiness together with the last completed run, if any.
// The service is ready as soon as it serves HTTP; a failing source must not
// take the trigger endpoint out of rotation.
//
// @Summary		Readiness check
// @Tags			system
// @Produce		json
// @Success		200	{object}	ReadinessResponse
// @Router			/readiness [get]
func readinessHandler(coord coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		common.WriteJSONResponse(w, ReadinessResponse{
			Status:  "ready",
			LastRun: newLastRunInfo(coord.LastOutcome()),
		}, http.StatusOK)
	}
}

// versionHandler handles version information requests
//
// @Summary		Version information
// @Tags			system
// @Produce		json
// @Success		200	{object}	VersionResponse
// @Router			/version [get]
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	info := versions.GetVersionInfo()

	common.WriteJSONResponse(w, VersionResponse{
		Version:   info.Version,
		Commit:    info.Commit,
		BuildDate: info.BuildDate,
		GoVersion: info.GoVersion,
		Platform:  info.Platform,
	}, http.StatusOK)
}
