package app

import (
	"github.com/elter-ri/vocabs-sync/internal/sources"
	"github.com/elter-ri/vocabs-sync/internal/sync/coordinator"
	"github.com/elter-ri/vocabs-sync/internal/sync/scheduler"
	"github.com/elter-ri/vocabs-sync/internal/telemetry"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// Registry is the list of documents synchronized on every run
	Registry *sources.Registry

	// Coordinator serializes scheduled and manual runs
	Coordinator coordinator.Coordinator

	// Scheduler drives periodic runs
	Scheduler scheduler.Scheduler

	// Telemetry owns the metric and trace providers (optional)
	Telemetry *telemetry.Telemetry
}
