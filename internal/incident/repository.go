// Package incident provides the incident ledger and the coordinator that
// converts check results into incident lifecycle transitions.
package incident

import (
	"context"
	"errors"
	"time"

	"github.com/pulsegarden/pulsegarden/internal/domain"
)

// Repository errors.
var (
	ErrIncidentNotFound = errors.New("incident not found")
	ErrNoActiveIncident = errors.New("no active incident for monitor")
)

// Repository defines incident data access.
//
// The at-most-one-active invariant is enforced by lookup-before-create in
// the coordinator and backed by a partial unique index on
// (monitor_id) WHERE resolved_at IS NULL, so concurrent pipelines cannot
// open a second active incident.
type Repository interface {
	// FindActiveByMonitor returns the monitor's unresolved incident, or
	// ErrNoActiveIncident when the monitor is healthy.
	FindActiveByMonitor(ctx context.Context, monitorID string) (*domain.Incident, error)

	// Create persists a new incident.
	Create(ctx context.Context, inc *domain.Incident) error

	// Resolve marks an incident resolved, setting resolved_at and the
	// duration. Resolving an already-resolved incident is a no-op.
	Resolve(ctx context.Context, id string, resolvedAt time.Time, durationSeconds int64) error

	// ListByMonitor returns the monitor's incidents, newest first.
	ListByMonitor(ctx context.Context, monitorID string, limit int) ([]domain.Incident, error)

	// ListByTeam returns the team's incidents, newest first.
	ListByTeam(ctx context.Context, teamID string, limit int) ([]domain.Incident, error)
}
