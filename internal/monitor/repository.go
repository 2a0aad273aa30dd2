// Package monitor provides monitor and check-history persistence contracts
// consumed by the scheduling engine. Monitor CRUD itself lives outside the
// engine; only the denormalized check fields are written here.
package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/pulsegarden/pulsegarden/internal/domain"
)

// Repository errors.
var ErrMonitorNotFound = errors.New("monitor not found")

// Repository defines monitor data access for the engine.
type Repository interface {
	// FindEnabled returns all enabled monitors.
	FindEnabled(ctx context.Context) ([]domain.Monitor, error)

	// FindDue returns enabled monitors whose interval has elapsed at the
	// given time, oldest-unchecked first.
	FindDue(ctx context.Context, now time.Time, limit int) ([]domain.Monitor, error)

	// GetByID returns one monitor or ErrMonitorNotFound.
	GetByID(ctx context.Context, id string) (*domain.Monitor, error)

	// UpdateCheckResult writes the denormalized fields after a check:
	// last_checked_at, last_status, last_response_time.
	UpdateCheckResult(ctx context.Context, id string, res *domain.CheckResult) error

	// UpdateUptime persists the rolling uptime percentage.
	UpdateUptime(ctx context.Context, id string, percent float64) error
}

// CheckStore defines durable check-history access.
type CheckStore interface {
	// CreateCheck appends one check result to the monitor's history.
	CreateCheck(ctx context.Context, res *domain.CheckResult) error

	// ListChecks returns the most recent checks for a monitor, newest first.
	ListChecks(ctx context.Context, monitorID string, limit int) ([]domain.CheckResult, error)

	// UptimeSince returns the successful-check percentage since the given
	// time, rounded to two decimals. A monitor with no checks in the window
	// reports 100.
	UptimeSince(ctx context.Context, monitorID string, since time.Time) (float64, error)
}
