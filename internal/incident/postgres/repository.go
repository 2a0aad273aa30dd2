// Package postgres provides the PostgreSQL implementation of the incident
// ledger.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pulsegarden/pulsegarden/internal/domain"
	"github.com/pulsegarden/pulsegarden/internal/incident"
)

// Repository implements incident.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const incidentColumns = `
	id, monitor_id, team_id, title, description, status, severity,
	started_at, resolved_at, duration_seconds, metadata, created_at, updated_at
`

// FindActiveByMonitor returns the monitor's unresolved incident.
func (r *Repository) FindActiveByMonitor(ctx context.Context, monitorID string) (*domain.Incident, error) {
	query := `
		SELECT ` + incidentColumns + `
		FROM incidents
		WHERE monitor_id = $1 AND resolved_at IS NULL
	`
	inc, err := scanIncident(r.db.QueryRow(ctx, query, monitorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incident.ErrNoActiveIncident
		}
		return nil, fmt.Errorf("find active incident: %w", err)
	}
	return inc, nil
}

// Create persists a new incident.
func (r *Repository) Create(ctx context.Context, inc *domain.Incident) error {
	query := `
		INSERT INTO incidents (
			id, monitor_id, team_id, title, description, status, severity,
			started_at, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		inc.ID,
		inc.MonitorID,
		inc.TeamID,
		inc.Title,
		inc.Description,
		inc.Status,
		inc.Severity,
		inc.StartedAt,
		inc.Metadata,
	).Scan(&inc.CreatedAt, &inc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// Resolve marks an incident resolved. The resolved_at IS NULL guard makes
// repeated resolves no-ops: neither resolved_at nor the duration is ever
// overwritten.
func (r *Repository) Resolve(ctx context.Context, id string, resolvedAt time.Time, durationSeconds int64) error {
	query := `
		UPDATE incidents
		SET status = $2,
		    resolved_at = $3,
		    duration_seconds = $4,
		    updated_at = NOW()
		WHERE id = $1 AND resolved_at IS NULL
	`
	_, err := r.db.Exec(ctx, query, id, domain.IncidentStatusResolved, resolvedAt, durationSeconds)
	if err != nil {
		return fmt.Errorf("resolve incident: %w", err)
	}
	return nil
}

// ListByMonitor returns the monitor's incidents, newest first.
func (r *Repository) ListByMonitor(ctx context.Context, monitorID string, limit int) ([]domain.Incident, error) {
	query := `
		SELECT ` + incidentColumns + `
		FROM incidents
		WHERE monitor_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`
	return r.list(ctx, query, monitorID, limit)
}

// ListByTeam returns the team's incidents, newest first.
func (r *Repository) ListByTeam(ctx context.Context, teamID string, limit int) ([]domain.Incident, error) {
	query := `
		SELECT ` + incidentColumns + `
		FROM incidents
		WHERE team_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`
	return r.list(ctx, query, teamID, limit)
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]domain.Incident, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]domain.Incident, 0)
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		incidents = append(incidents, *inc)
	}

	return incidents, rows.Err()
}

func scanIncident(row pgx.Row) (*domain.Incident, error) {
	var inc domain.Incident
	err := row.Scan(
		&inc.ID,
		&inc.MonitorID,
		&inc.TeamID,
		&inc.Title,
		&inc.Description,
		&inc.Status,
		&inc.Severity,
		&inc.StartedAt,
		&inc.ResolvedAt,
		&inc.DurationSeconds,
		&inc.Metadata,
		&inc.CreatedAt,
		&inc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inc, nil
}
