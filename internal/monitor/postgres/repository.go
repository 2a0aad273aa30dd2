// Package postgres provides the PostgreSQL implementation of the monitor
// repository and check store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pulsegarden/pulsegarden/internal/domain"
	"github.com/pulsegarden/pulsegarden/internal/monitor"
)

// Repository implements monitor.Repository and monitor.CheckStore using
// PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const monitorColumns = `
	id, team_id, name, url, kind, method, interval_seconds, timeout_seconds,
	is_enabled, check_ssl, keyword, expected_status, headers, body,
	last_checked_at, last_status, last_response_time_ms, uptime_percent,
	created_at, updated_at
`

// FindEnabled returns all enabled monitors.
func (r *Repository) FindEnabled(ctx context.Context) ([]domain.Monitor, error) {
	query := `
		SELECT ` + monitorColumns + `
		FROM monitors
		WHERE is_enabled = TRUE
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("find enabled monitors: %w", err)
	}
	defer rows.Close()

	return scanMonitors(rows)
}

// FindDue returns enabled monitors whose interval has elapsed, relying on
// the partial index on next-due rather than a full scan.
func (r *Repository) FindDue(ctx context.Context, now time.Time, limit int) ([]domain.Monitor, error) {
	query := `
		SELECT ` + monitorColumns + `
		FROM monitors
		WHERE is_enabled = TRUE
		  AND (last_checked_at IS NULL
		       OR last_checked_at + make_interval(secs => interval_seconds) <= $1)
		ORDER BY last_checked_at ASC NULLS FIRST
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("find due monitors: %w", err)
	}
	defer rows.Close()

	return scanMonitors(rows)
}

// GetByID retrieves one monitor by ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Monitor, error) {
	query := `
		SELECT ` + monitorColumns + `
		FROM monitors
		WHERE id = $1
	`
	row := r.db.QueryRow(ctx, query, id)

	m, err := scanMonitor(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, monitor.ErrMonitorNotFound
		}
		return nil, fmt.Errorf("get monitor: %w", err)
	}
	return m, nil
}

// UpdateCheckResult writes the denormalized check fields onto the monitor row.
func (r *Repository) UpdateCheckResult(ctx context.Context, id string, res *domain.CheckResult) error {
	query := `
		UPDATE monitors
		SET last_checked_at = $2,
		    last_status = $3,
		    last_response_time_ms = $4,
		    updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, res.CheckedAt, res.MonitorStatus, res.ResponseTimeMS)
	if err != nil {
		return fmt.Errorf("update check result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return monitor.ErrMonitorNotFound
	}
	return nil
}

// UpdateUptime persists the rolling uptime percentage.
func (r *Repository) UpdateUptime(ctx context.Context, id string, percent float64) error {
	query := `
		UPDATE monitors
		SET uptime_percent = $2, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.Exec(ctx, query, id, percent); err != nil {
		return fmt.Errorf("update uptime: %w", err)
	}
	return nil
}

// CreateCheck appends one check result to the history.
func (r *Repository) CreateCheck(ctx context.Context, res *domain.CheckResult) error {
	query := `
		INSERT INTO checks (
			monitor_id, status, status_code, response_time_ms, error_message,
			ssl_valid, ssl_expires_at, keyword_found, dns_resolved,
			monitor_status, checked_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		res.MonitorID,
		res.Status,
		res.StatusCode,
		res.ResponseTimeMS,
		nullIfEmpty(res.ErrorMessage),
		res.SSLValid,
		res.SSLExpiresAt,
		res.KeywordFound,
		res.DNSResolved,
		res.MonitorStatus,
		res.CheckedAt,
	).Scan(&res.ID)
	if err != nil {
		return fmt.Errorf("create check: %w", err)
	}
	return nil
}

// ListChecks returns the most recent checks for a monitor, newest first.
func (r *Repository) ListChecks(ctx context.Context, monitorID string, limit int) ([]domain.CheckResult, error) {
	query := `
		SELECT id, monitor_id, status, status_code, response_time_ms,
		       COALESCE(error_message, ''), ssl_valid, ssl_expires_at,
		       keyword_found, dns_resolved, monitor_status, checked_at
		FROM checks
		WHERE monitor_id = $1
		ORDER BY checked_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, monitorID, limit)
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	defer rows.Close()

	checks := make([]domain.CheckResult, 0)
	for rows.Next() {
		var c domain.CheckResult
		err := rows.Scan(
			&c.ID,
			&c.MonitorID,
			&c.Status,
			&c.StatusCode,
			&c.ResponseTimeMS,
			&c.ErrorMessage,
			&c.SSLValid,
			&c.SSLExpiresAt,
			&c.KeywordFound,
			&c.DNSResolved,
			&c.MonitorStatus,
			&c.CheckedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		checks = append(checks, c)
	}

	return checks, rows.Err()
}

// UptimeSince computes the successful-check percentage over the window.
func (r *Repository) UptimeSince(ctx context.Context, monitorID string, since time.Time) (float64, error) {
	query := `
		SELECT CASE
		       WHEN COUNT(*) = 0 THEN 100
		       ELSE ROUND(100.0 * COUNT(*) FILTER (WHERE status = 'success') / COUNT(*), 2)
		       END
		FROM checks
		WHERE monitor_id = $1 AND checked_at >= $2
	`
	var percent float64
	if err := r.db.QueryRow(ctx, query, monitorID, since).Scan(&percent); err != nil {
		return 0, fmt.Errorf("compute uptime: %w", err)
	}
	return percent, nil
}

func scanMonitors(rows pgx.Rows) ([]domain.Monitor, error) {
	monitors := make([]domain.Monitor, 0)
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan monitor: %w", err)
		}
		monitors = append(monitors, *m)
	}
	return monitors, rows.Err()
}

func scanMonitor(row pgx.Row) (*domain.Monitor, error) {
	var m domain.Monitor
	err := row.Scan(
		&m.ID,
		&m.TeamID,
		&m.Name,
		&m.URL,
		&m.Kind,
		&m.Method,
		&m.IntervalSeconds,
		&m.TimeoutSeconds,
		&m.IsEnabled,
		&m.CheckSSL,
		&m.Keyword,
		&m.ExpectedStatus,
		&m.Headers,
		&m.Body,
		&m.LastCheckedAt,
		&m.LastStatus,
		&m.LastResponseTimeMS,
		&m.UptimePercent,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
