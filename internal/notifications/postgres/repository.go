// Package postgres provides the PostgreSQL implementation of the channel
// store and alert audit store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pulsegarden/pulsegarden/internal/domain"
	"github.com/pulsegarden/pulsegarden/internal/notifications"
)

// Repository implements notifications.ChannelStore and
// notifications.AuditStore using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetTeamChannels returns the team's notification channels.
func (r *Repository) GetTeamChannels(ctx context.Context, teamID string, enabledOnly bool) ([]domain.NotificationChannel, error) {
	query := `
		SELECT id, team_id, type, config, is_enabled, created_at, updated_at
		FROM notification_channels
		WHERE team_id = $1 AND (NOT $2 OR is_enabled = TRUE)
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, teamID, enabledOnly)
	if err != nil {
		return nil, fmt.Errorf("get team channels: %w", err)
	}
	defer rows.Close()

	channels := make([]domain.NotificationChannel, 0)
	for rows.Next() {
		var ch domain.NotificationChannel
		err := rows.Scan(
			&ch.ID,
			&ch.TeamID,
			&ch.Type,
			&ch.Config,
			&ch.IsEnabled,
			&ch.CreatedAt,
			&ch.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, ch)
	}

	return channels, rows.Err()
}

// RecordPending inserts an audit row for a delivery attempt.
func (r *Repository) RecordPending(ctx context.Context, incidentID, channelID string) (string, error) {
	query := `
		INSERT INTO alerts_sent (id, incident_id, channel_id, status)
		VALUES ($1, $2, $3, $4)
	`
	id := uuid.NewString()
	_, err := r.db.Exec(ctx, query, id, incidentID, channelID, domain.AlertStatusPending)
	if err != nil {
		return "", fmt.Errorf("record pending alert: %w", err)
	}
	return id, nil
}

// MarkSent marks a delivery attempt as sent.
func (r *Repository) MarkSent(ctx context.Context, alertID string, sentAt time.Time) error {
	query := `
		UPDATE alerts_sent
		SET status = $2, sent_at = $3
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, alertID, domain.AlertStatusSent, sentAt)
	if err != nil {
		return fmt.Errorf("mark alert sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notifications.ErrAlertNotFound
	}
	return nil
}

// MarkFailed marks a delivery attempt as failed with the error text.
func (r *Repository) MarkFailed(ctx context.Context, alertID, message string) error {
	query := `
		UPDATE alerts_sent
		SET status = $2, error_message = $3
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, alertID, domain.AlertStatusFailed, message)
	if err != nil {
		return fmt.Errorf("mark alert failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notifications.ErrAlertNotFound
	}
	return nil
}

// ListByIncident returns the incident's delivery attempts, oldest first.
func (r *Repository) ListByIncident(ctx context.Context, incidentID string) ([]domain.AlertSent, error) {
	query := `
		SELECT id, incident_id, channel_id, status, COALESCE(error_message, ''), sent_at, created_at
		FROM alerts_sent
		WHERE incident_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]domain.AlertSent, 0)
	for rows.Next() {
		var a domain.AlertSent
		err := rows.Scan(
			&a.ID,
			&a.IncidentID,
			&a.ChannelID,
			&a.Status,
			&a.ErrorMessage,
			&a.SentAt,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}

// GetChannelByID retrieves one channel by ID.
func (r *Repository) GetChannelByID(ctx context.Context, id string) (*domain.NotificationChannel, error) {
	query := `
		SELECT id, team_id, type, config, is_enabled, created_at, updated_at
		FROM notification_channels
		WHERE id = $1
	`
	var ch domain.NotificationChannel
	err := r.db.QueryRow(ctx, query, id).Scan(
		&ch.ID,
		&ch.TeamID,
		&ch.Type,
		&ch.Config,
		&ch.IsEnabled,
		&ch.CreatedAt,
		&ch.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notifications.ErrChannelNotFound
		}
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return &ch, nil
}
