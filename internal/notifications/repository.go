package notifications

import (
	"context"
	"time"

	"github.com/pulsegarden/pulsegarden/internal/domain"
)

// ChannelStore exposes team notification channels. The engine reads channels
// only; creation and verification belong to the CRUD surface.
type ChannelStore interface {
	// GetTeamChannels returns the team's channels. With enabledOnly set,
	// disabled channels are filtered out.
	GetTeamChannels(ctx context.Context, teamID string, enabledOnly bool) ([]domain.NotificationChannel, error)
}

// AuditStore records per-channel delivery outcomes. Every delivery attempt
// starts as pending and ends as sent or failed; failed is terminal.
type AuditStore interface {
	// RecordPending inserts the audit row for a delivery attempt and
	// returns its ID.
	RecordPending(ctx context.Context, incidentID, channelID string) (string, error)

	// MarkSent marks the attempt delivered.
	MarkSent(ctx context.Context, alertID string, sentAt time.Time) error

	// MarkFailed marks the attempt failed with the error text.
	MarkFailed(ctx context.Context, alertID, message string) error

	// ListByIncident returns the incident's delivery attempts, oldest first.
	ListByIncident(ctx context.Context, incidentID string) ([]domain.AlertSent, error)
}
