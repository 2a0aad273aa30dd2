package domain

import (
	"encoding/json"
	"time"
)

// ChannelType represents the type of a notification channel.
type ChannelType string

// Channel types.
const (
	ChannelTypeEmail    ChannelType = "email"
	ChannelTypeTelegram ChannelType = "telegram"
	ChannelTypeWebhook  ChannelType = "webhook"
	ChannelTypeWhatsApp ChannelType = "whatsapp"
)

// NotificationChannel is a team-scoped alert destination. The engine consumes
// channels read-only; creation and verification belong to the CRUD surface.
// Config is a type-specific blob parsed by the matching sender.
type NotificationChannel struct {
	ID        string          `json:"id"`
	TeamID    string          `json:"team_id"`
	Type      ChannelType     `json:"type"`
	Config    json.RawMessage `json:"config"`
	IsEnabled bool            `json:"is_enabled"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// AlertStatus represents the delivery state of one alert attempt.
type AlertStatus string

// Alert delivery statuses. Failed is terminal; the engine never retries a
// delivery attempt.
const (
	AlertStatusPending AlertStatus = "pending"
	AlertStatusSent    AlertStatus = "sent"
	AlertStatusFailed  AlertStatus = "failed"
)

// AlertSent is the audit row for one (incident, channel) delivery attempt.
type AlertSent struct {
	ID           string      `json:"id"`
	IncidentID   string      `json:"incident_id"`
	ChannelID    string      `json:"channel_id"`
	Status       AlertStatus `json:"status"`
	ErrorMessage string      `json:"error_message,omitempty"`
	SentAt       *time.Time  `json:"sent_at"`
	CreatedAt    time.Time   `json:"created_at"`
}
