// Package notifications delivers incident alerts to team notification
// channels and records a per-channel delivery audit trail.
package notifications

import (
	"time"

	"github.com/pulsegarden/pulsegarden/internal/domain"
	"github.com/pulsegarden/pulsegarden/internal/incident"
)

// MessageType defines the kind of alert message.
type MessageType string

// Message types.
const (
	MessageTypeOpened   MessageType = "opened"   // incident opened
	MessageTypeResolved MessageType = "resolved" // incident resolved
)

// Alert is the fully-prepared delivery unit handed to a channel sender.
// Subject and Body are pre-rendered for template-based channels; the webhook
// sender ignores them and builds its JSON envelope from Monitor and Incident.
type Alert struct {
	Type      MessageType
	Monitor   *domain.Monitor
	Incident  *domain.Incident
	Subject   string
	Body      string
	Timestamp time.Time
}

// messageType maps an incident transition to an alert message type.
func messageType(kind incident.EventKind) MessageType {
	if kind == incident.EventResolved {
		return MessageTypeResolved
	}
	return MessageTypeOpened
}

// Payload contains the data available to message templates.
type Payload struct {
	MessageType MessageType  `json:"message_type"`
	Monitor     MonitorData  `json:"monitor"`
	Incident    IncidentData `json:"incident"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// MonitorData contains monitor information for rendering.
type MonitorData struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

// IncidentData contains incident information for rendering.
type IncidentData struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      string        `json:"status"`
	Severity    string        `json:"severity"`
	StartedAt   time.Time     `json:"started_at"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
}

// NewPayload builds the template payload for an incident transition.
func NewPayload(ev incident.Event, generatedAt time.Time) Payload {
	p := Payload{
		MessageType: messageType(ev.Kind),
		Monitor: MonitorData{
			ID:     ev.Monitor.ID,
			Name:   ev.Monitor.Name,
			URL:    ev.Monitor.URL,
			Status: string(ev.Monitor.LastStatus),
		},
		Incident: IncidentData{
			ID:          ev.Incident.ID,
			Title:       ev.Incident.Title,
			Description: ev.Incident.Description,
			Status:      string(ev.Incident.Status),
			Severity:    string(ev.Incident.Severity),
			StartedAt:   ev.Incident.StartedAt,
			ResolvedAt:  ev.Incident.ResolvedAt,
		},
		GeneratedAt: generatedAt,
	}

	if ev.Incident.DurationSeconds != nil {
		p.Incident.Duration = time.Duration(*ev.Incident.DurationSeconds) * time.Second
	}

	return p
}
