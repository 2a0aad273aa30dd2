package domain

import "time"

// IncidentStatus represents the lifecycle state of an incident.
type IncidentStatus string

// Incident statuses.
const (
	IncidentStatusInvestigating IncidentStatus = "investigating"
	IncidentStatusIdentified    IncidentStatus = "identified"
	IncidentStatusMonitoring    IncidentStatus = "monitoring"
	IncidentStatusResolved      IncidentStatus = "resolved"
)

// IncidentSeverity represents the severity level of an incident.
type IncidentSeverity string

// Severity levels.
const (
	IncidentSeverityMinor    IncidentSeverity = "minor"
	IncidentSeverityMajor    IncidentSeverity = "major"
	IncidentSeverityCritical IncidentSeverity = "critical"
)

// Incident represents a contiguous period during which a monitor was down.
// At most one non-resolved incident exists per monitor at any time.
type Incident struct {
	ID              string                 `json:"id"`
	MonitorID       string                 `json:"monitor_id"`
	TeamID          string                 `json:"team_id"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	Status          IncidentStatus         `json:"status"`
	Severity        IncidentSeverity       `json:"severity"`
	StartedAt       time.Time              `json:"started_at"`
	ResolvedAt      *time.Time             `json:"resolved_at"`
	DurationSeconds *int64                 `json:"duration_seconds"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// Resolved reports whether the incident has been resolved.
func (i *Incident) Resolved() bool {
	return i.ResolvedAt != nil
}
