package domain

import "time"

// ProbeKind identifies how a monitor's target is checked.
type ProbeKind string

// Probe kinds. Only HTTP and HTTPS probes are implemented; ping and dns are
// declared so that configuring them fails loudly instead of silently falling
// back to an HTTP probe.
const (
	ProbeKindHTTP  ProbeKind = "http"
	ProbeKindHTTPS ProbeKind = "https"
	ProbeKindPing  ProbeKind = "ping"
	ProbeKindDNS   ProbeKind = "dns"
)

// MonitorStatus represents the last observed status of a monitor.
type MonitorStatus string

// Monitor statuses.
const (
	MonitorStatusUp     MonitorStatus = "up"
	MonitorStatusDown   MonitorStatus = "down"
	MonitorStatusPaused MonitorStatus = "paused"
)

// Monitor is a user-configured endpoint checked on a recurring interval.
// Monitors are created and deleted by the CRUD surface; the engine only
// mutates the denormalized check fields after each probe.
type Monitor struct {
	ID                 string            `json:"id"`
	TeamID             string            `json:"team_id"`
	Name               string            `json:"name"`
	URL                string            `json:"url"`
	Kind               ProbeKind         `json:"kind"`
	Method             string            `json:"method"`
	IntervalSeconds    int               `json:"interval_seconds"`
	TimeoutSeconds     int               `json:"timeout_seconds"`
	IsEnabled          bool              `json:"is_enabled"`
	CheckSSL           bool              `json:"check_ssl"`
	Keyword            string            `json:"keyword,omitempty"`
	ExpectedStatus     int               `json:"expected_status"`
	Headers            map[string]string `json:"headers,omitempty"`
	Body               string            `json:"body,omitempty"`
	LastCheckedAt      *time.Time        `json:"last_checked_at"`
	LastStatus         MonitorStatus     `json:"last_status"`
	LastResponseTimeMS *int64            `json:"last_response_time_ms"`
	UptimePercent      float64           `json:"uptime_percent"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// Due reports whether the monitor's interval has elapsed at the given time.
// A monitor that has never been checked is always due.
func (m *Monitor) Due(now time.Time) bool {
	if m.LastCheckedAt == nil {
		return true
	}
	next := m.LastCheckedAt.Add(time.Duration(m.IntervalSeconds) * time.Second)
	return !now.Before(next)
}

// Timeout returns the per-monitor probe timeout as a duration.
func (m *Monitor) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}
