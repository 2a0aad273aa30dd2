package domain

import "time"

// CheckStatus classifies the outcome of a single probe.
type CheckStatus string

// Check statuses.
const (
	CheckStatusSuccess CheckStatus = "success"
	CheckStatusFailure CheckStatus = "failure"
	CheckStatusTimeout CheckStatus = "timeout"
	CheckStatusError   CheckStatus = "error"
)

// CheckResult is the immutable outcome of one probe against one monitor.
// Probe-level failures travel through the pipeline as data inside this
// struct, never as Go errors.
type CheckResult struct {
	ID             string        `json:"id"`
	MonitorID      string        `json:"monitor_id"`
	Status         CheckStatus   `json:"status"`
	StatusCode     *int          `json:"status_code"`
	ResponseTimeMS *int64        `json:"response_time_ms"`
	ErrorMessage   string        `json:"error_message,omitempty"`
	SSLValid       *bool         `json:"ssl_valid,omitempty"`
	SSLExpiresAt   *time.Time    `json:"ssl_expires_at,omitempty"`
	KeywordFound   *bool         `json:"keyword_found,omitempty"`
	DNSResolved    bool          `json:"dns_resolved"`
	MonitorStatus  MonitorStatus `json:"monitor_status"`
	CheckedAt      time.Time     `json:"checked_at"`
}

// Up reports whether the probe derived an up status for the monitor.
func (r *CheckResult) Up() bool {
	return r.MonitorStatus == MonitorStatusUp
}
