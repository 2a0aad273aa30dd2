// Package probe executes network checks against monitor targets.
package probe

import (
	"context"
	"errors"

	"github.com/pulsegarden/pulsegarden/internal/domain"
)

// ErrUnsupportedKind is returned when a monitor is configured with a probe
// kind that has no executor implementation (ping, dns).
var ErrUnsupportedKind = errors.New("unsupported probe kind")

// Executor performs one check against one monitor and produces a CheckResult.
// Probe-level failures (bad status, missing keyword, expired certificate,
// transport errors) are data inside the result, not Go errors; the returned
// error is reserved for misconfiguration such as an unsupported probe kind.
type Executor interface {
	Check(ctx context.Context, m *domain.Monitor) (*domain.CheckResult, error)
}

// Supported reports whether the given probe kind has an implementation.
func Supported(kind domain.ProbeKind) bool {
	switch kind {
	case domain.ProbeKindHTTP, domain.ProbeKindHTTPS:
		return true
	default:
		return false
	}
}
