package incident

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pulsegarden/pulsegarden/internal/domain"
	"github.com/pulsegarden/pulsegarden/internal/pkg/ctxlog"
)

// EventKind identifies an incident lifecycle transition.
type EventKind string

// Event kinds.
const (
	EventOpened   EventKind = "opened"
	EventResolved EventKind = "resolved"
)

// Event is emitted by the coordinator on an actual transition: a monitor
// going down with no active incident, or an active incident recovering.
// No event is emitted while a monitor stays down or stays up.
type Event struct {
	Kind     EventKind
	Monitor  domain.Monitor
	Incident domain.Incident
}

// Coordinator drives the per-monitor incident state machine. A monitor is
// healthy when it has no active incident and degraded when exactly one
// unresolved incident exists.
type Coordinator struct {
	repo Repository
	now  func() time.Time
}

// NewCoordinator creates a coordinator over the given ledger.
func NewCoordinator(repo Repository) *Coordinator {
	return &Coordinator{repo: repo, now: time.Now}
}

// Observe feeds one check result into the state machine and returns the
// transition event, if any.
//
// A single down result opens an incident; there is no consecutive-failure
// debounce.
func (c *Coordinator) Observe(ctx context.Context, m *domain.Monitor, res *domain.CheckResult) (*Event, error) {
	active, err := c.repo.FindActiveByMonitor(ctx, m.ID)
	if err != nil {
		if !errors.Is(err, ErrNoActiveIncident) {
			return nil, fmt.Errorf("find active incident: %w", err)
		}
		active = nil
	}

	down := res.MonitorStatus == domain.MonitorStatusDown

	switch {
	case down && active == nil:
		return c.open(ctx, m, res)
	case !down && active != nil:
		return c.resolve(ctx, m, active)
	default:
		// Degraded->degraded: the active incident absorbs the failure.
		// Healthy->healthy: nothing to do.
		return nil, nil
	}
}

func (c *Coordinator) open(ctx context.Context, m *domain.Monitor, res *domain.CheckResult) (*Event, error) {
	now := c.now().UTC()

	inc := &domain.Incident{
		ID:          uuid.NewString(),
		MonitorID:   m.ID,
		TeamID:      m.TeamID,
		Title:       fmt.Sprintf("%s is down", m.Name),
		Description: res.ErrorMessage,
		Status:      domain.IncidentStatusInvestigating,
		Severity:    domain.IncidentSeverityMajor,
		StartedAt:   now,
		Metadata: map[string]interface{}{
			"check_result": res,
		},
	}

	if err := c.repo.Create(ctx, inc); err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}

	ctxlog.FromContext(ctx).Info("incident opened",
		"incident_id", inc.ID,
		"monitor_id", m.ID,
		"monitor_name", m.Name,
		"error", res.ErrorMessage,
	)

	return &Event{Kind: EventOpened, Monitor: *m, Incident: *inc}, nil
}

func (c *Coordinator) resolve(ctx context.Context, m *domain.Monitor, active *domain.Incident) (*Event, error) {
	now := c.now().UTC()

	startedAt := active.StartedAt
	if startedAt.IsZero() {
		startedAt = active.CreatedAt
	}
	duration := int64(now.Sub(startedAt).Seconds())

	if err := c.repo.Resolve(ctx, active.ID, now, duration); err != nil {
		return nil, fmt.Errorf("resolve incident: %w", err)
	}

	resolved := *active
	resolved.Status = domain.IncidentStatusResolved
	resolved.ResolvedAt = &now
	resolved.DurationSeconds = &duration

	ctxlog.FromContext(ctx).Info("incident resolved",
		"incident_id", active.ID,
		"monitor_id", m.ID,
		"monitor_name", m.Name,
		"duration_seconds", duration,
	)

	return &Event{Kind: EventResolved, Monitor: *m, Incident: resolved}, nil
}
