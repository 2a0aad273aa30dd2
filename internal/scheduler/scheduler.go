// Package scheduler drives the check loop: it finds due monitors, fans their
// probes out to a bounded worker pool, and feeds every result through the
// persistence and incident pipeline.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pulsegarden/pulsegarden/internal/config"
	"github.com/pulsegarden/pulsegarden/internal/domain"
	"github.com/pulsegarden/pulsegarden/internal/incident"
	"github.com/pulsegarden/pulsegarden/internal/monitor"
	"github.com/pulsegarden/pulsegarden/internal/pkg/ctxlog"
	"github.com/pulsegarden/pulsegarden/internal/probe"
)

// ErrCheckInProgress is returned when a check is requested for a monitor
// that already has one in flight.
var ErrCheckInProgress = errors.New("check already in progress")

// uptimeWindow is the rolling window for the monitor uptime percentage.
const uptimeWindow = 30 * 24 * time.Hour

// Observer feeds check results into the incident state machine.
type Observer interface {
	Observe(ctx context.Context, m *domain.Monitor, res *domain.CheckResult) (*incident.Event, error)
}

// Dispatcher delivers incident transition alerts.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev incident.Event) error
}

// Service owns the periodic check loop and the on-demand check surface.
// At most one check per monitor runs at a time; a tick overlapping a slow
// in-flight check skips that monitor instead of piling up.
type Service struct {
	monitors   monitor.Repository
	checks     monitor.CheckStore
	executor   probe.Executor
	observer   Observer
	dispatcher Dispatcher

	tick       time.Duration
	batchLimit int
	sem        chan struct{}

	mu       sync.Mutex
	inFlight map[string]struct{}

	wg  sync.WaitGroup
	now func() time.Time
}

// NewService creates a scheduler over the given pipeline collaborators.
func NewService(
	monitors monitor.Repository,
	checks monitor.CheckStore,
	executor probe.Executor,
	observer Observer,
	dispatcher Dispatcher,
	cfg config.SchedulerConfig,
) *Service {
	workers := cfg.Workers
	if workers < 1 {
		workers = 10
	}
	batchLimit := cfg.BatchLimit
	if batchLimit < 1 {
		batchLimit = 100
	}
	tick := cfg.Tick
	if tick <= 0 {
		tick = 30 * time.Second
	}

	return &Service{
		monitors:   monitors,
		checks:     checks,
		executor:   executor,
		observer:   observer,
		dispatcher: dispatcher,
		tick:       tick,
		batchLimit: batchLimit,
		sem:        make(chan struct{}, workers),
		inFlight:   make(map[string]struct{}),
		now:        time.Now,
	}
}

// Run executes the tick loop until the context is cancelled, then waits for
// in-flight checks to finish. The first tick fires immediately.
func (s *Service) Run(ctx context.Context) error {
	log := ctxlog.FromContext(ctx)
	log.Info("scheduler started",
		"tick", s.tick.String(),
		"workers", cap(s.sem),
		"batch_limit", s.batchLimit,
	)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.runTick(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler stopping, waiting for in-flight checks")
			s.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			s.runTick(ctx)
		}
	}
}

func (s *Service) runTick(ctx context.Context) {
	start := time.Now()
	results, err := s.RunAllDueChecks(ctx)
	if err != nil {
		recordTickError()
		ctxlog.FromContext(ctx).Warn("scheduler tick failed", "error", err)
	}
	if len(results) > 0 {
		ctxlog.FromContext(ctx).Debug("scheduler tick complete",
			"checked", len(results),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	observeTickDuration(time.Since(start))
}

// RunAllDueChecks probes every enabled monitor whose interval has elapsed
// and returns the results keyed by monitor ID. Monitors with a check
// already in flight are skipped. Per-monitor failures are logged and
// counted; they never abort the batch.
func (s *Service) RunAllDueChecks(ctx context.Context) (map[string]domain.CheckResult, error) {
	due, err := s.monitors.FindDue(ctx, s.now().UTC(), s.batchLimit)
	if err != nil {
		return nil, fmt.Errorf("find due monitors: %w", err)
	}
	recordDue(len(due))

	results := make(map[string]domain.CheckResult, len(due))
	var resMu sync.Mutex
	var batch sync.WaitGroup

	for i := range due {
		m := due[i]
		if !s.acquire(m.ID) {
			ctxlog.FromContext(ctx).Debug("check already in flight, skipping",
				"monitor_id", m.ID,
			)
			continue
		}

		s.sem <- struct{}{}
		s.wg.Add(1)
		batch.Add(1)

		go func() {
			defer func() {
				s.release(m.ID)
				<-s.sem
				s.wg.Done()
				batch.Done()
			}()

			res, err := s.runCheck(ctx, &m)
			if err != nil {
				ctxlog.FromContext(ctx).Error("check failed",
					"monitor_id", m.ID,
					"monitor_name", m.Name,
					"error", err,
				)
				return
			}

			resMu.Lock()
			results[m.ID] = *res
			resMu.Unlock()
		}()
	}

	batch.Wait()
	return results, nil
}

// RunCheckNow probes a single monitor immediately, regardless of its
// schedule, and runs the full result pipeline. Returns ErrCheckInProgress
// when the monitor already has a check in flight.
func (s *Service) RunCheckNow(ctx context.Context, monitorID string) (*domain.CheckResult, error) {
	m, err := s.monitors.GetByID(ctx, monitorID)
	if err != nil {
		return nil, err
	}

	if !s.acquire(m.ID) {
		return nil, fmt.Errorf("%w: %s", ErrCheckInProgress, m.ID)
	}
	defer s.release(m.ID)

	s.sem <- struct{}{}
	s.wg.Add(1)
	defer func() {
		<-s.sem
		s.wg.Done()
	}()

	return s.runCheck(ctx, m)
}

// runCheck executes one probe and drives the result through persistence,
// uptime recomputation, and the incident state machine. Pipeline-stage
// failures after a successful probe are logged, not propagated; the check
// result itself is the contract.
func (s *Service) runCheck(ctx context.Context, m *domain.Monitor) (*domain.CheckResult, error) {
	// A started check runs to completion even when shutdown cancels the
	// caller; the probe itself is still bounded by the monitor's timeout.
	ctx = context.WithoutCancel(ctx)

	res, err := s.executor.Check(ctx, m)
	if err != nil {
		if !errors.Is(err, probe.ErrUnsupportedKind) {
			recordCheck("error")
			return nil, fmt.Errorf("probe monitor %s: %w", m.ID, err)
		}
		// A misconfigured kind still yields a persisted error check, so
		// the monitor advances its schedule instead of being re-selected
		// on every tick.
		res = &domain.CheckResult{
			MonitorID:     m.ID,
			Status:        domain.CheckStatusError,
			MonitorStatus: domain.MonitorStatusDown,
			CheckedAt:     s.now().UTC(),
			ErrorMessage:  err.Error(),
		}
	}
	recordCheck(string(res.Status))

	log := ctxlog.FromContext(ctx)

	if err := s.checks.CreateCheck(ctx, res); err != nil {
		log.Error("failed to persist check", "monitor_id", m.ID, "error", err)
	}

	if err := s.monitors.UpdateCheckResult(ctx, m.ID, res); err != nil {
		log.Error("failed to update monitor state", "monitor_id", m.ID, "error", err)
	}

	// Keep the in-memory copy current; alert payloads read it downstream.
	m.LastStatus = res.MonitorStatus
	m.LastCheckedAt = &res.CheckedAt
	m.LastResponseTimeMS = res.ResponseTimeMS

	s.refreshUptime(ctx, m.ID)
	s.transition(ctx, m, res)

	return res, nil
}

func (s *Service) refreshUptime(ctx context.Context, monitorID string) {
	log := ctxlog.FromContext(ctx)

	since := s.now().UTC().Add(-uptimeWindow)
	percent, err := s.checks.UptimeSince(ctx, monitorID, since)
	if err != nil {
		log.Error("failed to compute uptime", "monitor_id", monitorID, "error", err)
		return
	}
	if err := s.monitors.UpdateUptime(ctx, monitorID, percent); err != nil {
		log.Error("failed to update uptime", "monitor_id", monitorID, "error", err)
	}
}

func (s *Service) transition(ctx context.Context, m *domain.Monitor, res *domain.CheckResult) {
	log := ctxlog.FromContext(ctx)

	ev, err := s.observer.Observe(ctx, m, res)
	if err != nil {
		log.Error("incident transition failed", "monitor_id", m.ID, "error", err)
		return
	}
	if ev == nil {
		return
	}

	if err := s.dispatcher.Dispatch(ctx, *ev); err != nil {
		log.Error("alert dispatch failed",
			"monitor_id", m.ID,
			"incident_id", ev.Incident.ID,
			"error", err,
		)
	}
}

// acquire marks a monitor as having a check in flight. Returns false when
// one is already running.
func (s *Service) acquire(monitorID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inFlight[monitorID]; ok {
		return false
	}
	s.inFlight[monitorID] = struct{}{}
	return true
}

func (s *Service) release(monitorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, monitorID)
}
