package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsegarden/pulsegarden/internal/config"
	"github.com/pulsegarden/pulsegarden/internal/domain"
	"github.com/pulsegarden/pulsegarden/internal/incident"
	"github.com/pulsegarden/pulsegarden/internal/monitor"
	"github.com/pulsegarden/pulsegarden/internal/probe"
)

type fakeMonitorRepo struct {
	mu       sync.Mutex
	monitors map[string]*domain.Monitor
	due      []domain.Monitor

	updatedResults map[string]*domain.CheckResult
	updatedUptime  map[string]float64
}

func newFakeMonitorRepo(due ...domain.Monitor) *fakeMonitorRepo {
	r := &fakeMonitorRepo{
		monitors:       make(map[string]*domain.Monitor),
		due:            due,
		updatedResults: make(map[string]*domain.CheckResult),
		updatedUptime:  make(map[string]float64),
	}
	for i := range due {
		m := due[i]
		r.monitors[m.ID] = &m
	}
	return r
}

func (r *fakeMonitorRepo) FindEnabled(_ context.Context) ([]domain.Monitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.due, nil
}

func (r *fakeMonitorRepo) FindDue(_ context.Context, _ time.Time, limit int) ([]domain.Monitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.due) > limit {
		return r.due[:limit], nil
	}
	return r.due, nil
}

func (r *fakeMonitorRepo) GetByID(_ context.Context, id string) (*domain.Monitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.monitors[id]
	if !ok {
		return nil, monitor.ErrMonitorNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMonitorRepo) UpdateCheckResult(_ context.Context, id string, res *domain.CheckResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updatedResults[id] = res
	return nil
}

func (r *fakeMonitorRepo) UpdateUptime(_ context.Context, id string, percent float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updatedUptime[id] = percent
	return nil
}

type fakeCheckStore struct {
	mu      sync.Mutex
	created []*domain.CheckResult
	uptime  float64
}

func (s *fakeCheckStore) CreateCheck(_ context.Context, res *domain.CheckResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, res)
	return nil
}

func (s *fakeCheckStore) ListChecks(_ context.Context, _ string, _ int) ([]domain.CheckResult, error) {
	return nil, nil
}

func (s *fakeCheckStore) UptimeSince(_ context.Context, _ string, _ time.Time) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uptime, nil
}

type fakeExecutor struct {
	check func(ctx context.Context, m *domain.Monitor) (*domain.CheckResult, error)
}

func (e *fakeExecutor) Check(ctx context.Context, m *domain.Monitor) (*domain.CheckResult, error) {
	return e.check(ctx, m)
}

type fakeObserver struct {
	mu       sync.Mutex
	observed []string
	event    *incident.Event
}

func (o *fakeObserver) Observe(_ context.Context, m *domain.Monitor, _ *domain.CheckResult) (*incident.Event, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observed = append(o.observed, m.ID)
	return o.event, nil
}

type fakeDispatcher struct {
	mu         sync.Mutex
	dispatched []incident.Event
}

func (d *fakeDispatcher) Dispatch(_ context.Context, ev incident.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dispatched = append(d.dispatched, ev)
	return nil
}

func (d *fakeDispatcher) events() []incident.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]incident.Event(nil), d.dispatched...)
}

func testMonitor(id string) domain.Monitor {
	return domain.Monitor{
		ID:              id,
		TeamID:          "team-1",
		Name:            "monitor " + id,
		URL:             "https://example.com",
		Kind:            domain.ProbeKindHTTPS,
		IntervalSeconds: 60,
		TimeoutSeconds:  30,
		IsEnabled:       true,
	}
}

func successResult(monitorID string) *domain.CheckResult {
	return &domain.CheckResult{
		MonitorID:     monitorID,
		Status:        domain.CheckStatusSuccess,
		MonitorStatus: domain.MonitorStatusUp,
		CheckedAt:     time.Now().UTC(),
	}
}

func testConfig() config.SchedulerConfig {
	return config.SchedulerConfig{Tick: time.Minute, Workers: 4, BatchLimit: 100}
}

func TestRunAllDueChecksProbesEveryDueMonitor(t *testing.T) {
	repo := newFakeMonitorRepo(testMonitor("m1"), testMonitor("m2"), testMonitor("m3"))
	checks := &fakeCheckStore{uptime: 99.5}
	exec := &fakeExecutor{check: func(_ context.Context, m *domain.Monitor) (*domain.CheckResult, error) {
		return successResult(m.ID), nil
	}}
	obs := &fakeObserver{}
	disp := &fakeDispatcher{}

	svc := NewService(repo, checks, exec, obs, disp, testConfig())

	results, err := svc.RunAllDueChecks(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	for _, id := range []string{"m1", "m2", "m3"} {
		res, ok := results[id]
		require.True(t, ok, "missing result for %s", id)
		assert.Equal(t, domain.CheckStatusSuccess, res.Status)
	}

	assert.Len(t, checks.created, 3)
	assert.Len(t, repo.updatedResults, 3)
	assert.Equal(t, 99.5, repo.updatedUptime["m1"])
	assert.Len(t, obs.observed, 3)
	assert.Empty(t, disp.events())
}

func TestRunAllDueChecksIsolatesProbeErrors(t *testing.T) {
	repo := newFakeMonitorRepo(testMonitor("good"), testMonitor("bad"))
	checks := &fakeCheckStore{uptime: 100}
	exec := &fakeExecutor{check: func(_ context.Context, m *domain.Monitor) (*domain.CheckResult, error) {
		if m.ID == "bad" {
			return nil, errors.New("executor wedged")
		}
		return successResult(m.ID), nil
	}}

	svc := NewService(repo, checks, exec, &fakeObserver{}, &fakeDispatcher{}, testConfig())

	results, err := svc.RunAllDueChecks(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results, "good")

	// The failed probe must not reach the persistence pipeline.
	assert.Len(t, checks.created, 1)
	assert.NotContains(t, repo.updatedResults, "bad")
}

func TestRunCheckNowRunsFullPipeline(t *testing.T) {
	m := testMonitor("m1")
	repo := newFakeMonitorRepo(m)
	checks := &fakeCheckStore{uptime: 75}
	exec := &fakeExecutor{check: func(_ context.Context, m *domain.Monitor) (*domain.CheckResult, error) {
		res := successResult(m.ID)
		res.Status = domain.CheckStatusFailure
		res.MonitorStatus = domain.MonitorStatusDown
		res.ErrorMessage = "Expected status 200, got 503"
		return res, nil
	}}
	obs := &fakeObserver{event: &incident.Event{
		Kind:     incident.EventOpened,
		Monitor:  m,
		Incident: domain.Incident{ID: "inc-1", MonitorID: m.ID},
	}}
	disp := &fakeDispatcher{}

	svc := NewService(repo, checks, exec, obs, disp, testConfig())

	res, err := svc.RunCheckNow(context.Background(), "m1")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, domain.CheckStatusFailure, res.Status)

	require.Len(t, checks.created, 1)
	assert.Equal(t, 75.0, repo.updatedUptime["m1"])

	events := disp.events()
	require.Len(t, events, 1)
	assert.Equal(t, incident.EventOpened, events[0].Kind)
	assert.Equal(t, "inc-1", events[0].Incident.ID)
}

func TestRunCheckNowUnknownMonitor(t *testing.T) {
	svc := NewService(newFakeMonitorRepo(), &fakeCheckStore{}, &fakeExecutor{}, &fakeObserver{}, &fakeDispatcher{}, testConfig())

	_, err := svc.RunCheckNow(context.Background(), "missing")
	require.ErrorIs(t, err, monitor.ErrMonitorNotFound)
}

func TestRunCheckNowRejectsConcurrentCheck(t *testing.T) {
	m := testMonitor("m1")
	repo := newFakeMonitorRepo(m)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	exec := &fakeExecutor{check: func(_ context.Context, m *domain.Monitor) (*domain.CheckResult, error) {
		blocking := false
		once.Do(func() {
			blocking = true
			close(started)
		})
		if blocking {
			<-release
		}
		return successResult(m.ID), nil
	}}

	svc := NewService(repo, &fakeCheckStore{}, exec, &fakeObserver{}, &fakeDispatcher{}, testConfig())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := svc.RunCheckNow(context.Background(), "m1")
		assert.NoError(t, err)
	}()

	<-started

	_, err := svc.RunCheckNow(context.Background(), "m1")
	require.ErrorIs(t, err, ErrCheckInProgress)

	close(release)
	<-done

	// The monitor is free again once the first check finishes.
	_, err = svc.RunCheckNow(context.Background(), "m1")
	require.NoError(t, err)
}

func TestRunAllDueChecksSkipsInFlightMonitor(t *testing.T) {
	m := testMonitor("m1")
	repo := newFakeMonitorRepo(m)

	started := make(chan struct{})
	release := make(chan struct{})
	exec := &fakeExecutor{check: func(_ context.Context, m *domain.Monitor) (*domain.CheckResult, error) {
		close(started)
		<-release
		return successResult(m.ID), nil
	}}

	svc := NewService(repo, &fakeCheckStore{}, exec, &fakeObserver{}, &fakeDispatcher{}, testConfig())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.RunCheckNow(context.Background(), "m1")
	}()

	<-started

	results, err := svc.RunAllDueChecks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)

	close(release)
	<-done
}

func TestShutdownLetsInFlightCheckComplete(t *testing.T) {
	repo := newFakeMonitorRepo(testMonitor("m1"))
	checks := &fakeCheckStore{uptime: 100}

	entered := make(chan struct{})
	release := make(chan struct{})
	exec := &fakeExecutor{check: func(ctx context.Context, m *domain.Monitor) (*domain.CheckResult, error) {
		close(entered)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return successResult(m.ID), nil
	}}

	svc := NewService(repo, checks, exec, &fakeObserver{}, &fakeDispatcher{}, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Run(ctx) }()

	// Cancel while the probe is mid-flight, then let it finish.
	<-entered
	cancel()
	close(release)

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}

	// The in-flight check completed and persisted despite the shutdown.
	require.Len(t, checks.created, 1)
	assert.Equal(t, domain.CheckStatusSuccess, checks.created[0].Status)
	require.Contains(t, repo.updatedResults, "m1")
	assert.Equal(t, domain.MonitorStatusUp, repo.updatedResults["m1"].MonitorStatus)
}

func TestUnsupportedKindStillAdvancesSchedule(t *testing.T) {
	m := testMonitor("ping-1")
	m.Kind = domain.ProbeKindPing
	repo := newFakeMonitorRepo(m)
	checks := &fakeCheckStore{uptime: 100}
	obs := &fakeObserver{}

	svc := NewService(repo, checks, probe.NewHTTPExecutor(probe.Config{}), obs, &fakeDispatcher{}, testConfig())

	results, err := svc.RunAllDueChecks(context.Background())
	require.NoError(t, err)
	require.Contains(t, results, "ping-1")

	res := results["ping-1"]
	assert.Equal(t, domain.CheckStatusError, res.Status)
	assert.Equal(t, domain.MonitorStatusDown, res.MonitorStatus)
	assert.Contains(t, res.ErrorMessage, "unsupported probe kind")

	// The error check is persisted so the monitor leaves the due set.
	require.Len(t, checks.created, 1)
	require.Contains(t, repo.updatedResults, "ping-1")
	assert.Len(t, obs.observed, 1)
}

func TestRunRespectsContextCancellation(t *testing.T) {
	repo := newFakeMonitorRepo()
	exec := &fakeExecutor{check: func(_ context.Context, m *domain.Monitor) (*domain.CheckResult, error) {
		return successResult(m.ID), nil
	}}

	cfg := testConfig()
	cfg.Tick = 10 * time.Millisecond
	svc := NewService(repo, &fakeCheckStore{}, exec, &fakeObserver{}, &fakeDispatcher{}, cfg)

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}
