// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pulsegarden/pulsegarden/internal/config"
	"github.com/pulsegarden/pulsegarden/internal/incident"
	incidentpostgres "github.com/pulsegarden/pulsegarden/internal/incident/postgres"
	"github.com/pulsegarden/pulsegarden/internal/monitor"
	monitorpostgres "github.com/pulsegarden/pulsegarden/internal/monitor/postgres"
	"github.com/pulsegarden/pulsegarden/internal/notifications"
	"github.com/pulsegarden/pulsegarden/internal/notifications/email"
	notificationspostgres "github.com/pulsegarden/pulsegarden/internal/notifications/postgres"
	"github.com/pulsegarden/pulsegarden/internal/notifications/telegram"
	"github.com/pulsegarden/pulsegarden/internal/notifications/webhook"
	"github.com/pulsegarden/pulsegarden/internal/notifications/whatsapp"
	"github.com/pulsegarden/pulsegarden/internal/pkg/ctxlog"
	"github.com/pulsegarden/pulsegarden/internal/pkg/httputil"
	"github.com/pulsegarden/pulsegarden/internal/pkg/metrics"
	"github.com/pulsegarden/pulsegarden/internal/pkg/postgres"
	"github.com/pulsegarden/pulsegarden/internal/probe"
	"github.com/pulsegarden/pulsegarden/internal/scheduler"
	"github.com/pulsegarden/pulsegarden/internal/version"
	"github.com/pulsegarden/pulsegarden/migrations"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	scheduler     *scheduler.Service
	server        *http.Server
	metricsServer *http.Server

	backgroundCancel context.CancelFunc
	schedulerDone    chan struct{}
}

// New creates a new application instance. All dependencies are constructed
// here and passed down explicitly; nothing holds package-level state.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)

	if cfg.Database.Migrate {
		if err := postgres.Migrate(cfg.Database.URL, migrations.FS, "."); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations applied")
	}

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer connectCancel()

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	backgroundCtx = ctxlog.WithLogger(backgroundCtx, logger)

	app := &App{
		config:           cfg,
		logger:           logger,
		db:               db,
		backgroundCancel: backgroundCancel,
		schedulerDone:    make(chan struct{}),
	}

	go app.collectDBMetrics(backgroundCtx)

	router, sched, err := app.setup()
	if err != nil {
		db.Close()
		backgroundCancel()
		return nil, fmt.Errorf("setup application: %w", err)
	}
	app.scheduler = sched

	go func() {
		defer close(app.schedulerDone)
		if err := sched.Run(backgroundCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler stopped", "error", err)
		}
	}()

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application. The scheduler is stopped
// first so in-flight checks finish before the pool closes.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	a.backgroundCancel()

	select {
	case <-a.schedulerDone:
	case <-ctx.Done():
		a.logger.Warn("timed out waiting for scheduler to stop")
	}

	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	a.db.Close()

	return errors.Join(errs...)
}

func (a *App) collectDBMetrics(ctx context.Context) {
	metrics.RecordDBPoolMetrics(a.db)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.RecordDBPoolMetrics(a.db)
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// Scheduler returns the check scheduler for testing.
func (a *App) Scheduler() *scheduler.Service {
	return a.scheduler
}

func (a *App) setup() (*chi.Mux, *scheduler.Service, error) {
	monitorRepo := monitorpostgres.NewRepository(a.db)
	incidentRepo := incidentpostgres.NewRepository(a.db)
	notificationsRepo := notificationspostgres.NewRepository(a.db)

	executor := probe.NewHTTPExecutor(probe.Config{
		UserAgent:    a.config.Probe.UserAgent,
		SSLTimeout:   a.config.Probe.SSLTimeout,
		MaxBodyBytes: int64(a.config.Probe.MaxBodyKB) << 10,
	})

	coordinator := incident.NewCoordinator(incidentRepo)

	dispatcher, err := a.setupDispatcher(notificationsRepo)
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.NewService(
		monitorRepo,
		monitorRepo,
		executor,
		coordinator,
		dispatcher,
		a.config.Scheduler,
	)

	monitorHandler := monitor.NewHandler(monitorRepo, monitorRepo)
	incidentHandler := incident.NewHandler(incidentRepo, notificationsRepo)
	schedulerHandler := scheduler.NewHandler(sched)

	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Route("/api/v1", func(r chi.Router) {
		monitorHandler.RegisterRoutes(r)
		incidentHandler.RegisterRoutes(r)
		schedulerHandler.RegisterRoutes(r)
	})

	return r, sched, nil
}

func (a *App) setupDispatcher(repo *notificationspostgres.Repository) (*notifications.Dispatcher, error) {
	cfg := a.config.Notifications

	a.logger.Info("notifications configured",
		"email_enabled", cfg.Email.Enabled,
		"telegram_enabled", cfg.Telegram.Enabled,
		"whatsapp_enabled", cfg.WhatsApp.Enabled,
	)

	emailSender, err := email.NewSender(email.Config{
		Enabled:      cfg.Email.Enabled,
		SMTPHost:     cfg.Email.SMTPHost,
		SMTPPort:     cfg.Email.SMTPPort,
		SMTPUser:     cfg.Email.SMTPUser,
		SMTPPassword: cfg.Email.SMTPPassword,
		FromAddress:  cfg.Email.FromAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("create email sender: %w", err)
	}
	if !cfg.Email.Enabled {
		a.logger.Warn("email sender is disabled: email alerts will not be sent")
	}

	telegramSender, err := telegram.NewSender(telegram.Config{
		Enabled:   cfg.Telegram.Enabled,
		BotToken:  cfg.Telegram.BotToken,
		RateLimit: cfg.Telegram.RateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram sender: %w", err)
	}
	if !cfg.Telegram.Enabled {
		a.logger.Warn("telegram sender is disabled: telegram alerts will not be sent")
	}

	whatsappSender, err := whatsapp.NewSender(whatsapp.Config{
		Enabled: cfg.WhatsApp.Enabled,
		APIURL:  cfg.WhatsApp.APIURL,
		APIKey:  cfg.WhatsApp.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create whatsapp sender: %w", err)
	}

	// Webhook is always available; the URL is set per-channel by the user.
	webhookSender := webhook.NewSender()

	renderer, err := notifications.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("create alert renderer: %w", err)
	}

	return notifications.NewDispatcher(
		repo,
		repo,
		renderer,
		cfg.SendTimeout,
		emailSender,
		telegramSender,
		whatsappSender,
		webhookSender,
	), nil
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
