//go:build integration

package integration

import (
	"context"
	"log"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsegarden/pulsegarden/internal/app"
	"github.com/pulsegarden/pulsegarden/internal/config"
	"github.com/pulsegarden/pulsegarden/internal/testutil"
)

var (
	testServer *httptest.Server
	testClient *testutil.Client
	testDB     *pgxpool.Pool

	// Mailpit for E2E email testing
	mailpitContainer *testutil.MailpitContainer
	mailpitClient    *MailpitClient
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := testutil.NewPostgresContainer(ctx)
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	mailpitContainer, err = testutil.NewMailpitContainer(ctx)
	if err != nil {
		log.Fatalf("start mailpit: %v", err)
	}
	defer func() {
		if err := mailpitContainer.Terminate(ctx); err != nil {
			log.Printf("terminate mailpit: %v", err)
		}
	}()

	mailpitClient = NewMailpitClient(
		mailpitContainer.APIHost,
		mailpitContainer.APIPort,
	)

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         "0",
			MetricsPort:  "0",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Log: config.LogConfig{
			Level:  "error",
			Format: "text",
		},
		Database: config.DatabaseConfig{
			URL:             pgContainer.ConnectionString,
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 3,
			// Embedded migrations run on startup, same as production.
			Migrate: true,
		},
		// A long tick keeps the background loop quiet; tests drive checks
		// through the API instead.
		Scheduler: config.SchedulerConfig{
			Tick:       time.Hour,
			Workers:    4,
			BatchLimit: 100,
		},
		Probe: config.ProbeConfig{
			SSLTimeout: 2 * time.Second,
			MaxBodyKB:  64,
		},
		Notifications: config.NotificationsConfig{
			SendTimeout: 5 * time.Second,
			Email: config.EmailConfig{
				Enabled:     true,
				SMTPHost:    mailpitContainer.SMTPHost,
				SMTPPort:    mailpitContainer.SMTPPort,
				FromAddress: "alerts@pulsegarden.test",
			},
		},
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("create app: %v", err)
	}

	testDB, err = pgxpool.New(ctx, pgContainer.ConnectionString)
	if err != nil {
		log.Fatalf("create test db pool: %v", err)
	}

	testServer = httptest.NewServer(application.Router())
	testClient = testutil.NewClient(testServer.URL)

	code := m.Run()

	testServer.Close()
	testDB.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown app: %v", err)
	}

	os.Exit(code)
}
