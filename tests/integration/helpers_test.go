//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pulsegarden/pulsegarden/internal/domain"
	"github.com/pulsegarden/pulsegarden/internal/testutil"
)

type monitorOption func(m *monitorRow)

type monitorRow struct {
	ID             string
	TeamID         string
	Name           string
	URL            string
	Kind           string
	ExpectedStatus int
	CheckSSL       bool
	Keyword        string
	Interval       int
	Timeout        int
	Enabled        bool
}

func withKeyword(keyword string) monitorOption {
	return func(m *monitorRow) { m.Keyword = keyword }
}

func withExpectedStatus(status int) monitorOption {
	return func(m *monitorRow) { m.ExpectedStatus = status }
}

func withInterval(seconds int) monitorOption {
	return func(m *monitorRow) { m.Interval = seconds }
}

func disabled() monitorOption {
	return func(m *monitorRow) { m.Enabled = false }
}

// createMonitor inserts a monitor aimed at the given URL and returns its ID.
// The row is removed on cleanup, cascading to checks and incidents.
func createMonitor(t *testing.T, teamID, url string, opts ...monitorOption) string {
	t.Helper()

	row := monitorRow{
		ID:             uuid.NewString(),
		TeamID:         teamID,
		Name:           "monitor " + uuid.NewString()[:8],
		URL:            url,
		Kind:           "http",
		ExpectedStatus: 200,
		Interval:       60,
		Timeout:        5,
		Enabled:        true,
	}
	for _, opt := range opts {
		opt(&row)
	}

	_, err := testDB.Exec(context.Background(), `
		INSERT INTO monitors (id, team_id, name, url, kind, expected_status,
		                      check_ssl, keyword, interval_seconds, timeout_seconds, is_enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, row.ID, row.TeamID, row.Name, row.URL, row.Kind, row.ExpectedStatus,
		row.CheckSSL, row.Keyword, row.Interval, row.Timeout, row.Enabled)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = testDB.Exec(context.Background(), `DELETE FROM monitors WHERE id = $1`, row.ID)
	})

	return row.ID
}

// createChannel inserts a notification channel for the team and returns its ID.
func createChannel(t *testing.T, teamID string, chType domain.ChannelType, config map[string]interface{}) string {
	t.Helper()

	id := uuid.NewString()
	cfg, err := json.Marshal(config)
	require.NoError(t, err)

	_, err = testDB.Exec(context.Background(), `
		INSERT INTO notification_channels (id, team_id, type, config, is_enabled)
		VALUES ($1, $2, $3, $4, TRUE)
	`, id, teamID, chType, cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = testDB.Exec(context.Background(), `DELETE FROM notification_channels WHERE id = $1`, id)
	})

	return id
}

// newTeamID returns a fresh team UUID so tests cannot see each other's
// channels or incidents.
func newTeamID() string {
	return uuid.NewString()
}

// runCheck triggers a synchronous check for the monitor and decodes the result.
func runCheck(t *testing.T, monitorID string) domain.CheckResult {
	t.Helper()

	resp, err := testClient.POST("/api/v1/monitors/"+monitorID+"/check", nil)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var envelope struct {
		Data domain.CheckResult `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &envelope)
	return envelope.Data
}

// listIncidents fetches the monitor's incidents through the API.
func listIncidents(t *testing.T, monitorID string) []domain.Incident {
	t.Helper()

	resp, err := testClient.GET("/api/v1/monitors/" + monitorID + "/incidents")
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var envelope struct {
		Data struct {
			Incidents []domain.Incident `json:"incidents"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &envelope)
	return envelope.Data.Incidents
}
