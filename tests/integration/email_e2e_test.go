//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsegarden/pulsegarden/internal/domain"
)

func TestEmailAlertEndToEnd(t *testing.T) {
	require.NoError(t, mailpitClient.DeleteAllMessages())

	target := newFlakyTarget(t)
	teamID := newTeamID()
	monitorID := createMonitor(t, teamID, target.server.URL)
	createChannel(t, teamID, domain.ChannelTypeEmail, map[string]interface{}{
		"email": "ops@example.test",
	})

	target.setStatus(http.StatusServiceUnavailable)
	runCheck(t, monitorID)

	messages, err := mailpitClient.WaitForMessages(1, 10*time.Second)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	opened := messages[0]
	assert.Contains(t, opened.Subject, "[Alert]")
	assert.Contains(t, opened.Subject, "is down")
	require.Len(t, opened.To, 1)
	assert.Equal(t, "ops@example.test", opened.To[0].Address)
	assert.Equal(t, "alerts@pulsegarden.test", opened.From.Address)

	full, err := mailpitClient.GetMessageByID(opened.ID)
	require.NoError(t, err)
	assert.Contains(t, full.Text, target.server.URL)

	// Recovery sends a resolution email for the same incident.
	target.setStatus(http.StatusOK)
	runCheck(t, monitorID)

	messages, err = mailpitClient.WaitForMessages(2, 10*time.Second)
	require.NoError(t, err)

	var resolvedSubject string
	for _, msg := range messages {
		if msg.ID != opened.ID {
			resolvedSubject = msg.Subject
		}
	}
	assert.Contains(t, resolvedSubject, "[Resolved]")
	assert.Contains(t, resolvedSubject, "is back up")

	incidents := listIncidents(t, monitorID)
	require.Len(t, incidents, 1)
	alerts := listAlerts(t, incidents[0].ID)
	require.Len(t, alerts, 2)
	for _, alert := range alerts {
		assert.Equal(t, domain.AlertStatusSent, alert.Status)
	}
}
