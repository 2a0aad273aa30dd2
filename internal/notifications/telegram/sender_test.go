package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsegarden/pulsegarden/internal/domain"
	"github.com/pulsegarden/pulsegarden/internal/notifications"
)

func telegramChannel(chatID string) *domain.NotificationChannel {
	cfg, _ := json.Marshal(map[string]string{"chat_id": chatID})
	return &domain.NotificationChannel{
		ID:        "ch-1",
		TeamID:    "team-1",
		Type:      domain.ChannelTypeTelegram,
		Config:    cfg,
		IsEnabled: true,
	}
}

func TestNewSenderRequiresTokenWhenEnabled(t *testing.T) {
	_, err := NewSender(Config{Enabled: true})
	require.Error(t, err)

	_, err = NewSender(Config{Enabled: false})
	require.NoError(t, err)
}

func TestSendPostsMessage(t *testing.T) {
	var gotPath string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	s, err := NewSender(Config{
		Enabled:    true,
		BotToken:   "test-token",
		RateLimit:  100,
		APIBaseURL: srv.URL,
	})
	require.NoError(t, err)

	alert := &notifications.Alert{
		Type: notifications.MessageTypeOpened,
		Body: "*API gateway is down*",
	}

	require.NoError(t, s.Send(context.Background(), telegramChannel("12345"), alert))

	assert.Equal(t, "/bottest-token/sendMessage", gotPath)

	var msg sendMessageRequest
	require.NoError(t, json.Unmarshal(gotBody, &msg))
	assert.Equal(t, "12345", msg.ChatID)
	assert.Equal(t, "*API gateway is down*", msg.Text)
	assert.Equal(t, "Markdown", msg.ParseMode)
}

func TestSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	s, err := NewSender(Config{Enabled: true, BotToken: "t", RateLimit: 100, APIBaseURL: srv.URL})
	require.NoError(t, err)

	err = s.Send(context.Background(), telegramChannel("12345"), &notifications.Alert{Body: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestSendMissingChatID(t *testing.T) {
	s, err := NewSender(Config{Enabled: true, BotToken: "t", RateLimit: 100})
	require.NoError(t, err)

	ch := &domain.NotificationChannel{Config: json.RawMessage(`{}`)}
	err = s.Send(context.Background(), ch, &notifications.Alert{Body: "x"})
	require.ErrorIs(t, err, notifications.ErrMissingTarget)
}

func TestSendDisabled(t *testing.T) {
	s, err := NewSender(Config{Enabled: false})
	require.NoError(t, err)

	err = s.Send(context.Background(), telegramChannel("12345"), &notifications.Alert{Body: "x"})
	require.Error(t, err)
}
