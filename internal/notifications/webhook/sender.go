// Package webhook provides alert delivery to user-configured HTTP endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pulsegarden/pulsegarden/internal/domain"
	"github.com/pulsegarden/pulsegarden/internal/notifications"
)

type channelConfig struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
}

// envelope is the JSON body posted to webhook endpoints. Third-party
// integrations depend on this shape; do not change field names.
type envelope struct {
	Type      string           `json:"type"`
	Monitor   monitorPayload   `json:"monitor"`
	Incident  *domain.Incident `json:"incident"`
	Timestamp time.Time        `json:"timestamp"`
}

type monitorPayload struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

// Sender posts incident envelopes to per-channel webhook URLs.
type Sender struct {
	client *http.Client
}

// NewSender creates a new webhook sender.
func NewSender() *Sender {
	return &Sender{client: &http.Client{}}
}

// Type returns the channel type.
func (s *Sender) Type() domain.ChannelType {
	return domain.ChannelTypeWebhook
}

// Send posts the JSON envelope to the channel's URL with any custom headers
// from the channel config.
func (s *Sender) Send(ctx context.Context, ch *domain.NotificationChannel, alert *notifications.Alert) error {
	var cfg channelConfig
	if err := json.Unmarshal(ch.Config, &cfg); err != nil {
		return fmt.Errorf("parse channel config: %w", err)
	}
	if cfg.URL == "" {
		return fmt.Errorf("%w: url", notifications.ErrMissingTarget)
	}

	body, err := json.Marshal(envelope{
		Type: string(alert.Type),
		Monitor: monitorPayload{
			ID:     alert.Monitor.ID,
			Name:   alert.Monitor.Name,
			URL:    alert.Monitor.URL,
			Status: string(alert.Monitor.LastStatus),
		},
		Incident:  alert.Incident,
		Timestamp: alert.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for name, value := range cfg.Headers {
		req.Header.Set(name, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}

	return nil
}
