// Package whatsapp provides alert delivery through a WhatsApp API gateway.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/pulsegarden/pulsegarden/internal/domain"
	"github.com/pulsegarden/pulsegarden/internal/notifications"
)

// Config holds whatsapp sender configuration. The gateway URL and key are
// server-wide; per-channel config only carries the phone number.
type Config struct {
	Enabled bool
	APIURL  string
	APIKey  string
}

type channelConfig struct {
	PhoneNumber string `json:"phone_number"`
}

type sendRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// Sender posts alert messages to a WhatsApp gateway with bearer auth.
type Sender struct {
	config Config
	client *http.Client
}

// NewSender creates a new whatsapp sender.
// Returns error if enabled but the gateway URL or key is missing.
func NewSender(config Config) (*Sender, error) {
	if config.Enabled {
		if config.APIURL == "" {
			return nil, errors.New("whatsapp sender: api url is required when enabled")
		}
		if config.APIKey == "" {
			return nil, errors.New("whatsapp sender: api key is required when enabled")
		}
	}

	slog.Info("whatsapp sender configured", "enabled", config.Enabled)

	return &Sender{config: config, client: &http.Client{}}, nil
}

// Type returns the channel type.
func (s *Sender) Type() domain.ChannelType {
	return domain.ChannelTypeWhatsApp
}

// Send posts the rendered message to the channel's phone number.
func (s *Sender) Send(ctx context.Context, ch *domain.NotificationChannel, alert *notifications.Alert) error {
	if !s.config.Enabled || s.config.APIURL == "" || s.config.APIKey == "" {
		return errors.New("whatsapp sender is not configured")
	}

	var cfg channelConfig
	if err := json.Unmarshal(ch.Config, &cfg); err != nil {
		return fmt.Errorf("parse channel config: %w", err)
	}
	if cfg.PhoneNumber == "" {
		return fmt.Errorf("%w: phone_number", notifications.ErrMissingTarget)
	}

	body, err := json.Marshal(sendRequest{To: cfg.PhoneNumber, Message: alert.Body})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("whatsapp gateway returned %d", resp.StatusCode)
	}

	return nil
}
