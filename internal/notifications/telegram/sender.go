// Package telegram provides alert delivery via the Telegram Bot API.
package telegram

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
	"golang.org/x/time/rate"
)

const defaultAPIBaseURL = "https://api.telegram.org"

// Config holds telegram sender configuration. BotToken is server-wide; the
// per-channel config only carries the chat.
type Config struct {
	Enabled    bool
	BotToken   string
	RateLimit  float64 // messages per second across all chats
	APIBaseURL string  // overridable for tests
}

type channelConfig struct {
	ChatID string `json:"chat_id"`
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Sender delivers alerts through the Telegram Bot API, rate limited to stay
// inside the bot API's global send limits.
type Sender struct {
	config  Config
	limiter *rate.Limiter
	client  *http.Client
}

// NewSender creates a new telegram sender.
// Returns error if enabled but the bot token is missing.
func NewSender(config Config) (*Sender, error) {
	if config.Enabled && config.BotToken == "" {
		return nil, errors.New("telegram sender: bot token is required when enabled")
	}

	if config.APIBaseURL == "" {
		config.APIBaseURL = defaultAPIBaseURL
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 20
	}

	slog.Info("telegram sender configured",
		"enabled", config.Enabled,
		"rate_limit", config.RateLimit,
	)

	return &Sender{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		client:  &http.Client{},
	}, nil
}

// Type returns the channel type.
func (s *Sender) Type() domain.ChannelType {
	return domain.ChannelTypeTelegram
}

// Send posts a Markdown-formatted message to the channel's chat.
func (s *Sender) Send(ctx context.Context, ch *domain.NotificationChannel, alert *notifications.Alert) error {
	if !s.config.Enabled || s.config.BotToken == "" {
		return errors.New("telegram sender is not configured")
	}

	var cfg channelConfig
	if err := json.Unmarshal(ch.Config, &cfg); err != nil {
		return fmt.Errorf("parse channel config: %w", err)
	}
	if cfg.ChatID == "" {
		return fmt.Errorf("%w: chat_id", notifications.ErrMissingTarget)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    cfg.ChatID,
		Text:      alert.Body,
		ParseMode: "Markdown",
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.config.APIBaseURL, s.config.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("telegram api returned %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
