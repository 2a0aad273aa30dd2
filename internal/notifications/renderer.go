package notifications

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/pulsegarden/pulsegarden/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// templatedChannels are the channel types whose messages are rendered from
// templates. Webhook channels get a structured JSON envelope instead.
var templatedChannels = []domain.ChannelType{
	domain.ChannelTypeEmail,
	domain.ChannelTypeTelegram,
	domain.ChannelTypeWhatsApp,
}

// Renderer renders alert messages from templates.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer creates a renderer and loads all templates.
func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"title":          titleCase,
		"upper":          strings.ToUpper,
		"lower":          strings.ToLower,
		"formatTime":     formatTime,
		"formatDuration": FormatDuration,
		"statusEmoji":    statusEmoji,
	}

	r := &Renderer{templates: make(map[string]*template.Template)}

	messageTypes := []MessageType{MessageTypeOpened, MessageTypeResolved}
	for _, channel := range templatedChannels {
		for _, msg := range messageTypes {
			name := fmt.Sprintf("%s_%s", channel, msg)
			filename := fmt.Sprintf("templates/%s.tmpl", name)

			content, err := templatesFS.ReadFile(filename)
			if err != nil {
				return nil, fmt.Errorf("read template %s: %w", filename, err)
			}

			tmpl, err := template.New(name).Funcs(funcMap).Parse(string(content))
			if err != nil {
				return nil, fmt.Errorf("parse template %s: %w", name, err)
			}

			r.templates[name] = tmpl
		}
	}

	return r, nil
}

// Render renders an alert payload for the specified channel type.
// Returns subject and body.
func (r *Renderer) Render(channelType domain.ChannelType, payload Payload) (subject, body string, err error) {
	templateName := fmt.Sprintf("%s_%s", channelType, payload.MessageType)
	tmpl, ok := r.templates[templateName]
	if !ok {
		return "", "", fmt.Errorf("template not found: %s", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, payload); err != nil {
		return "", "", fmt.Errorf("render template %s: %w", templateName, err)
	}

	return r.renderSubject(payload), buf.String(), nil
}

func (r *Renderer) renderSubject(payload Payload) string {
	if payload.MessageType == MessageTypeResolved {
		return fmt.Sprintf("[Resolved] %s is back up", payload.Monitor.Name)
	}
	return fmt.Sprintf("[Alert] %s is down", payload.Monitor.Name)
}

// FormatDuration formats a duration as "{h}h {m}m {s}s", dropping
// leading-zero units: 62s renders as "1m 2s", not "0h 1m 2s".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	total := int64(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// formatTime accepts both time.Time and the nullable *time.Time fields that
// appear in payloads.
func formatTime(v interface{}) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format("2006-01-02 15:04:05 MST")
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.UTC().Format("2006-01-02 15:04:05 MST")
	default:
		return ""
	}
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

func statusEmoji(status string) string {
	switch status {
	case "up", "resolved":
		return "✅"
	case "down", "investigating":
		return "🔴"
	default:
		return "⚪"
	}
}
