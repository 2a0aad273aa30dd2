package notifications

import (
	"context"

	"github.com/pulsegarden/pulsegarden/internal/domain"
)

// Sender delivers one alert to one channel. Implementations parse the
// channel's type-specific config blob themselves and report missing config
// fields as ordinary errors, which the dispatcher records on the audit row.
type Sender interface {
	// Type returns the channel type this sender handles.
	Type() domain.ChannelType

	// Send delivers the alert to the channel.
	Send(ctx context.Context, ch *domain.NotificationChannel, alert *Alert) error
}
