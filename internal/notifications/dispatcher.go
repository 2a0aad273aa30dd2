package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsegarden/pulsegarden/internal/domain"
	"github.com/pulsegarden/pulsegarden/internal/incident"
	"github.com/pulsegarden/pulsegarden/internal/pkg/ctxlog"
)

// Dispatcher fans an incident transition out to the owning team's enabled
// notification channels. Delivery is fire-and-collect: every channel is
// attempted independently, every attempt is audited, one channel's failure
// never aborts the others, and nothing is retried.
type Dispatcher struct {
	channels    ChannelStore
	audit       AuditStore
	renderer    *Renderer
	senders     map[domain.ChannelType]Sender
	sendTimeout time.Duration
	now         func() time.Time
}

// NewDispatcher creates a dispatcher over the given stores and senders.
func NewDispatcher(channels ChannelStore, audit AuditStore, renderer *Renderer, sendTimeout time.Duration, senders ...Sender) *Dispatcher {
	senderMap := make(map[domain.ChannelType]Sender, len(senders))
	for _, s := range senders {
		senderMap[s.Type()] = s
	}

	if sendTimeout <= 0 {
		sendTimeout = 15 * time.Second
	}

	return &Dispatcher{
		channels:    channels,
		audit:       audit,
		renderer:    renderer,
		senders:     senderMap,
		sendTimeout: sendTimeout,
		now:         time.Now,
	}
}

// Dispatch delivers the alert for an incident transition to all enabled
// channels of the monitor's team. The returned error covers only the channel
// lookup; per-channel failures surface exclusively through the audit trail.
func (d *Dispatcher) Dispatch(ctx context.Context, ev incident.Event) error {
	log := ctxlog.FromContext(ctx)

	channels, err := d.channels.GetTeamChannels(ctx, ev.Monitor.TeamID, true)
	if err != nil {
		return fmt.Errorf("get team channels: %w", err)
	}

	if len(channels) == 0 {
		log.Debug("no enabled channels for team",
			"team_id", ev.Monitor.TeamID,
			"incident_id", ev.Incident.ID,
		)
		return nil
	}

	log.Info("dispatching alert",
		"incident_id", ev.Incident.ID,
		"event", ev.Kind,
		"channel_count", len(channels),
	)

	for i := range channels {
		d.deliver(ctx, &channels[i], ev)
	}

	return nil
}

// deliver attempts one channel and records the outcome. All failure paths
// end here; nothing propagates to the caller.
func (d *Dispatcher) deliver(ctx context.Context, ch *domain.NotificationChannel, ev incident.Event) {
	log := ctxlog.FromContext(ctx)

	alertID, err := d.audit.RecordPending(ctx, ev.Incident.ID, ch.ID)
	if err != nil {
		log.Error("failed to record pending alert",
			"incident_id", ev.Incident.ID,
			"channel_id", ch.ID,
			"error", err,
		)
		return
	}

	start := time.Now()
	err = d.send(ctx, ch, ev)
	elapsed := time.Since(start)

	if err != nil {
		if markErr := d.audit.MarkFailed(ctx, alertID, err.Error()); markErr != nil {
			log.Error("failed to mark alert failed", "alert_id", alertID, "error", markErr)
		}
		recordAlertSent(string(ch.Type), "failed")
		log.Warn("alert delivery failed",
			"alert_id", alertID,
			"channel_type", ch.Type,
			"error", err,
		)
		return
	}

	if markErr := d.audit.MarkSent(ctx, alertID, d.now().UTC()); markErr != nil {
		log.Error("failed to mark alert sent", "alert_id", alertID, "error", markErr)
	}
	recordAlertSent(string(ch.Type), "sent")
	recordSendDuration(string(ch.Type), elapsed)

	log.Debug("alert delivered",
		"alert_id", alertID,
		"channel_type", ch.Type,
		"duration_ms", elapsed.Milliseconds(),
	)
}

func (d *Dispatcher) send(ctx context.Context, ch *domain.NotificationChannel, ev incident.Event) error {
	sender, ok := d.senders[ch.Type]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSender, ch.Type)
	}

	alert := &Alert{
		Type:      messageType(ev.Kind),
		Monitor:   &ev.Monitor,
		Incident:  &ev.Incident,
		Timestamp: d.now().UTC(),
	}

	// Webhook channels get the raw JSON envelope; everything else renders
	// through templates.
	if ch.Type != domain.ChannelTypeWebhook {
		subject, body, err := d.renderer.Render(ch.Type, NewPayload(ev, alert.Timestamp))
		if err != nil {
			return fmt.Errorf("render alert: %w", err)
		}
		alert.Subject = subject
		alert.Body = body
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	return sender.Send(sendCtx, ch, alert)
}
