package natsbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tesla254/textly-core/internal/messaging/app"
	"github.com/tesla254/textly-core/internal/messaging/domain"
	"github.com/tesla254/textly-core/internal/platform/messagebroker"
)

// Notifier publishes notification payloads for the external
// presentation layer. Fire-immediately: no scheduling state is kept.
type Notifier struct {
	natsClient messagebroker.NATSClient
	logger     *slog.Logger
}

// NewNotifier creates a NATS-backed Notifier.
func NewNotifier(natsClient messagebroker.NATSClient, logger *slog.Logger) *Notifier {
	return &Notifier{
		natsClient: natsClient,
		logger:     logger.With("adapter", "notifier"),
	}
}

// Schedule implements app.Notifier.
func (n *Notifier) Schedule(ctx context.Context, notification domain.Notification) error {
	data, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}
	if err := n.natsClient.Publish(ctx, SubjectNotificationPush, data); err != nil {
		return fmt.Errorf("publishing notification: %w", err)
	}
	n.logger.DebugContext(ctx, "notification published",
		"message_id", notification.Data.MessageID, "thread_id", notification.Data.ThreadID)
	return nil
}

var _ app.Notifier = (*Notifier)(nil)
