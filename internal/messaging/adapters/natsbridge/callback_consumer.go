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

// CallbackPayload is the completion signal the bridge raises on its
// sent and delivered channels. CorrelationID may be empty on bridge
// revisions whose broadcast-intent signaling cannot carry one; the
// tracker then degrades to best-effort correlation. Part echoes the
// 1-based part number of the transmit request, or 0 when the bridge
// cannot number parts; without it a duplicated callback for one part
// would count as a distinct part.
type CallbackPayload struct {
	CorrelationID string `json:"correlation_id"`
	ResultCode    string `json:"result_code"`
	Part          int    `json:"part,omitempty"`
	Timestamp     int64  `json:"timestamp,omitempty"`
}

// CallbackConsumer subscribes to the bridge's sent/delivered subjects
// and feeds the DeliveryTracker. Callbacks arrive on a platform-owned
// execution context: unordered, possibly duplicated, possibly never.
type CallbackConsumer struct {
	natsClient messagebroker.NATSClient
	tracker    *app.DeliveryTracker
	logger     *slog.Logger
	subs       []messagebroker.Subscription
}

// NewCallbackConsumer creates a CallbackConsumer.
func NewCallbackConsumer(natsClient messagebroker.NATSClient, tracker *app.DeliveryTracker, logger *slog.Logger) *CallbackConsumer {
	return &CallbackConsumer{
		natsClient: natsClient,
		tracker:    tracker,
		logger:     logger.With("consumer", "delivery_callbacks"),
	}
}

// Start subscribes both callback subjects. Handlers run until Stop.
func (c *CallbackConsumer) Start(ctx context.Context) error {
	sentSub, err := c.natsClient.Subscribe(ctx, SubjectCallbackSent, QueueGroup, func(msg messagebroker.Message) {
		c.handle(ctx, msg, c.tracker.HandleSentCallback)
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", SubjectCallbackSent, err)
	}
	c.subs = append(c.subs, sentSub)

	deliveredSub, err := c.natsClient.Subscribe(ctx, SubjectCallbackDelivered, QueueGroup, func(msg messagebroker.Message) {
		c.handle(ctx, msg, c.tracker.HandleDeliveredCallback)
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", SubjectCallbackDelivered, err)
	}
	c.subs = append(c.subs, deliveredSub)

	c.logger.InfoContext(ctx, "delivery callback consumer started",
		"subjects", []string{SubjectCallbackSent, SubjectCallbackDelivered})
	return nil
}

func (c *CallbackConsumer) handle(ctx context.Context, msg messagebroker.Message, apply func(context.Context, string, int, domain.ResultCode) error) {
	bridgeMessagesCounter.WithLabelValues(msg.Subject()).Inc()

	var payload CallbackPayload
	if err := json.Unmarshal(msg.Data(), &payload); err != nil {
		c.logger.ErrorContext(ctx, "failed to deserialize callback payload",
			"error", err, "subject", msg.Subject(), "data", string(msg.Data()))
		return
	}

	if err := apply(ctx, payload.CorrelationID, payload.Part, domain.ResultCode(payload.ResultCode)); err != nil {
		c.logger.ErrorContext(ctx, "failed to process delivery callback",
			"error", err, "subject", msg.Subject(), "correlation_id", payload.CorrelationID)
	}
}

// Stop unsubscribes from both subjects.
func (c *CallbackConsumer) Stop() {
	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil {
			c.logger.Error("failed to unsubscribe delivery callback consumer", "error", err)
		}
	}
	c.subs = nil
}
