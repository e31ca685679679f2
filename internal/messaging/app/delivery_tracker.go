package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tesla254/textly-core/internal/messaging/domain"
	"github.com/tesla254/textly-core/internal/messaging/events"
	"github.com/tesla254/textly-core/internal/messaging/repository"
)

// DeliveryTracker correlates asynchronous sent/delivered callbacks from
// the native layer back to message records and drives the per-message
// state machine pending -> sent -> delivered, failed terminal.
//
// Transitions happen only on callback arrival; there is no timeout path
// to failed, so a message whose callbacks are lost stays pending. That
// is a known limitation of the underlying bridge, not something the
// tracker papers over.
type DeliveryTracker struct {
	messages repository.MessageRepository
	bus      *events.Bus
	logger   *slog.Logger
}

// NewDeliveryTracker creates a DeliveryTracker.
func NewDeliveryTracker(messages repository.MessageRepository, bus *events.Bus, logger *slog.Logger) *DeliveryTracker {
	return &DeliveryTracker{
		messages: messages,
		bus:      bus,
		logger:   logger.With("service", "delivery_tracker"),
	}
}

// HandleSentCallback processes an onSent completion from the bridge.
// part is the 1-based part number the callback reports, or 0 when the
// bridge cannot number parts.
func (t *DeliveryTracker) HandleSentCallback(ctx context.Context, correlationID string, part int, code domain.ResultCode) error {
	return t.handleCallback(ctx, "sent", correlationID, part, code, domain.DeliveryStatusSent)
}

// HandleDeliveredCallback processes an onDelivered completion.
func (t *DeliveryTracker) HandleDeliveredCallback(ctx context.Context, correlationID string, part int, code domain.ResultCode) error {
	return t.handleCallback(ctx, "delivered", correlationID, part, code, domain.DeliveryStatusDelivered)
}

func (t *DeliveryTracker) handleCallback(ctx context.Context, channel, correlationID string, part int, code domain.ResultCode, target domain.DeliveryStatus) error {
	msg, err := t.resolve(ctx, channel, correlationID)
	if err != nil {
		if errors.Is(err, domain.ErrMessageNotFound) {
			// CorrelationMiss: drop silently, never crash the tracker.
			deliveryCallbacksCounter.WithLabelValues(channel, "correlation_miss").Inc()
			t.logger.WarnContext(ctx, "callback matches no known message, dropped",
				"channel", channel, "correlation_id", correlationID)
			return nil
		}
		return err
	}

	if !code.Success() {
		deliveryCallbacksCounter.WithLabelValues(channel, "failed").Inc()
		return t.fail(ctx, msg, resultCodeMessage(code))
	}

	// All parts of a multi-part message must confirm before the
	// aggregate status advances. The part number makes duplicated
	// callbacks for one part idempotent in the store.
	var parts, segments int
	switch target {
	case domain.DeliveryStatusSent:
		parts, segments, err = t.messages.ConfirmPartSent(ctx, msg.ID, part)
	case domain.DeliveryStatusDelivered:
		parts, segments, err = t.messages.ConfirmPartDelivered(ctx, msg.ID, part)
	}
	if err != nil {
		return fmt.Errorf("confirming %s part for %s: %w", channel, msg.ID, err)
	}
	if parts < segments {
		deliveryCallbacksCounter.WithLabelValues(channel, "partial").Inc()
		t.logger.DebugContext(ctx, "part confirmed, awaiting remaining parts",
			"channel", channel, "message_id", msg.ID, "parts", parts, "segments", segments)
		return nil
	}

	var dateSent *time.Time
	if target == domain.DeliveryStatusSent {
		now := time.Now().UTC()
		dateSent = &now
	}

	applied, err := t.messages.ApplyStatus(ctx, msg.ID, target, dateSent, nil)
	if err != nil {
		return fmt.Errorf("applying %s status for %s: %w", target, msg.ID, err)
	}
	if !applied {
		// Stale or duplicate: a sent callback after delivered must not
		// regress the status.
		deliveryCallbacksCounter.WithLabelValues(channel, "ignored").Inc()
		t.logger.DebugContext(ctx, "out-of-order or duplicate callback ignored",
			"channel", channel, "message_id", msg.ID, "target", target)
		return nil
	}

	deliveryCallbacksCounter.WithLabelValues(channel, "applied").Inc()
	t.logger.InfoContext(ctx, "delivery status advanced",
		"message_id", msg.ID, "status", target)

	t.bus.PublishDelivery(domain.DeliveryStatusEvent{
		MessageID: msg.ID,
		ThreadID:  msg.ThreadID,
		Status:    target,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// Fail transitions a message to the terminal failed state, typically on
// a synchronous transmit fault raised by the dispatch service.
func (t *DeliveryTracker) Fail(ctx context.Context, messageID string, cause error) error {
	msg, err := t.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	return t.fail(ctx, msg, cause.Error())
}

func (t *DeliveryTracker) fail(ctx context.Context, msg *domain.Message, reason string) error {
	applied, err := t.messages.ApplyStatus(ctx, msg.ID, domain.DeliveryStatusFailed, nil, &reason)
	if err != nil {
		return fmt.Errorf("applying failed status for %s: %w", msg.ID, err)
	}
	if !applied {
		// Already terminal; a failure report after delivered is stale.
		t.logger.DebugContext(ctx, "failure callback ignored, message already terminal", "message_id", msg.ID)
		return nil
	}

	t.logger.InfoContext(ctx, "message failed", "message_id", msg.ID, "reason", reason)
	t.bus.PublishDelivery(domain.DeliveryStatusEvent{
		MessageID: msg.ID,
		ThreadID:  msg.ThreadID,
		Status:    domain.DeliveryStatusFailed,
		Timestamp: time.Now().UTC(),
		Error:     &reason,
	})
	return nil
}

// resolve maps a correlation id to its message. An empty id falls back
// to the most recent in-flight outbound message: the broadcast-intent
// signaling on some bridge revisions cannot carry an opaque id, so this
// degraded path is only accurate with a single message in flight. The
// fallback matches any non-terminal status, not just pending, since the
// sent callback has usually advanced the row by the time its delivered
// callback arrives.
func (t *DeliveryTracker) resolve(ctx context.Context, channel, correlationID string) (*domain.Message, error) {
	if correlationID == "" {
		t.logger.WarnContext(ctx, "callback without correlation id, falling back to most recent in-flight",
			"channel", channel)
		return t.messages.MostRecentInFlightOutbound(ctx)
	}
	return t.messages.GetByID(ctx, correlationID)
}

func resultCodeMessage(code domain.ResultCode) string {
	switch code {
	case domain.ResultCodeGenericFailure:
		return "generic failure"
	case domain.ResultCodeNoService:
		return "no service"
	case domain.ResultCodeNullPDU:
		return "null PDU"
	case domain.ResultCodeRadioOff:
		return "radio off"
	default:
		return fmt.Sprintf("carrier failure: %s", code)
	}
}
