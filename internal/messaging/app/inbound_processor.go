package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tesla254/textly-core/internal/messaging/domain"
	"github.com/tesla254/textly-core/internal/messaging/events"
	"github.com/tesla254/textly-core/internal/messaging/repository"
)

const notificationPreviewLimit = 50

// InboundMessage is the tuple the native receiver delivers, one per
// discrete inbound message unit. Multi-part inbound messages may arrive
// as multiple tuples; they are ingested as-is, not re-joined.
type InboundMessage struct {
	Address string
	Body    string
	Date    time.Time
	SimSlot int
}

// InboundProcessor ingests "message arrived" signals: persist, thread
// upsert, user notification, event fan-out. Inbound messages are
// terminal at delivered; they have no further delivery lifecycle.
type InboundProcessor struct {
	messages   repository.MessageRepository
	contacts   repository.ContactRepository
	aggregator *ThreadAggregator
	notifier   Notifier
	bus        *events.Bus
	logger     *slog.Logger
}

// NewInboundProcessor creates an InboundProcessor.
func NewInboundProcessor(
	messages repository.MessageRepository,
	contacts repository.ContactRepository,
	aggregator *ThreadAggregator,
	notifier Notifier,
	bus *events.Bus,
	logger *slog.Logger,
) *InboundProcessor {
	return &InboundProcessor{
		messages:   messages,
		contacts:   contacts,
		aggregator: aggregator,
		notifier:   notifier,
		bus:        bus,
		logger:     logger.With("service", "inbound_processor"),
	}
}

// Process ingests one inbound message and returns the stored record.
func (p *InboundProcessor) Process(ctx context.Context, in InboundMessage) (*domain.Message, error) {
	start := time.Now()

	date := in.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	msg := &domain.Message{
		ID:             "sms_" + uuid.NewString(),
		ThreadID:       domain.ThreadIDForAddress(in.Address),
		Address:        in.Address,
		Body:           in.Body,
		Kind:           domain.MessageKindSMS,
		Box:            domain.MessageBoxInbox,
		Read:           false,
		Date:           date,
		DeliveryStatus: domain.DeliveryStatusDelivered,
		SimSlot:        in.SimSlot,
		Segments:       1,
	}

	// Best-effort: a missing contact is not an error.
	if contact, err := p.contacts.FindByPhone(ctx, in.Address); err == nil {
		msg.ContactName = &contact.Name
	} else if !errors.Is(err, domain.ErrContactNotFound) {
		p.logger.WarnContext(ctx, "contact lookup failed", "address", in.Address, "error", err)
	}

	if err := p.messages.Upsert(ctx, msg); err != nil {
		inboundProcessedCounter.WithLabelValues("error_db_save").Inc()
		return nil, fmt.Errorf("persisting inbound message: %w", err)
	}

	if err := p.aggregator.RecordMessage(ctx, msg); err != nil {
		inboundProcessedCounter.WithLabelValues("error_thread_upsert").Inc()
		return nil, err
	}

	if err := p.notifier.Schedule(ctx, buildNotification(msg)); err != nil {
		// Notification presentation is external and best-effort; the
		// message itself is already safely stored.
		p.logger.WarnContext(ctx, "failed to schedule notification",
			"message_id", msg.ID, "error", err)
	}

	p.bus.PublishMessage(domain.MessageEvent{Message: msg})

	inboundProcessedCounter.WithLabelValues("success").Inc()
	inboundProcessingDurationHist.Observe(time.Since(start).Seconds())
	p.logger.InfoContext(ctx, "inbound message ingested",
		"message_id", msg.ID, "thread_id", msg.ThreadID)
	return msg, nil
}

func buildNotification(msg *domain.Message) domain.Notification {
	title := msg.Address
	if msg.ContactName != nil {
		title = *msg.ContactName
	}

	preview := msg.Body
	if len([]rune(preview)) > notificationPreviewLimit {
		preview = string([]rune(preview)[:notificationPreviewLimit]) + "..."
	}

	return domain.Notification{
		Title: title,
		Body:  preview,
		Data: domain.NotificationData{
			MessageID: msg.ID,
			ThreadID:  msg.ThreadID,
		},
	}
}
