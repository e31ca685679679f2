package natsbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tesla254/textly-core/internal/messaging/app"
	"github.com/tesla254/textly-core/internal/platform/messagebroker"
)

// InboundPayload is one discrete inbound message unit as raised by the
// native receiver. Date is unix milliseconds; zero means "now".
type InboundPayload struct {
	Address string `json:"address"`
	Body    string `json:"body"`
	Date    int64  `json:"date,omitempty"`
	SimSlot int    `json:"sim_slot,omitempty"`
}

// InboundConsumer subscribes to the bridge's inbound subject and feeds
// the ingestion path.
type InboundConsumer struct {
	natsClient messagebroker.NATSClient
	processor  *app.InboundProcessor
	logger     *slog.Logger
	sub        messagebroker.Subscription
}

// NewInboundConsumer creates an InboundConsumer.
func NewInboundConsumer(natsClient messagebroker.NATSClient, processor *app.InboundProcessor, logger *slog.Logger) *InboundConsumer {
	return &InboundConsumer{
		natsClient: natsClient,
		processor:  processor,
		logger:     logger.With("consumer", "inbound"),
	}
}

// Start subscribes the inbound subject.
func (c *InboundConsumer) Start(ctx context.Context) error {
	sub, err := c.natsClient.Subscribe(ctx, SubjectInboundReceived, QueueGroup, func(msg messagebroker.Message) {
		c.handle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", SubjectInboundReceived, err)
	}
	c.sub = sub
	c.logger.InfoContext(ctx, "inbound consumer started", "subject", SubjectInboundReceived)
	return nil
}

func (c *InboundConsumer) handle(ctx context.Context, msg messagebroker.Message) {
	bridgeMessagesCounter.WithLabelValues(msg.Subject()).Inc()

	var payload InboundPayload
	if err := json.Unmarshal(msg.Data(), &payload); err != nil {
		c.logger.ErrorContext(ctx, "failed to deserialize inbound payload",
			"error", err, "data", string(msg.Data()))
		return
	}

	var date time.Time
	if payload.Date > 0 {
		date = time.UnixMilli(payload.Date).UTC()
	}

	in := app.InboundMessage{
		Address: payload.Address,
		Body:    payload.Body,
		Date:    date,
		SimSlot: payload.SimSlot,
	}
	if _, err := c.processor.Process(ctx, in); err != nil {
		c.logger.ErrorContext(ctx, "failed to process inbound message",
			"error", err, "address", payload.Address)
	}
}

// Stop unsubscribes the inbound subject.
func (c *InboundConsumer) Stop() {
	if c.sub != nil {
		if err := c.sub.Unsubscribe(); err != nil {
			c.logger.Error("failed to unsubscribe inbound consumer", "error", err)
		}
		c.sub = nil
	}
}
