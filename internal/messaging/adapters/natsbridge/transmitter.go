package natsbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tesla254/textly-core/internal/messaging/app"
	"github.com/tesla254/textly-core/internal/platform/messagebroker"
)

// Transmitter publishes transmit requests to the native bridge. A
// publish fault surfaces as a synchronous transmit error to the
// dispatch service, the same contract a direct native call rejection
// would have.
type Transmitter struct {
	natsClient messagebroker.NATSClient
	logger     *slog.Logger
}

// NewTransmitter creates a NATS-backed Transmitter.
func NewTransmitter(natsClient messagebroker.NATSClient, logger *slog.Logger) *Transmitter {
	return &Transmitter{
		natsClient: natsClient,
		logger:     logger.With("adapter", "transmitter"),
	}
}

// Transmit implements app.Transmitter.
func (t *Transmitter) Transmit(ctx context.Context, req app.TransmitRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling transmit request: %w", err)
	}
	if err := t.natsClient.Publish(ctx, SubjectTransmitRequest, data); err != nil {
		return fmt.Errorf("publishing transmit request: %w", err)
	}
	t.logger.DebugContext(ctx, "transmit request published",
		"correlation_id", req.CorrelationID, "part", req.Part, "parts", req.Parts)
	return nil
}

var _ app.Transmitter = (*Transmitter)(nil)
