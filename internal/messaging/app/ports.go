package app

import (
	"context"

	"github.com/tesla254/textly-core/internal/messaging/domain"
)

// TransmitRequest is one unit handed to the native telephony bridge.
// Multi-part messages produce one request per part, all sharing the
// CorrelationID so asynchronous callbacks can be matched back.
type TransmitRequest struct {
	Address        string `json:"address"`
	Body           string `json:"body"`
	SimSlot        int    `json:"sim_slot"`
	CorrelationID  string `json:"correlation_id"`
	Part           int    `json:"part"`  // 1-based
	Parts          int    `json:"parts"` // total parts of the message
	DeliveryReport bool   `json:"delivery_report"`
}

// Transmitter is the opaque native transmit interface. A returned error
// means the invocation itself was rejected (e.g. missing permission),
// before any radio activity; delivery failures arrive later as
// callbacks, never here.
type Transmitter interface {
	Transmit(ctx context.Context, req TransmitRequest) error
}

// Notifier schedules a user-facing notification with fire-immediately
// semantics. Presentation is an external collaborator.
type Notifier interface {
	Schedule(ctx context.Context, n domain.Notification) error
}
