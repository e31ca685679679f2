package domain

import "time"

// DeliveryStatusEvent is the ephemeral notification emitted after every
// applied status transition. It is not persisted as its own entity.
type DeliveryStatusEvent struct {
	MessageID string         `json:"message_id"`
	ThreadID  string         `json:"thread_id"`
	Status    DeliveryStatus `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Error     *string        `json:"error,omitempty"`
}

// MessageEvent announces a newly inserted message, inbound or the echo
// of an outbound send, so UI surfaces can react without polling.
type MessageEvent struct {
	Message *Message `json:"message"`
}

// Notification is the payload handed to the external presentation
// layer. Fire-immediately semantics; the core never renders it.
type Notification struct {
	Title string           `json:"title"`
	Body  string           `json:"body"`
	Data  NotificationData `json:"data"`
}

// NotificationData carries the identifiers a tap handler needs.
type NotificationData struct {
	MessageID string `json:"message_id"`
	ThreadID  string `json:"thread_id"`
}

// ResultCode is the closed set of completion codes the native bridge
// reports on sent/delivered callbacks.
type ResultCode string

const (
	ResultCodeSuccess        ResultCode = "success"
	ResultCodeGenericFailure ResultCode = "generic_failure"
	ResultCodeNoService      ResultCode = "no_service"
	ResultCodeNullPDU        ResultCode = "null_pdu"
	ResultCodeRadioOff       ResultCode = "radio_off"
)

// Success reports whether the code indicates a positive completion.
func (rc ResultCode) Success() bool { return rc == ResultCodeSuccess }
