// Package natsbridge adapts the opaque native telephony bridge to the
// messaging core. The bridge process publishes callbacks and inbound
// signals on NATS subjects and consumes transmit requests; this package
// owns both directions.
package natsbridge

// Subjects shared with the native bridge process.
const (
	SubjectTransmitRequest   = "sms.transmit.request"
	SubjectCallbackSent      = "sms.callback.sent"
	SubjectCallbackDelivered = "sms.callback.delivered"
	SubjectInboundReceived   = "sms.inbound.received"
	SubjectNotificationPush  = "notifications.push"
)

// QueueGroup keeps consumption single-delivery if more than one core
// instance is ever attached to the same broker.
const QueueGroup = "textly_core"
