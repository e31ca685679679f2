package domain

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// DeliveryStatus is the per-message delivery state. It only ever moves
// forward: pending -> sent -> delivered, with failed terminal from any
// non-terminal state. Some native paths never raise the intermediate
// sent callback, so pending -> delivered is also a legal step.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusSent      DeliveryStatus = "sent"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

// Rank orders the forward-only transitions. failed and delivered are
// terminal; a transition is applied only when the target outranks the
// current status and the current status is non-terminal.
func (ds DeliveryStatus) Rank() int {
	switch ds {
	case DeliveryStatusPending:
		return 0
	case DeliveryStatusSent:
		return 1
	case DeliveryStatusDelivered:
		return 2
	case DeliveryStatusFailed:
		return 3
	default:
		return -1
	}
}

// Terminal reports whether no further transition may leave this state.
func (ds DeliveryStatus) Terminal() bool {
	return ds == DeliveryStatusDelivered || ds == DeliveryStatusFailed
}

// Value implements driver.Valuer.
func (ds DeliveryStatus) Value() (driver.Value, error) {
	return string(ds), nil
}

// Scan implements sql.Scanner.
func (ds *DeliveryStatus) Scan(value interface{}) error {
	strVal, ok := value.(string)
	if !ok {
		bytesVal, ok := value.([]byte)
		if !ok {
			return fmt.Errorf("failed to scan DeliveryStatus: value is %T, not string or []byte", value)
		}
		strVal = string(bytesVal)
	}
	switch DeliveryStatus(strVal) {
	case DeliveryStatusPending, DeliveryStatusSent, DeliveryStatusDelivered, DeliveryStatusFailed:
		*ds = DeliveryStatus(strVal)
		return nil
	default:
		return fmt.Errorf("unknown DeliveryStatus value: %s", strVal)
	}
}

// MessageKind distinguishes the two structurally identical message
// variants.
type MessageKind string

const (
	MessageKindSMS MessageKind = "sms"
	MessageKindMMS MessageKind = "mms"
)

// MessageBox classifies a message within its thread, mirroring the
// Android telephony box model. Inbox is the only inbound box; the rest
// are sub-states of outbound.
type MessageBox string

const (
	MessageBoxInbox  MessageBox = "inbox"
	MessageBoxSent   MessageBox = "sent"
	MessageBoxDraft  MessageBox = "draft"
	MessageBoxOutbox MessageBox = "outbox"
	MessageBoxFailed MessageBox = "failed"
	MessageBoxQueued MessageBox = "queued"
)

// Inbound reports whether the box holds received messages.
func (mb MessageBox) Inbound() bool { return mb == MessageBoxInbox }

// Message is a single SMS or MMS record. The ID is assigned by the
// dispatch service (outbound) or the inbound processor (inbound), never
// by the persistence layer: it doubles as the correlation key that
// matches asynchronous native callbacks back to this record.
type Message struct {
	ID              string         `json:"id"`
	ThreadID        string         `json:"thread_id"`
	Address         string         `json:"address"` // comma-joined for group MMS
	ContactName     *string        `json:"contact_name,omitempty"`
	Body            string         `json:"body"`
	Subject         *string        `json:"subject,omitempty"` // MMS only
	Kind            MessageKind    `json:"kind"`
	Box             MessageBox     `json:"box"`
	Read            bool           `json:"read"`
	Date            time.Time      `json:"date"`
	DateSent        *time.Time     `json:"date_sent,omitempty"` // set when the radio confirms the send
	DeliveryStatus  DeliveryStatus `json:"delivery_status"`
	SimSlot         int            `json:"sim_slot"`
	AttachmentCount int            `json:"attachment_count"`
	Segments        int            `json:"segments"`
	PartsSent       int            `json:"parts_sent"`
	PartsDelivered  int            `json:"parts_delivered"`
	ErrorMessage    *string        `json:"error_message,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
