package domain

import "time"

// Thread is the denormalized per-peer conversation summary: exactly one
// row per normalized address. It is derived from the message stream and
// upserted exactly once per message insert.
type Thread struct {
	ID           string      `json:"id"` // "thread_" + normalized address digits
	Address      string      `json:"address"`
	ContactName  *string     `json:"contact_name,omitempty"`
	Snippet      string      `json:"snippet"` // last message body, best-effort preview
	MessageCount int         `json:"message_count"`
	UnreadCount  int         `json:"unread_count"`
	Date         time.Time   `json:"date"` // most recent activity
	Kind         MessageKind `json:"kind"` // kind of the latest message
	Archived     bool        `json:"archived"`
	Pinned       bool        `json:"pinned"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Attachment is an MMS media part. It is owned by exactly one message
// and cannot outlive it; deleting the message removes its attachments.
type Attachment struct {
	ID            string    `json:"id"`
	MessageID     string    `json:"message_id"`
	ContentType   string    `json:"content_type"`
	Name          *string   `json:"name,omitempty"`
	Size          int64     `json:"size"`
	Path          string    `json:"path"` // local file or to-be-downloaded reference
	ThumbnailPath *string   `json:"thumbnail_path,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Contact is a cached device contact used for best-effort name lookup
// on inbound messages and thread summaries.
type Contact struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	PhoneNumbers []string  `json:"phone_numbers"`
	Avatar       *string   `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Well-known settings keys, persisted as flat string key-value pairs.
const (
	SettingDeliveryReports = "delivery_reports"
	SettingDefaultSimSlot  = "default_sim_slot"
	SettingMMSAutoDownload = "mms_auto_download"
	SettingMMSWifiOnly     = "mms_wifi_only"
)
