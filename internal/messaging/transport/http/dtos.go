package http

// SendSMSRequest is the UI-facing send payload.
type SendSMSRequest struct {
	Address        string `json:"address" validate:"required"`
	Body           string `json:"body" validate:"required"`
	SimSlot        *int   `json:"sim_slot,omitempty" validate:"omitempty,gte=0"`
	DeliveryReport *bool  `json:"delivery_report,omitempty"`
}

// AttachmentDTO describes one MMS media part at send time.
type AttachmentDTO struct {
	ContentType   string  `json:"content_type" validate:"required"`
	Name          *string `json:"name,omitempty"`
	Size          int64   `json:"size" validate:"gte=0"`
	Path          string  `json:"path" validate:"required"`
	ThumbnailPath *string `json:"thumbnail_path,omitempty"`
}

// SendMMSRequest is the UI-facing MMS send payload. Body may be empty
// when attachments are present; the dispatch service enforces that.
type SendMMSRequest struct {
	Addresses   []string        `json:"addresses" validate:"required,min=1,dive,required"`
	Body        string          `json:"body"`
	Subject     *string         `json:"subject,omitempty"`
	Attachments []AttachmentDTO `json:"attachments" validate:"dive"`
	SimSlot     *int            `json:"sim_slot,omitempty" validate:"omitempty,gte=0"`
}

// SendResponse returns the correlation id of an accepted send.
type SendResponse struct {
	MessageID string `json:"message_id"`
}

// ThreadFlagsRequest toggles archived/pinned; omitted fields are left
// unchanged.
type ThreadFlagsRequest struct {
	Archived *bool `json:"archived,omitempty"`
	Pinned   *bool `json:"pinned,omitempty"`
}

// SettingRequest sets one flat key-value setting.
type SettingRequest struct {
	Value string `json:"value" validate:"required"`
}

// SettingResponse returns one setting.
type SettingResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ContactDTO is one cached device contact.
type ContactDTO struct {
	ID           string   `json:"id" validate:"required"`
	Name         string   `json:"name" validate:"required"`
	PhoneNumbers []string `json:"phone_numbers" validate:"required,min=1,dive,required"`
	Avatar       *string  `json:"avatar,omitempty"`
}

// ContactsSyncRequest bulk-imports the device contact cache.
type ContactsSyncRequest struct {
	Contacts []ContactDTO `json:"contacts" validate:"required,dive"`
}
