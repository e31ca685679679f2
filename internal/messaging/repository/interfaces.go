package repository

import (
	"context"
	"time"

	"github.com/tesla254/textly-core/internal/messaging/domain"
)

// MessageRepository persists SMS and MMS records. Writes are idempotent
// upserts keyed by id; the repository never retries a failed operation,
// retry policy lives in the caller.
type MessageRepository interface {
	Upsert(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	// ListByThread pages a conversation newest-first.
	ListByThread(ctx context.Context, threadID string, limit, offset int) ([]*domain.Message, error)
	// Search is a substring match over body, address and contact name.
	Search(ctx context.Context, query string) ([]*domain.Message, error)
	// ApplyStatus performs the guarded monotonic status transition:
	// it succeeds only when the stored status is non-terminal and
	// outranked by the new one. Returns whether a row was updated, so
	// callers can tell an applied transition from an ignored stale or
	// duplicate callback.
	ApplyStatus(ctx context.Context, id string, status domain.DeliveryStatus, dateSent *time.Time, errorMessage *string) (bool, error)
	// ConfirmPartSent / ConfirmPartDelivered record one part's
	// confirmation for a multi-part message and return the confirmed
	// count and the segment total. Confirming the same 1-based part
	// twice is a no-op; part 0 marks an unnumbered callback, which is
	// counted best-effort.
	ConfirmPartSent(ctx context.Context, id string, part int) (parts, segments int, err error)
	ConfirmPartDelivered(ctx context.Context, id string, part int) (parts, segments int, err error)
	// MostRecentInFlightOutbound returns the newest outbound message
	// not yet in a terminal state. It supports the degraded correlation
	// fallback for callbacks that carry no message id: the row may
	// already be sent when its delivered callback arrives, so the match
	// cannot be restricted to pending.
	MostRecentInFlightOutbound(ctx context.Context) (*domain.Message, error)
}

// ThreadUpsert carries one message's contribution to its conversation
// summary.
type ThreadUpsert struct {
	ThreadID    string
	Address     string
	ContactName *string
	Snippet     string
	Kind        domain.MessageKind
	// UnreadDelta is 1 for inbound inserts, 0 otherwise.
	UnreadDelta int
	Date        time.Time
}

// ThreadRepository maintains the denormalized conversation summaries.
type ThreadRepository interface {
	// UpsertOnMessage creates the thread on first contact or
	// atomically increments message_count (and unread_count by
	// UnreadDelta) while refreshing snippet/date/contact_name.
	// archived, pinned and created_at are preserved on update.
	UpsertOnMessage(ctx context.Context, up ThreadUpsert) error
	GetByID(ctx context.Context, id string) (*domain.Thread, error)
	// List returns all threads, pinned first, then by recency.
	List(ctx context.Context) ([]*domain.Thread, error)
	Search(ctx context.Context, query string) ([]*domain.Thread, error)
	// MarkRead zeroes unread_count and flips read on every message in
	// the thread.
	MarkRead(ctx context.Context, threadID string) error
	// Delete removes the thread and cascades to its messages and their
	// attachments.
	Delete(ctx context.Context, threadID string) error
	UpdateFlags(ctx context.Context, threadID string, archived, pinned *bool) error
}

// AttachmentRepository persists MMS media parts. An attachment is owned
// by exactly one message; thread deletion removes it with its message.
type AttachmentRepository interface {
	Upsert(ctx context.Context, att *domain.Attachment) error
	ListByMessage(ctx context.Context, messageID string) ([]*domain.Attachment, error)
}

// ContactRepository is the device contact cache used for best-effort
// name lookups.
type ContactRepository interface {
	Upsert(ctx context.Context, contact *domain.Contact) error
	// FindByPhone matches a number against cached contacts. Absence is
	// reported as domain.ErrContactNotFound, not a fault.
	FindByPhone(ctx context.Context, phone string) (*domain.Contact, error)
}

// SettingsRepository is a flat string key-value store.
type SettingsRepository interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
}
