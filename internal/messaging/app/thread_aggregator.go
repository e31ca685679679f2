package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tesla254/textly-core/internal/messaging/domain"
	"github.com/tesla254/textly-core/internal/messaging/repository"
)

// ThreadAggregator keeps the denormalized conversation summaries
// consistent with the message stream. RecordMessage must be called
// exactly once per message insert, inbound or outbound; calling it zero
// or twice per message breaks the message_count invariant.
type ThreadAggregator struct {
	threads repository.ThreadRepository
	logger  *slog.Logger
}

// NewThreadAggregator creates a ThreadAggregator.
func NewThreadAggregator(threads repository.ThreadRepository, logger *slog.Logger) *ThreadAggregator {
	return &ThreadAggregator{
		threads: threads,
		logger:  logger.With("service", "thread_aggregator"),
	}
}

// RecordMessage upserts the thread for an inserted message. The store
// increments the counters atomically, so concurrent sends to the same
// peer cannot under-count.
func (a *ThreadAggregator) RecordMessage(ctx context.Context, msg *domain.Message) error {
	unreadDelta := 0
	if msg.Box.Inbound() {
		unreadDelta = 1
	}

	up := repository.ThreadUpsert{
		ThreadID:    msg.ThreadID,
		Address:     primaryAddress(msg.Address),
		ContactName: msg.ContactName,
		Snippet:     msg.Body,
		Kind:        msg.Kind,
		UnreadDelta: unreadDelta,
		Date:        msg.Date,
	}
	if err := a.threads.UpsertOnMessage(ctx, up); err != nil {
		return fmt.Errorf("thread upsert for %s: %w", msg.ThreadID, err)
	}

	a.logger.DebugContext(ctx, "thread upserted on message",
		"thread_id", msg.ThreadID, "message_id", msg.ID, "unread_delta", unreadDelta)
	return nil
}

// MarkRead zeroes the thread's unread count and flips read on every
// message in it.
func (a *ThreadAggregator) MarkRead(ctx context.Context, threadID string) error {
	if err := a.threads.MarkRead(ctx, threadID); err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "thread marked read", "thread_id", threadID)
	return nil
}

// Delete removes a thread and cascades to its messages and their
// attachments.
func (a *ThreadAggregator) Delete(ctx context.Context, threadID string) error {
	if err := a.threads.Delete(ctx, threadID); err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "thread deleted", "thread_id", threadID)
	return nil
}

// primaryAddress reduces a comma-joined group address to the first
// participant, the same convention thread ids are derived with.
func primaryAddress(address string) string {
	if idx := strings.IndexByte(address, ','); idx >= 0 {
		return address[:idx]
	}
	return address
}
