package app

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesla254/textly-core/internal/messaging/domain"
	"github.com/tesla254/textly-core/internal/messaging/repository"
)

// fakeThreadRepository mimics the store's atomic upsert arithmetic so
// the counter invariants can be exercised under real concurrency.
type fakeThreadRepository struct {
	mu      sync.Mutex
	threads map[string]*domain.Thread
}

func newFakeThreadRepository() *fakeThreadRepository {
	return &fakeThreadRepository{threads: make(map[string]*domain.Thread)}
}

func (f *fakeThreadRepository) UpsertOnMessage(_ context.Context, up repository.ThreadUpsert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	th, ok := f.threads[up.ThreadID]
	if !ok {
		f.threads[up.ThreadID] = &domain.Thread{
			ID:           up.ThreadID,
			Address:      up.Address,
			ContactName:  up.ContactName,
			Snippet:      up.Snippet,
			MessageCount: 1,
			UnreadCount:  up.UnreadDelta,
			Date:         up.Date,
			Kind:         up.Kind,
		}
		return nil
	}
	th.MessageCount++
	th.UnreadCount += up.UnreadDelta
	th.Snippet = up.Snippet
	th.Date = up.Date
	if up.ContactName != nil {
		th.ContactName = up.ContactName
	}
	return nil
}

func (f *fakeThreadRepository) GetByID(_ context.Context, id string) (*domain.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	th, ok := f.threads[id]
	if !ok {
		return nil, domain.ErrThreadNotFound
	}
	copied := *th
	return &copied, nil
}

func (f *fakeThreadRepository) List(context.Context) ([]*domain.Thread, error) { return nil, nil }

func (f *fakeThreadRepository) Search(context.Context, string) ([]*domain.Thread, error) {
	return nil, nil
}

func (f *fakeThreadRepository) MarkRead(_ context.Context, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	th, ok := f.threads[threadID]
	if !ok {
		return domain.ErrThreadNotFound
	}
	th.UnreadCount = 0
	return nil
}

func (f *fakeThreadRepository) Delete(_ context.Context, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.threads[threadID]; !ok {
		return domain.ErrThreadNotFound
	}
	delete(f.threads, threadID)
	return nil
}

func (f *fakeThreadRepository) UpdateFlags(context.Context, string, *bool, *bool) error { return nil }

func newTestAggregator(repo repository.ThreadRepository) *ThreadAggregator {
	return NewThreadAggregator(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func outboundMessage(id, address, body string) *domain.Message {
	return &domain.Message{
		ID:       id,
		ThreadID: domain.ThreadIDForAddress(address),
		Address:  address,
		Body:     body,
		Kind:     domain.MessageKindSMS,
		Box:      domain.MessageBoxSent,
		Date:     time.Now().UTC(),
	}
}

func TestThreadAggregator_FirstMessageCreatesThread(t *testing.T) {
	repo := newFakeThreadRepository()
	agg := newTestAggregator(repo)
	ctx := context.Background()

	msg := outboundMessage("sms_1", "+15551234567", "hello")
	require.NoError(t, agg.RecordMessage(ctx, msg))

	th, err := repo.GetByID(ctx, "thread_15551234567")
	require.NoError(t, err)
	assert.Equal(t, 1, th.MessageCount)
	assert.Equal(t, 0, th.UnreadCount)
	assert.Equal(t, "hello", th.Snippet)
}

func TestThreadAggregator_InboundIncrementsUnread(t *testing.T) {
	repo := newFakeThreadRepository()
	agg := newTestAggregator(repo)
	ctx := context.Background()

	inbound := outboundMessage("sms_in", "+15551234567", "yo")
	inbound.Box = domain.MessageBoxInbox
	require.NoError(t, agg.RecordMessage(ctx, inbound))

	th, err := repo.GetByID(ctx, "thread_15551234567")
	require.NoError(t, err)
	assert.Equal(t, 1, th.UnreadCount)
}

func TestThreadAggregator_ConcurrentRecordsNeverUndercount(t *testing.T) {
	repo := newFakeThreadRepository()
	agg := newTestAggregator(repo)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := outboundMessage("sms_c", "+1 (555) 123-4567", "burst")
			if i%2 == 0 {
				msg.Box = domain.MessageBoxInbox
			}
			assert.NoError(t, agg.RecordMessage(ctx, msg))
		}(i)
	}
	wg.Wait()

	th, err := repo.GetByID(ctx, "thread_15551234567")
	require.NoError(t, err)
	assert.Equal(t, n, th.MessageCount)
	assert.Equal(t, n/2, th.UnreadCount)
}

func TestThreadAggregator_MarkReadThenInboundRestoresUnread(t *testing.T) {
	repo := newFakeThreadRepository()
	agg := newTestAggregator(repo)
	ctx := context.Background()

	inbound := outboundMessage("sms_1", "+15551234567", "first")
	inbound.Box = domain.MessageBoxInbox
	require.NoError(t, agg.RecordMessage(ctx, inbound))
	require.NoError(t, agg.MarkRead(ctx, "thread_15551234567"))

	th, err := repo.GetByID(ctx, "thread_15551234567")
	require.NoError(t, err)
	require.Equal(t, 0, th.UnreadCount)

	second := outboundMessage("sms_2", "+15551234567", "second")
	second.Box = domain.MessageBoxInbox
	require.NoError(t, agg.RecordMessage(ctx, second))

	th, err = repo.GetByID(ctx, "thread_15551234567")
	require.NoError(t, err)
	assert.Equal(t, 1, th.UnreadCount)
	assert.Equal(t, "second", th.Snippet)
}

func TestThreadAggregator_GroupMessageUsesFirstParticipantAddress(t *testing.T) {
	repo := newFakeThreadRepository()
	agg := newTestAggregator(repo)
	ctx := context.Background()

	msg := outboundMessage("mms_1", "+15551234567,+15557654321", "group")
	msg.Kind = domain.MessageKindMMS
	require.NoError(t, agg.RecordMessage(ctx, msg))

	th, err := repo.GetByID(ctx, "thread_15551234567")
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", th.Address)
	assert.Equal(t, domain.MessageKindMMS, th.Kind)
}

func TestThreadAggregator_DeleteRemovesThread(t *testing.T) {
	repo := newFakeThreadRepository()
	agg := newTestAggregator(repo)
	ctx := context.Background()

	require.NoError(t, agg.RecordMessage(ctx, outboundMessage("sms_1", "+15551234567", "bye")))
	require.NoError(t, agg.Delete(ctx, "thread_15551234567"))

	_, err := repo.GetByID(ctx, "thread_15551234567")
	assert.ErrorIs(t, err, domain.ErrThreadNotFound)
}
