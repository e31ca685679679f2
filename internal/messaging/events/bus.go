// Package events implements the in-process fan-out that lets UI
// surfaces react to new messages and delivery transitions without
// polling. The registry is memory-only: subscriptions do not survive a
// process restart and must be re-established by each surface on mount.
package events

import (
	"sync"
	"sync/atomic"

	"github.com/tesla254/textly-core/internal/messaging/domain"
)

const defaultBufferSize = 64

// Bus carries two independent channels: message-arrived and
// delivery-status-changed. Ordering is guaranteed per listener (each
// subscriber drains its own queue in publish order); no ordering is
// guaranteed across listeners.
type Bus struct {
	mu           sync.Mutex
	closed       bool
	bufSize      int
	nextID       uint64
	messageSubs  map[uint64]chan domain.MessageEvent
	deliverySubs map[uint64]chan domain.DeliveryStatusEvent
	dropped      atomic.Uint64
}

// NewBus creates a Bus with the given per-subscriber queue depth.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Bus{
		bufSize:      bufferSize,
		messageSubs:  make(map[uint64]chan domain.MessageEvent),
		deliverySubs: make(map[uint64]chan domain.DeliveryStatusEvent),
	}
}

// Subscription is the typed handle returned on subscribe. Disposing it
// unsubscribes; Unsubscribe is idempotent and safe to call from UI
// lifecycle teardown.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe removes the listener. Events already queued for it may
// still be delivered.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// SubscribeMessages registers a listener for newly inserted messages,
// inbound or outbound-echo.
func (b *Bus) SubscribeMessages(handler func(domain.MessageEvent)) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return &Subscription{cancel: func() {}}
	}

	id := b.nextID
	b.nextID++
	ch := make(chan domain.MessageEvent, b.bufSize)
	b.messageSubs[id] = ch

	go func() {
		for ev := range ch {
			handler(ev)
		}
	}()

	return &Subscription{cancel: func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.messageSubs[id]; ok {
			delete(b.messageSubs, id)
			close(c)
		}
	}}
}

// SubscribeDelivery registers a listener for delivery status changes.
func (b *Bus) SubscribeDelivery(handler func(domain.DeliveryStatusEvent)) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return &Subscription{cancel: func() {}}
	}

	id := b.nextID
	b.nextID++
	ch := make(chan domain.DeliveryStatusEvent, b.bufSize)
	b.deliverySubs[id] = ch

	go func() {
		for ev := range ch {
			handler(ev)
		}
	}()

	return &Subscription{cancel: func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.deliverySubs[id]; ok {
			delete(b.deliverySubs, id)
			close(c)
		}
	}}
}

// PublishMessage fans a message-arrived event out to all current
// subscribers. A subscriber whose queue is full loses the event rather
// than stalling the publisher.
func (b *Bus) PublishMessage(ev domain.MessageEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.messageSubs {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

// PublishDelivery fans a delivery-status-changed event out to all
// current subscribers.
func (b *Bus) PublishDelivery(ev domain.DeliveryStatusEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.deliverySubs {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped reports how many events were lost to full subscriber queues.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// Close tears down every subscription. Further publishes are no-ops and
// further subscribes return inert handles.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.messageSubs {
		delete(b.messageSubs, id)
		close(ch)
	}
	for id, ch := range b.deliverySubs {
		delete(b.deliverySubs, id)
		close(ch)
	}
}
