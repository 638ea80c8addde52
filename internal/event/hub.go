// Package event provides the broadcast hub that fans document changes out to
// streaming clients.
package event

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/oklog/ulid/v2"

	"github.com/livedoc/livedoc/internal/logging"
)

// DefaultBufferSize is the per-subscriber channel capacity. Edits arrive at
// human speed, so a handful of slots covers any realistic burst.
const DefaultBufferSize = 8

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithBufferSize sets the capacity of each subscriber channel.
func WithBufferSize(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

// subscriberEntry is the hub's side of a Subscriber.
type subscriberEntry struct {
	id string
	ch chan ChangeEvent
}

// Hub owns the set of subscribers and fans every published ChangeEvent out
// to all of them.
//
// Subscriber channels are only closed while holding the write lock, and
// Publish only sends while holding the read lock, so a send never races a close.
type Hub struct {
	mu sync.RWMutex

	// Watermill pub/sub mirror of every published event
	pubsub *gochannel.GoChannel

	subscribers map[string]*subscriberEntry
	bufferSize  int
	closed      bool

	published atomic.Uint64
	dropped   atomic.Uint64
}

// NewHub creates an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer: 100,
				Persistent:          false,
			},
			watermill.NopLogger{},
		),
		subscribers: make(map[string]*subscriberEntry),
		bufferSize:  DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers a new subscriber with a fresh id and an open channel.
// On a closed hub the returned channel is already closed.
func (h *Hub) Subscribe() *Subscriber {
	entry := &subscriberEntry{
		id: ulid.Make().String(),
		ch: make(chan ChangeEvent, h.bufferSize),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(entry.ch)
		return &Subscriber{ID: entry.id, C: entry.ch}
	}
	h.subscribers[entry.id] = entry

	logging.Debug().
		Str("subscriber", entry.id).
		Int("subscribers", len(h.subscribers)).
		Msg("subscriber registered")

	return &Subscriber{ID: entry.id, C: entry.ch}
}

// Unsubscribe removes the subscriber and closes its channel. Removing an
// unknown or already removed id is a no-op.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.subscribers[id]
	if !ok {
		return
	}
	delete(h.subscribers, id)
	close(entry.ch)

	logging.Debug().
		Str("subscriber", id).
		Int("subscribers", len(h.subscribers)).
		Msg("subscriber removed")
}

// Publish delivers ev to every subscriber registered at the time of the call
// and returns how many received it. It never blocks: a subscriber whose
// channel is full misses this event.
func (h *Hub) Publish(ev ChangeEvent) int {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return 0
	}

	snapshot := make([]*subscriberEntry, 0, len(h.subscribers))
	for _, entry := range h.subscribers {
		snapshot = append(snapshot, entry)
	}

	delivered := 0
	for _, entry := range snapshot {
		select {
		case entry.ch <- ev:
			delivered++
		default:
			h.dropped.Add(1)
			logging.Warn().
				Str("subscriber", entry.id).
				Msg("change event dropped: channel full")
		}
	}
	h.mu.RUnlock()

	h.published.Add(1)
	h.mirror(ev)

	return delivered
}

// mirror republishes ev on the watermill topic.
func (h *Hub) mirror(ev ChangeEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		logging.Error().Err(err).Msg("failed to encode change event")
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := h.pubsub.Publish(ChangesTopic, msg); err != nil {
		logging.Debug().Err(err).Msg("change event not mirrored")
	}
}

// Len returns the number of registered subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Published returns how many events have been published.
func (h *Hub) Published() uint64 {
	return h.published.Load()
}

// Dropped returns how many per-subscriber deliveries were dropped because a
// channel was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close removes every subscriber, closing their channels, and rejects later
// subscriptions. It is safe to call more than once.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	for id, entry := range h.subscribers {
		close(entry.ch)
		delete(h.subscribers, id)
	}
	h.mu.Unlock()

	return h.pubsub.Close()
}

// PubSub returns the underlying watermill GoChannel that mirrors every event
// on ChangesTopic.
func (h *Hub) PubSub() *gochannel.GoChannel {
	return h.pubsub
}
