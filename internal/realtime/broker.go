package realtime

import (
	"context"
	"sync"
	"time"
)

// Topic names. Favorite events are fanned out per user so a session only
// receives its own ledger changes.
const (
	TopicListings = "listings"
)

// TopicFavorites returns the per-user favorites topic.
func TopicFavorites(userID string) string {
	return "favorites." + userID
}

// Event kinds.
const (
	EventCreated     = "created"
	EventUpdated     = "updated"
	EventDeleted     = "deleted"
	EventFavorited   = "favorited"
	EventUnfavorited = "unfavorited"
)

// Event describes a change to a listing or a favorite ledger entry.
type Event struct {
	Kind      string    `json:"kind"`
	ListingID string    `json:"listing_id"`
	UserID    string    `json:"user_id,omitempty"`
	At        time.Time `json:"at"`
}

// Subscription is a live feed of events for one topic. Consumers must call
// Unsubscribe exactly once when done; the channel is closed afterwards.
type Subscription struct {
	C      <-chan Event
	cancel func()
	once   sync.Once
}

// Unsubscribe tears the subscription down. Safe to call multiple times.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// Broker is the subscribe(callback) -> unsubscribe() capability backing the
// listing repository and favorite ledger realtime surfaces.
type Broker interface {
	Publish(ctx context.Context, topic string, ev Event) error
	Subscribe(topic string) (*Subscription, error)
	Close()
}

// subscriberBufferSize bounds per-subscriber queues; a consumer that falls
// this far behind loses events rather than blocking publishers.
const subscriberBufferSize = 64

// Hub is an in-process Broker. It backs single-instance deployments and tests.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[int]chan Event
	nextID int
	closed bool
}

// NewHub creates an in-memory broker.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]chan Event)}
}

// Publish delivers ev to all current subscribers of topic.
func (h *Hub) Publish(_ context.Context, topic string, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[topic] {
		select {
		case ch <- ev:
		default: // drop for slow consumers
		}
	}
	return nil
}

// Subscribe registers a new subscriber for topic.
func (h *Hub) Subscribe(topic string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan Event, subscriberBufferSize)
	if h.closed {
		close(ch)
		return &Subscription{C: ch, cancel: func() {}}, nil
	}
	id := h.nextID
	h.nextID++
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[int]chan Event)
	}
	h.subs[topic][id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if subs, ok := h.subs[topic]; ok {
			if c, ok := subs[id]; ok {
				delete(subs, id)
				close(c)
				if len(subs) == 0 {
					delete(h.subs, topic)
				}
			}
		}
	}
	return &Subscription{C: ch, cancel: cancel}, nil
}

// Close shuts the hub down and closes all subscriber channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for topic, subs := range h.subs {
		for id, ch := range subs {
			delete(subs, id)
			close(ch)
		}
		delete(h.subs, topic)
	}
}
