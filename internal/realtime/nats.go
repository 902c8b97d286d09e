package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/nats-io/nats.go"
)

// eventGate serializes channel sends against close. NATS delivers messages on
// its own goroutine and Unsubscribe does not wait for an in-flight handler,
// so an unguarded close could race a late send and panic.
type eventGate struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

func newEventGate(ch chan Event) *eventGate {
	return &eventGate{ch: ch}
}

func (g *eventGate) send(ev Event) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	select {
	case g.ch <- ev:
	default: // drop for slow consumers
	}
}

func (g *eventGate) close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	close(g.ch)
}

// NatsBroker is a Broker backed by a NATS connection, for multi-instance
// deployments where events must cross process boundaries.
type NatsBroker struct {
	conn *nats.Conn
}

// NewNatsBroker connects to the NATS server at url.
func NewNatsBroker(url string) (*NatsBroker, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NatsBroker{conn: conn}, nil
}

// Publish marshals ev to JSON and publishes it on the topic subject.
func (b *NatsBroker) Publish(_ context.Context, topic string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return b.conn.Publish(topic, data)
}

// Subscribe bridges a NATS subscription into the Subscription channel contract.
func (b *NatsBroker) Subscribe(topic string) (*Subscription, error) {
	gate := newEventGate(make(chan Event, subscriberBufferSize))
	sub, err := b.conn.Subscribe(topic, func(msg *nats.Msg) {
		var ev Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			log.Printf("realtime: dropping malformed event on %s: %v", topic, err)
			return
		}
		gate.send(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	cancel := func() {
		_ = sub.Unsubscribe()
		gate.close()
	}
	return &Subscription{C: gate.ch, cancel: cancel}, nil
}

// Close drains and closes the NATS connection.
func (b *NatsBroker) Close() {
	b.conn.Close()
}
