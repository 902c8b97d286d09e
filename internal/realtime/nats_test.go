package realtime

import (
	"sync"
	"testing"
)

func TestEventGate_SendAfterCloseIsDropped(t *testing.T) {
	gate := newEventGate(make(chan Event, 2))
	gate.send(Event{Kind: EventCreated})
	gate.close()

	// A delivery landing after cancel must be dropped, not panic.
	gate.send(Event{Kind: EventUpdated})
	gate.close()

	ev, ok := <-gate.ch
	if !ok || ev.Kind != EventCreated {
		t.Fatalf("expected buffered event before close, got %+v ok=%v", ev, ok)
	}
	if _, ok := <-gate.ch; ok {
		t.Fatal("expected channel closed after the buffered event")
	}
}

func TestEventGate_ConcurrentSendAndClose(t *testing.T) {
	gate := newEventGate(make(chan Event, 4))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				gate.send(Event{Kind: EventCreated})
			}
		}()
	}
	gate.close()
	wg.Wait()
}

func TestEventGate_DropsWhenBufferFull(t *testing.T) {
	gate := newEventGate(make(chan Event, 1))
	gate.send(Event{Kind: EventCreated})
	gate.send(Event{Kind: EventUpdated})

	ev := <-gate.ch
	if ev.Kind != EventCreated {
		t.Fatalf("expected first event kept, got %s", ev.Kind)
	}
	select {
	case ev := <-gate.ch:
		t.Fatalf("expected overflow event dropped, got %s", ev.Kind)
	default:
	}
}
