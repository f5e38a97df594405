package events

import (
	"sync"
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	var received []Event

	bus.Subscribe(func(e Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	}, EventUserMessage)

	bus.Publish(NewTypedEvent(SourceSession, UserMessagePayload{Content: "hello"}))
	bus.Publish(NewTypedEvent(SourceSession, AssistantStreamPayload{Phase: StreamPhaseStart}))

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	if received[0].Type != EventUserMessage {
		t.Errorf("expected user.message, got %s", received[0].Type)
	}
}

func TestBusSubscribeAll(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	count := 0

	bus.Subscribe(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	bus.Publish(NewTypedEvent(SourceSession, UserMessagePayload{Content: "hello"}))
	bus.Publish(NewTypedEvent(SourceSession, AssistantStreamPayload{Phase: StreamPhaseStart}))

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if count != 2 {
		t.Errorf("expected 2 events, got %d", count)
	}
}

func TestBusPreservesOrder(t *testing.T) {
	bus := NewBus(4)

	var got []int
	bus.Subscribe(func(e Event) {
		p, _ := GetAssistantStreamPayload(e)
		got = append(got, p.Index)
	}, EventAssistantStream)

	for i := 0; i < 200; i++ {
		bus.Publish(NewTypedEvent(SourceSession, AssistantStreamPayload{Phase: StreamPhaseDelta, Index: i}))
	}
	// Close drains everything already published.
	bus.Close()

	if len(got) != 200 {
		t.Fatalf("expected 200 events, got %d", len(got))
	}
	for i, idx := range got {
		if idx != i {
			t.Fatalf("event %d delivered out of order (index %d)", i, idx)
		}
	}
}

func TestBusPublishAfterClose(t *testing.T) {
	bus := NewBus(4)
	bus.Close()
	bus.Close()

	bus.Publish(NewTypedEvent(SourceSession, UserMessagePayload{Content: "late"}))
	if err := bus.PublishAsync(t.Context(), NewTypedEvent(SourceSession, UserMessagePayload{})); err != ErrBusClosed {
		t.Errorf("expected ErrBusClosed, got %v", err)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(8)

	count := 0
	unsub := bus.Subscribe(func(e Event) { count++ })
	bus.Publish(NewTypedEvent(SourceSession, UserMessagePayload{}))
	time.Sleep(20 * time.Millisecond)
	unsub()
	bus.Publish(NewTypedEvent(SourceSession, UserMessagePayload{}))
	bus.Close()

	if count != 1 {
		t.Errorf("expected 1 delivery, got %d", count)
	}
}

func TestRingBuffer(t *testing.T) {
	rb := NewRingBuffer(3)

	for i := 0; i < 5; i++ {
		rb.Add(NewEvent(EventUserMessage, SourceSession, map[string]any{"i": i}))
	}

	events := rb.Get(10)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Payload["i"] != 2 {
		t.Errorf("expected oldest kept event to be 2, got %v", events[0].Payload["i"])
	}
}

func TestSubscribeChan(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	ch, unsub := bus.SubscribeChan(8, EventUserMessage)
	defer unsub()

	bus.Publish(NewTypedEvent(SourceSession, UserMessagePayload{Content: "hello"}))

	select {
	case e := <-ch:
		if e.Type != EventUserMessage {
			t.Errorf("expected user.message, got %s", e.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestSubscribeChanUnsubscribeTwice(t *testing.T) {
	bus := NewBus(8)
	defer bus.Close()

	ch, unsub := bus.SubscribeChan(1)
	unsub()
	unsub()

	bus.Publish(NewTypedEvent(SourceSession, UserMessagePayload{}))
	if _, ok := <-ch; ok {
		t.Error("expected closed channel")
	}
}
