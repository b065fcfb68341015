package eventbus

import (
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Publish(AlertEvent{TherapistID: "t1", Severity: "critical"})
	v := <-ch
	ev, ok := v.(AlertEvent)
	if !ok || ev.TherapistID != "t1" {
		t.Fatalf("expected alert for t1, got %v", v)
	}
	bus.Unsubscribe(ch)
}

func TestBusFansOutToAllSubscribers(t *testing.T) {
	bus := New()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Publish(PlanEvent{PlanID: "p1", From: "draft", To: "approved"})
	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case v := <-ch:
			if v.(PlanEvent).PlanID != "p1" {
				t.Fatalf("unexpected event %v", v)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestBusDropsWhenSubscriberIsFull(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	// The subscriber buffer holds 16 events; the rest must be dropped
	// without blocking the publisher.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(ValidationEvent{TherapistID: "t1"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	if got := len(ch); got != 16 {
		t.Fatalf("buffered events = %d, want 16", got)
	}
}

func TestBusClose(t *testing.T) {
	bus := New()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Close()
	if _, ok := <-ch1; ok {
		t.Fatalf("expected ch1 closed")
	}
	if _, ok := <-ch2; ok {
		t.Fatalf("expected ch2 closed")
	}
	// Publishing after Close is a no-op, not a panic.
	bus.Publish(AlertEvent{TherapistID: "t1"})
}

func TestBusSubscribeAfterClose(t *testing.T) {
	bus := New()
	bus.Close()
	ch := bus.Subscribe()
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel from Subscribe after Close")
	}
}

func TestBusUnsubscribeAfterClose(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Close()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic on Unsubscribe after Close: %v", r)
		}
	}()
	bus.Unsubscribe(ch)
}
