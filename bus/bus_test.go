package bus

import (
	"testing"
	"time"
)

func recv(t *testing.T, sub *Subscription, d time.Duration) *Message {
	t.Helper()
	select {
	case m := <-sub.Channel():
		return m
	case <-time.After(d):
		t.Fatal("expected message, got timeout")
		return nil
	}
}

func expectNone(t *testing.T, sub *Subscription, d time.Duration) {
	t.Helper()
	select {
	case m := <-sub.Channel():
		t.Fatalf("unexpected message on %v: %+v", sub.Pattern(), m)
	case <-time.After(d):
	}
}

func TestExactDelivery(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("t")
	sub := c.Subscribe(T("motor", "m0", "value"))

	c.Publish(&Message{Topic: T("motor", "m0", "value"), Payload: 42})
	if m := recv(t, sub, 50*time.Millisecond); m.Payload != 42 {
		t.Fatalf("payload = %v", m.Payload)
	}

	c.Publish(&Message{Topic: T("motor", "m1", "value"), Payload: 1})
	expectNone(t, sub, 10*time.Millisecond)
}

func TestPlusWildcard(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("t")
	sub := c.Subscribe(T("motor", "m0", "control", "+"))

	c.Publish(&Message{Topic: T("motor", "m0", "control", "stop"), Payload: "x"})
	if m := recv(t, sub, 50*time.Millisecond); m.Topic.Last() != "stop" {
		t.Fatalf("topic = %v", m.Topic)
	}

	// "+" matches exactly one segment.
	c.Publish(&Message{Topic: T("motor", "m0", "control"), Payload: "x"})
	expectNone(t, sub, 10*time.Millisecond)
}

func TestHashWildcard(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("t")
	sub := c.Subscribe(T("motor", "#"))

	c.Publish(&Message{Topic: T("motor", "m0", "value"), Payload: 1})
	c.Publish(&Message{Topic: T("motor", "m1", "control", "stop"), Payload: 2})
	if m := recv(t, sub, 50*time.Millisecond); m.Payload != 1 {
		t.Fatalf("payload = %v", m.Payload)
	}
	if m := recv(t, sub, 50*time.Millisecond); m.Payload != 2 {
		t.Fatalf("payload = %v", m.Payload)
	}
}

func TestRetainedDeliveredOnSubscribe(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("t")

	c.Publish(&Message{Topic: T("motor", "m0", "value"), Payload: 7, Retained: true})

	late := c.Subscribe(T("motor", "m0", "value"))
	if m := recv(t, late, 50*time.Millisecond); m.Payload != 7 {
		t.Fatalf("retained payload = %v", m.Payload)
	}

	wild := c.Subscribe(T("motor", "#"))
	if m := recv(t, wild, 50*time.Millisecond); m.Payload != 7 {
		t.Fatalf("retained payload via # = %v", m.Payload)
	}

	// nil payload clears the retained slot.
	c.Publish(&Message{Topic: T("motor", "m0", "value"), Retained: true})
	gone := c.Subscribe(T("motor", "m0", "value"))
	expectNone(t, gone, 10*time.Millisecond)
}

func TestQueueDropsOldest(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("t")
	sub := c.Subscribe(T("x"))

	for i := 0; i < 5; i++ {
		c.Publish(&Message{Topic: T("x"), Payload: i})
	}
	if m := recv(t, sub, 50*time.Millisecond); m.Payload != 3 {
		t.Fatalf("first queued payload = %v, want 3", m.Payload)
	}
	if m := recv(t, sub, 50*time.Millisecond); m.Payload != 4 {
		t.Fatalf("second queued payload = %v, want 4", m.Payload)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("t")
	sub := c.Subscribe(T("x"))
	c.Unsubscribe(sub)
	c.Publish(&Message{Topic: T("x"), Payload: 1})
	// Channel is closed after Unsubscribe; a receive must not yield a value.
	if m, ok := <-sub.Channel(); ok {
		t.Fatalf("received %+v after unsubscribe", m)
	}
}

func TestDisconnectClosesAll(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("t")
	s1 := c.Subscribe(T("a"))
	s2 := c.Subscribe(T("b", "+"))
	c.Disconnect()
	if _, ok := <-s1.Channel(); ok {
		t.Fatal("s1 still open")
	}
	if _, ok := <-s2.Channel(); ok {
		t.Fatal("s2 still open")
	}
}
