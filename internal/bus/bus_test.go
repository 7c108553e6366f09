package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("store.", 10)
	defer unsub()

	b.Publish(Now(KindChatsChanged, "test"))

	select {
	case evt := <-ch:
		if evt.Kind != KindChatsChanged {
			t.Errorf("got kind %q, want %s", evt.Kind, KindChatsChanged)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(RealtimePrefix, 10)
	defer unsub()

	b.Publish(Event{Kind: KindChatsChanged})
	b.Publish(Event{Kind: "rt.message:new"})

	select {
	case evt := <-ch:
		if evt.Kind != "rt.message:new" {
			t.Errorf("got kind %q, want rt.message:new", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("store.", 10)
	unsub()

	b.Publish(Event{Kind: KindChatsChanged})

	select {
	case evt, ok := <-ch:
		if ok {
			t.Errorf("received event after unsubscribe: %v", evt)
		}
	case <-time.After(50 * time.Millisecond):
		t.Fatal("channel not closed after unsubscribe")
	}
}

func TestUnsubscribeTwice(t *testing.T) {
	b := New()
	_, unsub := b.Subscribe("store.", 1)
	unsub()
	unsub()

	if n := b.Len(); n != 0 {
		t.Errorf("Len() = %d, want 0", n)
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("test.", 1)
	defer unsub()

	b.Publish(Event{Kind: "test.one"})
	b.Publish(Event{Kind: "test.two"})

	evt := <-ch
	if evt.Kind != "test.one" {
		t.Errorf("got %q, want test.one", evt.Kind)
	}
}
