package notify

import (
	"testing"

	"strobeguard/internal/session"
)

func warningFor(sourceID string) *session.Warning {
	return &session.Warning{ID: "w-" + sourceID, SourceID: sourceID}
}

func TestBusHandlerDelivery(t *testing.T) {
	bus := NewWarningBus()
	defer bus.Close()

	var got []*session.Warning
	unsub := bus.Subscribe(WarningHandlerFunc(func(w *session.Warning) {
		got = append(got, w)
	}))

	bus.Publish(warningFor("cam-1"))
	bus.Publish(warningFor("cam-2"))
	if len(got) != 2 {
		t.Fatalf("handler received %d warnings, want 2", len(got))
	}

	unsub()
	bus.Publish(warningFor("cam-3"))
	if len(got) != 2 {
		t.Errorf("handler received warning after unsubscribe")
	}
}

func TestBusSourceFilter(t *testing.T) {
	bus := NewWarningBus()
	defer bus.Close()

	var got []*session.Warning
	bus.SubscribeSource("cam-1", WarningHandlerFunc(func(w *session.Warning) {
		got = append(got, w)
	}))

	bus.Publish(warningFor("cam-1"))
	bus.Publish(warningFor("cam-2"))
	bus.Publish(warningFor("cam-1"))

	if len(got) != 2 {
		t.Fatalf("filtered handler received %d warnings, want 2", len(got))
	}
	for _, w := range got {
		if w.SourceID != "cam-1" {
			t.Errorf("filter leaked warning from %s", w.SourceID)
		}
	}
}

func TestBusChannelDelivery(t *testing.T) {
	bus := NewWarningBus()
	defer bus.Close()

	ch, unsub := bus.SubscribeChannel(4)
	bus.Publish(warningFor("cam-1"))

	select {
	case w := <-ch:
		if w.SourceID != "cam-1" {
			t.Errorf("got warning for %s", w.SourceID)
		}
	default:
		t.Fatal("channel subscriber received nothing")
	}

	unsub()
	if _, open := <-ch; open {
		t.Error("channel still open after unsubscribe")
	}
}

func TestBusChannelOverflowDrops(t *testing.T) {
	bus := NewWarningBus()
	defer bus.Close()

	ch, _ := bus.SubscribeChannel(1)
	bus.Publish(warningFor("cam-1"))
	bus.Publish(warningFor("cam-2")) // buffer full, must not block

	w := <-ch
	if w.SourceID != "cam-1" {
		t.Errorf("got %s, want the first warning retained", w.SourceID)
	}
	select {
	case w := <-ch:
		t.Errorf("unexpected second delivery: %s", w.SourceID)
	default:
	}
}

func TestBusNilWarningIgnored(t *testing.T) {
	bus := NewWarningBus()
	defer bus.Close()

	called := false
	bus.Subscribe(WarningHandlerFunc(func(*session.Warning) { called = true }))
	bus.Publish(nil)
	if called {
		t.Error("nil warning reached a handler")
	}
}

func TestBusClose(t *testing.T) {
	bus := NewWarningBus()
	ch, _ := bus.SubscribeChannel(1)
	bus.Subscribe(WarningHandlerFunc(func(*session.Warning) {}))

	if got := bus.SubscriberCount(); got != 2 {
		t.Fatalf("SubscriberCount = %d, want 2", got)
	}
	bus.Close()
	if got := bus.SubscriberCount(); got != 0 {
		t.Errorf("SubscriberCount after Close = %d, want 0", got)
	}
	if _, open := <-ch; open {
		t.Error("channel still open after Close")
	}
}
