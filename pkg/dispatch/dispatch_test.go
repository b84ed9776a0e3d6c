package dispatch

import (
	"testing"

	"github.com/wayfare-social/wayfare-chat/pkg/wire"
)

func TestDispatcher_FanOut(t *testing.T) {
	d := NewDispatcher()
	var first, second []wire.Event
	d.Subscribe(func(ev wire.Event) { first = append(first, ev) })
	d.Subscribe(func(ev wire.Event) { second = append(second, ev) })

	events := []wire.Event{
		wire.PresenceEvent{UserID: "a", Online: true},
		wire.MessageEvent{Message: wire.Message{ID: "m1", SenderID: "a", RecipientID: "b", Content: "x"}},
		wire.PresenceEvent{UserID: "a"},
	}
	for _, ev := range events {
		if err := d.Publish(ev); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	for name, got := range map[string][]wire.Event{"first": first, "second": second} {
		if len(got) != len(events) {
			t.Fatalf("%s subscriber got %d events, want %d", name, len(got), len(events))
		}
		for i := range events {
			if got[i] != events[i] {
				t.Errorf("%s subscriber: event %d out of order: %+v", name, i, got[i])
			}
		}
	}
}

func TestDispatcher_UnsubscribeStopsDelivery(t *testing.T) {
	d := NewDispatcher()
	count := 0
	unsubscribe := d.Subscribe(func(wire.Event) { count++ })

	d.Publish(wire.PresenceEvent{UserID: "a", Online: true})
	unsubscribe()
	d.Publish(wire.PresenceEvent{UserID: "b", Online: true})

	if count != 1 {
		t.Errorf("expected exactly 1 delivery, got %d", count)
	}
}

func TestDispatcher_PublishAfterClose(t *testing.T) {
	d := NewDispatcher()
	delivered := false
	d.Subscribe(func(wire.Event) { delivered = true })
	d.Close()

	err := d.Publish(wire.PresenceEvent{UserID: "a", Online: true})
	if err != ErrDispatcherClosed {
		t.Errorf("expected ErrDispatcherClosed, got %v", err)
	}
	if delivered {
		t.Error("closed dispatcher must not deliver")
	}
}
