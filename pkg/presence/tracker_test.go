package presence

import (
	"testing"
	"time"

	"github.com/wayfare-social/wayfare-chat/pkg/dispatch"
	"github.com/wayfare-social/wayfare-chat/pkg/wire"
)

func newTestTracker(t *testing.T, ttl time.Duration) (*dispatch.Dispatcher, *Tracker) {
	t.Helper()
	d := dispatch.NewDispatcher()
	tr := NewTracker(d, ttl)
	t.Cleanup(tr.Close)
	return d, tr
}

func TestTracker_OnlineFold(t *testing.T) {
	d, tr := newTestTracker(t, time.Second)

	d.Publish(wire.PresenceEvent{UserID: "u2", Online: true})
	d.Publish(wire.PresenceEvent{UserID: "u3", Online: true})
	d.Publish(wire.PresenceEvent{UserID: "u2", Online: false})

	if tr.IsOnline("u2") {
		t.Error("u2 went offline")
	}
	if !tr.IsOnline("u3") {
		t.Error("u3 should be online")
	}
}

func TestTracker_AckReseedsOnlineSet(t *testing.T) {
	d, tr := newTestTracker(t, time.Second)

	d.Publish(wire.PresenceEvent{UserID: "stale", Online: true})
	d.Publish(wire.ConnectionAck{OnlineUsers: []string{"x", "y"}})

	got := tr.OnlineUsers()
	if len(got) != 2 || got[0] != "x" || got[1] != "y" {
		t.Errorf("expected exactly {x y} after reseed, got %v", got)
	}
	if tr.IsOnline("stale") {
		t.Error("pre-reconnect state must be discarded by the ack snapshot")
	}
}

func TestTracker_TypingSelfExpires(t *testing.T) {
	d, tr := newTestTracker(t, 30*time.Millisecond)

	d.Publish(wire.TypingEvent{ConversationID: "u2", Typing: true})
	if !tr.IsTyping("u2", false) {
		t.Fatal("typing should be set after typing_start")
	}

	deadline := time.Now().Add(time.Second)
	for tr.IsTyping("u2", false) {
		if time.Now().After(deadline) {
			t.Fatal("typing never self-expired")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTracker_TypingKeepAliveExtends(t *testing.T) {
	d, tr := newTestTracker(t, 60*time.Millisecond)

	d.Publish(wire.TypingEvent{ConversationID: "u2", Typing: true})
	time.Sleep(35 * time.Millisecond)
	d.Publish(wire.TypingEvent{ConversationID: "u2", Typing: true})
	time.Sleep(35 * time.Millisecond)

	if !tr.IsTyping("u2", false) {
		t.Error("keep-alive typing_start should have extended the TTL")
	}
}

func TestTracker_TypingStopClearsImmediately(t *testing.T) {
	d, tr := newTestTracker(t, time.Minute)

	d.Publish(wire.TypingEvent{ConversationID: "trip-1", IsGroupChat: true, Typing: true})
	d.Publish(wire.TypingEvent{ConversationID: "trip-1", IsGroupChat: true, Typing: false})

	if tr.IsTyping("trip-1", true) {
		t.Error("typing_stop should clear without waiting for the TTL")
	}
}

func TestTracker_MessageEndsTypingRun(t *testing.T) {
	d, tr := newTestTracker(t, time.Minute)

	d.Publish(wire.TypingEvent{ConversationID: "u2", Typing: true})
	d.Publish(wire.MessageEvent{Message: wire.Message{
		ID: "m1", SenderID: "u2", RecipientID: "u1", Content: "done typing",
	}})

	if tr.IsTyping("u2", false) {
		t.Error("a delivered message should clear the sender's typing flag")
	}
}

func TestTracker_DisconnectClearsTyping(t *testing.T) {
	d, tr := newTestTracker(t, time.Minute)

	d.Publish(wire.TypingEvent{ConversationID: "u2", Typing: true})
	d.Publish(wire.StateChange{State: wire.Disconnected})

	if tr.IsTyping("u2", false) {
		t.Error("typing state should not survive a disconnect")
	}
}
