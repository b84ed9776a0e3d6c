package conversation

import (
	"testing"

	"github.com/wayfare-social/wayfare-chat/pkg/dispatch"
	"github.com/wayfare-social/wayfare-chat/pkg/wire"
)

func TestUnreadCounter_CountsClosedConversations(t *testing.T) {
	d := dispatch.NewDispatcher()
	c := NewUnreadCounter(d)
	defer c.Close()

	d.Publish(wire.MessageEvent{Message: wire.Message{ID: "m1", SenderID: "u5", RecipientID: "u1", Content: "hi"}})
	d.Publish(wire.MessageEvent{Message: wire.Message{ID: "m2", SenderID: "u5", RecipientID: "u1", Content: "again"}})
	d.Publish(wire.MessageEvent{Message: wire.Message{ID: "m3", SenderID: "u6", ChatID: "trip-1", Content: "group"}})

	if got := c.Count(DirectIdentity{UserID: "u1", PeerID: "u5"}); got != 2 {
		t.Errorf("direct unread: got %d, want 2", got)
	}
	if got := c.Count(GroupIdentity{ChatID: "trip-1"}); got != 1 {
		t.Errorf("group unread: got %d, want 1", got)
	}
}

func TestUnreadCounter_OpenConversationNotCounted(t *testing.T) {
	d := dispatch.NewDispatcher()
	c := NewUnreadCounter(d)
	defer c.Close()

	id := DirectIdentity{UserID: "u1", PeerID: "u5"}
	c.MarkOpen(id)
	d.Publish(wire.MessageEvent{Message: wire.Message{ID: "m1", SenderID: "u5", RecipientID: "u1", Content: "hi"}})

	if got := c.Count(id); got != 0 {
		t.Errorf("open conversation must not accumulate unread, got %d", got)
	}

	c.MarkClosed(id)
	d.Publish(wire.MessageEvent{Message: wire.Message{ID: "m2", SenderID: "u5", RecipientID: "u1", Content: "later"}})
	if got := c.Count(id); got != 1 {
		t.Errorf("counting should resume after close, got %d", got)
	}
}

func TestUnreadCounter_IgnoresEchoes(t *testing.T) {
	d := dispatch.NewDispatcher()
	c := NewUnreadCounter(d)
	defer c.Close()

	d.Publish(wire.MessageEvent{Echo: true, Message: wire.Message{ID: "m1", SenderID: "u1", RecipientID: "u5", Content: "mine"}})

	if counts := c.Counts(); len(counts) != 0 {
		t.Errorf("echoes of own sends must not count, got %v", counts)
	}
}
