package conversation

import (
	"sync"

	"github.com/wayfare-social/wayfare-chat/pkg/dispatch"
	"github.com/wayfare-social/wayfare-chat/pkg/wire"
)

// UnreadCounter tallies inbound messages for conversations the user does not
// have open, feeding the badge counts in the conversation list. Echoes of
// the user's own sends are never counted.
type UnreadCounter struct {
	mu     sync.Mutex
	counts map[string]int
	open   map[string]struct{}

	unsubscribe func()
}

// NewUnreadCounter subscribes to the dispatcher and starts counting.
func NewUnreadCounter(d *dispatch.Dispatcher) *UnreadCounter {
	c := &UnreadCounter{
		counts: make(map[string]int),
		open:   make(map[string]struct{}),
	}
	c.unsubscribe = d.Subscribe(c.handle)
	return c
}

// MarkOpen suppresses counting for a conversation while its view is open,
// and clears any count it had accumulated.
func (c *UnreadCounter) MarkOpen(id Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := id.Key()
	c.open[key] = struct{}{}
	delete(c.counts, key)
}

// MarkClosed resumes counting for a conversation.
func (c *UnreadCounter) MarkClosed(id Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.open, id.Key())
}

// Count returns the unread tally for one conversation.
func (c *UnreadCounter) Count(id Identity) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[id.Key()]
}

// Counts returns a snapshot of all nonzero tallies keyed by conversation.
func (c *UnreadCounter) Counts() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Close detaches the counter from the dispatcher.
func (c *UnreadCounter) Close() {
	c.unsubscribe()
}

func (c *UnreadCounter) handle(ev wire.Event) {
	msgEv, ok := ev.(wire.MessageEvent)
	if !ok || msgEv.Echo {
		return
	}
	key := conversationKeyFor(msgEv.Message)
	if key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, isOpen := c.open[key]; isOpen {
		return
	}
	c.counts[key]++
}

// conversationKeyFor maps an inbound message to the receiving user's
// conversation key: direct messages land in the sender's thread.
func conversationKeyFor(m wire.Message) string {
	target, err := m.Target()
	if err != nil {
		return ""
	}
	switch t := target.(type) {
	case wire.Direct:
		return "u:" + m.SenderID
	case wire.Group:
		return "g:" + t.ChatID
	}
	return ""
}
