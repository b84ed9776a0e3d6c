// Package presence folds dispatcher events into the session-wide view of
// which peers are online and who is typing. The tracker is the only writer
// of this state; everything else reads it.
package presence

import (
	"sort"
	"sync"
	"time"

	"github.com/wayfare-social/wayfare-chat/pkg/dispatch"
	"github.com/wayfare-social/wayfare-chat/pkg/logger"
	"github.com/wayfare-social/wayfare-chat/pkg/wire"
)

const component = "presence"

// Tracker maintains the online-peer set and per-conversation typing flags.
// Typing self-expires after the configured TTL: the server is not required
// to deliver a matching typing_stop, so a stuck indicator is cleared
// client-side.
type Tracker struct {
	mu     sync.Mutex
	online map[string]struct{}
	typing map[string]*time.Timer
	ttl    time.Duration

	unsubscribe func()
}

// NewTracker subscribes to the dispatcher and starts folding events.
func NewTracker(d *dispatch.Dispatcher, typingTTL time.Duration) *Tracker {
	t := &Tracker{
		online: make(map[string]struct{}),
		typing: make(map[string]*time.Timer),
		ttl:    typingTTL,
	}
	t.unsubscribe = d.Subscribe(t.handle)
	return t
}

// Close detaches the tracker from the dispatcher and clears typing timers.
func (t *Tracker) Close() {
	t.unsubscribe()
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, timer := range t.typing {
		timer.Stop()
		delete(t.typing, key)
	}
}

// IsOnline reports whether the peer is currently known to be online.
func (t *Tracker) IsOnline(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.online[userID]
	return ok
}

// OnlineUsers returns the sorted set of online peer ids.
func (t *Tracker) OnlineUsers() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.online))
	for id := range t.online {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// IsTyping reports whether the counterpart in the given conversation is
// typing.
func (t *Tracker) IsTyping(conversationID string, isGroupChat bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.typing[typingKey(conversationID, isGroupChat)]
	return ok
}

func (t *Tracker) handle(ev wire.Event) {
	switch ev := ev.(type) {
	case wire.PresenceEvent:
		t.mu.Lock()
		if ev.Online {
			t.online[ev.UserID] = struct{}{}
		} else {
			delete(t.online, ev.UserID)
		}
		t.mu.Unlock()

	case wire.ConnectionAck:
		// Snapshot replaces whatever we thought we knew; after a
		// reconnect the old set is stale.
		t.mu.Lock()
		t.online = make(map[string]struct{}, len(ev.OnlineUsers))
		for _, id := range ev.OnlineUsers {
			t.online[id] = struct{}{}
		}
		t.mu.Unlock()
		logger.DebugCF(component, "Online set reseeded", map[string]any{
			"count": len(ev.OnlineUsers),
		})

	case wire.TypingEvent:
		key := typingKey(ev.ConversationID, ev.IsGroupChat)
		if ev.Typing {
			t.setTyping(key)
		} else {
			t.clearTyping(key)
		}

	case wire.MessageEvent:
		// A delivered message ends the sender's typing run.
		if ev.Echo {
			return
		}
		if target, err := ev.Message.Target(); err == nil {
			switch tg := target.(type) {
			case wire.Direct:
				t.clearTyping(typingKey(ev.Message.SenderID, false))
			case wire.Group:
				t.clearTyping(typingKey(tg.ChatID, true))
			}
		}

	case wire.StateChange:
		if ev.State == wire.Disconnected {
			t.mu.Lock()
			for key, timer := range t.typing {
				timer.Stop()
				delete(t.typing, key)
			}
			t.mu.Unlock()
		}
	}
}

func (t *Tracker) setTyping(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.typing[key]; ok {
		timer.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(t.ttl, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		// A keep-alive may have replaced this timer in the meantime.
		if t.typing[key] == timer {
			delete(t.typing, key)
		}
	})
	t.typing[key] = timer
}

func (t *Tracker) clearTyping(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.typing[key]; ok {
		timer.Stop()
		delete(t.typing, key)
	}
}

// typingKey namespaces direct and group conversations, mirroring the thread
// key scheme used by the persistence rows.
func typingKey(conversationID string, isGroupChat bool) string {
	if isGroupChat {
		return "g:" + conversationID
	}
	return "u:" + conversationID
}
