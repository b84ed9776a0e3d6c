package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wayfare-social/wayfare-chat/pkg/dispatch"
	"github.com/wayfare-social/wayfare-chat/pkg/history"
	"github.com/wayfare-social/wayfare-chat/pkg/logger"
	"github.com/wayfare-social/wayfare-chat/pkg/transport"
	"github.com/wayfare-social/wayfare-chat/pkg/wire"
)

const component = "conversation"

// ErrClosed is returned by Send on a closed binding.
var ErrClosed = errors.New("conversation binding is closed")

// typingThrottle bounds how often a typing_start keep-alive is emitted while
// the user keeps typing.
const typingThrottle = time.Second

// Status is an entry's confirmation state.
type Status int

const (
	// Pending: shown optimistically, no server confirmation yet.
	Pending Status = iota
	// Confirmed: echoed by the server with its assigned id.
	Confirmed
	// Failed: the send never reached the transport; resend is manual.
	Failed
)

// Entry is one rendered message: the wire record plus local state.
type Entry struct {
	wire.Message
	Status     Status
	SenderName string
}

// HistoryFetcher is the slice of the persistence client a binding needs.
type HistoryFetcher interface {
	DirectHistory(ctx context.Context, userA, userB string) ([]wire.Message, error)
	GroupHistory(ctx context.Context, chatID string) ([]wire.Message, error)
}

// ReadMarker is an opt-in extension of HistoryFetcher. When the fetcher
// implements it, a direct binding marks the counterpart's messages read
// after the history page loads.
type ReadMarker interface {
	MarkDirectRead(ctx context.Context, readerID, senderID string) error
}

// Option configures a Binding.
type Option func(*Binding)

// WithProfileResolver enables sender display-name enrichment.
func WithProfileResolver(r *history.ProfileResolver) Option {
	return func(b *Binding) { b.resolver = r }
}

// WithUpdateFunc registers a callback invoked after every change to the
// entry list. It runs outside the binding's lock.
func WithUpdateFunc(f func()) Option {
	return func(b *Binding) { b.onUpdate = f }
}

// Binding is the live controller for one open conversation.
type Binding struct {
	identity Identity
	userID   string
	sender   transport.Sender
	fetcher  HistoryFetcher
	resolver *history.ProfileResolver
	onUpdate func()

	mu         sync.Mutex
	entries    []Entry
	byID       map[string]struct{}
	closed     bool
	historyErr error
	lastTyping time.Time

	unsubscribe func()
}

// Open attaches a binding for the given conversation: it subscribes to the
// live stream immediately and fetches the history page in the background.
// A history failure degrades the binding to live-only; it is reported via
// HistoryErr, never fatal.
func Open(ctx context.Context, d *dispatch.Dispatcher, snd transport.Sender, fetcher HistoryFetcher, userID string, id Identity, opts ...Option) *Binding {
	b := &Binding{
		identity: id,
		userID:   userID,
		sender:   snd,
		fetcher:  fetcher,
		byID:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	b.unsubscribe = d.Subscribe(b.handle)
	go b.fetchHistory(ctx)
	return b
}

// Identity returns the conversation this binding is attached to.
func (b *Binding) Identity() Identity { return b.identity }

// Messages returns a snapshot of the conversation in display order.
func (b *Binding) Messages() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// HistoryErr reports a failed history fetch. Live messaging still works.
func (b *Binding) HistoryErr() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.historyErr
}

// Send appends an optimistic entry and hands the frame to the transport.
// On transport failure the entry is marked Failed and the error returned;
// there is no automatic retry.
func (b *Binding) Send(content string) (Entry, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return Entry{}, ErrClosed
	}

	entry := Entry{
		Message: wire.Message{
			ClientID:  uuid.NewString(),
			SenderID:  b.userID,
			Content:   content,
			CreatedAt: time.Now(),
		},
		Status: Pending,
	}
	switch t := b.identity.Target().(type) {
	case wire.Direct:
		entry.RecipientID = t.RecipientID
	case wire.Group:
		entry.ChatID = t.ChatID
	}
	b.entries = append(b.entries, entry)
	clientID := entry.ClientID
	b.mu.Unlock()
	b.notify()

	if err := b.sender.SendMessage(clientID, b.identity.Target(), content); err != nil {
		b.markFailed(clientID)
		logger.WarnCF(component, "Send failed", map[string]any{
			"conversation": b.identity.Key(),
			"error":        err.Error(),
		})
		return b.entryByClientID(clientID), err
	}
	return entry, nil
}

// Resend retries a failed entry as a brand-new optimistic send and drops
// the failed one.
func (b *Binding) Resend(clientID string) (Entry, error) {
	b.mu.Lock()
	var content string
	found := false
	for i, e := range b.entries {
		if e.ClientID == clientID && e.Status == Failed {
			content = e.Content
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			found = true
			break
		}
	}
	b.mu.Unlock()
	if !found {
		return Entry{}, errors.New("no failed entry with that client id")
	}
	return b.Send(content)
}

// SetTyping forwards the user's typing state, throttling keep-alive starts.
// Best effort all the way down.
func (b *Binding) SetTyping(typing bool) {
	convID, isGroup := b.typingTarget()
	if typing {
		b.mu.Lock()
		if time.Since(b.lastTyping) < typingThrottle {
			b.mu.Unlock()
			return
		}
		b.lastTyping = time.Now()
		b.mu.Unlock()
	}
	b.sender.SendTyping(convID, isGroup, typing)
}

// Close detaches the binding. Unsubscription is synchronous; a history
// fetch still in flight will find the binding closed and discard its page.
func (b *Binding) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.unsubscribe()
	convID, isGroup := b.typingTarget()
	b.sender.SendTyping(convID, isGroup, false)
}

func (b *Binding) typingTarget() (string, bool) {
	switch id := b.identity.(type) {
	case DirectIdentity:
		return id.PeerID, false
	case GroupIdentity:
		return id.ChatID, true
	}
	return "", false
}

// handle processes one dispatched event. Runs on the transport's read
// goroutine; everything here is quick map/slice work.
func (b *Binding) handle(ev wire.Event) {
	msgEv, ok := ev.(wire.MessageEvent)
	if !ok {
		return
	}
	msg := msgEv.Message
	if !b.identity.Matches(msg) {
		return
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}

	// Dedup by server id: a replayed frame changes nothing.
	if msg.ID != "" {
		if _, seen := b.byID[msg.ID]; seen {
			b.mu.Unlock()
			return
		}
	}

	if i := b.pendingIndex(msg); i >= 0 {
		// Confirmation of our own optimistic entry.
		clientID := b.entries[i].ClientID
		b.entries[i].Message = msg
		b.entries[i].ClientID = clientID
		b.entries[i].Status = Confirmed
	} else {
		b.entries = append(b.entries, Entry{Message: msg, Status: Confirmed})
	}
	if msg.ID != "" {
		b.byID[msg.ID] = struct{}{}
	}
	b.mu.Unlock()
	b.notify()
}

// pendingIndex finds the optimistic entry a confirmed message corresponds
// to. An echoed client_id gives an exact match; otherwise fall back to the
// (sender, target, content) heuristic over still-pending entries.
func (b *Binding) pendingIndex(msg wire.Message) int {
	if msg.ClientID != "" {
		for i, e := range b.entries {
			if e.Status == Pending && e.ClientID == msg.ClientID {
				return i
			}
		}
		return -1
	}
	for i, e := range b.entries {
		if e.Status == Pending &&
			e.SenderID == msg.SenderID &&
			e.RecipientID == msg.RecipientID &&
			e.ChatID == msg.ChatID &&
			e.Content == msg.Content {
			return i
		}
	}
	return -1
}

func (b *Binding) fetchHistory(ctx context.Context) {
	var msgs []wire.Message
	var err error
	switch id := b.identity.(type) {
	case DirectIdentity:
		msgs, err = b.fetcher.DirectHistory(ctx, id.UserID, id.PeerID)
	case GroupIdentity:
		msgs, err = b.fetcher.GroupHistory(ctx, id.ChatID)
	}

	if err != nil {
		b.mu.Lock()
		b.historyErr = err
		b.mu.Unlock()
		logger.WarnCF(component, "History fetch failed, live-only", map[string]any{
			"conversation": b.identity.Key(),
			"error":        err.Error(),
		})
		return
	}

	names := b.resolveNames(ctx, msgs)

	b.mu.Lock()
	if b.closed {
		// The view went away while we were fetching; a late page must
		// not resurrect state.
		b.mu.Unlock()
		return
	}
	live := b.entries
	merged := make([]Entry, 0, len(msgs)+len(live))
	for _, m := range msgs {
		if m.ID != "" {
			if _, seen := b.byID[m.ID]; seen {
				continue
			}
			b.byID[m.ID] = struct{}{}
		}
		merged = append(merged, Entry{Message: m, Status: Confirmed, SenderName: names[m.SenderID]})
	}
	b.entries = append(merged, live...)
	b.mu.Unlock()
	b.notify()

	if id, ok := b.identity.(DirectIdentity); ok {
		if marker, ok := b.fetcher.(ReadMarker); ok {
			if err := marker.MarkDirectRead(ctx, id.UserID, id.PeerID); err != nil {
				logger.DebugCF(component, "Mark-read failed", map[string]any{
					"conversation": b.identity.Key(),
				})
			}
		}
	}
}

// resolveNames joins sender display names onto a history page. Lookups are
// memoized per session; failures leave the name blank.
func (b *Binding) resolveNames(ctx context.Context, msgs []wire.Message) map[string]string {
	names := make(map[string]string)
	if b.resolver == nil {
		return names
	}
	for _, m := range msgs {
		if _, done := names[m.SenderID]; done {
			continue
		}
		if p, err := b.resolver.Resolve(ctx, m.SenderID); err == nil {
			names[m.SenderID] = p.Name
		} else {
			names[m.SenderID] = ""
		}
	}
	return names
}

func (b *Binding) markFailed(clientID string) {
	b.mu.Lock()
	for i := range b.entries {
		if b.entries[i].ClientID == clientID && b.entries[i].Status == Pending {
			b.entries[i].Status = Failed
			break
		}
	}
	b.mu.Unlock()
	b.notify()
}

func (b *Binding) entryByClientID(clientID string) Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.entries {
		if e.ClientID == clientID {
			return e
		}
	}
	return Entry{}
}

func (b *Binding) notify() {
	if b.onUpdate != nil {
		b.onUpdate()
	}
}
