package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wayfare-social/wayfare-chat/pkg/dispatch"
	"github.com/wayfare-social/wayfare-chat/pkg/transport"
	"github.com/wayfare-social/wayfare-chat/pkg/wire"
)

type sentFrame struct {
	clientID string
	target   wire.Target
	content  string
}

// fakeSender stands in for the transport. Frames are recorded only when
// "connected", matching the real contract that a down connection transmits
// nothing.
type fakeSender struct {
	mu        sync.Mutex
	connected bool
	frames    []sentFrame
	typings   []bool
}

func (f *fakeSender) SendMessage(clientID string, target wire.Target, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return transport.ErrNotConnected
	}
	f.frames = append(f.frames, sentFrame{clientID, target, content})
	return nil
}

func (f *fakeSender) SendTyping(_ string, _, typing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typings = append(f.typings, typing)
}

func (f *fakeSender) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

type fakeFetcher struct {
	direct  []wire.Message
	group   []wire.Message
	err     error
	release chan struct{}

	mu        sync.Mutex
	markReads int
}

func (f *fakeFetcher) DirectHistory(ctx context.Context, _, _ string) ([]wire.Message, error) {
	if f.release != nil {
		<-f.release
	}
	return f.direct, f.err
}

func (f *fakeFetcher) GroupHistory(ctx context.Context, _ string) ([]wire.Message, error) {
	if f.release != nil {
		<-f.release
	}
	return f.group, f.err
}

func (f *fakeFetcher) MarkDirectRead(_ context.Context, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markReads++
	return nil
}

func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal(msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func openDirect(t *testing.T, snd *fakeSender, fetcher *fakeFetcher) (*dispatch.Dispatcher, *Binding) {
	t.Helper()
	d := dispatch.NewDispatcher()
	b := Open(context.Background(), d, snd, fetcher, "u1", DirectIdentity{UserID: "u1", PeerID: "u2"})
	t.Cleanup(b.Close)
	return d, b
}

func TestBinding_OptimisticThenConfirm(t *testing.T) {
	snd := &fakeSender{connected: true}
	d, b := openDirect(t, snd, &fakeFetcher{})

	if _, err := b.Send("hi"); err != nil {
		t.Fatalf("send: %v", err)
	}

	msgs := b.Messages()
	if len(msgs) != 1 || msgs[0].Status != Pending || msgs[0].Content != "hi" {
		t.Fatalf("expected one pending entry, got %+v", msgs)
	}

	// Server confirms by field match; no client_id echoed.
	d.Publish(wire.MessageEvent{Echo: true, Message: wire.Message{
		ID: "m1", SenderID: "u1", RecipientID: "u2", Content: "hi",
	}})

	msgs = b.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected exactly one entry after confirmation, got %d", len(msgs))
	}
	if msgs[0].Status != Confirmed || msgs[0].ID != "m1" {
		t.Errorf("expected confirmed m1, got %+v", msgs[0])
	}
}

func TestBinding_ConfirmByEchoedClientID(t *testing.T) {
	snd := &fakeSender{connected: true}
	d, b := openDirect(t, snd, &fakeFetcher{})

	// Two identical sends in quick succession: the field-match heuristic
	// alone cannot tell them apart, the echoed client_id can.
	b.Send("same text")
	b.Send("same text")

	snd.mu.Lock()
	secondClientID := snd.frames[1].clientID
	snd.mu.Unlock()

	d.Publish(wire.MessageEvent{Echo: true, Message: wire.Message{
		ID: "m2", ClientID: secondClientID, SenderID: "u1", RecipientID: "u2", Content: "same text",
	}})

	msgs := b.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected two entries, got %d", len(msgs))
	}
	if msgs[0].Status != Pending {
		t.Errorf("first send should still be pending, got %+v", msgs[0])
	}
	if msgs[1].Status != Confirmed || msgs[1].ID != "m2" {
		t.Errorf("second send should be confirmed as m2, got %+v", msgs[1])
	}
}

func TestBinding_DedupByServerID(t *testing.T) {
	snd := &fakeSender{connected: true}
	d, b := openDirect(t, snd, &fakeFetcher{})

	ev := wire.MessageEvent{Message: wire.Message{
		ID: "m1", SenderID: "u2", RecipientID: "u1", Content: "hello",
	}}
	d.Publish(ev)
	d.Publish(ev)
	d.Publish(ev)

	if got := len(b.Messages()); got != 1 {
		t.Errorf("expected exactly one entry for id m1, got %d", got)
	}
}

func TestBinding_ScopedToIdentity(t *testing.T) {
	snd := &fakeSender{connected: true}
	d, b := openDirect(t, snd, &fakeFetcher{})

	// Different pair, group traffic, and unrelated events: none belong here.
	d.Publish(wire.MessageEvent{Message: wire.Message{ID: "x1", SenderID: "u3", RecipientID: "u1", Content: "other dm"}})
	d.Publish(wire.MessageEvent{Message: wire.Message{ID: "x2", SenderID: "u2", ChatID: "trip-1", Content: "group"}})
	d.Publish(wire.PresenceEvent{UserID: "u2", Online: true})
	d.Publish(wire.MessageEvent{Message: wire.Message{ID: "ok", SenderID: "u2", RecipientID: "u1", Content: "mine"}})

	msgs := b.Messages()
	if len(msgs) != 1 || msgs[0].ID != "ok" {
		t.Errorf("expected only the in-scope message, got %+v", msgs)
	}
}

func TestBinding_SendWhileDisconnected(t *testing.T) {
	snd := &fakeSender{connected: false}
	_, b := openDirect(t, snd, &fakeFetcher{})

	entry, err := b.Send("doomed")
	if !errors.Is(err, transport.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if snd.frameCount() != 0 {
		t.Errorf("no frame may be transmitted while disconnected, got %d", snd.frameCount())
	}
	if entry.Status != Failed {
		t.Errorf("entry should be marked failed, got %+v", entry)
	}
}

func TestBinding_ResendCreatesFreshEntry(t *testing.T) {
	snd := &fakeSender{connected: false}
	_, b := openDirect(t, snd, &fakeFetcher{})

	entry, _ := b.Send("retry me")

	snd.mu.Lock()
	snd.connected = true
	snd.mu.Unlock()

	fresh, err := b.Resend(entry.ClientID)
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if fresh.ClientID == entry.ClientID {
		t.Error("resend must mint a new correlation id")
	}

	msgs := b.Messages()
	if len(msgs) != 1 || msgs[0].Status != Pending {
		t.Errorf("expected the failed entry replaced by one pending entry, got %+v", msgs)
	}
	if snd.frameCount() != 1 {
		t.Errorf("expected one transmitted frame, got %d", snd.frameCount())
	}
}

func TestBinding_HistoryMergesUnderLiveTraffic(t *testing.T) {
	fetcher := &fakeFetcher{
		direct: []wire.Message{
			{ID: "h1", SenderID: "u2", RecipientID: "u1", Content: "old", CreatedAt: time.Unix(100, 0)},
			{ID: "live1", SenderID: "u2", RecipientID: "u1", Content: "raced", CreatedAt: time.Unix(200, 0)},
		},
		release: make(chan struct{}),
	}
	snd := &fakeSender{connected: true}
	d, b := openDirect(t, snd, fetcher)

	// live1 arrives on the socket before the history page lands.
	d.Publish(wire.MessageEvent{Message: wire.Message{
		ID: "live1", SenderID: "u2", RecipientID: "u1", Content: "raced",
	}})
	close(fetcher.release)

	waitUntil(t, func() bool { return len(b.Messages()) == 2 }, "history never merged")

	msgs := b.Messages()
	if msgs[0].ID != "h1" || msgs[1].ID != "live1" {
		t.Errorf("expected [h1 live1], got %+v", msgs)
	}

	waitUntil(t, func() bool {
		fetcher.mu.Lock()
		defer fetcher.mu.Unlock()
		return fetcher.markReads == 1
	}, "direct history load should mark the thread read")
}

func TestBinding_LateHistoryAfterCloseDiscarded(t *testing.T) {
	fetcher := &fakeFetcher{
		direct:  []wire.Message{{ID: "h1", SenderID: "u2", RecipientID: "u1", Content: "late"}},
		release: make(chan struct{}),
	}
	snd := &fakeSender{connected: true}
	d := dispatch.NewDispatcher()
	b := Open(context.Background(), d, snd, fetcher, "u1", DirectIdentity{UserID: "u1", PeerID: "u2"})

	b.Close()
	close(fetcher.release)

	time.Sleep(50 * time.Millisecond)
	if got := len(b.Messages()); got != 0 {
		t.Errorf("late history page must be discarded after close, got %d entries", got)
	}
}

func TestBinding_HistoryFailureDegradesToLive(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("persistence unavailable")}
	snd := &fakeSender{connected: true}
	d, b := openDirect(t, snd, fetcher)

	waitUntil(t, func() bool { return b.HistoryErr() != nil }, "history error never surfaced")

	d.Publish(wire.MessageEvent{Message: wire.Message{
		ID: "m1", SenderID: "u2", RecipientID: "u1", Content: "still works",
	}})
	if got := len(b.Messages()); got != 1 {
		t.Errorf("live messaging should survive a history failure, got %d entries", got)
	}
}

func TestBinding_CloseUnsubscribesSynchronously(t *testing.T) {
	snd := &fakeSender{connected: true}
	d := dispatch.NewDispatcher()
	b := Open(context.Background(), d, snd, &fakeFetcher{}, "u1", DirectIdentity{UserID: "u1", PeerID: "u2"})

	b.Close()
	d.Publish(wire.MessageEvent{Message: wire.Message{
		ID: "m1", SenderID: "u2", RecipientID: "u1", Content: "after close",
	}})

	if got := len(b.Messages()); got != 0 {
		t.Errorf("closed binding must not receive events, got %d", got)
	}
}
