// Package client assembles the chat delivery layer for one logged-in
// session: dispatcher, transport connection, presence tracker, unread
// counter, and the persistence client. The Service replaces the hidden
// module-level connection of older clients with an explicitly constructed,
// injectable object: built at login, torn down at logout, trivially
// instantiable in tests.
package client

import (
	"context"
	"time"

	"github.com/wayfare-social/wayfare-chat/pkg/config"
	"github.com/wayfare-social/wayfare-chat/pkg/conversation"
	"github.com/wayfare-social/wayfare-chat/pkg/dispatch"
	"github.com/wayfare-social/wayfare-chat/pkg/history"
	"github.com/wayfare-social/wayfare-chat/pkg/presence"
	"github.com/wayfare-social/wayfare-chat/pkg/session"
	"github.com/wayfare-social/wayfare-chat/pkg/transport"
	"github.com/wayfare-social/wayfare-chat/pkg/wire"
)

type Service struct {
	Dispatcher *dispatch.Dispatcher
	Conn       *transport.Conn
	Presence   *presence.Tracker
	Unread     *conversation.UnreadCounter
	History    *history.Client
	Profiles   *history.ProfileResolver

	sess *session.Session
}

// NewService wires up the full client for a session. Nothing connects until
// Start.
func NewService(cfg *config.Config, sess *session.Session) *Service {
	d := dispatch.NewDispatcher()
	histClient := history.NewClient(cfg.Persistence)
	return &Service{
		Dispatcher: d,
		Conn:       transport.NewConn(cfg.Chat, d),
		Presence:   presence.NewTracker(d, time.Duration(cfg.Chat.TypingTTLMillis)*time.Millisecond),
		Unread:     conversation.NewUnreadCounter(d),
		History:    histClient,
		Profiles:   history.NewProfileResolver(histClient),
		sess:       sess,
	}
}

// UserID returns the session's user id.
func (s *Service) UserID() string { return s.sess.UserID }

// Start begins connecting. It returns immediately; the transport retries in
// the background and the UI observes state via State or StateChange events.
func (s *Service) Start(ctx context.Context) error {
	return s.Conn.Connect(ctx, s.sess.UserID)
}

// State reports the transport state.
func (s *Service) State() wire.ConnState { return s.Conn.State() }

// OpenDirect opens the 1:1 conversation with a counterpart.
func (s *Service) OpenDirect(ctx context.Context, peerID string, opts ...conversation.Option) *conversation.Binding {
	id := conversation.DirectIdentity{UserID: s.sess.UserID, PeerID: peerID}
	return s.open(ctx, id, opts...)
}

// OpenGroup opens a group conversation.
func (s *Service) OpenGroup(ctx context.Context, chatID string, opts ...conversation.Option) *conversation.Binding {
	return s.open(ctx, conversation.GroupIdentity{ChatID: chatID}, opts...)
}

func (s *Service) open(ctx context.Context, id conversation.Identity, opts ...conversation.Option) *conversation.Binding {
	s.Unread.MarkOpen(id)
	opts = append(opts, conversation.WithProfileResolver(s.Profiles))
	return conversation.Open(ctx, s.Dispatcher, s.Conn, s.History, s.sess.UserID, id, opts...)
}

// CloseConversation closes a binding and resumes unread counting for it.
func (s *Service) CloseConversation(b *conversation.Binding) {
	b.Close()
	s.Unread.MarkClosed(b.Identity())
}

// Stop tears the session down: logout path. Safe to call once.
func (s *Service) Stop() {
	s.Conn.Close()
	s.Presence.Close()
	s.Unread.Close()
	s.Dispatcher.Close()
}
